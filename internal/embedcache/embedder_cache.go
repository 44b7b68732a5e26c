package embedcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/xxxsen/tenantrag/internal/ai"
)

type cacheKey struct {
	key         string
	contentHash string
	modelName   string
}

func buildCacheKey(modelName, taskType, text string) cacheKey {
	modelName = strings.TrimSpace(modelName)
	if modelName == "" {
		modelName = "unknown"
	}
	hash := sha256.Sum256([]byte(text))
	contentHash := hex.EncodeToString(hash[:])
	return cacheKey{
		key:         "embed:" + modelName + ":" + taskType + ":" + contentHash,
		contentHash: contentHash,
		modelName:   modelName,
	}
}

// fillMisses embeds every text that lookup could not resolve with a single
// call to next, then hands each fresh vector to store.
func fillMisses(ctx context.Context, next ai.IEmbedder, texts []string, taskType string,
	lookup func(i int) ([]float32, bool), store func(i int, vec []float32)) ([][]float32, error) {
	res := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string
	for i, text := range texts {
		if vec, ok := lookup(i); ok {
			res[i] = vec
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}
	if len(missTexts) == 0 {
		return res, nil
	}
	vecs, err := next.EmbedBatch(ctx, missTexts, taskType)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(missTexts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vecs), len(missTexts))
	}
	for j, idx := range missIdx {
		res[idx] = vecs[j]
		store(idx, vecs[j])
	}
	return res, nil
}

func cloneEmbedding(values []float32) []float32 {
	if len(values) == 0 {
		return nil
	}
	clone := make([]float32, len(values))
	copy(clone, values)
	return clone
}
