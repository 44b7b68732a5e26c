package embedcache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/tenantrag/internal/ai"
)

func WrapLruCacheToEmbedder(e ai.IEmbedder, size int, ttl time.Duration) ai.IEmbedder {
	if e == nil || size <= 0 || ttl <= 0 {
		return e
	}
	return &lruEmbedder{
		next:  e,
		cache: expirable.NewLRU[string, []float32](size, nil, ttl),
	}
}

type lruEmbedder struct {
	next  ai.IEmbedder
	cache *expirable.LRU[string, []float32]
}

func (l *lruEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	return ai.EmbedOne(ctx, l, text, taskType)
}

func (l *lruEmbedder) EmbedBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	modelName := l.next.ModelName()
	keys := make([]string, len(texts))
	for i, text := range texts {
		keys[i] = buildCacheKey(modelName, taskType, text).key
	}
	hits := 0
	res, err := fillMisses(ctx, l.next, texts, taskType,
		func(i int) ([]float32, bool) {
			cached, ok := l.cache.Get(keys[i])
			if !ok {
				return nil, false
			}
			hits++
			return cloneEmbedding(cached), true
		},
		func(i int, vec []float32) {
			l.cache.Add(keys[i], cloneEmbedding(vec))
		})
	if err != nil {
		return nil, err
	}
	if hits > 0 {
		logutil.GetLogger(ctx).Debug("embedding cache hit (lru)", zap.String("task_type", taskType), zap.Int("hits", hits), zap.Int("total", len(texts)))
	}
	return res, nil
}

func (l *lruEmbedder) ModelName() string {
	return l.next.ModelName()
}
