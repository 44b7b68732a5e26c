package embedcache

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/tenantrag/internal/ai"
	"github.com/xxxsen/tenantrag/internal/model"
)

// CacheStore persists embeddings keyed by model, task type and content hash.
type CacheStore interface {
	Get(ctx context.Context, modelName, taskType, contentHash string) ([]float32, bool, error)
	Save(ctx context.Context, item *model.EmbeddingCache) error
}

func WrapDBCacheToEmbedder(e ai.IEmbedder, store CacheStore) ai.IEmbedder {
	if e == nil || store == nil {
		return e
	}
	return &dbEmbedder{next: e, store: store, now: time.Now}
}

type dbEmbedder struct {
	next  ai.IEmbedder
	store CacheStore
	now   func() time.Time
}

func (d *dbEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	return ai.EmbedOne(ctx, d, text, taskType)
}

func (d *dbEmbedder) EmbedBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	logger := logutil.GetLogger(ctx)
	modelName := d.next.ModelName()
	keys := make([]cacheKey, len(texts))
	for i, text := range texts {
		keys[i] = buildCacheKey(modelName, taskType, text)
	}
	return fillMisses(ctx, d.next, texts, taskType,
		func(i int) ([]float32, bool) {
			values, ok, err := d.store.Get(ctx, keys[i].modelName, taskType, keys[i].contentHash)
			if err != nil {
				logger.Warn("read embedding cache failed", zap.Error(err))
				return nil, false
			}
			return values, ok
		},
		func(i int, vec []float32) {
			if err := d.store.Save(ctx, &model.EmbeddingCache{
				ModelName:   keys[i].modelName,
				TaskType:    taskType,
				ContentHash: keys[i].contentHash,
				Embedding:   vec,
				Ctime:       d.now().Unix(),
			}); err != nil {
				logger.Warn("failed to cache embedding", zap.Error(err))
			}
		})
}

func (d *dbEmbedder) ModelName() string {
	return d.next.ModelName()
}
