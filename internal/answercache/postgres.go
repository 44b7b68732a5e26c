package answercache

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/tenantrag/internal/model"
	appErr "github.com/xxxsen/tenantrag/internal/pkg/errors"
	"github.com/xxxsen/tenantrag/internal/repo"
)

type postgresCache struct {
	repo *repo.AnswerCacheRepo
	ttl  time.Duration
	now  func() time.Time
}

func NewPostgresCache(r *repo.AnswerCacheRepo, ttl time.Duration) Cache {
	return &postgresCache{repo: r, ttl: ttl, now: time.Now}
}

func (c *postgresCache) Get(ctx context.Context, tenantID, question string) (string, bool, error) {
	normalized := NormalizeQuestion(question)
	entry, err := c.repo.Get(ctx, tenantID, normalized)
	if err != nil {
		if appErr.IsNotFound(err) {
			return "", false, nil
		}
		return "", false, err
	}
	if expired(entry.Ctime, c.ttl, c.now()) {
		if err := c.repo.Delete(ctx, tenantID, normalized, entry.Ctime); err != nil {
			logutil.GetLogger(ctx).Warn("delete expired answer cache entry failed", zap.Error(err))
		}
		return "", false, nil
	}
	return entry.Answer, true, nil
}

func (c *postgresCache) Set(ctx context.Context, tenantID, question, answer string) error {
	return c.repo.Upsert(ctx, &model.CacheEntry{
		TenantID: tenantID,
		Question: NormalizeQuestion(question),
		Answer:   answer,
		Ctime:    c.now().Unix(),
	})
}

func (c *postgresCache) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return c.repo.DeleteBefore(ctx, cutoff.Unix())
}
