package job

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/tenantrag/internal/answercache"
)

// AnswerCacheCleanupJob drops expired answers from caches that do not
// evict on their own.
type AnswerCacheCleanupJob struct {
	cleaner answercache.Cleaner
	ttl     time.Duration
	now     func() time.Time
}

func NewAnswerCacheCleanupJob(cleaner answercache.Cleaner, ttl time.Duration) *AnswerCacheCleanupJob {
	return &AnswerCacheCleanupJob{cleaner: cleaner, ttl: ttl, now: time.Now}
}

func (j *AnswerCacheCleanupJob) Name() string {
	return "answer_cache_cleanup"
}

func (j *AnswerCacheCleanupJob) Run(ctx context.Context) error {
	if j.cleaner == nil || j.ttl <= 0 {
		return nil
	}
	removed, err := j.cleaner.DeleteBefore(ctx, j.now().Add(-j.ttl))
	if err != nil {
		return err
	}
	logutil.GetLogger(ctx).Info("answer cache pruned", zap.Int64("removed", removed))
	return nil
}
