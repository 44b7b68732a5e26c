package service

import (
	"context"
	"fmt"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/tenantrag/internal/model"
)

type HistoryStore interface {
	Insert(ctx context.Context, item *model.HistoryRecord) error
}

// HistoryRecorder writes question/answer pairs. Failures are logged and
// never reach the caller.
type HistoryRecorder struct {
	store HistoryStore
	pool  *ants.Pool
	now   func() time.Time
}

func NewHistoryRecorder(store HistoryStore, workers int) (*HistoryRecorder, error) {
	if workers <= 0 {
		workers = 4
	}
	pool, err := ants.NewPool(workers, ants.WithNonblocking(true))
	if err != nil {
		return nil, fmt.Errorf("create history pool: %w", err)
	}
	return &HistoryRecorder{store: store, pool: pool, now: time.Now}, nil
}

func (h *HistoryRecorder) Record(ctx context.Context, tenantID, question, answer string) {
	if h == nil || h.store == nil {
		return
	}
	err := h.store.Insert(ctx, &model.HistoryRecord{
		TenantID: tenantID,
		Question: question,
		Answer:   answer,
		Ctime:    h.now().Unix(),
	})
	if err != nil {
		logutil.GetLogger(ctx).Warn("record chat history failed", zap.String("tenant_id", tenantID), zap.Error(err))
	}
}

// RecordAsync hands the write to the pool. A saturated pool drops it.
func (h *HistoryRecorder) RecordAsync(ctx context.Context, tenantID, question, answer string) {
	if h == nil || h.store == nil {
		return
	}
	detached := context.WithoutCancel(ctx)
	if err := h.pool.Submit(func() {
		h.Record(detached, tenantID, question, answer)
	}); err != nil {
		logutil.GetLogger(ctx).Warn("history pool busy, record dropped", zap.String("tenant_id", tenantID), zap.Error(err))
	}
}

// Release waits for queued writes up to timeout and stops the pool.
func (h *HistoryRecorder) Release(timeout time.Duration) {
	if h == nil {
		return
	}
	if err := h.pool.ReleaseTimeout(timeout); err != nil {
		logutil.GetLogger(context.Background()).Warn("history pool release timeout", zap.Error(err))
	}
}
