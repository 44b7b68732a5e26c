package job

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/tenantrag/internal/model"
)

type fakePruner struct {
	cutoff int64
}

func (f *fakePruner) DeleteBefore(_ context.Context, cutoff int64) (int64, error) {
	f.cutoff = cutoff
	return 3, nil
}

type fakeCleaner struct {
	cutoff time.Time
	err    error
}

func (f *fakeCleaner) DeleteBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return 1, f.err
}

type fakeIngester struct {
	tenant string
	report *model.IngestReport
	err    error
}

func (f *fakeIngester) IngestInventory(_ context.Context, tenantID string) (*model.IngestReport, error) {
	f.tenant = tenantID
	return f.report, f.err
}

func TestEmbeddingCacheCleanupJob(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	pruner := &fakePruner{}
	j := NewEmbeddingCacheCleanupJob(pruner, 2)
	j.now = func() time.Time { return now }
	require.NoError(t, j.Run(context.Background()))
	require.Equal(t, now.Add(-48*time.Hour).Unix(), pruner.cutoff)

	require.NoError(t, NewEmbeddingCacheCleanupJob(nil, 2).Run(context.Background()))
}

func TestAnswerCacheCleanupJob(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	cleaner := &fakeCleaner{}
	j := NewAnswerCacheCleanupJob(cleaner, time.Hour)
	j.now = func() time.Time { return now }
	require.NoError(t, j.Run(context.Background()))
	require.Equal(t, now.Add(-time.Hour), cleaner.cutoff)

	cleaner.err = errors.New("boom")
	require.Error(t, j.Run(context.Background()))
	require.NoError(t, NewAnswerCacheCleanupJob(nil, time.Hour).Run(context.Background()))
}

func TestIngestInventoryJob(t *testing.T) {
	ingester := &fakeIngester{report: &model.IngestReport{Records: 2, Ingested: 2, Chunks: 2}}
	j := NewIngestInventoryJob(ingester)
	require.Equal(t, "ingest_inventory", j.Name())
	require.NoError(t, j.Run(context.Background()))
	require.Equal(t, "", ingester.tenant)

	ingester.report = &model.IngestReport{Records: 2, Skipped: 2, FailedBatches: 1}
	require.Error(t, j.Run(context.Background()))

	ingester.err = errors.New("db down")
	require.Error(t, j.Run(context.Background()))
}
