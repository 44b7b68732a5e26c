package job

import (
	"context"
	"fmt"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/tenantrag/internal/model"
)

type InventoryIngester interface {
	IngestInventory(ctx context.Context, tenantID string) (*model.IngestReport, error)
}

// IngestInventoryJob ingests new products of every tenant. Products that
// already have chunks are skipped, so the job is safe to run repeatedly.
type IngestInventoryJob struct {
	ingester InventoryIngester
}

func NewIngestInventoryJob(ingester InventoryIngester) *IngestInventoryJob {
	return &IngestInventoryJob{ingester: ingester}
}

func (j *IngestInventoryJob) Name() string {
	return "ingest_inventory"
}

func (j *IngestInventoryJob) Run(ctx context.Context) error {
	report, err := j.ingester.IngestInventory(ctx, "")
	if err != nil {
		return err
	}
	logutil.GetLogger(ctx).Info("inventory ingested",
		zap.Int("records", report.Records),
		zap.Int("ingested", report.Ingested),
		zap.Int("skipped", report.Skipped),
		zap.Int("rejected", report.Rejected),
		zap.Int("chunks", report.Chunks),
		zap.Int("failed_batches", report.FailedBatches),
	)
	if report.FailedBatches > 0 {
		return fmt.Errorf("%d batches failed", report.FailedBatches)
	}
	return nil
}
