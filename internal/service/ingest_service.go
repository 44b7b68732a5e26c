package service

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/panjf2000/ants/v2"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/tenantrag/internal/ai"
	"github.com/xxxsen/tenantrag/internal/filestore"
	"github.com/xxxsen/tenantrag/internal/model"
	appErr "github.com/xxxsen/tenantrag/internal/pkg/errors"
	"github.com/xxxsen/tenantrag/internal/vectorstore"
)

// RecordSource yields ingestible records, all tenants when tenantID is empty.
type RecordSource interface {
	ListRecords(ctx context.Context, tenantID string) ([]*model.SourceRecord, error)
}

type IngestConfig struct {
	BatchSize   int
	Concurrency int
}

type IngestService struct {
	embedder ai.IEmbedder
	store    vectorstore.Store
	splitter *ai.Splitter
	records  RecordSource
	files    filestore.Store
	cfg      IngestConfig
	pool     *ants.Pool
	now      func() time.Time
}

// NewIngestService wires the pipeline. records and files may be nil, which
// disables inventory ingestion and raw upload storage respectively.
func NewIngestService(embedder ai.IEmbedder, store vectorstore.Store, splitter *ai.Splitter,
	records RecordSource, files filestore.Store, cfg IngestConfig) (*IngestService, error) {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 16
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 2
	}
	pool, err := ants.NewPool(cfg.Concurrency)
	if err != nil {
		return nil, fmt.Errorf("create ingest pool: %w", err)
	}
	return &IngestService{
		embedder: embedder,
		store:    store,
		splitter: splitter,
		records:  records,
		files:    files,
		cfg:      cfg,
		pool:     pool,
		now:      time.Now,
	}, nil
}

func (s *IngestService) Release() {
	s.pool.Release()
}

func (s *IngestService) IngestRecords(ctx context.Context, records []*model.SourceRecord) (*model.IngestReport, error) {
	logger := logutil.GetLogger(ctx)
	report := &model.IngestReport{Records: len(records)}
	valid := make([]*model.SourceRecord, 0, len(records))
	seen := make(map[model.SourceKey]bool, len(records))
	for _, rec := range records {
		if err := rec.Validate(); err != nil {
			report.Rejected++
			logger.Warn("reject ingest record", zap.Error(err))
			continue
		}
		key := model.SourceKey{TenantID: rec.TenantID, SourceID: rec.SourceID}
		if seen[key] {
			report.Skipped++
			continue
		}
		seen[key] = true
		valid = append(valid, rec)
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for start := 0; start < len(valid); start += s.cfg.BatchSize {
		if err := ctx.Err(); err != nil {
			wg.Wait()
			return report, err
		}
		end := start + s.cfg.BatchSize
		if end > len(valid) {
			end = len(valid)
		}
		batch := valid[start:end]
		batchNo := start / s.cfg.BatchSize
		wg.Add(1)
		err := s.pool.Submit(func() {
			defer wg.Done()
			res := s.ingestBatch(ctx, batchNo, batch)
			mu.Lock()
			report.Merge(res)
			mu.Unlock()
		})
		if err != nil {
			wg.Done()
			logger.Error("submit ingest batch failed", zap.Int("batch", batchNo), zap.Error(err))
			mu.Lock()
			report.FailedBatches++
			mu.Unlock()
		}
	}
	wg.Wait()
	logger.Info("ingest finished",
		zap.Int("records", report.Records),
		zap.Int("rejected", report.Rejected),
		zap.Int("skipped", report.Skipped),
		zap.Int("ingested", report.Ingested),
		zap.Int("chunks", report.Chunks),
		zap.Int("failed_batches", report.FailedBatches),
	)
	return report, nil
}

// ingestBatch embeds the batch with one provider call and stores it in one
// transaction. Any failure abandons the whole batch.
func (s *IngestService) ingestBatch(ctx context.Context, batchNo int, batch []*model.SourceRecord) *model.IngestReport {
	logger := logutil.GetLogger(ctx).With(zap.Int("batch", batchNo), zap.Int("size", len(batch)))
	report := &model.IngestReport{}

	keys := make([]model.SourceKey, 0, len(batch))
	for _, rec := range batch {
		keys = append(keys, model.SourceKey{TenantID: rec.TenantID, SourceID: rec.SourceID})
	}
	existing, err := s.store.ExistingSources(ctx, keys)
	if err != nil {
		logger.Error("check existing sources failed", zap.Error(err))
		report.FailedBatches++
		return report
	}

	var chunks []*model.Chunk
	var texts []string
	pending := 0
	ctime := s.now().Unix()
	for _, rec := range batch {
		if existing[model.SourceKey{TenantID: rec.TenantID, SourceID: rec.SourceID}] {
			report.Skipped++
			continue
		}
		parts, err := s.splitter.Split(rec.Text())
		if err != nil {
			logger.Error("split record failed, batch abandoned", zap.String("source_id", rec.SourceID), zap.Error(err))
			return &model.IngestReport{Skipped: report.Skipped, FailedBatches: 1}
		}
		for idx, part := range parts {
			chunks = append(chunks, &model.Chunk{
				TenantID:   rec.TenantID,
				SourceID:   rec.SourceID,
				ChunkIndex: idx,
				Content:    part,
				Ctime:      ctime,
			})
			texts = append(texts, part)
		}
		pending++
	}
	if len(chunks) == 0 {
		return report
	}

	vectors, err := s.embedder.EmbedBatch(ctx, texts, ai.TaskRetrievalDocument)
	if err != nil {
		logger.Error("embed batch failed, batch abandoned", zap.Error(err))
		return &model.IngestReport{Skipped: report.Skipped, FailedBatches: 1}
	}
	if len(vectors) != len(chunks) {
		logger.Error("embedding count mismatch, batch abandoned", zap.Int("want", len(chunks)), zap.Int("got", len(vectors)))
		return &model.IngestReport{Skipped: report.Skipped, FailedBatches: 1}
	}
	for i := range chunks {
		chunks[i].Embedding = vectors[i]
	}
	inserted, err := s.store.Insert(ctx, chunks)
	if err != nil {
		logger.Error("store batch failed, batch abandoned", zap.Error(err))
		return &model.IngestReport{Skipped: report.Skipped, FailedBatches: 1}
	}
	report.Ingested += pending
	report.Chunks += inserted
	logger.Debug("batch ingested", zap.Int("records", pending), zap.Int("chunks", inserted))
	return report
}

// IngestDocument stores an uploaded file and ingests its text as one source.
func (s *IngestService) IngestDocument(ctx context.Context, tenantID, filename string, content []byte) (*model.IngestReport, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenant is required", appErr.ErrInvalid)
	}
	if len(bytes.TrimSpace(content)) == 0 {
		return nil, fmt.Errorf("%w: file is empty", appErr.ErrInvalid)
	}
	if !utf8.Valid(content) {
		return nil, fmt.Errorf("%w: file must be utf-8 text", appErr.ErrInvalid)
	}
	name := filepath.Base(strings.TrimSpace(filename))
	sourceID := documentSourceID(content)
	text := string(content)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".md", ".markdown":
		text = ai.MarkdownToText(text)
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: file has no text", appErr.ErrInvalid)
	}

	if s.files != nil {
		key := filestore.ObjectKey(tenantID, strings.TrimPrefix(sourceID, "doc:")+"-"+name)
		if err := s.files.Save(ctx, key, bytes.NewReader(content), int64(len(content))); err != nil {
			logutil.GetLogger(ctx).Warn("store raw upload failed", zap.String("key", key), zap.Error(err))
		}
	}
	report, err := s.IngestRecords(ctx, []*model.SourceRecord{{
		SourceID:    sourceID,
		Name:        name,
		Description: text,
		TenantID:    tenantID,
	}})
	if err != nil {
		return report, err
	}
	s.countTenant(ctx, tenantID, report)
	return report, nil
}

func (s *IngestService) countTenant(ctx context.Context, tenantID string, report *model.IngestReport) {
	count, err := s.store.Count(ctx, tenantID)
	if err != nil {
		logutil.GetLogger(ctx).Warn("count tenant chunks failed", zap.String("tenant_id", tenantID), zap.Error(err))
		return
	}
	report.TenantChunks = count
	logutil.GetLogger(ctx).Info("tenant chunks after ingest", zap.String("tenant_id", tenantID), zap.Int("chunks", count))
}

// IngestInventory ingests the products of one tenant, or of every tenant
// when tenantID is empty.
func (s *IngestService) IngestInventory(ctx context.Context, tenantID string) (*model.IngestReport, error) {
	if s.records == nil {
		return nil, fmt.Errorf("%w: record source not configured", appErr.ErrConfiguration)
	}
	tenantID = strings.TrimSpace(tenantID)
	records, err := s.records.ListRecords(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("load inventory records: %w", err)
	}
	report, err := s.IngestRecords(ctx, records)
	if err != nil {
		return report, err
	}
	if tenantID != "" {
		s.countTenant(ctx, tenantID, report)
	}
	return report, nil
}
