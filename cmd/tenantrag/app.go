package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/tenantrag/internal/ai"
	"github.com/xxxsen/tenantrag/internal/answercache"
	"github.com/xxxsen/tenantrag/internal/config"
	"github.com/xxxsen/tenantrag/internal/db"
	"github.com/xxxsen/tenantrag/internal/embedcache"
	"github.com/xxxsen/tenantrag/internal/filestore"
	"github.com/xxxsen/tenantrag/internal/repo"
	"github.com/xxxsen/tenantrag/internal/service"
	"github.com/xxxsen/tenantrag/internal/tracing"
	"github.com/xxxsen/tenantrag/internal/triage"
	"github.com/xxxsen/tenantrag/internal/vectorstore"
)

// app holds every long lived component shared by the cli commands.
type app struct {
	cfg            *config.Config
	db             *sql.DB
	cache          answercache.Cache
	embedCacheRepo *repo.EmbeddingCacheRepo
	historyRepo    *repo.HistoryRepo
	history        *service.HistoryRecorder
	ingest         *service.IngestService
	rag            *service.RAGService
	shutdownTrace  func(context.Context) error
}

func buildProviders(cfg config.AIConfig) (ai.IGenerator, ai.IEmbedder, error) {
	generators := make([]ai.GeneratorEntry, 0, len(cfg.Generators))
	for _, item := range cfg.Generators {
		p, err := ai.NewProvider(item.Provider, item.Data)
		if err != nil {
			return nil, nil, fmt.Errorf("init generator %s: %w", item.Name, err)
		}
		generators = append(generators, ai.GeneratorEntry{Name: item.Name, Generator: ai.NewGenerator(p, item.Model)})
	}
	embedders := make([]ai.EmbedderEntry, 0, len(cfg.Embedders))
	for _, item := range cfg.Embedders {
		p, err := ai.NewProvider(item.Provider, item.Data)
		if err != nil {
			return nil, nil, fmt.Errorf("init embedder %s: %w", item.Name, err)
		}
		embedders = append(embedders, ai.EmbedderEntry{Name: item.Name, Embedder: ai.NewEmbedder(p, item.Model)})
	}
	return ai.NewGroupGenerator(generators), ai.NewGroupEmbedder(embedders), nil
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg, shutdownTrace: func(context.Context) error { return nil }}
	shutdown, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	a.shutdownTrace = shutdown
	if err := a.init(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) init(ctx context.Context) error {
	cfg := a.cfg
	logger := logutil.GetLogger(ctx)
	if cfg.RequiresDatabase() {
		conn, err := db.Open(cfg.Database)
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		a.db = conn
		if err := db.ApplyMigrations(conn); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
	}

	generator, baseEmbedder, err := buildProviders(cfg.AI)
	if err != nil {
		return err
	}
	manager := ai.NewManager(generator, baseEmbedder, ai.ManagerConfig{
		Timeout: time.Duration(cfg.AI.Timeout) * time.Second,
		Retries: cfg.AI.Retries,
		Backoff: time.Duration(cfg.AI.RetryBackoffMs) * time.Millisecond,
	})
	var embedder ai.IEmbedder = manager
	if cfg.AI.EmbedCache.UseDB && a.db != nil {
		a.embedCacheRepo = repo.NewEmbeddingCacheRepo(a.db)
		embedder = embedcache.WrapDBCacheToEmbedder(embedder, a.embedCacheRepo)
	}
	if cfg.AI.EmbedCache.LRUSize > 0 {
		embedder = embedcache.WrapLruCacheToEmbedder(embedder, cfg.AI.EmbedCache.LRUSize,
			time.Duration(cfg.AI.EmbedCache.LRUTTLSeconds)*time.Second)
	}

	var store vectorstore.Store
	switch cfg.VectorStore.Type {
	case "memory":
		store = vectorstore.NewMemoryStore()
	default:
		store = vectorstore.NewPGVectorStore(repo.NewChunkRepo(a.db))
	}

	a.cache, err = answercache.New(ctx, cfg.Cache, a.db)
	if err != nil {
		return fmt.Errorf("init answer cache: %w", err)
	}

	files, err := filestore.New(cfg.FileStore)
	if err != nil {
		return fmt.Errorf("init file store: %w", err)
	}
	var records service.RecordSource
	if a.db != nil {
		records = repo.NewRecordRepo(a.db)
	}
	a.ingest, err = service.NewIngestService(embedder, store,
		ai.NewSplitter(cfg.RAG.ChunkSize, *cfg.RAG.ChunkOverlap), records, files,
		service.IngestConfig{BatchSize: cfg.RAG.IngestBatchSize, Concurrency: cfg.RAG.IngestConcurrency})
	if err != nil {
		return err
	}

	var history service.HistoryWriter
	if !cfg.History.Disabled {
		a.historyRepo = repo.NewHistoryRepo(a.db)
		a.history, err = service.NewHistoryRecorder(a.historyRepo, cfg.History.Workers)
		if err != nil {
			return err
		}
		history = a.history
	}
	retriever := service.NewRetriever(embedder, store, cfg.RAG.TopK, *cfg.RAG.ScoreThreshold)
	a.rag, err = service.NewRAGService(triage.New(), a.cache, retriever, manager, history, service.RAGConfig{
		SystemPrompt:        cfg.RAG.SystemPrompt,
		BoilerplatePatterns: cfg.RAG.BoilerplatePatterns,
		MaxQuestionChars:    cfg.RAG.MaxQuestionChars,
		SkipSmallTalkCache:  cfg.RAG.SkipSmallTalkCache,
	})
	if err != nil {
		return err
	}
	logger.Info("components ready",
		zap.String("vector_store", cfg.VectorStore.Type),
		zap.String("cache", cfg.Cache.Type),
		zap.String("file_store", cfg.FileStore.Type),
		zap.Bool("history", !cfg.History.Disabled),
		zap.String("embed_model", embedder.ModelName()),
	)
	return nil
}

// Close releases pools first so in-flight writes finish before their stores go away.
func (a *app) Close() {
	ctx := context.Background()
	logger := logutil.GetLogger(ctx)
	if a.ingest != nil {
		a.ingest.Release()
	}
	a.history.Release(5 * time.Second)
	if closer, ok := a.cache.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			logger.Warn("close answer cache failed", zap.Error(err))
		}
	}
	if a.db != nil {
		_ = a.db.Close()
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := a.shutdownTrace(shutdownCtx); err != nil {
		logger.Warn("shutdown tracing failed", zap.Error(err))
	}
}
