package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/xxxsen/tenantrag/internal/answercache"
	"github.com/xxxsen/tenantrag/internal/config"
	"github.com/xxxsen/tenantrag/internal/handler"
	"github.com/xxxsen/tenantrag/internal/job"
	"github.com/xxxsen/tenantrag/internal/middleware"
	appErr "github.com/xxxsen/tenantrag/internal/pkg/errors"
	"github.com/xxxsen/tenantrag/internal/schedule"
	"github.com/xxxsen/tenantrag/internal/service"
	"github.com/xxxsen/tenantrag/internal/tracing"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:          "tenantrag",
		Short:        "multi-tenant retrieval augmented question answering",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.json")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run http server and scheduled jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context(), configPath)
			if err != nil {
				return err
			}
			defer a.Close()
			return runServer(cmd.Context(), a)
		},
	}

	var ingestTenant, ingestFile string
	ingestCmd := &cobra.Command{
		Use:   "ingest",
		Short: "ingest inventory products, or one document with --file",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context(), configPath)
			if err != nil {
				return err
			}
			defer a.Close()
			return runIngest(cmd.Context(), a, ingestTenant, ingestFile)
		},
	}
	ingestCmd.Flags().StringVar(&ingestTenant, "tenant", "", "only ingest this tenant, required with --file")
	ingestCmd.Flags().StringVar(&ingestFile, "file", "", "text or markdown document to ingest")

	var askTenant, askProvider string
	askCmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "answer one question for a tenant",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context(), configPath)
			if err != nil {
				return err
			}
			defer a.Close()
			res, err := a.rag.AnswerWith(cmd.Context(), askTenant, strings.Join(args, " "), askProvider)
			if err != nil {
				return userFacingError(cmd.Context(), err)
			}
			return printJSON(res)
		},
	}
	askCmd.Flags().StringVar(&askTenant, "tenant", "", "tenant (user id) to answer for")
	askCmd.Flags().StringVar(&askProvider, "provider", "", "preferred generator name from ai.generators")
	_ = askCmd.MarkFlagRequired("tenant")

	rootCmd.AddCommand(runCmd, ingestCmd, askCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logutil.GetLogger(context.Background()).Fatal("command failed", zap.Error(err))
	}
}

func setup(ctx context.Context, configPath string) (*app, error) {
	if configPath == "" {
		return nil, fmt.Errorf("--config is required")
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger.Init(
		cfg.LogConfig.File,
		cfg.LogConfig.Level,
		int(cfg.LogConfig.FileCount),
		int(cfg.LogConfig.FileSize),
		int(cfg.LogConfig.KeepDays),
		cfg.LogConfig.Console,
	)
	logutil.GetLogger(ctx).Info("config loaded", zap.String("config", configPath))
	return newApp(ctx, cfg)
}

func runIngest(ctx context.Context, a *app, tenant, file string) error {
	if file == "" {
		report, err := a.ingest.IngestInventory(ctx, tenant)
		if err != nil {
			return err
		}
		return printJSON(report)
	}
	if tenant == "" {
		return errors.New("--tenant is required with --file")
	}
	content, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("read document: %w", err)
	}
	report, err := a.ingest.IngestDocument(ctx, tenant, filepath.Base(file), content)
	if err != nil {
		return err
	}
	return printJSON(report)
}

// userFacingError hides provider failures behind the same message the http
// api returns.
func userFacingError(ctx context.Context, err error) error {
	if !appErr.IsProvider(err) {
		return err
	}
	logutil.GetLogger(ctx).Error("answer failed", zap.Error(err))
	return errors.New(service.UnavailableMessage)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func startScheduler(ctx context.Context, a *app) (*schedule.CronScheduler, error) {
	cfg := a.cfg
	scheduler := schedule.NewCronScheduler()
	if a.db != nil {
		if err := scheduler.AddJob(job.NewIngestInventoryJob(a.ingest), cfg.Schedule.IngestInventoryCron); err != nil {
			return nil, err
		}
	}
	if a.embedCacheRepo != nil {
		if err := scheduler.AddJob(job.NewEmbeddingCacheCleanupJob(a.embedCacheRepo, cfg.Schedule.EmbeddingCacheMaxAgeDays),
			cfg.Schedule.EmbeddingCacheCleanupCron); err != nil {
			return nil, err
		}
	}
	if cleaner, ok := a.cache.(answercache.Cleaner); ok {
		ttl := time.Duration(cfg.Cache.TTLSeconds) * time.Second
		if err := scheduler.AddJob(job.NewAnswerCacheCleanupJob(cleaner, ttl), cfg.Schedule.AnswerCacheCleanupCron); err != nil {
			return nil, err
		}
	}
	scheduler.Start(ctx)
	return scheduler, nil
}

func runServer(ctx context.Context, a *app) error {
	cfg := a.cfg
	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("vector_store", cfg.VectorStore.Type),
	)

	ctx, stop := context.WithCancel(ctx)
	defer stop()

	scheduler, err := startScheduler(ctx, a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer scheduler.Stop()

	deps := handler.RouterDeps{
		Chat:         handler.NewChatHandler(a.rag, a.historyLister()),
		Documents:    handler.NewDocumentHandler(a.ingest, int64(cfg.MaxUploadMB)*1024*1024),
		Ingest:       handler.NewIngestHandler(a.ingest),
		JWTSecret:    []byte(cfg.JWTSecret),
		AskRateLimit: time.Duration(cfg.AskRateLimit) * time.Millisecond,
	}
	engine, err := webapi.NewEngine(
		"/api/v1",
		addr,
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			otelgin.Middleware(tracing.ServiceName),
			middleware.RequestID(),
			middleware.CORS(cfg.CORSAllowlist),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}
	logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", addr))

	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}

// historyLister avoids handing a typed nil repo to the handler when history is off.
func (a *app) historyLister() handler.HistoryLister {
	if a.historyRepo == nil {
		return nil
	}
	return a.historyRepo
}
