package config

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/xxxsen/common/logger"

	appErr "github.com/xxxsen/tenantrag/internal/pkg/errors"
)

const (
	DefaultTopK              = 3
	DefaultScoreThreshold    = 0.30
	DefaultChunkSize         = 500
	DefaultChunkOverlap      = 50
	DefaultCacheTTLSeconds   = 3600
	DefaultIngestBatchSize   = 16
	DefaultIngestConcurrency = 2
	DefaultMaxQuestionChars  = 2000
)

const DefaultSystemPrompt = `You are a friendly conversational AI assistant for an inventory and document system.

What to answer:
- Answer directly and only with information found in the provided Context when the user asks about inventory or their uploaded documents.
- If the answer is not found in the Context, respond with exactly:
"I can only answer questions about your inventory and your uploaded documents. Please ask about those topics."

Style:
- Be friendly, warm, and helpful.
- Answer directly. Do not use phrases like "Based on the context" or any meta-commentary.
- Be concise, clear, and factual. Do not hallucinate or invent details.`

var DefaultBoilerplatePatterns = []string{
	`(?i)^\s*(based on|according to|from|given) (the |your )?(provided |given |available )?(context|documents?|information|data|inventory)\s*[,:]?\s*`,
	`(?i)^\s*(here is|here's) (the |my )?answer\s*[:,]?\s*`,
	`(?i)^\s*answer\s*:\s*`,
}

type Config struct {
	Port          int               `json:"port"`
	JWTSecret     string            `json:"jwt_secret"`
	CORSAllowlist []string          `json:"cors_allowlist"`
	MaxUploadMB   int               `json:"max_upload_mb"`
	AskRateLimit  int               `json:"ask_rate_limit_ms"`
	LogConfig     logger.LogConfig  `json:"log_config"`
	Database      DatabaseConfig    `json:"database"`
	AI            AIConfig          `json:"ai"`
	RAG           RAGConfig         `json:"rag"`
	Cache         CacheConfig       `json:"cache"`
	VectorStore   VectorStoreConfig `json:"vector_store"`
	History       HistoryConfig     `json:"history"`
	FileStore     FileStoreConfig   `json:"file_store"`
	Schedule      ScheduleConfig    `json:"schedule"`
	Tracing       TracingConfig     `json:"tracing"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	SSLMode  string `json:"ssl_mode"`
}

func (c DatabaseConfig) Configured() bool {
	return c.DSN != "" || (c.Host != "" && c.DBName != "")
}

type ProviderEntry struct {
	Name     string      `json:"name"`
	Provider string      `json:"provider"`
	Model    string      `json:"model"`
	Data     interface{} `json:"data"`
}

type AIConfig struct {
	Generators     []ProviderEntry  `json:"generators"`
	Embedders      []ProviderEntry  `json:"embedders"`
	Timeout        int              `json:"timeout"`
	Retries        int              `json:"retries"`
	RetryBackoffMs int              `json:"retry_backoff_ms"`
	EmbedCache     EmbedCacheConfig `json:"embed_cache"`
}

type EmbedCacheConfig struct {
	LRUSize       int  `json:"lru_size"`
	LRUTTLSeconds int  `json:"lru_ttl_seconds"`
	UseDB         bool `json:"use_db"`
}

type RAGConfig struct {
	TopK                int      `json:"top_k"`
	ScoreThreshold      *float64 `json:"score_threshold"`
	ChunkSize           int      `json:"chunk_size"`
	ChunkOverlap        *int     `json:"chunk_overlap"`
	IngestBatchSize     int      `json:"ingest_batch_size"`
	IngestConcurrency   int      `json:"ingest_concurrency"`
	MaxQuestionChars    int      `json:"max_question_chars"`
	SystemPrompt        string   `json:"system_prompt"`
	BoilerplatePatterns []string `json:"boilerplate_patterns"`
	SkipSmallTalkCache  bool     `json:"skip_small_talk_cache"`
}

type CacheConfig struct {
	Type       string       `json:"type"`
	TTLSeconds int          `json:"ttl_seconds"`
	LRUSize    int          `json:"lru_size"`
	Redis      RedisConfig  `json:"redis"`
	Badger     BadgerConfig `json:"badger"`
}

type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	Prefix   string `json:"prefix"`
}

type BadgerConfig struct {
	Dir      string `json:"dir"`
	InMemory bool   `json:"in_memory"`
}

type VectorStoreConfig struct {
	Type string `json:"type"`
}

type HistoryConfig struct {
	Disabled bool `json:"disabled"`
	Workers  int  `json:"workers"`
}

type FileStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type ScheduleConfig struct {
	IngestInventoryCron       string `json:"ingest_inventory_cron"`
	EmbeddingCacheCleanupCron string `json:"embedding_cache_cleanup_cron"`
	EmbeddingCacheMaxAgeDays  int    `json:"embedding_cache_max_age_days"`
	AnswerCacheCleanupCron    string `json:"answer_cache_cleanup_cron"`
}

type TracingConfig struct {
	Enabled     bool    `json:"enabled"`
	Stdout      bool    `json:"stdout"`
	SampleRatio float64 `json:"sample_ratio"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func configErr(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", appErr.ErrConfiguration, fmt.Sprintf(format, args...))
}

func (cfg *Config) normalize() error {
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.MaxUploadMB <= 0 {
		cfg.MaxUploadMB = 10
	}
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return configErr("jwt_secret is required")
	}
	if len(cfg.AI.Generators) == 0 {
		return configErr("ai.generators requires at least one provider")
	}
	if len(cfg.AI.Embedders) == 0 {
		return configErr("ai.embedders requires at least one provider")
	}
	for i, item := range append(append([]ProviderEntry{}, cfg.AI.Generators...), cfg.AI.Embedders...) {
		if strings.TrimSpace(item.Provider) == "" || strings.TrimSpace(item.Model) == "" {
			return configErr("ai provider entry %d needs provider and model", i)
		}
	}
	if cfg.AI.Timeout <= 0 {
		cfg.AI.Timeout = 30
	}
	// a negative value turns retries off
	switch {
	case cfg.AI.Retries == 0:
		cfg.AI.Retries = 1
	case cfg.AI.Retries < 0:
		cfg.AI.Retries = 0
	}
	if cfg.AI.RetryBackoffMs <= 0 {
		cfg.AI.RetryBackoffMs = 500
	}

	rag := &cfg.RAG
	if rag.TopK <= 0 {
		rag.TopK = DefaultTopK
	}
	// zero is a valid threshold and overlap, only an absent value takes the default
	if rag.ScoreThreshold == nil {
		v := DefaultScoreThreshold
		rag.ScoreThreshold = &v
	}
	if *rag.ScoreThreshold < -1 || *rag.ScoreThreshold > 1 {
		return configErr("rag.score_threshold must be within [-1, 1]")
	}
	if rag.ChunkSize <= 0 {
		rag.ChunkSize = DefaultChunkSize
	}
	if rag.ChunkOverlap == nil {
		v := DefaultChunkOverlap
		rag.ChunkOverlap = &v
	}
	if *rag.ChunkOverlap < 0 || *rag.ChunkOverlap >= rag.ChunkSize {
		return configErr("rag.chunk_overlap must be within [0, chunk_size)")
	}
	if rag.IngestBatchSize <= 0 {
		rag.IngestBatchSize = DefaultIngestBatchSize
	}
	if rag.IngestConcurrency <= 0 {
		rag.IngestConcurrency = DefaultIngestConcurrency
	}
	if rag.MaxQuestionChars <= 0 {
		rag.MaxQuestionChars = DefaultMaxQuestionChars
	}
	if strings.TrimSpace(rag.SystemPrompt) == "" {
		rag.SystemPrompt = DefaultSystemPrompt
	}
	if rag.BoilerplatePatterns == nil {
		rag.BoilerplatePatterns = DefaultBoilerplatePatterns
	}
	for _, p := range rag.BoilerplatePatterns {
		if _, err := regexp.Compile(p); err != nil {
			return configErr("rag.boilerplate_patterns: %v", err)
		}
	}

	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = "pgvector"
	}
	switch cfg.VectorStore.Type {
	case "pgvector":
		if !cfg.Database.Configured() {
			return configErr("database dsn or host/db_name is required for pgvector store")
		}
	case "memory":
	default:
		return configErr("vector_store.type must be pgvector or memory")
	}

	if cfg.Cache.Type == "" {
		cfg.Cache.Type = "lru"
	}
	if cfg.Cache.TTLSeconds <= 0 {
		cfg.Cache.TTLSeconds = DefaultCacheTTLSeconds
	}
	if cfg.Cache.LRUSize <= 0 {
		cfg.Cache.LRUSize = 10000
	}
	switch cfg.Cache.Type {
	case "lru":
	case "redis":
		if cfg.Cache.Redis.Addr == "" {
			return configErr("cache.redis.addr is required for redis cache")
		}
		if cfg.Cache.Redis.Prefix == "" {
			cfg.Cache.Redis.Prefix = "tenantrag:answer:"
		}
	case "postgres":
		if !cfg.Database.Configured() {
			return configErr("database is required for postgres cache")
		}
	case "badger":
		if cfg.Cache.Badger.Dir == "" && !cfg.Cache.Badger.InMemory {
			return configErr("cache.badger.dir is required unless in_memory is set")
		}
	default:
		return configErr("cache.type must be lru, redis, postgres or badger")
	}

	if !cfg.History.Disabled && !cfg.Database.Configured() {
		return configErr("database is required for history, set history.disabled to skip it")
	}
	if cfg.History.Workers <= 0 {
		cfg.History.Workers = 4
	}
	if cfg.AI.EmbedCache.UseDB && !cfg.Database.Configured() {
		return configErr("database is required for ai.embed_cache.use_db")
	}

	if cfg.FileStore.Type == "" {
		cfg.FileStore.Type = "none"
	}
	switch cfg.FileStore.Type {
	case "none", "local", "s3":
	default:
		return configErr("file_store.type must be none, local or s3")
	}
	if cfg.Schedule.EmbeddingCacheMaxAgeDays <= 0 {
		cfg.Schedule.EmbeddingCacheMaxAgeDays = 30
	}
	if cfg.Tracing.SampleRatio <= 0 || cfg.Tracing.SampleRatio > 1 {
		cfg.Tracing.SampleRatio = 1
	}
	return nil
}

// RequiresDatabase reports whether any configured component needs postgres.
func (cfg *Config) RequiresDatabase() bool {
	return cfg.VectorStore.Type == "pgvector" ||
		cfg.Cache.Type == "postgres" ||
		!cfg.History.Disabled ||
		cfg.AI.EmbedCache.UseDB ||
		cfg.Database.Configured()
}
