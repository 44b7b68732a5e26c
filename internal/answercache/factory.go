package answercache

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/xxxsen/tenantrag/internal/config"
	appErr "github.com/xxxsen/tenantrag/internal/pkg/errors"
	"github.com/xxxsen/tenantrag/internal/repo"
)

// New builds the backend selected by cfg.Type. db is only used by the
// postgres backend.
func New(ctx context.Context, cfg config.CacheConfig, db *sql.DB) (Cache, error) {
	ttl := time.Duration(cfg.TTLSeconds) * time.Second
	switch cfg.Type {
	case "", "lru":
		return NewLRUCache(cfg.LRUSize, ttl), nil
	case "redis":
		return NewRedisCache(ctx, RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		}, ttl)
	case "postgres":
		if db == nil {
			return nil, fmt.Errorf("%w: postgres answer cache needs a database", appErr.ErrConfiguration)
		}
		return NewPostgresCache(repo.NewAnswerCacheRepo(db), ttl), nil
	case "badger":
		return NewBadgerCache(cfg.Badger.Dir, cfg.Badger.InMemory, ttl)
	default:
		return nil, fmt.Errorf("%w: unknown cache type %q", appErr.ErrConfiguration, cfg.Type)
	}
}
