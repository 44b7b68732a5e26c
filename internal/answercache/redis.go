package answercache

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type redisCache struct {
	rdb    *goredis.Client
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

func NewRedisCache(ctx context.Context, opts RedisOptions, ttl time.Duration) (Cache, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        opts.Addr,
		Password:    opts.Password,
		DB:          opts.DB,
		DialTimeout: 5 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &redisCache{rdb: rdb, prefix: opts.Prefix, ttl: ttl, now: time.Now}, nil
}

func (c *redisCache) Get(ctx context.Context, tenantID, question string) (string, bool, error) {
	key := hashedKey(c.prefix, tenantID, question)
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return "", false, nil
		}
		return "", false, err
	}
	entry, err := decodeEntry(raw)
	if err != nil {
		logutil.GetLogger(ctx).Warn("drop undecodable answer cache entry", zap.String("key", key), zap.Error(err))
		_ = c.rdb.Del(ctx, key).Err()
		return "", false, nil
	}
	if entry.TenantID != tenantID || expired(entry.Ctime, c.ttl, c.now()) {
		_ = c.rdb.Del(ctx, key).Err()
		return "", false, nil
	}
	return entry.Answer, true, nil
}

func (c *redisCache) Set(ctx context.Context, tenantID, question, answer string) error {
	raw, err := encodeEntry(tenantID, question, answer, c.now())
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, hashedKey(c.prefix, tenantID, question), raw, c.ttl).Err()
}

func (c *redisCache) Close() error {
	return c.rdb.Close()
}
