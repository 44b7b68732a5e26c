package answercache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/xxxsen/tenantrag/internal/model"
)

type lruCache struct {
	cache *expirable.LRU[string, model.CacheEntry]
	ttl   time.Duration
	now   func() time.Time
}

func NewLRUCache(size int, ttl time.Duration) Cache {
	return newLRUCache(size, ttl, time.Now)
}

func newLRUCache(size int, ttl time.Duration, now func() time.Time) *lruCache {
	return &lruCache{
		cache: expirable.NewLRU[string, model.CacheEntry](size, nil, ttl),
		ttl:   ttl,
		now:   now,
	}
}

func (c *lruCache) Get(ctx context.Context, tenantID, question string) (string, bool, error) {
	key := Key(tenantID, question)
	entry, ok := c.cache.Get(key)
	if !ok {
		return "", false, nil
	}
	if expired(entry.Ctime, c.ttl, c.now()) {
		c.cache.Remove(key)
		return "", false, nil
	}
	return entry.Answer, true, nil
}

func (c *lruCache) Set(ctx context.Context, tenantID, question, answer string) error {
	c.cache.Add(Key(tenantID, question), model.CacheEntry{
		TenantID: tenantID,
		Question: NormalizeQuestion(question),
		Answer:   answer,
		Ctime:    c.now().Unix(),
	})
	return nil
}
