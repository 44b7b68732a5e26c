package answercache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

const badgerKeyPrefix = "answer:"

type badgerLogger struct {
	logger *zap.Logger
}

func (l *badgerLogger) Errorf(msg string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(msg, args...))
}

func (l *badgerLogger) Warningf(msg string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(msg, args...))
}

func (l *badgerLogger) Infof(msg string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(msg, args...))
}

func (l *badgerLogger) Debugf(msg string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(msg, args...))
}

type badgerCache struct {
	db  *badger.DB
	ttl time.Duration
	now func() time.Time
}

func NewBadgerCache(dir string, inMemory bool, ttl time.Duration) (Cache, error) {
	c, err := newBadgerCache(dir, inMemory, ttl, time.Now)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func newBadgerCache(dir string, inMemory bool, ttl time.Duration, now func() time.Time) (*badgerCache, error) {
	var opts badger.Options
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create badger dir: %w", err)
		}
		opts = badger.DefaultOptions(dir)
	}
	opts.Logger = &badgerLogger{logger: logutil.GetLogger(context.Background()).With(zap.String("component", "badger"))}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &badgerCache{db: db, ttl: ttl, now: now}, nil
}

func (c *badgerCache) Get(ctx context.Context, tenantID, question string) (string, bool, error) {
	key := []byte(hashedKey(badgerKeyPrefix, tenantID, question))
	var raw []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	entry, err := decodeEntry(raw)
	if err != nil || entry.TenantID != tenantID || expired(entry.Ctime, c.ttl, c.now()) {
		if delErr := c.db.Update(func(txn *badger.Txn) error { return txn.Delete(key) }); delErr != nil {
			logutil.GetLogger(ctx).Warn("delete stale answer cache entry failed", zap.Error(delErr))
		}
		return "", false, nil
	}
	return entry.Answer, true, nil
}

func (c *badgerCache) Set(ctx context.Context, tenantID, question, answer string) error {
	raw, err := encodeEntry(tenantID, question, answer, c.now())
	if err != nil {
		return err
	}
	key := []byte(hashedKey(badgerKeyPrefix, tenantID, question))
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry(key, raw).WithTTL(c.ttl))
	})
}

func (c *badgerCache) Close() error {
	return c.db.Close()
}
