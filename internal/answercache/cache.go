package answercache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/xxxsen/tenantrag/internal/model"
)

// Cache stores generated answers per tenant. Keys are always the pair
// (tenant_id, NormalizeQuestion(question)).
type Cache interface {
	Get(ctx context.Context, tenantID, question string) (string, bool, error)
	Set(ctx context.Context, tenantID, question, answer string) error
}

// Cleaner is implemented by backends that need periodic purging.
type Cleaner interface {
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

func NormalizeQuestion(question string) string {
	return strings.ToLower(strings.TrimSpace(question))
}

// Key is the composite key used by in-process backends.
func Key(tenantID, question string) string {
	return tenantID + "\x00" + NormalizeQuestion(question)
}

func hashedKey(prefix, tenantID, question string) string {
	sum := sha256.Sum256([]byte(NormalizeQuestion(question)))
	return prefix + tenantID + ":" + hex.EncodeToString(sum[:])
}

func expired(ctime int64, ttl time.Duration, now time.Time) bool {
	return now.Sub(time.Unix(ctime, 0)) >= ttl
}

func encodeEntry(tenantID, question, answer string, now time.Time) ([]byte, error) {
	return json.Marshal(&model.CacheEntry{
		TenantID: tenantID,
		Question: NormalizeQuestion(question),
		Answer:   answer,
		Ctime:    now.Unix(),
	})
}

func decodeEntry(raw []byte) (*model.CacheEntry, error) {
	entry := &model.CacheEntry{}
	if err := json.Unmarshal(raw, entry); err != nil {
		return nil, err
	}
	return entry, nil
}
