package vectorstore

import (
	"context"
	"math"
	"sync"

	"github.com/xxxsen/tenantrag/internal/model"
)

type chunkKey struct {
	sourceID   string
	chunkIndex int
}

// memoryStore keeps chunks partitioned by tenant. Used for tests and for
// single-process deployments without postgres.
type memoryStore struct {
	mu      sync.RWMutex
	nextID  int64
	tenants map[string]map[chunkKey]*model.Chunk
}

func NewMemoryStore() Store {
	return &memoryStore{tenants: make(map[string]map[chunkKey]*model.Chunk)}
}

func (s *memoryStore) ExistingSources(ctx context.Context, keys []model.SourceKey) (map[model.SourceKey]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make(map[model.SourceKey]bool, len(keys))
	for _, key := range keys {
		for ck := range s.tenants[key.TenantID] {
			if ck.sourceID == key.SourceID {
				res[key] = true
				break
			}
		}
	}
	return res, nil
}

func (s *memoryStore) Insert(ctx context.Context, chunks []*model.Chunk) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	inserted := 0
	for _, c := range chunks {
		bucket, ok := s.tenants[c.TenantID]
		if !ok {
			bucket = make(map[chunkKey]*model.Chunk)
			s.tenants[c.TenantID] = bucket
		}
		key := chunkKey{sourceID: c.SourceID, chunkIndex: c.ChunkIndex}
		if _, exists := bucket[key]; exists {
			continue
		}
		s.nextID++
		cp := *c
		cp.ID = s.nextID
		cp.Embedding = append([]float32(nil), c.Embedding...)
		bucket[key] = &cp
		inserted++
	}
	return inserted, nil
}

func (s *memoryStore) Count(ctx context.Context, tenantID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tenants[tenantID]), nil
}

func (s *memoryStore) Search(ctx context.Context, q SearchQuery) ([]*model.ScoredChunk, error) {
	if q.TopK <= 0 || len(q.Vector) == 0 {
		return []*model.ScoredChunk{}, nil
	}
	s.mu.RLock()
	bucket := s.tenants[q.TenantID]
	results := make([]*model.ScoredChunk, 0, len(bucket))
	for _, c := range bucket {
		score := cosineSimilarity(q.Vector, c.Embedding)
		if float64(score) < q.Threshold {
			continue
		}
		cp := *c
		results = append(results, &model.ScoredChunk{Chunk: &cp, Score: score})
	}
	s.mu.RUnlock()
	SortScored(results)
	if len(results) > q.TopK {
		results = results[:q.TopK]
	}
	return results, nil
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
