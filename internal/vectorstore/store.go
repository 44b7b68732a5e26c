package vectorstore

import (
	"context"
	"sort"

	"github.com/xxxsen/tenantrag/internal/model"
)

type SearchQuery struct {
	TenantID  string
	Vector    []float32
	TopK      int
	Threshold float64
}

// Store holds tenant-owned chunks. Implementations must apply the tenant
// filter before scoring so another tenant's chunk can never be returned.
type Store interface {
	ExistingSources(ctx context.Context, keys []model.SourceKey) (map[model.SourceKey]bool, error)
	// Insert writes all chunks or none of them and returns the number of new rows.
	Insert(ctx context.Context, chunks []*model.Chunk) (int, error)
	Search(ctx context.Context, q SearchQuery) ([]*model.ScoredChunk, error)
	Count(ctx context.Context, tenantID string) (int, error)
}

// SortScored orders results by score desc, chunk_index asc, source_id asc.
func SortScored(items []*model.ScoredChunk) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Chunk.ChunkIndex != b.Chunk.ChunkIndex {
			return a.Chunk.ChunkIndex < b.Chunk.ChunkIndex
		}
		return a.Chunk.SourceID < b.Chunk.SourceID
	})
}
