package vectorstore

import (
	"context"

	"github.com/xxxsen/tenantrag/internal/model"
	"github.com/xxxsen/tenantrag/internal/repo"
)

type pgvectorStore struct {
	repo *repo.ChunkRepo
}

func NewPGVectorStore(r *repo.ChunkRepo) Store {
	return &pgvectorStore{repo: r}
}

func (s *pgvectorStore) ExistingSources(ctx context.Context, keys []model.SourceKey) (map[model.SourceKey]bool, error) {
	return s.repo.ExistingSources(ctx, keys)
}

func (s *pgvectorStore) Insert(ctx context.Context, chunks []*model.Chunk) (int, error) {
	return s.repo.InsertBatch(ctx, chunks)
}

func (s *pgvectorStore) Count(ctx context.Context, tenantID string) (int, error) {
	return s.repo.CountByTenant(ctx, tenantID)
}

func (s *pgvectorStore) Search(ctx context.Context, q SearchQuery) ([]*model.ScoredChunk, error) {
	if q.TopK <= 0 || len(q.Vector) == 0 {
		return []*model.ScoredChunk{}, nil
	}
	items, err := s.repo.Search(ctx, q.TenantID, q.Vector, q.TopK, q.Threshold)
	if err != nil {
		return nil, err
	}
	// scores are narrowed to float32, re-apply the tie-break
	SortScored(items)
	return items, nil
}
