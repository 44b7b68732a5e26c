package vectorstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/tenantrag/internal/model"
)

func TestMemoryStore_TenantIsolation(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_, err := s.Insert(ctx, []*model.Chunk{
		{TenantID: "T1", SourceID: "1", Content: "Apple", Embedding: []float32{1, 0}},
		{TenantID: "T2", SourceID: "1", Content: "Apple for T2", Embedding: []float32{1, 0}},
		{TenantID: "T2", SourceID: "2", Content: "Pear", Embedding: []float32{0.9, 0.1}},
	})
	require.NoError(t, err)

	res, err := s.Search(ctx, SearchQuery{TenantID: "T1", Vector: []float32{1, 0}, TopK: 3, Threshold: 0.3})
	require.NoError(t, err)
	require.Len(t, res, 1)
	require.Equal(t, "T1", res[0].Chunk.TenantID)

	res, err = s.Search(ctx, SearchQuery{TenantID: "T3", Vector: []float32{1, 0}, TopK: 3, Threshold: 0.3})
	require.NoError(t, err)
	require.Empty(t, res)
}

func TestMemoryStore_OrderingAndThreshold(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_, err := s.Insert(ctx, []*model.Chunk{
		{TenantID: "T", SourceID: "b", ChunkIndex: 0, Embedding: []float32{1, 0}},
		{TenantID: "T", SourceID: "a", ChunkIndex: 1, Embedding: []float32{1, 0}},
		{TenantID: "T", SourceID: "a", ChunkIndex: 0, Embedding: []float32{1, 0}},
		{TenantID: "T", SourceID: "c", ChunkIndex: 0, Embedding: []float32{0.6, 0.8}},
		{TenantID: "T", SourceID: "d", ChunkIndex: 0, Embedding: []float32{0, 1}},
	})
	require.NoError(t, err)

	res, err := s.Search(ctx, SearchQuery{TenantID: "T", Vector: []float32{1, 0}, TopK: 10, Threshold: 0.3})
	require.NoError(t, err)
	got := make([]string, 0, len(res))
	for _, item := range res {
		got = append(got, item.Chunk.SourceID)
	}
	require.Equal(t, []string{"a", "b", "a", "c"}, got)
	require.Equal(t, 1, res[2].Chunk.ChunkIndex)

	res, err = s.Search(ctx, SearchQuery{TenantID: "T", Vector: []float32{1, 0}, TopK: 2, Threshold: 0.3})
	require.NoError(t, err)
	require.Len(t, res, 2)
}

func TestMemoryStore_DuplicateInsert(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	chunk := &model.Chunk{TenantID: "T", SourceID: "1", Embedding: []float32{1}}
	n, err := s.Insert(ctx, []*model.Chunk{chunk})
	require.NoError(t, err)
	require.Equal(t, 1, n)
	n, err = s.Insert(ctx, []*model.Chunk{chunk})
	require.NoError(t, err)
	require.Equal(t, 0, n)

	existing, err := s.ExistingSources(ctx, []model.SourceKey{{TenantID: "T", SourceID: "1"}, {TenantID: "U", SourceID: "1"}})
	require.NoError(t, err)
	require.Equal(t, map[model.SourceKey]bool{{TenantID: "T", SourceID: "1"}: true}, existing)
}

func TestCosineSimilarity(t *testing.T) {
	require.InDelta(t, 1.0, cosineSimilarity([]float32{2, 0}, []float32{1, 0}), 1e-6)
	require.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-6)
	require.Equal(t, float32(0), cosineSimilarity([]float32{1}, []float32{1, 0}))
	require.Equal(t, float32(0), cosineSimilarity([]float32{0, 0}, []float32{1, 0}))
}

func TestMemoryStore_Count(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	_, err := s.Insert(ctx, []*model.Chunk{
		{TenantID: "T1", SourceID: "1", ChunkIndex: 0, Content: "a", Embedding: []float32{1, 0}},
		{TenantID: "T1", SourceID: "1", ChunkIndex: 1, Content: "b", Embedding: []float32{1, 0}},
		{TenantID: "T2", SourceID: "1", ChunkIndex: 0, Content: "c", Embedding: []float32{0, 1}},
	})
	require.NoError(t, err)

	n, err := s.Count(ctx, "T1")
	require.NoError(t, err)
	require.Equal(t, 2, n)
	n, err = s.Count(ctx, "T3")
	require.NoError(t, err)
	require.Zero(t, n)
}
