package embedcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/tenantrag/internal/ai"
	"github.com/xxxsen/tenantrag/internal/model"
)

type countingEmbedder struct {
	batches [][]string
}

func (c *countingEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	return ai.EmbedOne(ctx, c, text, taskType)
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	c.batches = append(c.batches, append([]string(nil), texts...))
	res := make([][]float32, len(texts))
	for i, text := range texts {
		res[i] = []float32{float32(len(text)), 1}
	}
	return res, nil
}

func (c *countingEmbedder) ModelName() string {
	return "counting"
}

type memStore struct {
	items   map[string]*model.EmbeddingCache
	readErr error
}

func (m *memStore) Get(ctx context.Context, modelName, taskType, contentHash string) ([]float32, bool, error) {
	if m.readErr != nil {
		return nil, false, m.readErr
	}
	item, ok := m.items[modelName+taskType+contentHash]
	if !ok {
		return nil, false, nil
	}
	return item.Embedding, true, nil
}

func (m *memStore) Save(ctx context.Context, item *model.EmbeddingCache) error {
	m.items[item.ModelName+item.TaskType+item.ContentHash] = item
	return nil
}

func TestLruEmbedder_OnlyEmbedsMisses(t *testing.T) {
	inner := &countingEmbedder{}
	e := WrapLruCacheToEmbedder(inner, 100, time.Minute)

	_, err := e.EmbedBatch(context.Background(), []string{"a", "bb"}, ai.TaskRetrievalDocument)
	require.NoError(t, err)
	res, err := e.EmbedBatch(context.Background(), []string{"bb", "ccc", "a"}, ai.TaskRetrievalDocument)
	require.NoError(t, err)
	require.Equal(t, [][]float32{{2, 1}, {3, 1}, {1, 1}}, res)
	require.Equal(t, [][]string{{"a", "bb"}, {"ccc"}}, inner.batches)

	_, err = e.Embed(context.Background(), "a", ai.TaskRetrievalQuery)
	require.NoError(t, err)
	require.Len(t, inner.batches, 3, "task type is part of the key")
}

func TestLruEmbedder_DisabledReturnsInner(t *testing.T) {
	inner := &countingEmbedder{}
	require.Same(t, ai.IEmbedder(inner), WrapLruCacheToEmbedder(inner, 0, time.Minute))
}

func TestDBEmbedder_PersistsMisses(t *testing.T) {
	inner := &countingEmbedder{}
	store := &memStore{items: map[string]*model.EmbeddingCache{}}
	e := WrapDBCacheToEmbedder(inner, store)

	_, err := e.EmbedBatch(context.Background(), []string{"x", "yy"}, ai.TaskRetrievalDocument)
	require.NoError(t, err)
	require.Len(t, store.items, 2)

	vec, err := e.Embed(context.Background(), "yy", ai.TaskRetrievalDocument)
	require.NoError(t, err)
	require.Equal(t, []float32{2, 1}, vec)
	require.Len(t, inner.batches, 1)
}

func TestDBEmbedder_ReadErrorFallsThrough(t *testing.T) {
	inner := &countingEmbedder{}
	store := &memStore{items: map[string]*model.EmbeddingCache{}, readErr: errors.New("db down")}
	e := WrapDBCacheToEmbedder(inner, store)

	vec, err := e.Embed(context.Background(), "abc", ai.TaskRetrievalQuery)
	require.NoError(t, err)
	require.Equal(t, []float32{3, 1}, vec)
}
