package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/tenantrag/internal/model"
	appErr "github.com/xxxsen/tenantrag/internal/pkg/errors"
	"github.com/xxxsen/tenantrag/internal/vectorstore"
)

func TestRetriever_TenantIsolation(t *testing.T) {
	store := vectorstore.NewMemoryStore()
	_, err := store.Insert(context.Background(), []*model.Chunk{
		{TenantID: "A", SourceID: "1", Content: "Apple for A", Embedding: []float32{1, 0}},
	})
	require.NoError(t, err)
	r := NewRetriever(&keywordEmbedder{}, store, 3, 0.30)

	res, err := r.Retrieve(context.Background(), "apple?", "A")
	require.NoError(t, err)
	require.Len(t, res, 1)

	res, err = r.Retrieve(context.Background(), "apple?", "B")
	require.NoError(t, err)
	require.NotNil(t, res)
	require.Empty(t, res)
}

func TestRetriever_BelowThresholdIsEmpty(t *testing.T) {
	store := vectorstore.NewMemoryStore()
	_, err := store.Insert(context.Background(), []*model.Chunk{
		{TenantID: "A", SourceID: "1", Content: "Pear", Embedding: []float32{0, 1}},
	})
	require.NoError(t, err)
	r := NewRetriever(&keywordEmbedder{}, store, 3, 0.30)

	res, err := r.Retrieve(context.Background(), "apple?", "A")
	require.NoError(t, err)
	require.Empty(t, res)
}

func TestRetriever_EmbedErrorPropagates(t *testing.T) {
	r := NewRetriever(&keywordEmbedder{err: appErr.ErrProvider}, vectorstore.NewMemoryStore(), 3, 0.30)
	_, err := r.Retrieve(context.Background(), "apple?", "A")
	require.True(t, appErr.IsProvider(err))
}
