package service

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/xxxsen/tenantrag/internal/ai"
	"github.com/xxxsen/tenantrag/internal/model"
	"github.com/xxxsen/tenantrag/internal/tracing"
	"github.com/xxxsen/tenantrag/internal/vectorstore"
)

type Retriever struct {
	embedder  ai.IEmbedder
	store     vectorstore.Store
	topK      int
	threshold float64
	tracer    trace.Tracer
}

func NewRetriever(embedder ai.IEmbedder, store vectorstore.Store, topK int, threshold float64) *Retriever {
	return &Retriever{
		embedder:  embedder,
		store:     store,
		topK:      topK,
		threshold: threshold,
		tracer:    tracing.Tracer("retriever"),
	}
}

// Retrieve returns at most topK chunks of the tenant scoring at or above the
// threshold. No match is an empty slice, not an error.
func (r *Retriever) Retrieve(ctx context.Context, question, tenantID string) ([]*model.ScoredChunk, error) {
	ctx, span := r.tracer.Start(ctx, "rag.retrieve", trace.WithAttributes(
		attribute.String("tenant_id", tenantID),
		attribute.Int("top_k", r.topK),
	))
	defer span.End()

	vec, err := r.embedder.Embed(ctx, question, ai.TaskRetrievalQuery)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "embed question")
		return nil, err
	}
	items, err := r.store.Search(ctx, vectorstore.SearchQuery{
		TenantID:  tenantID,
		Vector:    vec,
		TopK:      r.topK,
		Threshold: r.threshold,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "search")
		return nil, err
	}
	span.SetAttributes(attribute.Int("hits", len(items)))
	return items, nil
}
