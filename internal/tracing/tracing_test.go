package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/tenantrag/internal/config"
)

func TestInitDisabled(t *testing.T) {
	shutdown, err := Init(context.Background(), config.TracingConfig{})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestInitEnabled(t *testing.T) {
	shutdown, err := Init(context.Background(), config.TracingConfig{Enabled: true, SampleRatio: 1})
	require.NoError(t, err)
	_, span := Tracer("test").Start(context.Background(), "op")
	require.True(t, span.SpanContext().IsValid())
	span.End()
	require.NoError(t, shutdown(context.Background()))
}
