package main

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/tenantrag/internal/ai"
	"github.com/xxxsen/tenantrag/internal/config"
	appErr "github.com/xxxsen/tenantrag/internal/pkg/errors"
	"github.com/xxxsen/tenantrag/internal/service"
)

func TestBuildProviders(t *testing.T) {
	generator, embedder, err := buildProviders(config.AIConfig{
		Generators: []config.ProviderEntry{{Name: "primary", Provider: "openai", Model: "gpt-4o-mini"}},
		Embedders:  []config.ProviderEntry{{Name: "embed", Provider: "openai", Model: "text-embedding-3-small"}},
	})
	require.NoError(t, err)
	require.NotNil(t, generator)
	require.NotNil(t, embedder)
	sel, ok := generator.(ai.ProviderSelector)
	require.True(t, ok)
	require.True(t, sel.HasProvider("primary"))

	_, _, err = buildProviders(config.AIConfig{
		Generators: []config.ProviderEntry{{Name: "bad", Provider: "nope", Model: "m"}},
	})
	require.Error(t, err)
}

func TestUserFacingError(t *testing.T) {
	down := fmt.Errorf("%w: generate: dial tcp: refused", appErr.ErrProvider)
	require.EqualError(t, userFacingError(context.Background(), down), service.UnavailableMessage)

	invalid := fmt.Errorf("%w: question is required", appErr.ErrInvalid)
	require.Equal(t, invalid, userFacingError(context.Background(), invalid))

	other := errors.New("open db: refused")
	require.Equal(t, other, userFacingError(context.Background(), other))
}
