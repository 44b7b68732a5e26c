package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenAIProvider_GenerateSendsSystemAndContext(t *testing.T) {
	var got openAIChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":" We have apples. "}}]}`))
	}))
	defer srv.Close()

	p, err := NewProvider("openai", map[string]interface{}{"api_key": "key", "base_url": srv.URL})
	require.NoError(t, err)
	res, err := p.Generate(context.Background(), "gpt-4o-mini", &Prompt{System: "sys", Context: "Apple", Question: "Do you have apples?"})
	require.NoError(t, err)
	require.Equal(t, "We have apples.", res)
	require.Len(t, got.Messages, 2)
	require.Equal(t, "system", got.Messages[0].Role)
	require.Equal(t, "sys", got.Messages[0].Content)
	require.Equal(t, "Context:\nApple\n\nQuestion: Do you have apples?", got.Messages[1].Content)
}

func TestOpenAIProvider_EmbedOrdersByIndex(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/embeddings", r.URL.Path)
		_, _ = w.Write([]byte(`{"data":[{"index":1,"embedding":[0,1]},{"index":0,"embedding":[1,0]}]}`))
	}))
	defer srv.Close()

	p, err := NewProvider("openai", map[string]interface{}{"api_key": "key", "base_url": srv.URL})
	require.NoError(t, err)
	res, err := p.Embed(context.Background(), "text-embedding-3-small", []string{"a", "b"}, "")
	require.NoError(t, err)
	require.Equal(t, [][]float32{{1, 0}, {0, 1}}, res)
}

func TestOpenAIProvider_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p, err := NewProvider("openai", map[string]interface{}{"api_key": "key", "base_url": srv.URL})
	require.NoError(t, err)
	_, err = p.Generate(context.Background(), "m", &Prompt{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "503")
}

func TestOpenAIProvider_NoKey(t *testing.T) {
	p, err := NewProvider("openai", nil)
	require.NoError(t, err)
	_, err = p.Generate(context.Background(), "m", &Prompt{})
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestNewProvider_Unknown(t *testing.T) {
	_, err := NewProvider("nope", nil)
	require.Error(t, err)
	_, err = NewProvider("", nil)
	require.Error(t, err)
}
