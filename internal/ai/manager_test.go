package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	appErr "github.com/xxxsen/tenantrag/internal/pkg/errors"
)

type flakyGenerator struct {
	failures int
	calls    int
	answer   string
}

func (f *flakyGenerator) Generate(ctx context.Context, prompt *Prompt) (string, error) {
	f.calls++
	if f.calls <= f.failures {
		return "", errors.New("boom")
	}
	return f.answer, nil
}

type staticEmbedder struct {
	calls int
	err   error
}

func (s *staticEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	return EmbedOne(ctx, s, text, taskType)
}

func (s *staticEmbedder) EmbedBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	res := make([][]float32, len(texts))
	for i := range texts {
		res[i] = []float32{float32(i), 1}
	}
	return res, nil
}

func (s *staticEmbedder) ModelName() string {
	return "static"
}

func newTestManager(gen IGenerator, emb IEmbedder, retries int) *Manager {
	m := NewManager(gen, emb, ManagerConfig{Timeout: time.Second, Retries: retries, Backoff: time.Millisecond})
	m.sleep = func(ctx context.Context, d time.Duration) error { return ctx.Err() }
	return m
}

func TestManagerGenerate_RetriesOnce(t *testing.T) {
	gen := &flakyGenerator{failures: 1, answer: "  ok  "}
	m := newTestManager(gen, nil, 1)

	res, err := m.Generate(context.Background(), &Prompt{Question: "q"})
	require.NoError(t, err)
	require.Equal(t, "ok", res)
	require.Equal(t, 2, gen.calls)
}

func TestManagerGenerate_GivesUpAfterRetries(t *testing.T) {
	gen := &flakyGenerator{failures: 5}
	m := newTestManager(gen, nil, 1)

	_, err := m.Generate(context.Background(), &Prompt{Question: "q"})
	require.Error(t, err)
	require.True(t, appErr.IsProvider(err))
	require.Equal(t, 2, gen.calls)
}

func TestManagerGenerate_EmptyOutputIsNotAnError(t *testing.T) {
	gen := &flakyGenerator{answer: "   "}
	m := newTestManager(gen, nil, 1)

	res, err := m.Generate(context.Background(), &Prompt{Question: "q"})
	require.NoError(t, err)
	require.Equal(t, "", res)
}

func TestManagerGenerate_NoRetryAfterCancel(t *testing.T) {
	gen := &flakyGenerator{failures: 5}
	m := newTestManager(gen, nil, 3)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Generate(ctx, &Prompt{Question: "q"})
	require.Error(t, err)
	require.True(t, errors.Is(err, context.Canceled))
	require.Equal(t, 0, gen.calls)
}

func TestManagerEmbed_NoRetryWhenUnavailable(t *testing.T) {
	emb := &staticEmbedder{err: ErrUnavailable}
	m := newTestManager(nil, emb, 2)

	_, err := m.Embed(context.Background(), "text", TaskRetrievalQuery)
	require.Error(t, err)
	require.True(t, appErr.IsProvider(err))
	require.True(t, errors.Is(err, ErrUnavailable))
	require.Equal(t, 1, emb.calls)
}

func TestManagerEmbedBatch(t *testing.T) {
	emb := &staticEmbedder{}
	m := newTestManager(nil, emb, 1)

	res, err := m.EmbedBatch(context.Background(), []string{"a", "b", "c"}, TaskRetrievalDocument)
	require.NoError(t, err)
	require.Len(t, res, 3)
	require.Equal(t, 1, emb.calls)
	require.Equal(t, "static", m.ModelName())
}

func TestManagerWithoutProviders(t *testing.T) {
	m := NewManager(nil, nil, ManagerConfig{})
	_, err := m.Generate(context.Background(), &Prompt{})
	require.True(t, appErr.IsProvider(err))
	_, err = m.Embed(context.Background(), "x", "")
	require.True(t, appErr.IsProvider(err))
}

func TestManagerGenerateFrom(t *testing.T) {
	local := &flakyGenerator{failures: 1, answer: " local "}
	m := newTestManager(NewGroupGenerator([]GeneratorEntry{
		{Name: "remote", Generator: &flakyGenerator{answer: "remote"}},
		{Name: "local", Generator: local},
	}), nil, 1)

	require.True(t, m.HasProvider("local"))
	res, err := m.GenerateFrom(context.Background(), "local", &Prompt{Question: "q"})
	require.NoError(t, err)
	require.Equal(t, "remote", res.Provider, "first attempt falls through to the rest of the group")
	require.Equal(t, 1, local.calls)

	_, err = m.GenerateFrom(context.Background(), "missing", &Prompt{Question: "q"})
	require.True(t, appErr.IsInvalid(err))
	require.False(t, appErr.IsProvider(err))
}

func TestManagerGenerateFrom_PlainGenerator(t *testing.T) {
	m := newTestManager(&flakyGenerator{answer: "ok"}, nil, 0)
	require.False(t, m.HasProvider("any"))

	res, err := m.GenerateFrom(context.Background(), "", &Prompt{Question: "q"})
	require.NoError(t, err)
	require.Equal(t, "ok", res.Text)

	_, err = m.GenerateFrom(context.Background(), "any", &Prompt{Question: "q"})
	require.True(t, appErr.IsInvalid(err))
}
