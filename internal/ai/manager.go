package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	appErr "github.com/xxxsen/tenantrag/internal/pkg/errors"
)

type ManagerConfig struct {
	Timeout time.Duration
	Retries int
	Backoff time.Duration
}

// Manager applies a per-attempt timeout and a bounded retry to every
// provider call. Failures come back wrapped in appErr.ErrProvider.
type Manager struct {
	generator IGenerator
	embedder  IEmbedder
	cfg       ManagerConfig
	sleep     func(ctx context.Context, d time.Duration) error
}

func NewManager(generator IGenerator, embedder IEmbedder, cfg ManagerConfig) *Manager {
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	return &Manager{
		generator: generator,
		embedder:  embedder,
		cfg:       cfg,
		sleep:     sleepContext,
	}
}

func (m *Manager) Generate(ctx context.Context, prompt *Prompt) (string, error) {
	if m.generator == nil {
		return "", fmt.Errorf("%w: generator not configured", appErr.ErrProvider)
	}
	var text string
	err := m.do(ctx, "generate", func(ctx context.Context) error {
		res, err := m.generator.Generate(ctx, prompt)
		if err != nil {
			return err
		}
		text = strings.TrimSpace(res)
		return nil
	})
	return text, err
}

// HasProvider reports whether name is a configured generator.
func (m *Manager) HasProvider(name string) bool {
	sel, ok := m.generator.(ProviderSelector)
	return ok && sel.HasProvider(name)
}

// GenerateFrom is Generate with an optional preferred generator. An
// unknown name is rejected as invalid input before any provider call.
func (m *Manager) GenerateFrom(ctx context.Context, name string, prompt *Prompt) (*Generation, error) {
	sel, ok := m.generator.(ProviderSelector)
	if !ok {
		if strings.TrimSpace(name) != "" {
			return nil, fmt.Errorf("%w: unknown provider %q", appErr.ErrInvalid, name)
		}
		text, err := m.Generate(ctx, prompt)
		if err != nil {
			return nil, err
		}
		return &Generation{Text: text}, nil
	}
	if strings.TrimSpace(name) != "" && !sel.HasProvider(name) {
		return nil, fmt.Errorf("%w: unknown provider %q", appErr.ErrInvalid, name)
	}
	var out *Generation
	err := m.do(ctx, "generate", func(ctx context.Context) error {
		res, err := sel.GenerateFrom(ctx, name, prompt)
		if err != nil {
			return err
		}
		res.Text = strings.TrimSpace(res.Text)
		out = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (m *Manager) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	return EmbedOne(ctx, m, text, taskType)
}

func (m *Manager) EmbedBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	if m.embedder == nil {
		return nil, fmt.Errorf("%w: embedder not configured", appErr.ErrProvider)
	}
	var res [][]float32
	err := m.do(ctx, "embed", func(ctx context.Context) error {
		out, err := m.embedder.EmbedBatch(ctx, texts, taskType)
		if err != nil {
			return err
		}
		res = out
		return nil
	})
	return res, err
}

func (m *Manager) ModelName() string {
	if m.embedder == nil {
		return ""
	}
	return m.embedder.ModelName()
}

func (m *Manager) do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	backoff := m.cfg.Backoff
	var lastErr error
	for attempt := 0; attempt <= m.cfg.Retries; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr == nil {
				lastErr = err
			}
			break
		}
		callCtx := ctx
		cancel := func() {}
		if m.cfg.Timeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, m.cfg.Timeout)
		}
		err := fn(callCtx)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err
		if ctx.Err() != nil || errors.Is(err, ErrUnavailable) || attempt == m.cfg.Retries {
			break
		}
		logutil.GetLogger(ctx).Warn("ai request retrying",
			zap.String("op", op),
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", m.cfg.Retries),
			zap.Duration("sleep", backoff),
			zap.Error(err),
		)
		if err := m.sleep(ctx, backoff); err != nil {
			break
		}
		backoff *= 2
	}
	return fmt.Errorf("%w: %s: %w", appErr.ErrProvider, op, lastErr)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
