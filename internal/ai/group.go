package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type GeneratorEntry struct {
	Name      string
	Generator IGenerator
}

type EmbedderEntry struct {
	Name     string
	Embedder IEmbedder
}

// Generation is generated text along with the group member that produced it.
type Generation struct {
	Text     string
	Provider string
	Model    string
}

// ProviderSelector routes a prompt to a named member. An empty name uses
// the configured order.
type ProviderSelector interface {
	HasProvider(name string) bool
	GenerateFrom(ctx context.Context, name string, prompt *Prompt) (*Generation, error)
}

type groupGenerator struct {
	items []GeneratorEntry
}

// NewGroupGenerator tries each generator in order until one succeeds.
func NewGroupGenerator(items []GeneratorEntry) IGenerator {
	if len(items) == 0 {
		return nil
	}
	return &groupGenerator{items: items}
}

func (g *groupGenerator) Generate(ctx context.Context, prompt *Prompt) (string, error) {
	res, err := g.GenerateFrom(ctx, "", prompt)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

func (g *groupGenerator) index(name string) int {
	for i, item := range g.items {
		if item.Generator != nil && strings.EqualFold(item.Name, name) {
			return i
		}
	}
	return -1
}

func (g *groupGenerator) HasProvider(name string) bool {
	return g.index(strings.TrimSpace(name)) >= 0
}

// GenerateFrom tries the named member first and then the rest in order.
func (g *groupGenerator) GenerateFrom(ctx context.Context, name string, prompt *Prompt) (*Generation, error) {
	order := g.items
	if name = strings.TrimSpace(name); name != "" {
		idx := g.index(name)
		if idx < 0 {
			return nil, fmt.Errorf("unknown generator %q", name)
		}
		order = make([]GeneratorEntry, 0, len(g.items))
		order = append(order, g.items[idx])
		order = append(order, g.items[:idx]...)
		order = append(order, g.items[idx+1:]...)
	}
	var lastErr error
	for i, item := range order {
		if item.Generator == nil {
			continue
		}
		res, err := item.Generator.Generate(ctx, prompt)
		if err == nil {
			out := &Generation{Text: res, Provider: item.Name}
			if m, ok := item.Generator.(interface{ ModelName() string }); ok {
				out.Model = m.ModelName()
			}
			return out, nil
		}
		lastErr = err
		logutil.GetLogger(ctx).Warn("generator failed", zap.Int("index", i), zap.String("name", item.Name), zap.Error(err))
		if ctx.Err() != nil {
			break
		}
	}
	if lastErr == nil {
		return nil, fmt.Errorf("generator not configured")
	}
	return nil, lastErr
}

type groupEmbedder struct {
	items []EmbedderEntry
}

// NewGroupEmbedder tries each embedder in order. Members should produce
// vectors of the same dimensionality or stored chunks become unreachable.
func NewGroupEmbedder(items []EmbedderEntry) IEmbedder {
	if len(items) == 0 {
		return nil
	}
	return &groupEmbedder{items: items}
}

func (g *groupEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	return EmbedOne(ctx, g, text, taskType)
}

func (g *groupEmbedder) EmbedBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	var lastErr error
	for i, item := range g.items {
		if item.Embedder == nil {
			continue
		}
		res, err := item.Embedder.EmbedBatch(ctx, texts, taskType)
		if err == nil {
			return res, nil
		}
		lastErr = err
		logutil.GetLogger(ctx).Warn("embedder failed", zap.Int("index", i), zap.String("name", item.Name), zap.Error(err))
		if ctx.Err() != nil {
			break
		}
	}
	if lastErr == nil {
		return nil, fmt.Errorf("embedder not configured")
	}
	return nil, lastErr
}

func (g *groupEmbedder) ModelName() string {
	names := make([]string, 0, len(g.items))
	for _, item := range g.items {
		if item.Embedder == nil {
			continue
		}
		if name := item.Embedder.ModelName(); name != "" {
			names = append(names, name)
		}
	}
	return strings.Join(names, "|")
}
