package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const (
	TaskRetrievalQuery    = "RETRIEVAL_QUERY"
	TaskRetrievalDocument = "RETRIEVAL_DOCUMENT"
)

var ErrUnavailable = errors.New("ai provider not configured")

// Prompt is the provider-neutral generation request.
type Prompt struct {
	System   string
	Context  string
	Question string
}

func (p *Prompt) UserMessage() string {
	return fmt.Sprintf("Context:\n%s\n\nQuestion: %s", p.Context, p.Question)
}

type IProvider interface {
	Name() string
	Generate(ctx context.Context, model string, prompt *Prompt) (string, error)
	Embed(ctx context.Context, model string, texts []string, taskType string) ([][]float32, error)
}

type IGenerator interface {
	Generate(ctx context.Context, prompt *Prompt) (string, error)
}

type IEmbedder interface {
	Embed(ctx context.Context, text string, taskType string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error)
	ModelName() string
}

type generator struct {
	provider IProvider
	model    string
}

func NewGenerator(p IProvider, model string) IGenerator {
	return &generator{provider: p, model: model}
}

func (g *generator) Generate(ctx context.Context, prompt *Prompt) (string, error) {
	return g.provider.Generate(ctx, g.model, prompt)
}

func (g *generator) ModelName() string {
	return g.model
}

type embedder struct {
	provider IProvider
	model    string
}

func NewEmbedder(p IProvider, model string) IEmbedder {
	return &embedder{provider: p, model: model}
}

func (e *embedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	return EmbedOne(ctx, e, text, taskType)
}

func (e *embedder) EmbedBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	res, err := e.provider.Embed(ctx, e.model, texts, taskType)
	if err != nil {
		return nil, err
	}
	if len(res) != len(texts) {
		return nil, fmt.Errorf("%s returned %d embeddings for %d inputs", e.provider.Name(), len(res), len(texts))
	}
	return res, nil
}

func (e *embedder) ModelName() string {
	return e.model
}

// EmbedOne runs a single text through EmbedBatch.
func EmbedOne(ctx context.Context, e IEmbedder, text string, taskType string) ([]float32, error) {
	res, err := e.EmbedBatch(ctx, []string{text}, taskType)
	if err != nil {
		return nil, err
	}
	if len(res) == 0 {
		return nil, fmt.Errorf("no embedding values returned")
	}
	return res[0], nil
}

type ProviderFactory func(args interface{}) (IProvider, error)

var registry = map[string]ProviderFactory{}

func Register(name string, factory ProviderFactory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registry[key] = factory
}

func NewProvider(name string, args interface{}) (IProvider, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, fmt.Errorf("ai provider name is required")
	}
	factory := registry[key]
	if factory == nil {
		return nil, fmt.Errorf("unsupported ai provider: %s", name)
	}
	return factory(args)
}

func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return nil
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode ai provider config: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode ai provider config: %w", err)
	}
	return nil
}
