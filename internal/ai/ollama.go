package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
)

const defaultOllamaBaseURL = "http://localhost:11434"

type ollamaConfig struct {
	BaseURL string `json:"base_url"`
}

// ollamaProvider talks to a local ollama server through langchaingo.
type ollamaProvider struct {
	baseURL string
}

func (p *ollamaProvider) Name() string {
	return "ollama"
}

func (p *ollamaProvider) llm(model string) (*ollama.LLM, error) {
	return ollama.New(ollama.WithModel(model), ollama.WithServerURL(p.baseURL))
}

func (p *ollamaProvider) Generate(ctx context.Context, model string, prompt *Prompt) (string, error) {
	llm, err := p.llm(model)
	if err != nil {
		return "", err
	}
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, prompt.System),
		llms.TextParts(llms.ChatMessageTypeHuman, prompt.UserMessage()),
	}
	resp, err := llm.GenerateContent(ctx, messages, llms.WithTemperature(0))
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("ollama response has no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Content), nil
}

func (p *ollamaProvider) Embed(ctx context.Context, model string, texts []string, _ string) ([][]float32, error) {
	llm, err := p.llm(model)
	if err != nil {
		return nil, err
	}
	emb, err := embeddings.NewEmbedder(llm, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, err
	}
	return emb.EmbedDocuments(ctx, texts)
}

func createOllamaFactory(args interface{}) (IProvider, error) {
	cfg := &ollamaConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}
	return &ollamaProvider{baseURL: baseURL}, nil
}

func init() {
	Register("ollama", createOllamaFactory)
}
