package service

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/xxxsen/tenantrag/internal/ai"
	"github.com/xxxsen/tenantrag/internal/model"
)

// keywordEmbedder maps any text mentioning apple to one axis and
// everything else to another, which is enough to exercise thresholds.
type keywordEmbedder struct {
	mu      sync.Mutex
	batches int
	texts   int
	err     error
}

func (e *keywordEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	return ai.EmbedOne(ctx, e, text, taskType)
}

func (e *keywordEmbedder) EmbedBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.batches++
	e.texts += len(texts)
	if e.err != nil {
		return nil, e.err
	}
	res := make([][]float32, len(texts))
	for i, text := range texts {
		if strings.Contains(strings.ToLower(text), "apple") {
			res[i] = []float32{1, 0}
		} else {
			res[i] = []float32{0, 1}
		}
	}
	return res, nil
}

func (e *keywordEmbedder) ModelName() string {
	return "keyword"
}

func (e *keywordEmbedder) calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.batches
}

type recordingGenerator struct {
	mu      sync.Mutex
	prompts []*ai.Prompt
	reply   string
	err     error
}

func (g *recordingGenerator) Generate(ctx context.Context, prompt *ai.Prompt) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return "", g.err
	}
	return g.reply, nil
}

func (g *recordingGenerator) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.prompts)
}

type countingCache struct {
	mu     sync.Mutex
	items  map[string]string
	gets   int
	sets   int
	getErr error
	setErr error
}

func newCountingCache() *countingCache {
	return &countingCache{items: map[string]string{}}
}

func (c *countingCache) Get(ctx context.Context, tenantID, question string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if c.getErr != nil {
		return "", false, c.getErr
	}
	v, ok := c.items[tenantID+"|"+strings.ToLower(strings.TrimSpace(question))]
	return v, ok, nil
}

func (c *countingCache) Set(ctx context.Context, tenantID, question, answer string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	if c.setErr != nil {
		return c.setErr
	}
	c.items[tenantID+"|"+strings.ToLower(strings.TrimSpace(question))] = answer
	return nil
}

func (c *countingCache) counts() (gets, sets int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gets, c.sets
}

type syncHistory struct {
	mu      sync.Mutex
	records []model.HistoryRecord
	err     error
}

func (h *syncHistory) Insert(ctx context.Context, item *model.HistoryRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		return h.err
	}
	h.records = append(h.records, *item)
	return nil
}

// RecordAsync runs inline so assertions need no waiting.
func (h *syncHistory) RecordAsync(ctx context.Context, tenantID, question, answer string) {
	_ = h.Insert(ctx, &model.HistoryRecord{TenantID: tenantID, Question: question, Answer: answer})
}

func (h *syncHistory) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.records)
}

type staticRecords struct {
	records []*model.SourceRecord
}

func (s *staticRecords) ListRecords(ctx context.Context, tenantID string) ([]*model.SourceRecord, error) {
	if tenantID == "" {
		return s.records, nil
	}
	var out []*model.SourceRecord
	for _, r := range s.records {
		if r.TenantID == tenantID {
			out = append(out, r)
		}
	}
	return out, nil
}

var errBoom = errors.New("boom")
