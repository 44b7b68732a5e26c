package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/xxxsen/common/logutil"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/xxxsen/tenantrag/internal/ai"
	"github.com/xxxsen/tenantrag/internal/answercache"
	"github.com/xxxsen/tenantrag/internal/model"
	appErr "github.com/xxxsen/tenantrag/internal/pkg/errors"
	"github.com/xxxsen/tenantrag/internal/tracing"
	"github.com/xxxsen/tenantrag/internal/triage"
)

const (
	FallbackAnswer     = "I can only answer questions about your inventory and your uploaded documents. Please ask about those topics."
	UnavailableMessage = "I'm temporarily unable to answer right now. Please try again later."
)

type AnswerSource string

const (
	SourceSmallTalk AnswerSource = "small_talk"
	SourceCache     AnswerSource = "cache"
	SourceFallback  AnswerSource = "fallback"
	SourceGenerated AnswerSource = "generated"
)

type AnswerResult struct {
	Answer   string        `json:"answer"`
	Intent   triage.Intent `json:"intent"`
	Source   AnswerSource  `json:"source"`
	Provider string        `json:"provider,omitempty"`
	Model    string        `json:"model,omitempty"`
}

// flight is one computation shared by concurrent identical misses. The
// first caller still connected when it lands stores the answer.
type flight struct {
	res   *AnswerResult
	store sync.Once
}

type ChunkRetriever interface {
	Retrieve(ctx context.Context, question, tenantID string) ([]*model.ScoredChunk, error)
}

type HistoryWriter interface {
	RecordAsync(ctx context.Context, tenantID, question, answer string)
}

type RAGConfig struct {
	SystemPrompt        string
	BoilerplatePatterns []string
	MaxQuestionChars    int
	SkipSmallTalkCache  bool
}

type RAGService struct {
	triage    *triage.Triage
	cache     answercache.Cache
	retriever ChunkRetriever
	generator ai.IGenerator
	history   HistoryWriter
	cfg       RAGConfig
	patterns  []*regexp.Regexp
	group     singleflight.Group
	tracer    trace.Tracer
}

// NewRAGService builds the orchestrator. history may be nil.
func NewRAGService(tr *triage.Triage, cache answercache.Cache, retriever ChunkRetriever,
	generator ai.IGenerator, history HistoryWriter, cfg RAGConfig) (*RAGService, error) {
	patterns := make([]*regexp.Regexp, 0, len(cfg.BoilerplatePatterns))
	for _, p := range cfg.BoilerplatePatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("%w: boilerplate pattern %q: %v", appErr.ErrConfiguration, p, err)
		}
		patterns = append(patterns, re)
	}
	if tr == nil {
		tr = triage.New()
	}
	return &RAGService{
		triage:    tr,
		cache:     cache,
		retriever: retriever,
		generator: generator,
		history:   history,
		cfg:       cfg,
		patterns:  patterns,
		tracer:    tracing.Tracer("rag"),
	}, nil
}

func (s *RAGService) validate(tenantID, question, provider string) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenant is required", appErr.ErrInvalid)
	}
	if question == "" {
		return fmt.Errorf("%w: question is required", appErr.ErrInvalid)
	}
	if s.cfg.MaxQuestionChars > 0 && utf8.RuneCountInString(question) > s.cfg.MaxQuestionChars {
		return fmt.Errorf("%w: question exceeds %d characters", appErr.ErrInvalid, s.cfg.MaxQuestionChars)
	}
	if provider != "" {
		sel, ok := s.generator.(ai.ProviderSelector)
		if !ok || !sel.HasProvider(provider) {
			return fmt.Errorf("%w: unknown provider %q", appErr.ErrInvalid, provider)
		}
	}
	return nil
}

// Answer runs triage, cache, retrieval and generation for one question.
// Only validation and provider failures are returned as errors.
func (s *RAGService) Answer(ctx context.Context, tenantID, question string) (*AnswerResult, error) {
	return s.AnswerWith(ctx, tenantID, question, "")
}

// AnswerWith is Answer with a preferred generator. The answer cache stays
// keyed by tenant and question whichever generator produced the entry.
func (s *RAGService) AnswerWith(ctx context.Context, tenantID, question, provider string) (*AnswerResult, error) {
	ctx, span := s.tracer.Start(ctx, "rag.answer")
	defer span.End()

	tenantID = strings.TrimSpace(tenantID)
	question = strings.TrimSpace(question)
	provider = strings.TrimSpace(provider)
	if err := s.validate(tenantID, question, provider); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("tenant_id", tenantID))

	res, err := s.answer(ctx, tenantID, question, provider)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "answer failed")
		return nil, err
	}
	span.SetAttributes(attribute.String("intent", string(res.Intent)), attribute.String("source", string(res.Source)))
	s.recordHistory(ctx, tenantID, question, res.Answer)
	return res, nil
}

func (s *RAGService) answer(ctx context.Context, tenantID, question, provider string) (*AnswerResult, error) {
	if intent, reply, ok := s.triage.Handle(question); ok {
		if !s.cfg.SkipSmallTalkCache {
			s.cacheSet(ctx, tenantID, question, reply)
		}
		return &AnswerResult{Answer: reply, Intent: intent, Source: SourceSmallTalk}, nil
	}
	if cached, ok := s.cacheGet(ctx, tenantID, question); ok {
		return &AnswerResult{Answer: cached, Intent: triage.IntentInformational, Source: SourceCache}, nil
	}

	// The shared computation must outlive whichever caller started it.
	// Provider calls stay bounded by the manager's per-attempt timeout.
	shared := context.WithoutCancel(ctx)
	key := answercache.Key(tenantID, question) + "|" + strings.ToLower(provider)
	ch := s.group.DoChan(key, func() (interface{}, error) {
		res, err := s.compute(shared, tenantID, question, provider)
		if err != nil {
			return nil, err
		}
		return &flight{res: res}, nil
	})
	var r singleflight.Result
	select {
	case r = <-ch:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if r.Err != nil {
		return nil, r.Err
	}
	if r.Shared {
		logutil.GetLogger(ctx).Debug("answer shared with concurrent request", zap.String("tenant_id", tenantID))
	}
	fl := r.Val.(*flight)
	if ctx.Err() == nil {
		fl.store.Do(func() {
			s.cacheSet(ctx, tenantID, question, fl.res.Answer)
		})
	}
	res := *fl.res
	return &res, nil
}

func (s *RAGService) compute(ctx context.Context, tenantID, question, provider string) (*AnswerResult, error) {
	logger := logutil.GetLogger(ctx).With(zap.String("tenant_id", tenantID))
	chunks, err := s.retriever.Retrieve(ctx, question, tenantID)
	if err != nil {
		logger.Error("retrieve context failed", zap.Error(err))
		return nil, err
	}
	if len(chunks) == 0 {
		logger.Debug("no chunk above threshold, using fallback")
		return &AnswerResult{Answer: FallbackAnswer, Intent: triage.IntentInformational, Source: SourceFallback}, nil
	}

	gen, err := s.generate(ctx, provider, &ai.Prompt{
		System:   s.cfg.SystemPrompt,
		Context:  buildContext(chunks),
		Question: question,
	})
	if err != nil {
		logger.Error("generate answer failed", zap.String("provider", provider), zap.Error(err))
		if !appErr.IsProvider(err) && !appErr.IsInvalid(err) {
			err = fmt.Errorf("%w: %w", appErr.ErrProvider, err)
		}
		return nil, err
	}
	res := &AnswerResult{
		Answer:   s.stripBoilerplate(gen.Text),
		Intent:   triage.IntentInformational,
		Source:   SourceGenerated,
		Provider: gen.Provider,
		Model:    gen.Model,
	}
	if res.Answer == "" {
		return &AnswerResult{Answer: FallbackAnswer, Intent: triage.IntentInformational, Source: SourceFallback}, nil
	}
	return res, nil
}

func (s *RAGService) generate(ctx context.Context, provider string, prompt *ai.Prompt) (*ai.Generation, error) {
	ctx, span := s.tracer.Start(ctx, "rag.generate")
	defer span.End()
	var (
		out *ai.Generation
		err error
	)
	if sel, ok := s.generator.(ai.ProviderSelector); ok {
		out, err = sel.GenerateFrom(ctx, provider, prompt)
	} else {
		var text string
		text, err = s.generator.Generate(ctx, prompt)
		out = &ai.Generation{Text: text}
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generate")
		return nil, err
	}
	return out, nil
}

func buildContext(chunks []*model.ScoredChunk) string {
	parts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		parts = append(parts, c.Chunk.Content)
	}
	return strings.Join(parts, "\n\n")
}

// stripBoilerplate removes configured lead-ins such as "Based on the
// context," from generated text.
func (s *RAGService) stripBoilerplate(text string) string {
	text = strings.TrimSpace(text)
	for _, re := range s.patterns {
		text = strings.TrimSpace(re.ReplaceAllString(text, ""))
	}
	return text
}

func (s *RAGService) cacheGet(ctx context.Context, tenantID, question string) (string, bool) {
	if s.cache == nil {
		return "", false
	}
	answer, ok, err := s.cache.Get(ctx, tenantID, question)
	if err != nil {
		logutil.GetLogger(ctx).Warn("read answer cache failed, treating as miss", zap.String("tenant_id", tenantID), zap.Error(err))
		return "", false
	}
	return answer, ok
}

func (s *RAGService) cacheSet(ctx context.Context, tenantID, question, answer string) {
	if s.cache == nil || ctx.Err() != nil {
		return
	}
	if err := s.cache.Set(ctx, tenantID, question, answer); err != nil {
		logutil.GetLogger(ctx).Warn("write answer cache failed", zap.String("tenant_id", tenantID), zap.Error(err))
	}
}

func (s *RAGService) recordHistory(ctx context.Context, tenantID, question, answer string) {
	if s.history == nil || ctx.Err() != nil {
		return
	}
	s.history.RecordAsync(ctx, tenantID, question, answer)
}
