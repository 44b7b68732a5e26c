package handler

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/tenantrag/internal/model"
	"github.com/xxxsen/tenantrag/internal/pkg/errcode"
	"github.com/xxxsen/tenantrag/internal/pkg/response"
	"github.com/xxxsen/tenantrag/internal/service"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

type Answerer interface {
	AnswerWith(ctx context.Context, tenantID, question, provider string) (*service.AnswerResult, error)
}

type HistoryLister interface {
	List(ctx context.Context, tenantID string, limit, offset int) ([]model.HistoryRecord, error)
}

type ChatHandler struct {
	rag     Answerer
	history HistoryLister
}

// NewChatHandler builds the chat endpoints. history may be nil when chat
// history is disabled.
func NewChatHandler(rag Answerer, history HistoryLister) *ChatHandler {
	return &ChatHandler{rag: rag, history: history}
}

// askRequest optionally names the generator to prefer. use_ollama is the
// older switch for the local provider.
type askRequest struct {
	Question  string `json:"question"`
	Provider  string `json:"provider"`
	UseOllama bool   `json:"use_ollama"`
}

func (r *askRequest) provider() string {
	if r.Provider == "" && r.UseOllama {
		return "ollama"
	}
	return r.Provider
}

type askResponse struct {
	Answer   string `json:"answer"`
	Source   string `json:"source"`
	Intent   string `json:"intent"`
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model_used,omitempty"`
}

type historyResponse struct {
	Items []model.HistoryRecord `json:"items"`
}

func (h *ChatHandler) Ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "missing question in request body")
		return
	}
	res, err := h.rag.AnswerWith(c.Request.Context(), getUserID(c), req.Question, req.provider())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, askResponse{
		Answer:   res.Answer,
		Source:   string(res.Source),
		Intent:   string(res.Intent),
		Provider: res.Provider,
		Model:    res.Model,
	})
}

func (h *ChatHandler) History(c *gin.Context) {
	limit, err := parseBoundedInt(c.Query("limit"), defaultHistoryLimit, maxHistoryLimit)
	if err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid limit")
		return
	}
	if limit == 0 {
		limit = defaultHistoryLimit
	}
	offset, err := parseBoundedInt(c.Query("offset"), 0, -1)
	if err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid offset")
		return
	}
	items := []model.HistoryRecord{}
	if h.history != nil {
		items, err = h.history.List(c.Request.Context(), getUserID(c), limit, offset)
		if err != nil {
			handleError(c, err)
			return
		}
	}
	response.Success(c, historyResponse{Items: items})
}

// parseBoundedInt parses a non-negative query value, clamping it to max when
// max is positive.
func parseBoundedInt(raw string, def, max int) (int, error) {
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, strconv.ErrSyntax
	}
	if max > 0 && v > max {
		v = max
	}
	return v, nil
}
