package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/tenantrag/internal/model"
	"github.com/xxxsen/tenantrag/internal/pkg/errcode"
	"github.com/xxxsen/tenantrag/internal/pkg/response"
)

type DocumentIngester interface {
	IngestDocument(ctx context.Context, tenantID, filename string, content []byte) (*model.IngestReport, error)
}

type DocumentHandler struct {
	ingester       DocumentIngester
	maxUploadBytes int64
}

func NewDocumentHandler(ingester DocumentIngester, maxUploadBytes int64) *DocumentHandler {
	return &DocumentHandler{ingester: ingester, maxUploadBytes: maxUploadBytes}
}

type uploadResponse struct {
	Filename string              `json:"filename"`
	UserID   string              `json:"user_id"`
	Report   *model.IngestReport `json:"report"`
}

func (h *DocumentHandler) Upload(c *gin.Context) {
	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+1024*1024)
	}
	file, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			response.Error(c, errcode.ErrTooLarge, "file exceeds "+formatUploadLimit(h.maxUploadBytes))
			return
		}
		response.Error(c, errcode.ErrInvalidFile, "no file provided under 'file'")
		return
	}
	if strings.TrimSpace(file.Filename) == "" {
		response.Error(c, errcode.ErrInvalidFile, "empty filename")
		return
	}
	if h.maxUploadBytes > 0 && file.Size > h.maxUploadBytes {
		response.Error(c, errcode.ErrTooLarge, "file exceeds "+formatUploadLimit(h.maxUploadBytes))
		return
	}
	opened, err := file.Open()
	if err != nil {
		response.Error(c, errcode.ErrInvalidFile, "failed to open file")
		return
	}
	defer opened.Close()
	content, err := io.ReadAll(opened)
	if err != nil {
		response.Error(c, errcode.ErrInvalidFile, "failed to read file")
		return
	}
	userID := getUserID(c)
	report, err := h.ingester.IngestDocument(c.Request.Context(), userID, file.Filename, content)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, uploadResponse{
		Filename: file.Filename,
		UserID:   userID,
		Report:   report,
	})
}
