package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/tenantrag/internal/model"
	"github.com/xxxsen/tenantrag/internal/pkg/response"
)

type InventoryIngester interface {
	IngestInventory(ctx context.Context, tenantID string) (*model.IngestReport, error)
}

type IngestHandler struct {
	ingester InventoryIngester
}

func NewIngestHandler(ingester InventoryIngester) *IngestHandler {
	return &IngestHandler{ingester: ingester}
}

// Inventory re-ingests the caller's own products. Sources that already have
// chunks are skipped.
func (h *IngestHandler) Inventory(c *gin.Context) {
	report, err := h.ingester.IngestInventory(c.Request.Context(), getUserID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, report)
}
