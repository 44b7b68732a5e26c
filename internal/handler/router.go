package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/tenantrag/internal/middleware"
)

type RouterDeps struct {
	Chat         *ChatHandler
	Documents    *DocumentHandler
	Ingest       *IngestHandler
	JWTSecret    []byte
	AskRateLimit time.Duration
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	authGroup := api.Group("")
	authGroup.Use(middleware.JWTAuth(deps.JWTSecret))

	authGroup.POST("/chat/ask", middleware.RateLimit(deps.AskRateLimit), deps.Chat.Ask)
	authGroup.GET("/chat/history", deps.Chat.History)

	authGroup.POST("/documents/upload",
		middleware.RequireRoles("admin", "manager", "user"),
		deps.Documents.Upload,
	)
	authGroup.POST("/ingest/inventory",
		middleware.RequireRoles("admin", "manager"),
		deps.Ingest.Inventory,
	)
}
