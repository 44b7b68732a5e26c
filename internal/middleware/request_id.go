package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

const (
	ContextRequestIDKey = "request_id"

	headerRequestID = "X-Request-Id"
	headerTraceID   = "X-Trace-Id"
)

func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := strings.TrimSpace(c.GetHeader(headerRequestID))
		if reqID == "" {
			reqID = uuid.New().String()
		}
		c.Set(ContextRequestIDKey, reqID)
		c.Writer.Header().Set(headerRequestID, reqID)
		if spanCtx := trace.SpanContextFromContext(c.Request.Context()); spanCtx.HasTraceID() {
			c.Writer.Header().Set(headerTraceID, spanCtx.TraceID().String())
		}
		c.Next()
	}
}
