package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/tenantrag/internal/pkg/errcode"
	"github.com/xxxsen/tenantrag/internal/pkg/jwt"
	"github.com/xxxsen/tenantrag/internal/pkg/response"
)

const (
	ContextUserIDKey = "user_id"
	ContextRoleKey   = "role"
)

// JWTAuth resolves the calling tenant from a bearer token.
func JWTAuth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Abort(c, errcode.ErrUnauthorized, "missing authorization")
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Abort(c, errcode.ErrUnauthorized, "invalid authorization")
			return
		}
		claims, err := jwt.ParseToken(strings.TrimSpace(parts[1]), secret)
		if err != nil {
			logutil.GetLogger(c.Request.Context()).Debug("reject token", zap.Error(err))
			response.Abort(c, errcode.ErrUnauthorized, "invalid token")
			return
		}
		c.Set(ContextUserIDKey, claims.TenantID())
		c.Set(ContextRoleKey, claims.Role)
		c.Next()
	}
}

// RequireRoles only lets callers holding one of roles through. Must run after JWTAuth.
func RequireRoles(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[strings.ToLower(role)] = struct{}{}
	}
	return func(c *gin.Context) {
		role := strings.ToLower(c.GetString(ContextRoleKey))
		if _, ok := allowed[role]; !ok {
			response.Abort(c, errcode.ErrForbidden, "insufficient role")
			return
		}
		c.Next()
	}
}
