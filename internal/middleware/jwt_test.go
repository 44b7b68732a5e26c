package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/xxxsen/tenantrag/internal/pkg/errcode"
	"github.com/xxxsen/tenantrag/internal/pkg/jwt"
)

var testSecret = []byte("middleware-secret")

type envelope struct {
	Code uint32          `json:"code"`
	Data json.RawMessage `json:"data"`
}

func newAuthEngine(roles ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	handlers := []gin.HandlerFunc{JWTAuth(testSecret)}
	if len(roles) > 0 {
		handlers = append(handlers, RequireRoles(roles...))
	}
	handlers = append(handlers, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"code": 0,
			"data": gin.H{"user_id": c.GetString(ContextUserIDKey), "role": c.GetString(ContextRoleKey)},
		})
	})
	engine.GET("/ping", handlers...)
	return engine
}

func doPing(t *testing.T, engine *gin.Engine, authorization string) envelope {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestJWTAuth_SetsTenantAndRole(t *testing.T) {
	token, err := jwt.GenerateToken("42", "user", testSecret, time.Hour)
	require.NoError(t, err)

	env := doPing(t, newAuthEngine(), "Bearer "+token)
	require.Equal(t, uint32(0), env.Code)
	var data map[string]string
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.Equal(t, "42", data["user_id"])
	require.Equal(t, "user", data["role"])
}

func TestJWTAuth_Rejects(t *testing.T) {
	engine := newAuthEngine()
	require.Equal(t, uint32(errcode.ErrUnauthorized), doPing(t, engine, "").Code)
	require.Equal(t, uint32(errcode.ErrUnauthorized), doPing(t, engine, "Basic abc").Code)
	require.Equal(t, uint32(errcode.ErrUnauthorized), doPing(t, engine, "Bearer garbage").Code)

	other, err := jwt.GenerateToken("42", "user", []byte("other"), time.Hour)
	require.NoError(t, err)
	require.Equal(t, uint32(errcode.ErrUnauthorized), doPing(t, engine, "Bearer "+other).Code)
}

func TestRequireRoles(t *testing.T) {
	engine := newAuthEngine("admin", "manager")

	admin, err := jwt.GenerateToken("1", "Admin", testSecret, time.Hour)
	require.NoError(t, err)
	require.Equal(t, uint32(0), doPing(t, engine, "Bearer "+admin).Code)

	viewer, err := jwt.GenerateToken("2", "viewer", testSecret, time.Hour)
	require.NoError(t, err)
	require.Equal(t, uint32(errcode.ErrForbidden), doPing(t, engine, "Bearer "+viewer).Code)
}

func TestRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(RequestID())
	engine.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(ContextRequestIDKey))
	})

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	generated := rec.Header().Get(headerRequestID)
	require.NotEmpty(t, generated)
	require.Equal(t, generated, rec.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(headerRequestID, "abc")
	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	require.Equal(t, "abc", rec.Header().Get(headerRequestID))
}

func TestRequestID_EchoesTraceID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()

	engine := gin.New()
	engine.Use(func(c *gin.Context) {
		ctx, span := tp.Tracer("test").Start(c.Request.Context(), "request")
		defer span.End()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})
	engine.Use(RequestID())
	engine.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Len(t, rec.Header().Get(headerTraceID), 32)
}
