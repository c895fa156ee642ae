package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apphttp "leadscore_backend/internal/http"
	"leadscore_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRouterConfig struct {
	allowAll  bool
	origins   []string
	rateLimit int
}

func (c testRouterConfig) GetHTTPAddr() string             { return ":0" }
func (c testRouterConfig) GetCORSAllowAll() bool           { return c.allowAll }
func (c testRouterConfig) GetCORSOrigins() []string        { return c.origins }
func (c testRouterConfig) GetScoreRateLimitPerMinute() int { return c.rateLimit }

type pingModule struct{}

func (pingModule) Name() string { return "ping" }
func (pingModule) RegisterRoutes(ctx *apphttp.RouterContext) {
	handlers := []gin.HandlerFunc{}
	if ctx.ScoreRateLimit != nil {
		handlers = append(handlers, ctx.ScoreRateLimit)
	}
	handlers = append(handlers, func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"pong": true}) })
	ctx.Root.POST("/score", handlers...)
}

func newEngine(cfg testRouterConfig, health apphttp.HealthChecker) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return New(&apphttp.App{
		Config:  cfg,
		Logger:  logger.Discard(),
		Health:  health,
		Modules: []apphttp.Module{pingModule{}},
	})
}

func TestHealth(t *testing.T) {
	engine := newEngine(testRouterConfig{allowAll: true}, nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestHealthReportsFailingDependency(t *testing.T) {
	checks := apphttp.HealthChecks{
		"redis": apphttp.HealthCheckFunc(func(context.Context) error { return errors.New("connection refused") }),
	}
	engine := newEngine(testRouterConfig{allowAll: true}, checks)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "redis: connection refused")
}

func TestRequestIDIsEchoedOrGenerated(t *testing.T) {
	engine := newEngine(testRouterConfig{allowAll: true}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-123")
	engine.ServeHTTP(w, req)
	assert.Equal(t, "req-123", w.Header().Get("X-Request-ID"))

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
}

func TestCORSAllowedOrigin(t *testing.T) {
	engine := newEngine(testRouterConfig{origins: []string{"https://app.example.com"}}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://app.example.com")
	engine.ServeHTTP(w, req)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	engine := newEngine(testRouterConfig{allowAll: true}, nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "leadscore_scoring_runs_active"))
}

func TestScoreRateLimit(t *testing.T) {
	engine := newEngine(testRouterConfig{allowAll: true, rateLimit: 2}, nil)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/score", nil)
		req.RemoteAddr = "203.0.113.7:4000"
		engine.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}
