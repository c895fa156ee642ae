// Package router assembles the gin engine from the application modules.
package router

import (
	"context"
	"net/http"
	"time"

	apphttp "leadscore_backend/internal/http"
	"leadscore_backend/platform/httpkit"
	"leadscore_backend/platform/metrics"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

const healthTimeout = 2 * time.Second

// New builds the HTTP engine: shared middleware, operational endpoints and
// every module's routes.
func New(app *apphttp.App) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(httpkit.RequestID())
	engine.Use(httpkit.RequestLogger(app.Logger))
	engine.Use(httpkit.SecurityHeaders())
	engine.Use(cors.New(corsConfig(app.Config)))

	engine.GET("/health", healthHandler(app.Health))
	engine.GET("/metrics", metrics.Handler())

	var scoreLimit gin.HandlerFunc
	if perMinute := app.Config.GetScoreRateLimitPerMinute(); perMinute > 0 {
		scoreLimit = httpkit.NewPerMinuteLimiter(perMinute, app.Logger).RateLimit()
	}

	ctx := &apphttp.RouterContext{
		Engine:         engine,
		Root:           &engine.RouterGroup,
		ScoreRateLimit: scoreLimit,
	}
	for _, m := range app.Modules {
		m.RegisterRoutes(ctx)
		app.Logger.Debug("module routes registered", "module", m.Name())
	}

	return engine
}

func corsConfig(cfg apphttp.RouterConfig) cors.Config {
	corsCfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "X-Session-ID", httpkit.RequestIDHeader},
		ExposeHeaders: []string{"Content-Disposition", "X-Session-ID", httpkit.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	switch origins := cfg.GetCORSOrigins(); {
	case cfg.GetCORSAllowAll():
		corsCfg.AllowAllOrigins = true
	case len(origins) == 0:
		corsCfg.AllowOriginFunc = func(string) bool { return false }
	default:
		corsCfg.AllowOrigins = origins
	}
	return corsCfg
}

func healthHandler(checker apphttp.HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if checker != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
			defer cancel()
			if err := checker.Ping(ctx); err != nil {
				httpkit.Error(c, http.StatusServiceUnavailable, "unavailable", err.Error())
				return
			}
		}
		httpkit.OK(c, gin.H{"status": "ok"})
	}
}
