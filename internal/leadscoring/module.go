// Package leadscoring provides the lead scoring domain module.
package leadscoring

import (
	apphttp "leadscore_backend/internal/http"
	"leadscore_backend/internal/leadscoring/handler"
	"leadscore_backend/internal/leadscoring/service"
	"leadscore_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

// Module represents the lead scoring domain module
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates a new lead scoring module around an assembled service.
func NewModule(svc *service.Service, val *validator.Validator, maxUploadBytes int64) *Module {
	return &Module{
		handler: handler.New(svc, val, maxUploadBytes),
		service: svc,
	}
}

// SetRunLister exposes archived runs on GET /runs.
func (m *Module) SetRunLister(runs handler.RunLister) {
	m.handler.SetRunLister(runs)
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "leadscoring"
}

// Service returns the service layer for external use
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes registers the module's routes
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	var scoreMiddleware []gin.HandlerFunc
	if ctx.ScoreRateLimit != nil {
		scoreMiddleware = append(scoreMiddleware, ctx.ScoreRateLimit)
	}
	m.handler.RegisterRoutes(ctx.Root, scoreMiddleware...)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
