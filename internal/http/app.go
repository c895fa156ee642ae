// Package http provides HTTP server infrastructure including module registration.
package http

import (
	"context"
	"fmt"

	"leadscore_backend/internal/events"
	"leadscore_backend/platform/config"
	"leadscore_backend/platform/logger"
)

// RouterConfig combines the config interfaces needed by the HTTP router.
type RouterConfig interface {
	config.HTTPConfig
}

// HealthChecker exposes minimal functionality for readiness checks.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// HealthCheckFunc adapts a function to HealthChecker.
type HealthCheckFunc func(ctx context.Context) error

// Ping calls f.
func (f HealthCheckFunc) Ping(ctx context.Context) error { return f(ctx) }

// HealthChecks pings every named dependency and reports the first failure.
type HealthChecks map[string]HealthChecker

// Ping implements HealthChecker.
func (h HealthChecks) Ping(ctx context.Context) error {
	for name, checker := range h {
		if err := checker.Ping(ctx); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// App holds the fully initialized application dependencies.
// This is populated by main.go (the composition root) and passed to the router.
type App struct {
	// Config holds the router configuration (HTTP settings only).
	Config RouterConfig
	// Logger is the structured logger.
	Logger *logger.Logger
	// Health is used for readiness/health checks (e.g., Redis or DB ping).
	// Nil means the process is healthy while it serves requests.
	Health HealthChecker
	// EventBus is the domain event bus for cross-module communication.
	EventBus events.Bus
	// Modules contains all HTTP-facing domain modules.
	Modules []Module
}
