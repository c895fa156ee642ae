// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"leadscore_backend/internal/leadscoring/domain"
	"leadscore_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Lead Scoring Domain Events
// =============================================================================

// ScoringCompleted is published after a scoring run replaced a session's results.
type ScoringCompleted struct {
	BaseEvent
	RunID     uuid.UUID             `json:"runId"`
	SessionID string                `json:"sessionId"`
	Offer     domain.Offer          `json:"offer"`
	Results   []domain.ScoredResult `json:"results"`
	Fallbacks int                   `json:"fallbacks"`
	StartedAt time.Time             `json:"startedAt"`
	Duration  time.Duration         `json:"duration"`
}

func (e ScoringCompleted) EventName() string { return "leadscoring.scoring.completed" }
