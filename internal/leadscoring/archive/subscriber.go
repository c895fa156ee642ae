package archive

import (
	"context"
	"fmt"

	"leadscore_backend/internal/events"
	"leadscore_backend/internal/leadscoring/domain"
)

// RunSaver persists archived runs.
type RunSaver interface {
	SaveRun(ctx context.Context, run Run) error
}

// RunFromEvent converts a completed scoring run into its archive record.
func RunFromEvent(e events.ScoringCompleted) Run {
	run := Run{
		ID:         e.RunID,
		SessionID:  e.SessionID,
		OfferName:  e.Offer.Name,
		Offer:      e.Offer,
		Results:    e.Results,
		TotalLeads: len(e.Results),
		Fallbacks:  e.Fallbacks,
		StartedAt:  e.StartedAt,
		DurationMs: e.Duration.Milliseconds(),
	}
	for _, r := range e.Results {
		switch r.Intent {
		case domain.IntentHigh:
			run.HighCount++
		case domain.IntentMedium:
			run.MediumCount++
		default:
			run.LowCount++
		}
	}
	return run
}

// Subscribe archives every completed scoring run published on bus.
func Subscribe(bus events.Bus, saver RunSaver) {
	bus.Subscribe(events.ScoringCompleted{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		e, ok := event.(events.ScoringCompleted)
		if !ok {
			return fmt.Errorf("archive: unexpected event %T", event)
		}
		if err := saver.SaveRun(ctx, RunFromEvent(e)); err != nil {
			return fmt.Errorf("archive run %s: %w", e.RunID, err)
		}
		return nil
	}))
}
