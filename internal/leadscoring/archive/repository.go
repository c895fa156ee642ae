// Package archive keeps a history of completed scoring runs in Postgres.
package archive

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"time"

	"leadscore_backend/internal/leadscoring/domain"

	"github.com/google/uuid"
)

// Migrations holds the archive schema, applied with goose from MigrationsDir.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory inside Migrations.
const MigrationsDir = "migrations"

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// Run is one archived scoring run.
type Run struct {
	ID          uuid.UUID             `json:"id"`
	SessionID   string                `json:"session_id"`
	OfferName   string                `json:"offer_name"`
	Offer       domain.Offer          `json:"offer"`
	Results     []domain.ScoredResult `json:"results,omitempty"`
	TotalLeads  int                   `json:"total_leads"`
	HighCount   int                   `json:"high_count"`
	MediumCount int                   `json:"medium_count"`
	LowCount    int                   `json:"low_count"`
	Fallbacks   int                   `json:"fallbacks"`
	StartedAt   time.Time             `json:"started_at"`
	DurationMs  int64                 `json:"duration_ms"`
	CreatedAt   time.Time             `json:"created_at"`
}

// Repository provides data access for archived runs.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// SaveRun inserts a run. Saving the same run twice is a no-op.
func (r *Repository) SaveRun(ctx context.Context, run Run) error {
	offerJSON, err := json.Marshal(run.Offer)
	if err != nil {
		return fmt.Errorf("encode offer: %w", err)
	}
	results := run.Results
	if results == nil {
		results = []domain.ScoredResult{}
	}
	resultsJSON, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("encode results: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO scoring_runs (id, session_id, offer_name, offer, results, total_leads,
			high_count, medium_count, low_count, fallbacks, started_at, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO NOTHING
	`, run.ID, run.SessionID, run.OfferName, string(offerJSON), string(resultsJSON), run.TotalLeads,
		run.HighCount, run.MediumCount, run.LowCount, run.Fallbacks, run.StartedAt, run.DurationMs)
	if err != nil {
		return fmt.Errorf("insert scoring run: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs of a session, newest first, without
// their per-lead results.
func (r *Repository) ListRuns(ctx context.Context, sessionID string, limit int) ([]Run, error) {
	limit = clampLimit(limit)

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, session_id, offer_name, offer, total_leads, high_count, medium_count,
			low_count, fallbacks, started_at, duration_ms, created_at
		FROM scoring_runs
		WHERE session_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("list scoring runs: %w", err)
	}
	defer rows.Close()

	runs := make([]Run, 0)
	for rows.Next() {
		var (
			run       Run
			offerJSON []byte
		)
		if err := rows.Scan(
			&run.ID, &run.SessionID, &run.OfferName, &offerJSON, &run.TotalLeads, &run.HighCount,
			&run.MediumCount, &run.LowCount, &run.Fallbacks, &run.StartedAt, &run.DurationMs, &run.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan scoring run: %w", err)
		}
		if err := json.Unmarshal(offerJSON, &run.Offer); err != nil {
			return nil, fmt.Errorf("decode offer of run %s: %w", run.ID, err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list scoring runs: %w", err)
	}
	return runs, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}
