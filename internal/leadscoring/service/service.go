// Package service orchestrates lead scoring sessions: offer and lead
// ingestion, scoring runs and result exports.
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"leadscore_backend/internal/adapters/storage"
	"leadscore_backend/internal/events"
	"leadscore_backend/internal/leadscoring/domain"
	"leadscore_backend/internal/leadscoring/intent"
	"leadscore_backend/internal/leadscoring/session"
	"leadscore_backend/platform/apperr"
	"leadscore_backend/platform/logger"
	"leadscore_backend/platform/metrics"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Status messages returned to clients.
const (
	StatusOfferSaved    = "Offer saved"
	StatusLeadsUploaded = "Leads uploaded"
	StatusMissingInputs = "Please upload offer and leads first."
	StatusLeadsScored   = "Leads scored"
	StatusNoResults     = "No results to export."
	StatusExportStored  = "Export stored"
)

const (
	exportFileName     = "results.csv"
	exportContentType  = "text/csv"
	defaultConcurrency = 4
)

// ErrNoResults is returned by exports when the session holds no results.
var ErrNoResults = errors.New("no results to export")

// RuleScorer computes the deterministic part of a lead score.
type RuleScorer interface {
	Score(lead domain.Lead, offer domain.Offer) int
}

// IntentClassifier labels the buying intent of a lead.
type IntentClassifier interface {
	Classify(ctx context.Context, lead domain.Lead, offer domain.Offer) intent.Classification
}

// ExportStorage stores rendered exports. Optional.
type ExportStorage interface {
	UploadFile(ctx context.Context, bucket, folder, fileName, contentType string, reader io.Reader, size int64) (string, error)
	GenerateDownloadURL(ctx context.Context, bucket, fileKey string) (*storage.PresignedURL, error)
	DeleteObject(ctx context.Context, bucket, fileKey string) error
}

// Options configures a Service.
type Options struct {
	// Concurrency bounds the number of leads classified at once.
	Concurrency int
	// ExportBucket is the bucket stored exports go to.
	ExportBucket string
}

// ScoreOutcome is the reply to a scoring request. Total and RunID are only
// set when a run happened.
type ScoreOutcome struct {
	Status string `json:"status"`
	Total  int    `json:"total,omitempty"`
	RunID  string `json:"run_id,omitempty"`
}

// StoredExport describes an export written to object storage.
type StoredExport struct {
	Status    string    `json:"status"`
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Service implements the lead scoring use cases.
type Service struct {
	sessions   *session.Manager
	rules      RuleScorer
	classifier IntentClassifier
	bus        events.Bus
	storage    ExportStorage
	log        *logger.Logger
	opts       Options

	runMu      sync.Mutex
	activeRuns map[string]bool
	now        func() time.Time
}

// New creates the scoring service. bus and log may be nil.
func New(sessions *session.Manager, rules RuleScorer, classifier IntentClassifier, bus events.Bus, log *logger.Logger, opts Options) *Service {
	if opts.Concurrency < 1 {
		opts.Concurrency = defaultConcurrency
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Service{
		sessions:   sessions,
		rules:      rules,
		classifier: classifier,
		bus:        bus,
		log:        log,
		opts:       opts,
		activeRuns: make(map[string]bool),
		now:        time.Now,
	}
}

// SetExportStorage enables stored exports.
func (s *Service) SetExportStorage(st ExportStorage) {
	s.storage = st
}

// HasExportStorage reports whether stored exports are available.
func (s *Service) HasExportStorage() bool {
	return s.storage != nil
}

// NewSession returns the ID of a fresh, empty session.
func (s *Service) NewSession(ctx context.Context) (string, error) {
	id := session.NewID()
	if _, err := s.sessions.Update(ctx, id, func(*session.State) error { return nil }); err != nil {
		return "", err
	}
	return id, nil
}

// SetOffer replaces the session's offer.
func (s *Service) SetOffer(ctx context.Context, sessionID string, offer domain.Offer) (domain.Offer, error) {
	stored := offer.Clone()
	if stored.ValueProps == nil {
		stored.ValueProps = []string{}
	}
	if stored.IdealUseCases == nil {
		stored.IdealUseCases = []string{}
	}

	_, err := s.sessions.Update(ctx, sessionID, func(st *session.State) error {
		o := stored.Clone()
		st.Offer = &o
		return nil
	})
	if err != nil {
		return domain.Offer{}, err
	}
	return stored, nil
}

// UploadLeads parses a CSV document and replaces the session's leads. A
// malformed document leaves the previous leads in place.
func (s *Service) UploadLeads(ctx context.Context, sessionID string, r io.Reader) (int, error) {
	leads, err := ParseLeads(r)
	if err != nil {
		return 0, err
	}

	_, err = s.sessions.Update(ctx, sessionID, func(st *session.State) error {
		st.Leads = leads
		return nil
	})
	if err != nil {
		return 0, err
	}

	metrics.LeadsUploaded.Add(float64(len(leads)))
	return len(leads), nil
}

// Score runs the rule scorer and the intent classifier over every lead of the
// session and replaces its results once all leads are done. Without an offer
// or leads nothing changes and a soft status is returned.
func (s *Service) Score(ctx context.Context, sessionID string) (ScoreOutcome, error) {
	if !s.markRunRunning(sessionID) {
		metrics.ScoringRuns.WithLabelValues("conflict").Inc()
		return ScoreOutcome{}, apperr.Conflict("a scoring run is already in progress for this session").WithOp("service.Score")
	}
	defer s.markRunComplete(sessionID)

	snapshot, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return ScoreOutcome{}, err
	}
	if snapshot.Offer == nil || len(snapshot.Leads) == 0 {
		metrics.ScoringRuns.WithLabelValues("skipped").Inc()
		return ScoreOutcome{Status: StatusMissingInputs}, nil
	}

	metrics.ScoringRunsActive.Inc()
	defer metrics.ScoringRunsActive.Dec()

	runID := uuid.New()
	startedAt := s.now()
	offer := *snapshot.Offer

	results, err := s.scoreAll(ctx, offer, snapshot.Leads)
	if err != nil {
		metrics.ScoringRuns.WithLabelValues("failed").Inc()
		return ScoreOutcome{}, fmt.Errorf("score leads: %w", err)
	}

	_, err = s.sessions.Update(ctx, sessionID, func(st *session.State) error {
		st.Results = results
		return nil
	})
	if err != nil {
		metrics.ScoringRuns.WithLabelValues("failed").Inc()
		return ScoreOutcome{}, err
	}

	duration := s.now().Sub(startedAt)
	fallbacks := 0
	for _, r := range results {
		if r.Fallback {
			fallbacks++
		}
		metrics.LeadsScored.WithLabelValues(string(r.Intent)).Inc()
	}
	metrics.ScoringRuns.WithLabelValues("scored").Inc()
	metrics.ScoringRunDuration.Observe(duration.Seconds())
	s.log.WithContext(ctx).ScoringRun(runID.String(), sessionID, len(results), fallbacks, float64(duration.Milliseconds()))

	if s.bus != nil {
		s.bus.Publish(ctx, events.ScoringCompleted{
			BaseEvent: events.NewBaseEvent(),
			RunID:     runID,
			SessionID: sessionID,
			Offer:     offer,
			Results:   append([]domain.ScoredResult(nil), results...),
			Fallbacks: fallbacks,
			StartedAt: startedAt.UTC(),
			Duration:  duration,
		})
	}

	return ScoreOutcome{Status: StatusLeadsScored, Total: len(results), RunID: runID.String()}, nil
}

// scoreAll scores leads on a bounded pool. Each worker writes its own index,
// so results keep the order of leads.
func (s *Service) scoreAll(ctx context.Context, offer domain.Offer, leads []domain.Lead) ([]domain.ScoredResult, error) {
	results := make([]domain.ScoredResult, len(leads))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)
	for i, lead := range leads {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = s.scoreLead(gctx, lead, offer)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	// A cancelled run would otherwise finish with fallback labels only.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) scoreLead(ctx context.Context, lead domain.Lead, offer domain.Offer) domain.ScoredResult {
	rule := s.rules.Score(lead, offer)
	c := s.classifier.Classify(ctx, lead, offer)
	return domain.ScoredResult{
		Name:      lead.Name,
		Role:      lead.Role,
		Company:   lead.Company,
		Intent:    c.Label,
		Score:     rule + c.Points,
		Reasoning: c.Rationale,
		Fallback:  c.Fallback,
	}
}

// Results returns the latest results of the session, never nil.
func (s *Service) Results(ctx context.Context, sessionID string) ([]domain.ScoredResult, error) {
	st, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if st.Results == nil {
		return []domain.ScoredResult{}, nil
	}
	return st.Results, nil
}

// ExportCSV renders the session's results as CSV. ErrNoResults is returned
// when there is nothing to export.
func (s *Service) ExportCSV(ctx context.Context, sessionID string) ([]byte, error) {
	results, err := s.Results(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, ErrNoResults
	}
	data, err := EncodeResultsCSV(results)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to render export", err).WithOp("service.ExportCSV")
	}
	return data, nil
}

// StoreExport uploads the CSV export to object storage and returns a
// presigned download link. The session's previous stored export is removed,
// so each session keeps at most one object.
func (s *Service) StoreExport(ctx context.Context, sessionID string) (StoredExport, error) {
	if s.storage == nil {
		return StoredExport{}, apperr.NotFound("export storage is not configured")
	}
	data, err := s.ExportCSV(ctx, sessionID)
	if err != nil {
		return StoredExport{}, err
	}

	folder := sessionID + "/" + s.now().UTC().Format("2006-01-02")
	key, err := s.storage.UploadFile(ctx, s.opts.ExportBucket, folder, exportFileName, exportContentType, bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return StoredExport{}, apperr.Wrap(apperr.KindInternal, "failed to store export", err).WithOp("service.StoreExport")
	}
	link, err := s.storage.GenerateDownloadURL(ctx, s.opts.ExportBucket, key)
	if err != nil {
		return StoredExport{}, apperr.Wrap(apperr.KindInternal, "failed to sign export url", err).WithOp("service.StoreExport")
	}

	var previous string
	_, err = s.sessions.Update(ctx, sessionID, func(st *session.State) error {
		previous = st.ExportKey
		st.ExportKey = key
		return nil
	})
	if err != nil {
		return StoredExport{}, err
	}
	if previous != "" && previous != key {
		if err := s.storage.DeleteObject(ctx, s.opts.ExportBucket, previous); err != nil {
			s.log.WithContext(ctx).Warn("failed to delete previous export", "key", previous, "error", err)
		}
	}

	return StoredExport{
		Status:    StatusExportStored,
		Key:       key,
		URL:       link.URL,
		ExpiresAt: link.ExpiresAt,
	}, nil
}

func (s *Service) markRunRunning(sessionID string) bool {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if s.activeRuns[sessionID] {
		return false
	}
	s.activeRuns[sessionID] = true
	return true
}

func (s *Service) markRunComplete(sessionID string) {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	delete(s.activeRuns, sessionID)
}
