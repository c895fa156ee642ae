// Package session keeps the offer, leads and latest results of a scoring
// session behind a pluggable store.
package session

import (
	"context"
	"errors"
	"time"

	"leadscore_backend/internal/leadscoring/domain"
	"leadscore_backend/platform/apperr"

	"github.com/google/uuid"
)

// DefaultID is the session used when a request names none.
const DefaultID = "default"

// ErrInvalidID is returned for session IDs that are neither DefaultID nor a UUID.
var ErrInvalidID = errors.New("invalid session id")

// State is everything a session remembers. Offer is nil until one is saved.
type State struct {
	Offer   *domain.Offer         `json:"offer,omitempty"`
	Leads   []domain.Lead         `json:"leads"`
	Results []domain.ScoredResult `json:"results"`
	// ExportKey is the object key of the latest stored export, if any.
	ExportKey string    `json:"export_key,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a copy that shares no slices or maps with s.
func (s State) Clone() State {
	out := State{ExportKey: s.ExportKey, UpdatedAt: s.UpdatedAt}
	if s.Offer != nil {
		offer := s.Offer.Clone()
		out.Offer = &offer
	}
	if s.Leads != nil {
		out.Leads = make([]domain.Lead, len(s.Leads))
		for i, lead := range s.Leads {
			out.Leads[i] = lead
			if lead.Extra != nil {
				extra := make(map[string]string, len(lead.Extra))
				for k, v := range lead.Extra {
					extra[k] = v
				}
				out.Leads[i].Extra = extra
			}
		}
	}
	if s.Results != nil {
		out.Results = append([]domain.ScoredResult(nil), s.Results...)
	}
	return out
}

// Store persists session state by ID. Loading an unknown ID yields an empty
// State and no error.
type Store interface {
	Load(ctx context.Context, id string) (State, error)
	Save(ctx context.Context, id string, state State) error
}

// NewID returns a fresh session ID.
func NewID() string {
	return uuid.NewString()
}

// ValidateID normalizes a client supplied session ID. Empty means DefaultID.
func ValidateID(id string) (string, error) {
	if id == "" || id == DefaultID {
		return DefaultID, nil
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", apperr.Wrap(apperr.KindBadRequest, "invalid session id", ErrInvalidID).
			WithDetails("X-Session-ID must be a UUID or \"default\"")
	}
	return parsed.String(), nil
}
