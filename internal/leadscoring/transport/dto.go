package transport

import (
	"leadscore_backend/internal/leadscoring/domain"
)

// ── Requests ──────────────────────────────────────────────────────────────────

// OfferRequest is the body of POST /offer. Both lists must be present but
// may be empty.
type OfferRequest struct {
	Name          string   `json:"name" validate:"required"`
	ValueProps    []string `json:"value_props" validate:"required"`
	IdealUseCases []string `json:"ideal_use_cases" validate:"required"`
}

// ToDomain converts the request into an Offer.
func (r OfferRequest) ToDomain() domain.Offer {
	return domain.Offer{
		Name:          r.Name,
		ValueProps:    r.ValueProps,
		IdealUseCases: r.IdealUseCases,
	}
}

// ── Responses ─────────────────────────────────────────────────────────────────

type OfferResponse struct {
	Status string       `json:"status"`
	Offer  domain.Offer `json:"offer"`
}

type UploadResponse struct {
	Status string `json:"status"`
	Total  int    `json:"total"`
}

type SessionResponse struct {
	SessionID string `json:"session_id"`
}
