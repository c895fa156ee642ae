// Package rules implements the deterministic part of lead qualification:
// role seniority, industry fit and data completeness.
package rules

import (
	"strings"

	"leadscore_backend/internal/leadscoring/domain"
)

// Breakdown holds the individual bonuses of a rule score.
type Breakdown struct {
	Role         int `json:"role"`
	Industry     int `json:"industry"`
	Completeness int `json:"completeness"`
}

// Total sums the bonuses.
func (b Breakdown) Total() int {
	return b.Role + b.Industry + b.Completeness
}

// Scorer evaluates leads against a rule table. It holds no mutable state
// and is safe for concurrent use.
type Scorer struct {
	roleTiers    []RoleTier
	industry     int
	industryMiss int
	completeness int
}

// NewScorer prepares a scorer, lower-casing terms once up front.
func NewScorer(cfg Config) *Scorer {
	tiers := make([]RoleTier, 0, len(cfg.Role))
	for _, t := range cfg.Role {
		terms := make([]string, 0, len(t.Terms))
		for _, term := range t.Terms {
			terms = append(terms, strings.ToLower(term))
		}
		tiers = append(tiers, RoleTier{Tier: t.Tier, Points: t.Points, Terms: terms})
	}
	return &Scorer{
		roleTiers:    tiers,
		industry:     cfg.Industry.ExactMatch,
		industryMiss: cfg.Industry.Other,
		completeness: cfg.Completeness.Points,
	}
}

// Score returns the rule score of lead for offer.
func (s *Scorer) Score(lead domain.Lead, offer domain.Offer) int {
	return s.Evaluate(lead, offer).Total()
}

// Evaluate returns the per-rule bonuses of lead for offer.
func (s *Scorer) Evaluate(lead domain.Lead, offer domain.Offer) Breakdown {
	return Breakdown{
		Role:         s.scoreRole(lead.Role),
		Industry:     s.scoreIndustry(lead.Industry, offer.IdealUseCases),
		Completeness: s.scoreCompleteness(lead),
	}
}

// scoreRole awards the points of the first tier with a term contained in role.
// Tiers are checked in table order, so decision makers beat influencers.
func (s *Scorer) scoreRole(role string) int {
	roleLower := strings.ToLower(role)
	for _, tier := range s.roleTiers {
		if containsAny(roleLower, tier.Terms) {
			return tier.Points
		}
	}
	return 0
}

func (s *Scorer) scoreIndustry(industry string, idealUseCases []string) int {
	industryLower := strings.ToLower(industry)
	for _, useCase := range idealUseCases {
		if strings.ToLower(useCase) == industryLower {
			return s.industry
		}
	}
	if industryLower != "" {
		return s.industryMiss
	}
	return 0
}

func (s *Scorer) scoreCompleteness(lead domain.Lead) int {
	if lead.IsComplete() {
		return s.completeness
	}
	return 0
}

// containsAny checks if s contains any of the keywords.
func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
