// Package metrics exposes prometheus collectors for lead scoring.
package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ScoringRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadscore_scoring_runs_total",
			Help: "Total number of scoring requests by outcome",
		},
		[]string{"outcome"},
	)

	ScoringRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "leadscore_scoring_run_duration_seconds",
			Help:    "Duration of complete scoring runs in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
	)

	ScoringRunsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "leadscore_scoring_runs_active",
			Help: "Number of scoring runs currently in progress",
		},
	)

	LeadsScored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadscore_leads_scored_total",
			Help: "Total number of leads scored by intent label",
		},
		[]string{"intent"},
	)

	IntentRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "leadscore_intent_request_duration_seconds",
			Help: "Duration of chat completion calls in seconds",
		},
		[]string{"result"},
	)

	IntentFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "leadscore_intent_fallbacks_total",
			Help: "Classifications replaced by the failure fallback label",
		},
	)

	LeadsUploaded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "leadscore_leads_uploaded_total",
			Help: "Total number of lead rows accepted by uploads",
		},
	)
)

// Handler serves the default registry in the prometheus exposition format.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
