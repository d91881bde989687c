package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	resolverTierTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "itinerary_resolver_tier_total",
			Help: "Place resolution attempts per tier and result.",
		},
		[]string{"tier", "result"}, // result: hit, miss, error, unexpected
	)
	narrativeFallbackTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "itinerary_narrative_fallback_total",
			Help: "Narrative calls answered with a templated fallback.",
		},
		[]string{"call"},
	)
	budgetNormalizationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "itinerary_budget_normalizations_total",
			Help: "Budget normalization outcomes.",
		},
		[]string{"result"}, // untouched, scaled, degenerate
	)
	pipelineDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "itinerary_pipeline_duration_seconds",
			Help:    "Duration of pipeline operations.",
			Buckets: []float64{1, 5, 10, 20, 40, 60, 90, 120, 180, 300},
		},
		[]string{"operation", "status"},
	)
	stateTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "itinerary_state_transitions_total",
			Help: "Itinerary status transitions.",
		},
		[]string{"from", "to", "result"},
	)
)
