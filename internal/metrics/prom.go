package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ballast-systems/ballast/internal/engine"
)

// #region prometheus

var (
	// DecisionsTotal counts decisions by terminal status.
	DecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ballast_decisions_total",
			Help: "Total decisions produced, by status",
		},
		[]string{"status"},
	)

	// FallbackActivationsTotal counts decisions that substituted the fallback value.
	FallbackActivationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ballast_fallback_activations_total",
			Help: "Total decisions that used the fallback value",
		},
	)

	// DecisionConfidence tracks the aggregate confidence distribution.
	DecisionConfidence = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ballast_decision_confidence",
			Help:    "Aggregate confidence per decision",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		},
	)

	// ModelsAgreedCount tracks how many models agreed per decision.
	ModelsAgreedCount = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ballast_models_agreed",
			Help:    "Number of models agreeing per decision",
			Buckets: prometheus.LinearBuckets(0, 1, 11),
		},
	)

	// FinalValueDist tracks the bounded output distribution.
	FinalValueDist = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ballast_final_value",
			Help:    "Final decision value, bounded to (-1, 1)",
			Buckets: prometheus.LinearBuckets(-1, 0.2, 11),
		},
	)
)

// RecordDecision exports one decision to the Prometheus registry.
func RecordDecision(d engine.Decision) {
	DecisionsTotal.WithLabelValues(d.Status.String()).Inc()
	if d.FallbackUsed {
		FallbackActivationsTotal.Inc()
	}
	DecisionConfidence.Observe(d.Confidence)
	ModelsAgreedCount.Observe(float64(d.ModelsAgreed))
	FinalValueDist.Observe(d.FinalValue)
}

// #endregion prometheus
