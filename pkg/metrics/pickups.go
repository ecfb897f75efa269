package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeSuccess      = "success"
	OutcomeNotFound     = "not_found"
	OutcomeForbidden    = "forbidden"
	OutcomeInvalidState = "invalid_state"
	OutcomeError        = "error"
)

// PickupMetrics counts lifecycle transitions and ratings.
type PickupMetrics struct {
	transitions *prometheus.CounterVec
	ratings     prometheus.Counter
	scores      prometheus.Histogram
}

// NewPickupMetrics registers the pickup metrics on reg. A nil registerer
// returns a recorder that drops everything.
func NewPickupMetrics(reg prometheus.Registerer) *PickupMetrics {
	if reg == nil {
		return &PickupMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "collectz_pickup_transitions_total",
		Help: "Pickup lifecycle commands by transition and outcome.",
	}, []string{"transition", "outcome"})
	ratings := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "collectz_pickup_ratings_total",
		Help: "Ratings recorded on completed pickups.",
	})
	scores := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "collectz_pickup_rating_score",
		Help:    "Distribution of submitted rating scores.",
		Buckets: []float64{1, 2, 3, 4, 5},
	})
	reg.MustRegister(transitions, ratings, scores)
	return &PickupMetrics{
		transitions: transitions,
		ratings:     ratings,
		scores:      scores,
	}
}

// ObserveTransition records one lifecycle command.
func (m *PickupMetrics) ObserveTransition(transition, outcome string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(transition), normalizeLabel(outcome)).Inc()
}

// ObserveRating records a stored rating.
func (m *PickupMetrics) ObserveRating(score int) {
	if m == nil || m.ratings == nil {
		return
	}
	m.ratings.Inc()
	m.scores.Observe(float64(score))
}
