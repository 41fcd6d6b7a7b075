package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all Prometheus metrics for creditd.
type Registry struct {
	reg *prometheus.Registry

	// Upstream call metrics
	UpstreamDuration *prometheus.HistogramVec
	UpstreamFailures *prometheus.CounterVec

	// Fusion metrics
	ScoresComputed *prometheus.CounterVec
	ScoreFailures  *prometheus.CounterVec
	ScoreDuration  prometheus.Histogram
	InFlightScores prometheus.Gauge

	// Blacklist mutation metrics
	BlacklistMutations *prometheus.CounterVec
}

// NewRegistry creates a registry with all creditd metrics registered on a
// private prometheus.Registry.
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),

		UpstreamDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "creditd_upstream_request_duration_seconds",
				Help:    "Duration of upstream provider requests in seconds",
				Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"provider", "outcome"},
		),

		UpstreamFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "creditd_upstream_failures_total",
				Help: "Total upstream provider failures by provider and kind",
			},
			[]string{"provider", "kind"},
		),

		ScoresComputed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "creditd_scores_computed_total",
				Help: "Total combined scores computed by resulting risk level",
			},
			[]string{"risk_level"},
		),

		ScoreFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "creditd_score_failures_total",
				Help: "Total failed score computations by reason",
			},
			[]string{"reason"},
		),

		ScoreDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "creditd_score_duration_seconds",
				Help:    "End-to-end duration of combined score computations",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 20.0},
			},
		),

		InFlightScores: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "creditd_scores_in_flight",
				Help: "Number of score computations currently in progress",
			},
		),

		BlacklistMutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "creditd_blacklist_mutations_total",
				Help: "Total blacklist add/remove operations by action and outcome",
			},
			[]string{"action", "outcome"},
		),
	}

	r.reg.MustRegister(
		r.UpstreamDuration,
		r.UpstreamFailures,
		r.ScoresComputed,
		r.ScoreFailures,
		r.ScoreDuration,
		r.InFlightScores,
		r.BlacklistMutations,
	)

	return r
}

// Handler returns the /metrics HTTP handler for this registry.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// Gatherer exposes the underlying registry for tests.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }

// ObserveUpstream records one upstream request.
func (r *Registry) ObserveUpstream(provider, outcome string, elapsed time.Duration) {
	r.UpstreamDuration.WithLabelValues(provider, outcome).Observe(elapsed.Seconds())
}

// ObserveUpstreamFailure counts one upstream failure.
func (r *Registry) ObserveUpstreamFailure(provider, kind string) {
	r.UpstreamFailures.WithLabelValues(provider, kind).Inc()
}

// ObserveScore records one successful fusion.
func (r *Registry) ObserveScore(riskLevel string, elapsed time.Duration) {
	r.ScoresComputed.WithLabelValues(riskLevel).Inc()
	r.ScoreDuration.Observe(elapsed.Seconds())
}

// ObserveScoreFailure counts one failed fusion.
func (r *Registry) ObserveScoreFailure(reason string) {
	r.ScoreFailures.WithLabelValues(reason).Inc()
}

// ObserveBlacklistMutation counts one blacklist add or remove.
func (r *Registry) ObserveBlacklistMutation(action, outcome string) {
	r.BlacklistMutations.WithLabelValues(action, outcome).Inc()
}
