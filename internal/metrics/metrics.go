// Package metrics exposes Prometheus metrics for feedback submissions.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gotrs-io/gotrs-feedback/internal/feedback"
)

// Metrics tracks submission outcomes and latency.
type Metrics struct {
	registry    *prometheus.Registry
	submissions *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	inFlight    prometheus.Gauge
	rateLimited prometheus.Counter
}

// New registers the feedback collectors on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feedback_submissions_total",
			Help: "Total number of feedback submissions by outcome",
		}, []string{"outcome", "mode"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "feedback_submission_duration_seconds",
			Help:    "Time from submit to settled state",
			Buckets: prometheus.DefBuckets,
		}, []string{"mode"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "feedback_submissions_in_flight",
			Help: "Number of submissions waiting on the ticketing API",
		}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feedback_rate_limited_total",
			Help: "Total number of submissions rejected by the rate limiter",
		}),
	}

	registry.MustRegister(
		m.submissions,
		m.duration,
		m.inFlight,
		m.rateLimited,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Outcome labels a settled state.
func Outcome(state feedback.State) string {
	switch {
	case state.IsSubmitted:
		return "submitted"
	case state.Error.Error == feedback.CodeRecordInvalid:
		return "invalid"
	case state.HasError:
		return "failed"
	default:
		return "unknown"
	}
}

// Started marks a submission as in flight and returns a function that
// records its settled state.
func (m *Metrics) Started(mode string) func(feedback.State) {
	if m == nil {
		return func(feedback.State) {}
	}

	start := time.Now()
	m.inFlight.Inc()
	return func(state feedback.State) {
		m.inFlight.Dec()
		m.duration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
		m.submissions.WithLabelValues(Outcome(state), mode).Inc()
	}
}

// RateLimited counts a rejected submission.
func (m *Metrics) RateLimited() {
	if m == nil {
		return
	}
	m.rateLimited.Inc()
}

// Registry returns the registry the collectors live in.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
