// Package metrics holds the Prometheus collectors of the server.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "recordbase"

// Metrics groups the collectors. A nil *Metrics records nothing.
type Metrics struct {
	operations    *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	rateLimit     *prometheus.CounterVec
	searchResults prometheus.Histogram
	unresolved    *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "operations_total", Help: "Operations handled by outcome."},
			[]string{"operation", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{Namespace: namespace, Name: "operation_duration_seconds", Help: "Operation latency.", Buckets: prometheus.DefBuckets},
			[]string{"operation"},
		),
		rateLimit: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "rate_limit_decisions_total", Help: "Rate limit decisions by limiter type."},
			[]string{"limiter", "decision"},
		),
		searchResults: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "matches",
			Help:      "Total matches per search before pagination.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),
		unresolved: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Subsystem: "render", Name: "unresolved_tags_total", Help: "Template tags rendered as literal text."},
			[]string{"template"},
		),
	}
	reg.MustRegister(m.operations, m.duration, m.rateLimit, m.searchResults, m.unresolved)
	return m
}

// ObserveOperation records one finished operation.
func (m *Metrics) ObserveOperation(op string, start time.Time, outcome string) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(op, outcome).Inc()
	m.duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// RateLimitDecision counts an allow or reject by the named limiter.
func (m *Metrics) RateLimitDecision(limiter string, allowed bool) {
	if m == nil {
		return
	}
	decision := "allowed"
	if !allowed {
		decision = "rejected"
	}
	m.rateLimit.WithLabelValues(limiter, decision).Inc()
}

// SearchMatches records the total count of one search.
func (m *Metrics) SearchMatches(n int) {
	if m == nil {
		return
	}
	m.searchResults.Observe(float64(n))
}

// UnresolvedTag counts a tag that fell back to literal text.
func (m *Metrics) UnresolvedTag(template string) {
	if m == nil {
		return
	}
	m.unresolved.WithLabelValues(template).Inc()
}

// Handler exposes the collectors of g in the text exposition format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
