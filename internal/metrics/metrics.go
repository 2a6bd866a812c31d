// Package metrics defines the prometheus collectors of the console.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Fetch outcomes.
const (
	OutcomeSucceeded    = "succeeded"
	OutcomeFailed       = "failed"
	OutcomeUnauthorized = "unauthorized"
	OutcomeSkipped      = "skipped"
)

// Metrics groups list and transport collectors. A nil *Metrics is a no-op.
type Metrics struct {
	Fetches  *prometheus.CounterVec
	Stale    *prometheus.CounterVec
	Requests *prometheus.HistogramVec
}

// New registers the collectors on reg. Pass prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "console",
			Subsystem: "list",
			Name:      "fetches_total",
			Help:      "List fetches by resource and outcome.",
		}, []string{"resource", "outcome"}),
		Stale: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "console",
			Subsystem: "list",
			Name:      "stale_responses_total",
			Help:      "Responses discarded because a newer request was issued.",
		}, []string{"resource"}),
		Requests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "console",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "API round trips by method and status code.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "code"}),
	}
	reg.MustRegister(m.Fetches, m.Stale, m.Requests)
	return m
}

// Fetch counts one completed (or skipped) fetch.
func (m *Metrics) Fetch(resource, outcome string) {
	if m == nil {
		return
	}
	m.Fetches.WithLabelValues(resource, outcome).Inc()
}

// StaleDiscarded counts one discarded response.
func (m *Metrics) StaleDiscarded(resource string) {
	if m == nil {
		return
	}
	m.Stale.WithLabelValues(resource).Inc()
}

// Request observes one HTTP round trip; code 0 means no response.
func (m *Metrics) Request(method string, code int, d time.Duration) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(method, strconv.Itoa(code)).Observe(d.Seconds())
}
