// Package metrics owns the Prometheus collectors exposed on /metrics. The
// collectors are registered on a dedicated registry rather than the global
// default so tests can build as many Metrics values as they like.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups every collector the API records.
type Metrics struct {
	registry *prometheus.Registry

	// HTTPRequests counts finished requests by method, route and status.
	HTTPRequests *prometheus.CounterVec

	// HTTPDuration observes request latency by method and route.
	HTTPDuration *prometheus.HistogramVec

	// TagsDeactivated counts tags switched off, including cascaded descendants.
	TagsDeactivated prometheus.Counter

	// VotesCast counts accepted ballots by direction ("up" / "down").
	VotesCast *prometheus.CounterVec

	// ChangeRequestsResolved counts change requests by final status.
	ChangeRequestsResolved *prometheus.CounterVec
}

// New creates and registers all collectors, plus the Go runtime and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "buhurt",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "buhurt",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		TagsDeactivated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "buhurt",
			Name:      "tags_deactivated_total",
			Help:      "Tags deactivated directly or by cascade.",
		}),
		VotesCast: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "buhurt",
			Name:      "votes_cast_total",
			Help:      "Votes recorded on tag change requests.",
		}, []string{"direction"}),
		ChangeRequestsResolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "buhurt",
			Name:      "change_requests_resolved_total",
			Help:      "Tag change requests resolved, by outcome.",
		}, []string{"status"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequests,
		m.HTTPDuration,
		m.TagsDeactivated,
		m.VotesCast,
		m.ChangeRequestsResolved,
	)
	return m
}

// Handler returns the HTTP handler serving this registry in the
// Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
