package scraper

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the crawl.
type Metrics struct {
	Registry          *prometheus.Registry
	RequestsTotal     *prometheus.CounterVec
	ObservationsTotal *prometheus.CounterVec
	FailuresTotal     *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tyrescraper_requests_total",
			Help: "Total requests issued, by phase.",
		},
		[]string{"phase"},
	)
	observations := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tyrescraper_observations_total",
			Help: "Total observations recorded, by source.",
		},
		[]string{"source"},
	)
	failures := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tyrescraper_failures_total",
			Help: "Total failures, by error type.",
		},
		[]string{"error_type"},
	)

	registry.MustRegister(requests, observations, failures)

	return &Metrics{
		Registry:          registry,
		RequestsTotal:     requests,
		ObservationsTotal: observations,
		FailuresTotal:     failures,
	}
}

// IncRequest increments the requests counter for a phase.
func (m *Metrics) IncRequest(phase string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(phase).Inc()
}

// IncObservation increments the observations counter for a source.
func (m *Metrics) IncObservation(source string) {
	if m == nil {
		return
	}
	m.ObservationsTotal.WithLabelValues(source).Inc()
}

// IncFailure increments the failures counter for an error type label.
func (m *Metrics) IncFailure(errorType string) {
	if m == nil {
		return
	}
	m.FailuresTotal.WithLabelValues(errorType).Inc()
}
