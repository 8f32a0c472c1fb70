package catalog

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for catalog fetches.
type Metrics struct {
	Registry             *prometheus.Registry
	RequestsTotal        *prometheus.CounterVec
	RequestDuration      prometheus.Histogram
	VolumesReceivedTotal prometheus.Counter
	ErrorsTotal          *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "browser_fetch_requests_total",
			Help: "Total catalog requests by outcome.",
		},
		[]string{"outcome"},
	)
	requestDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "browser_fetch_duration_seconds",
			Help:    "Catalog request latency.",
			Buckets: prometheus.DefBuckets,
		},
	)
	volumes := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "browser_volumes_received_total",
			Help: "Total number of volume records decoded from catalog responses.",
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "browser_fetch_errors_total",
			Help: "Total number of fetch failures by kind.",
		},
		[]string{"error_type"},
	)

	registry.MustRegister(requests, requestDuration, volumes, errorsTotal)

	return &Metrics{
		Registry:             registry,
		RequestsTotal:        requests,
		RequestDuration:      requestDuration,
		VolumesReceivedTotal: volumes,
		ErrorsTotal:          errorsTotal,
	}
}

// IncRequest increments the requests counter for an outcome.
func (m *Metrics) IncRequest(outcome string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(outcome).Inc()
}

// ObserveDuration records a request duration.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.Observe(d.Seconds())
}

// AddVolumes adds decoded volumes to the received counter.
func (m *Metrics) AddVolumes(n int) {
	if m == nil {
		return
	}
	m.VolumesReceivedTotal.Add(float64(n))
}

// IncError increments the errors counter for a kind.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}
