// Package metrics exposes Prometheus instrumentation for searches, batch
// jobs and HTTP requests.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	gatherer prometheus.Gatherer

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	SearchesTotal       *prometheus.CounterVec
	SearchDuration      *prometheus.HistogramVec
	BatchRowsTotal      *prometheus.CounterVec
	BatchJobsRunning    prometheus.Gauge
}

// New registers the collectors on reg. Passing a fresh prometheus.Registry
// keeps tests isolated from the default registry.
func New(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		gatherer: reg,
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		SearchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "search_requests_total",
				Help: "Total number of calls to the search API.",
			},
			[]string{"scope", "outcome"},
		),
		SearchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "search_request_duration_seconds",
				Help:    "Duration of calls to the search API.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"scope"},
		),
		BatchRowsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "batch_rows_total",
				Help: "Total number of batch rows processed.",
			},
			[]string{"kind", "outcome"},
		),
		BatchJobsRunning: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "batch_jobs_running",
				Help: "Number of batch jobs currently running.",
			},
		),
	}
}

// ObserveSearch records one search API call.
func (m *Metrics) ObserveSearch(scope, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.SearchesTotal.WithLabelValues(scope, outcome).Inc()
	m.SearchDuration.WithLabelValues(scope).Observe(d.Seconds())
}

// ObserveBatchRow records one processed batch row.
func (m *Metrics) ObserveBatchRow(kind, outcome string) {
	if m == nil {
		return
	}
	m.BatchRowsTotal.WithLabelValues(kind, outcome).Inc()
}

// JobStarted and JobFinished track running batch jobs.
func (m *Metrics) JobStarted() {
	if m == nil {
		return
	}
	m.BatchJobsRunning.Inc()
}

func (m *Metrics) JobFinished() {
	if m == nil {
		return
	}
	m.BatchJobsRunning.Dec()
}

// ObserveHTTP records one served HTTP request. path should be the route
// pattern, not the raw URL, to keep label cardinality bounded.
func (m *Metrics) ObserveHTTP(method, path string, status int, d time.Duration) {
	if m == nil {
		return
	}
	code := strconv.Itoa(status)
	m.HTTPRequestsTotal.WithLabelValues(method, path, code).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path, code).Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
