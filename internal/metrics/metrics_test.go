package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_ObserveSearch(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveSearch("web", "found", 120*time.Millisecond)
	m.ObserveSearch("web", "found", 80*time.Millisecond)
	m.ObserveSearch("linkedin", "failed", time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.SearchesTotal.WithLabelValues("web", "found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchesTotal.WithLabelValues("linkedin", "failed")))
}

func TestMetrics_BatchJobsGauge(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.JobStarted()
	m.JobStarted()
	m.JobFinished()
	m.ObserveBatchRow("companies", "not_found")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.BatchJobsRunning))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BatchRowsTotal.WithLabelValues("companies", "not_found")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveSearch("web", "found", time.Second)
		m.ObserveBatchRow("people", "found")
		m.ObserveHTTP(http.MethodGet, "/", http.StatusOK, time.Millisecond)
		m.JobStarted()
		m.JobFinished()
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObserveHTTP(http.MethodGet, "/health", http.StatusOK, 5*time.Millisecond)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `http_requests_total{method="GET",path="/health",status="200"} 1`)
}
