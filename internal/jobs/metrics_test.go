package jobmetrics

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, registry *prometheus.Registry) string {
	t.Helper()
	rr := httptest.NewRecorder()
	promhttp.HandlerFor(registry, promhttp.HandlerOpts{}).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	return rr.Body.String()
}

func TestTrackerRecordsOutcome(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	require.NoError(t, metrics.Track("calendar:notify").End(nil))
	boom := errors.New("boom")
	assert.Equal(t, boom, metrics.Track("calendar:notify").End(boom))

	body := scrape(t, registry)
	assert.Contains(t, body, `hardworker_jobs_total{job="calendar:notify",status="success"} 1`)
	assert.Contains(t, body, `hardworker_jobs_total{job="calendar:notify",status="failure"} 1`)
	assert.Contains(t, body, `hardworker_jobs_failures_total{job="calendar:notify"} 1`)
	assert.Contains(t, body, `hardworker_job_duration_seconds_count{job="calendar:notify"} 2`)
}

func TestTrackerMarksSkipRetryAsDropped(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	err := fmt.Errorf("decode payload: %w", asynq.SkipRetry)
	assert.ErrorIs(t, metrics.Track("payroll:ensure_period").End(err), asynq.SkipRetry)

	body := scrape(t, registry)
	assert.Contains(t, body, `hardworker_jobs_total{job="payroll:ensure_period",status="dropped"} 1`)
	assert.Contains(t, body, `hardworker_jobs_failures_total{job="payroll:ensure_period"} 1`)
}

func TestCalendarEntriesCounter(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)
	metrics.AddCalendarEntries("CHECK", 2)
	metrics.AddCalendarEntries("", 1)
	metrics.AddCalendarEntries("CHECK", 0)

	body := scrape(t, registry)
	assert.Contains(t, body, `hardworker_jobs_calendar_entries_total{category="CHECK"} 2`)
	assert.Contains(t, body, `hardworker_jobs_calendar_entries_total{category="unknown"} 1`)
}

func TestNilMetricsAreNoops(t *testing.T) {
	var metrics *Metrics
	metrics.AddCalendarEntries("CHECK", 1)
	err := errors.New("kept")
	assert.Equal(t, err, metrics.Track("x").End(err))
}
