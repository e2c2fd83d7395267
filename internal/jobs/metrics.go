// Package jobmetrics instruments the reconciliation worker.
package jobmetrics

import (
	"errors"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
)

// Run outcomes recorded in the status label.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
	// StatusDropped marks runs that failed with asynq.SkipRetry; the task is
	// archived instead of retried.
	StatusDropped = "dropped"
)

// Metrics holds the worker collectors.
type Metrics struct {
	runs     *prometheus.CounterVec
	failures *prometheus.CounterVec
	duration *prometheus.HistogramVec
	entries  *prometheus.CounterVec
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// NewMetrics registers the collectors on registerer. A nil registerer uses
// the process-wide default, registered once.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer != nil {
		return register(registerer)
	}
	defaultOnce.Do(func() {
		defaultMetrics = register(prometheus.DefaultRegisterer)
	})
	return defaultMetrics
}

// Tracker times one task run.
type Tracker struct {
	metrics *Metrics
	job     string
	start   time.Time
}

// Track starts timing job. Safe on a nil receiver.
func (m *Metrics) Track(job string) *Tracker {
	return &Tracker{metrics: m, job: job, start: time.Now()}
}

// End records the outcome and returns err unchanged.
func (t *Tracker) End(err error) error {
	if t == nil || t.metrics == nil || t.job == "" {
		return err
	}
	status := StatusSuccess
	switch {
	case errors.Is(err, asynq.SkipRetry):
		status = StatusDropped
		t.metrics.failures.WithLabelValues(t.job).Inc()
	case err != nil:
		status = StatusFailure
		t.metrics.failures.WithLabelValues(t.job).Inc()
	}
	t.metrics.runs.WithLabelValues(t.job, status).Inc()
	t.metrics.duration.WithLabelValues(t.job).Observe(time.Since(t.start).Seconds())
	return err
}

// AddCalendarEntries counts calendar entries persisted by the worker.
func (m *Metrics) AddCalendarEntries(category string, count int) {
	if m == nil || count <= 0 {
		return
	}
	if category == "" {
		category = "unknown"
	}
	m.entries.WithLabelValues(category).Add(float64(count))
}

func register(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hardworker_jobs_total",
			Help: "Worker task runs by task type and outcome.",
		}, []string{"job", "status"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hardworker_jobs_failures_total",
			Help: "Worker task runs that returned an error, dropped runs included.",
		}, []string{"job"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hardworker_job_duration_seconds",
			Help:    "Worker task run time in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"job"}),
		entries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hardworker_jobs_calendar_entries_total",
			Help: "Calendar entries persisted by the worker grouped by category.",
		}, []string{"category"}),
	}
	registerer.MustRegister(m.runs, m.failures, m.duration, m.entries)
	return m
}
