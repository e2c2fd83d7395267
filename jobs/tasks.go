package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	"github.com/aforoughifar-cmyk/Hardworker-Finance-sub000/internal/calendar"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskCalendarNotify persists one calendar entry emitted by a service.
	TaskCalendarNotify = "calendar:notify"
	// TaskPayrollEnsurePeriod materialises payroll rows for a period.
	TaskPayrollEnsurePeriod = "payroll:ensure_period"
)

// CalendarNotifyPayload carries the entry to persist.
type CalendarNotifyPayload struct {
	Entry calendar.Entry `json:"entry"`
}

// NewCalendarNotifyTask constructs an Asynq task for entry.
func NewCalendarNotifyTask(entry calendar.Entry) (*asynq.Task, error) {
	data, err := json.Marshal(CalendarNotifyPayload{Entry: entry})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCalendarNotify, data), nil
}

// PayrollEnsurePayload names the period to reconcile. Empty means the
// current month at execution time.
type PayrollEnsurePayload struct {
	Period string `json:"period,omitempty"`
}

// NewPayrollEnsureTask constructs an Asynq task for period.
func NewPayrollEnsureTask(period string) (*asynq.Task, error) {
	data, err := json.Marshal(PayrollEnsurePayload{Period: period})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPayrollEnsurePeriod, data), nil
}

// TaskIdempotencyPurge drops idempotency keys past their retention.
const TaskIdempotencyPurge = "maintenance:idempotency_purge"

// IdempotencyPurgePayload sets the retention window. Zero falls back to the
// worker default.
type IdempotencyPurgePayload struct {
	Retention time.Duration `json:"retention,omitempty"`
}

// NewIdempotencyPurgeTask constructs an Asynq task for the purge.
func NewIdempotencyPurgeTask(retention time.Duration) (*asynq.Task, error) {
	data, err := json.Marshal(IdempotencyPurgePayload{Retention: retention})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyPurge, data), nil
}
