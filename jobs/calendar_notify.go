package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/aforoughifar-cmyk/Hardworker-Finance-sub000/internal/calendar"
	jobmetrics "github.com/aforoughifar-cmyk/Hardworker-Finance-sub000/internal/jobs"
)

// Enqueuer is the part of asynq.Client the notifier needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// CalendarNotifier implements calendar.Notifier by enqueueing a
// calendar:notify task. The entry id doubles as the task id so a retried
// enqueue is dropped by the queue.
type CalendarNotifier struct {
	client Enqueuer
}

// NewCalendarNotifier wraps client.
func NewCalendarNotifier(client Enqueuer) *CalendarNotifier {
	return &CalendarNotifier{client: client}
}

// Notify enqueues entry.
func (n *CalendarNotifier) Notify(ctx context.Context, entry calendar.Entry) error {
	if n == nil || n.client == nil {
		return errors.New("calendar notifier: client not configured")
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	task, err := NewCalendarNotifyTask(entry)
	if err != nil {
		return err
	}
	_, err = n.client.EnqueueContext(ctx, task,
		asynq.Queue(QueueDefault),
		asynq.TaskID(entry.ID.String()),
		asynq.MaxRetry(5),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("calendar notifier: enqueue: %w", err)
	}
	return nil
}

// EntryStore persists calendar entries.
type EntryStore interface {
	Insert(ctx context.Context, entry calendar.Entry) error
}

// CalendarNotifyJob writes queued entries into the calendar store.
type CalendarNotifyJob struct {
	Store   EntryStore
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewCalendarNotifyJob initialises the calendar:notify handler.
func NewCalendarNotifyJob(store EntryStore, logger *slog.Logger, metrics *jobmetrics.Metrics) *CalendarNotifyJob {
	return &CalendarNotifyJob{Store: store, Logger: logger, Metrics: metrics}
}

// Handle persists one entry. Malformed payloads are not retried.
func (j *CalendarNotifyJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Store == nil {
		return errors.New("calendar notify: handler not configured")
	}
	var payload CalendarNotifyPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("calendar notify: decode: %v: %w", err, asynq.SkipRetry)
	}
	entry := payload.Entry
	if entry.ID == uuid.Nil || entry.Date.IsZero() {
		return fmt.Errorf("calendar notify: entry without id or date: %w", asynq.SkipRetry)
	}

	tracker := j.Metrics.Track(TaskCalendarNotify)
	defer func() {
		err = tracker.End(err)
	}()

	if err = j.Store.Insert(ctx, entry); err != nil {
		j.logger().Error("persist calendar entry",
			slog.String("entry_id", entry.ID.String()),
			slog.Any("error", err))
		return err
	}
	j.Metrics.AddCalendarEntries(string(entry.Category), 1)
	j.logger().Debug("calendar entry persisted",
		slog.String("entry_id", entry.ID.String()),
		slog.String("category", string(entry.Category)))
	return nil
}

func (j *CalendarNotifyJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
