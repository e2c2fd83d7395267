package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/aforoughifar-cmyk/Hardworker-Finance-sub000/internal/jobs"
)

// KeyPurger removes stale idempotency keys.
type KeyPurger interface {
	Cleanup(ctx context.Context, olderThan time.Duration) error
}

// IdempotencyPurgeJob keeps the idempotency table bounded.
type IdempotencyPurgeJob struct {
	Keys      KeyPurger
	Retention time.Duration
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// NewIdempotencyPurgeJob initialises the purge handler with a default
// retention used when the payload carries none.
func NewIdempotencyPurgeJob(keys KeyPurger, retention time.Duration, logger *slog.Logger, metrics *jobmetrics.Metrics) *IdempotencyPurgeJob {
	return &IdempotencyPurgeJob{Keys: keys, Retention: retention, Logger: logger, Metrics: metrics}
}

// Handle deletes keys older than the retention window.
func (j *IdempotencyPurgeJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Keys == nil {
		return errors.New("idempotency purge: handler not configured")
	}
	var payload IdempotencyPurgePayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("idempotency purge: decode: %v: %w", err, asynq.SkipRetry)
		}
	}
	retention := payload.Retention
	if retention <= 0 {
		retention = j.Retention
	}
	if retention <= 0 {
		return fmt.Errorf("idempotency purge: no retention configured: %w", asynq.SkipRetry)
	}

	tracker := j.Metrics.Track(TaskIdempotencyPurge)
	defer func() {
		err = tracker.End(err)
	}()

	logger := j.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if err = j.Keys.Cleanup(ctx, retention); err != nil {
		logger.Error("purge idempotency keys", slog.Any("error", err))
		return err
	}
	logger.Info("idempotency keys purged", slog.Duration("retention", retention))
	return nil
}
