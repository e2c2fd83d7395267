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
	"github.com/aforoughifar-cmyk/Hardworker-Finance-sub000/internal/payroll"
	"github.com/aforoughifar-cmyk/Hardworker-Finance-sub000/internal/shared"
)

// PeriodEnsurer materialises payroll rows.
type PeriodEnsurer interface {
	EnsurePeriod(ctx context.Context, period string) (payroll.Reconciliation, error)
}

// PayrollEnsureJob reconciles a payroll period on a schedule so rows exist
// before anyone opens the period.
type PayrollEnsureJob struct {
	Periods PeriodEnsurer
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewPayrollEnsureJob initialises the payroll:ensure_period handler.
func NewPayrollEnsureJob(periods PeriodEnsurer, logger *slog.Logger, metrics *jobmetrics.Metrics) *PayrollEnsureJob {
	return &PayrollEnsureJob{
		Periods: periods,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle runs EnsurePeriod for the payload period.
func (j *PayrollEnsureJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Periods == nil {
		return errors.New("payroll ensure: handler not configured")
	}
	var payload PayrollEnsurePayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("payroll ensure: decode: %v: %w", err, asynq.SkipRetry)
		}
	}
	period := payload.Period
	if period == "" {
		period = shared.PeriodOf(j.now())
	}

	tracker := j.Metrics.Track(TaskPayrollEnsurePeriod)
	defer func() {
		err = tracker.End(err)
	}()

	start := j.now()
	logger := j.logger().With(slog.String("period", period))
	result, err := j.Periods.EnsurePeriod(ctx, period)
	if errors.Is(err, shared.ErrValidation) {
		logger.Error("invalid payroll period", slog.Any("error", err))
		return fmt.Errorf("payroll ensure: %v: %w", err, asynq.SkipRetry)
	}
	if err != nil {
		logger.Error("payroll ensure failed", slog.Any("error", err))
		return err
	}
	logger.Info("payroll period ensured",
		slog.Int("rows", len(result.Rows)),
		slog.Int("created", len(result.Created)),
		slog.Int("updated", len(result.Updated)),
		slog.Duration("duration", j.now().Sub(start)),
	)
	return nil
}

func (j *PayrollEnsureJob) now() time.Time {
	if j.clock == nil {
		return time.Now().UTC()
	}
	return j.clock()
}

func (j *PayrollEnsureJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
