package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/aforoughifar-cmyk/Hardworker-Finance-sub000/internal/app"
	"github.com/aforoughifar-cmyk/Hardworker-Finance-sub000/internal/calendar"
	jobmetrics "github.com/aforoughifar-cmyk/Hardworker-Finance-sub000/internal/jobs"
	"github.com/aforoughifar-cmyk/Hardworker-Finance-sub000/internal/payroll"
	"github.com/aforoughifar-cmyk/Hardworker-Finance-sub000/internal/platform/cache"
	"github.com/aforoughifar-cmyk/Hardworker-Finance-sub000/internal/platform/db"
	"github.com/aforoughifar-cmyk/Hardworker-Finance-sub000/internal/shared"
	"github.com/aforoughifar-cmyk/Hardworker-Finance-sub000/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg).With(slog.String("component", "worker"))

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr, 0)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := jobmetrics.NewMetrics(nil)

	calendarRepo := calendar.NewRepository(pool)
	payrollService := payroll.NewService(payroll.NewUnitOfWork(pool), cache.NewLocker(redisClient, cfg.ReconLockTTL), logger, cfg.DefaultCurrency)

	notifyJob := jobs.NewCalendarNotifyJob(calendarRepo, logger, metrics)
	ensureJob := jobs.NewPayrollEnsureJob(payrollService, logger, metrics)
	purgeJob := jobs.NewIdempotencyPurgeJob(shared.NewIdempotencyStore(pool), cfg.IdempotencyRetention, logger, metrics)

	ensureTask, err := jobs.NewPayrollEnsureTask("")
	if err != nil {
		logger.Error("build payroll ensure task", slog.Any("error", err))
		os.Exit(1)
	}
	purgeTask, err := jobs.NewIdempotencyPurgeTask(0)
	if err != nil {
		logger.Error("build idempotency purge task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskCalendarNotify, Handler: notifyJob.Handle},
			{Type: jobs.TaskPayrollEnsurePeriod, Handler: ensureJob.Handle},
			{Type: jobs.TaskIdempotencyPurge, Handler: purgeJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.PayrollEnsureCron, Task: ensureTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: cfg.IdempotencyPurgeCron, Task: purgeTask, Options: []asynq.Option{asynq.MaxRetry(1)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("starting worker", slog.String("payroll_cron", cfg.PayrollEnsureCron))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
