package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/aforoughifar-cmyk/Hardworker-Finance-sub000/cmd/hardworker/cli"
	"github.com/aforoughifar-cmyk/Hardworker-Finance-sub000/internal/app"
	"github.com/aforoughifar-cmyk/Hardworker-Finance-sub000/internal/calendar"
	"github.com/aforoughifar-cmyk/Hardworker-Finance-sub000/internal/checks"
	"github.com/aforoughifar-cmyk/Hardworker-Finance-sub000/internal/installments"
	"github.com/aforoughifar-cmyk/Hardworker-Finance-sub000/internal/ledger"
	"github.com/aforoughifar-cmyk/Hardworker-Finance-sub000/internal/observability"
	"github.com/aforoughifar-cmyk/Hardworker-Finance-sub000/internal/payroll"
	"github.com/aforoughifar-cmyk/Hardworker-Finance-sub000/internal/platform/cache"
	"github.com/aforoughifar-cmyk/Hardworker-Finance-sub000/internal/platform/db"
	"github.com/aforoughifar-cmyk/Hardworker-Finance-sub000/internal/shared"
	"github.com/aforoughifar-cmyk/Hardworker-Finance-sub000/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	if len(os.Args) > 1 && os.Args[1] == "jobs" {
		jobsCLI := cli.NewJobsCLI(cfg.RedisAddr)
		code := jobsCLI.Command(ctx, os.Args[2:], os.Stdout, os.Stderr)
		_ = jobsCLI.Close()
		os.Exit(code)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

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

	metrics := observability.NewMetrics()
	locker := cache.NewLocker(redisClient, cfg.ReconLockTTL)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	jobClient := jobs.NewClient(redisOpts)
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	dispatcher := calendar.NewDispatcher(jobs.NewCalendarNotifier(jobClient), logger, metrics.Recon())

	ledgerService := ledger.NewService(ledger.NewUnitOfWork(dbpool), locker, logger)

	checkService := checks.NewService(checks.NewUnitOfWork(dbpool), locker, logger)
	checkService.SetCalendar(dispatcher)
	checkService.SetMetrics(metrics.Recon())

	installmentService := installments.NewService(installments.NewUnitOfWork(dbpool), locker, ledgerService, logger)
	installmentService.SetCalendar(dispatcher)
	installmentService.SetMetrics(metrics.Recon())

	payrollService := payroll.NewService(payroll.NewUnitOfWork(dbpool), locker, logger, cfg.DefaultCurrency)
	payrollService.SetCalendar(dispatcher)
	payrollService.SetMetrics(metrics.Recon())

	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:              logger,
		Config:              cfg,
		LedgerHandler:       ledger.NewHandler(logger, ledgerService, idempotencyStore),
		ChecksHandler:       checks.NewHandler(logger, checkService),
		InstallmentsHandler: installments.NewHandler(logger, installmentService, idempotencyStore),
		PayrollHandler:      payroll.NewHandler(logger, payrollService, idempotencyStore),
		CalendarHandler:     calendar.NewHandler(logger, calendar.NewRepository(dbpool)),
		JobHandler:          jobs.NewHandler(inspector, logger),
		Metrics:             metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
