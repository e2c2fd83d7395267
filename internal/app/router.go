package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aforoughifar-cmyk/Hardworker-Finance-sub000/internal/calendar"
	"github.com/aforoughifar-cmyk/Hardworker-Finance-sub000/internal/checks"
	"github.com/aforoughifar-cmyk/Hardworker-Finance-sub000/internal/installments"
	"github.com/aforoughifar-cmyk/Hardworker-Finance-sub000/internal/ledger"
	"github.com/aforoughifar-cmyk/Hardworker-Finance-sub000/internal/observability"
	"github.com/aforoughifar-cmyk/Hardworker-Finance-sub000/internal/payroll"
	"github.com/aforoughifar-cmyk/Hardworker-Finance-sub000/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger              *slog.Logger
	Config              *Config
	LedgerHandler       *ledger.Handler
	ChecksHandler       *checks.Handler
	InstallmentsHandler *installments.Handler
	PayrollHandler      *payroll.Handler
	CalendarHandler     *calendar.Handler
	JobHandler          *jobs.Handler
	Metrics             *observability.Metrics
}

// NewRouter constructs the chi.Router with the API defaults.
func NewRouter(params RouterParams) http.Handler {
	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}
	r.Use(requestLogger(logger))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		if params.LedgerHandler != nil {
			r.Route("/invoices", params.LedgerHandler.MountRoutes)
		}
		if params.ChecksHandler != nil {
			r.Route("/checks", params.ChecksHandler.MountRoutes)
		}
		if params.InstallmentsHandler != nil {
			r.Route("/installments", params.InstallmentsHandler.MountRoutes)
		}
		if params.PayrollHandler != nil {
			r.Route("/payroll", params.PayrollHandler.MountRoutes)
		}
		if params.CalendarHandler != nil {
			r.Route("/calendar", params.CalendarHandler.MountRoutes)
		}
	})
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
