package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/aforoughifar-cmyk/Hardworker-Finance-sub000/internal/platform/httpx"
	"github.com/aforoughifar-cmyk/Hardworker-Finance-sub000/internal/shared"
)

// Lister reads calendar entries.
type Lister interface {
	Between(ctx context.Context, from, to time.Time) ([]Entry, error)
}

// Handler exposes calendar entries.
type Handler struct {
	logger *slog.Logger
	store  Lister
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, store Lister) *Handler {
	return &Handler{logger: logger, store: store}
}

// MountRoutes registers calendar routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
}

// list returns entries for ?period=YYYY-MM, defaulting to the current month.
func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	period := r.URL.Query().Get("period")
	if period == "" {
		period = shared.PeriodOf(time.Now())
	}
	from, err := shared.ParsePeriod(period)
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrBadRequest, err))
		return
	}
	to, _ := shared.PeriodEnd(period)
	entries, err := h.store.Between(r.Context(), from, to)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list calendar", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"period": period, "entries": entries})
}
