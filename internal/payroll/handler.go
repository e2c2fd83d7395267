package payroll

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/aforoughifar-cmyk/Hardworker-Finance-sub000/internal/platform/httpx"
	"github.com/aforoughifar-cmyk/Hardworker-Finance-sub000/internal/shared"
)

// Handler manages payroll endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
	keys      shared.KeyClaimer
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, keys shared.KeyClaimer) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New(), keys: keys}
}

// MountRoutes registers payroll routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/periods/{period}", h.listPeriod)
	r.Post("/periods/{period}/ensure", h.ensurePeriod)
	r.Post("/settlements/{id}/policy", h.switchPolicy)
	r.Post("/settlements/{id}/paid", h.markPaid)
	r.Post("/advances", h.grantAdvance)
}

func (h *Handler) listPeriod(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.ListPeriod(r.Context(), chi.URLParam(r, "period"))
	if err != nil {
		h.fail(w, r, "list period", err)
		return
	}
	httpx.JSON(w, http.StatusOK, rows)
}

func (h *Handler) ensurePeriod(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.EnsurePeriod(r.Context(), chi.URLParam(r, "period"))
	if err != nil {
		h.fail(w, r, "ensure period", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"period":  result.Period,
		"rows":    result.Rows,
		"created": len(result.Created),
		"updated": len(result.Updated),
	})
}

func (h *Handler) switchPolicy(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var input SwitchPolicyInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validator.Struct(input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	row, err := h.service.SwitchPolicy(r.Context(), id, input)
	if err != nil {
		h.fail(w, r, "switch policy", err)
		return
	}
	httpx.JSON(w, http.StatusOK, row)
}

func (h *Handler) markPaid(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var row Settlement
	err = shared.Once(r.Context(), h.keys, r.Header.Get(shared.IdempotencyHeader), shared.IdempotencyPayrollPaid, func() error {
		var err error
		row, err = h.service.MarkPaid(r.Context(), id)
		return err
	})
	if err != nil {
		h.fail(w, r, "mark salary paid", err)
		return
	}
	httpx.JSON(w, http.StatusOK, row)
}

func (h *Handler) grantAdvance(w http.ResponseWriter, r *http.Request) {
	var input GrantAdvanceInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validator.Struct(input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	advance, err := h.service.GrantAdvance(r.Context(), input)
	if err != nil {
		h.fail(w, r, "grant advance", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, advance)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.logger.WarnContext(r.Context(), op, slog.Any("error", err))
	httpx.RespondError(w, err)
}
