package installments

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/aforoughifar-cmyk/Hardworker-Finance-sub000/internal/platform/httpx"
	"github.com/aforoughifar-cmyk/Hardworker-Finance-sub000/internal/shared"
)

// Handler manages installment endpoints.
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

// MountRoutes registers installment routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/preview", h.preview)
	r.Get("/plans", h.listPlans)
	r.Post("/plans", h.savePlan)
	r.Get("/plans/{planID}", h.getPlan)
	r.Post("/from-invoice/{invoiceID}", h.fromInvoice)
	r.Patch("/{id}", h.editRow)
	r.Post("/{id}/paid", h.markPaid)
}

func (h *Handler) preview(w http.ResponseWriter, r *http.Request) {
	var input GenerateInput
	if !h.decode(w, r, &input) {
		return
	}
	rows, err := h.service.Preview(input)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"rows":    rows,
		"balance": RebalanceCheck(rows, input.SourceAmount),
	})
}

func (h *Handler) savePlan(w http.ResponseWriter, r *http.Request) {
	var input SavePlanInput
	if !h.decode(w, r, &input) {
		return
	}
	plan, err := h.service.SavePlan(r.Context(), input)
	if err != nil {
		h.fail(w, r, "save plan", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, plan)
}

func (h *Handler) listPlans(w http.ResponseWriter, r *http.Request) {
	views, err := h.service.ListPlans(r.Context())
	if err != nil {
		h.fail(w, r, "list plans", err)
		return
	}
	httpx.JSON(w, http.StatusOK, views)
}

func (h *Handler) getPlan(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "planID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	view, err := h.service.ListPlan(r.Context(), id)
	if err != nil {
		h.fail(w, r, "get plan", err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) fromInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "invoiceID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var input FromInvoiceInput
	if !h.decode(w, r, &input) {
		return
	}
	input.InvoiceID = id
	plan, err := h.service.PlanFromInvoice(r.Context(), input)
	if err != nil {
		h.fail(w, r, "plan from invoice", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, plan)
}

func (h *Handler) editRow(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var edit RowEdit
	if err := httpx.DecodeJSON(r, &edit); err != nil {
		httpx.RespondError(w, err)
		return
	}
	view, err := h.service.EditRow(r.Context(), id, edit)
	if err != nil {
		h.fail(w, r, "edit installment", err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) markPaid(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var row Installment
	err = shared.Once(r.Context(), h.keys, r.Header.Get(shared.IdempotencyHeader), shared.IdempotencyInstallmentPaid, func() error {
		var err error
		row, err = h.service.MarkPaid(r.Context(), id)
		return err
	})
	if err != nil {
		h.fail(w, r, "mark installment paid", err)
		return
	}
	httpx.JSON(w, http.StatusOK, row)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.RespondError(w, err)
		return false
	}
	if err := h.validator.Struct(target); err != nil {
		httpx.RespondError(w, err)
		return false
	}
	return true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.logger.WarnContext(r.Context(), op, slog.Any("error", err))
	httpx.RespondError(w, err)
}
