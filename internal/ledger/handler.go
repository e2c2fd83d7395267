package ledger

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/aforoughifar-cmyk/Hardworker-Finance-sub000/internal/platform/httpx"
	"github.com/aforoughifar-cmyk/Hardworker-Finance-sub000/internal/shared"
)

// Handler manages invoice ledger endpoints.
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

// MountRoutes registers invoice routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/summary", h.summary)
	r.Get("/{id}", h.get)
	r.Post("/{id}/payments", h.registerPayment)
	r.Post("/{id}/settle", h.settle)
	r.Post("/{id}/cancel", h.cancel)
	r.Post("/{id}/reopen", h.reopen)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, perPage, err := httpx.PageParams(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	invoices, err := h.service.ListInvoices(r.Context())
	if err != nil {
		h.fail(w, r, "list invoices", err)
		return
	}
	items, meta := shared.Paginate(invoices, page, perPage)
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items, "pagination": meta})
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(r.Context())
	if err != nil {
		h.fail(w, r, "invoice summary", err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	inv, err := h.service.GetInvoice(r.Context(), id)
	if err != nil {
		h.fail(w, r, "get invoice", err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var input CreateInvoiceInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validator.Struct(input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	inv, err := h.service.CreateInvoice(r.Context(), input)
	if err != nil {
		h.fail(w, r, "create invoice", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, inv)
}

func (h *Handler) registerPayment(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var input PartialPaymentInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	input.InvoiceID = id
	if err := h.validator.Struct(input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	inv, err := h.service.RegisterPartialPayment(r.Context(), input)
	if err != nil {
		h.fail(w, r, "register payment", err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

// settle is one-way; the Idempotency-Key header guards client retries.
func (h *Handler) settle(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var inv Invoice
	err = shared.Once(r.Context(), h.keys, r.Header.Get(shared.IdempotencyHeader), shared.IdempotencyInvoiceSettle, func() error {
		var err error
		inv, err = h.service.SettleInFull(r.Context(), id)
		return err
	})
	if err != nil {
		h.fail(w, r, "settle invoice", err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	inv, err := h.service.Cancel(r.Context(), id)
	if err != nil {
		h.fail(w, r, "cancel invoice", err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) reopen(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	inv, err := h.service.Reopen(r.Context(), id)
	if err != nil {
		h.fail(w, r, "reopen invoice", err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.logger.WarnContext(r.Context(), op, slog.Any("error", err))
	httpx.RespondError(w, err)
}
