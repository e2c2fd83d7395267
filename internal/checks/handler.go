package checks

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/aforoughifar-cmyk/Hardworker-Finance-sub000/internal/platform/httpx"
	"github.com/aforoughifar-cmyk/Hardworker-Finance-sub000/internal/shared"
)

// Handler manages check endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers check routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.save)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.save)
	r.Delete("/{id}", h.delete)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, perPage, err := httpx.PageParams(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	list, err := h.service.List(r.Context())
	if err != nil {
		h.fail(w, r, "list checks", err)
		return
	}
	items, meta := shared.Paginate(list, page, perPage)
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items, "pagination": meta})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	c, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, "get check", err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

// save serves both create (POST /) and edit (PUT /{id}).
func (h *Handler) save(w http.ResponseWriter, r *http.Request) {
	var input SaveInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	status := http.StatusCreated
	if chi.URLParam(r, "id") != "" {
		id, err := httpx.IDParam(r, "id")
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		input.ID = id
		status = http.StatusOK
	}
	if err := h.validator.Struct(input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	out, err := h.service.Save(r.Context(), input)
	if err != nil {
		h.fail(w, r, "save check", err)
		return
	}
	httpx.JSON(w, status, out)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.service.Delete(r.Context(), id)
	if err != nil {
		h.fail(w, r, "delete check", err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.logger.WarnContext(r.Context(), op, slog.Any("error", err))
	httpx.RespondError(w, err)
}
