package parties

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/partsdesk/partsdesk/internal/platform/httpx"
	"github.com/partsdesk/partsdesk/internal/shared"
)

// Handler serves /vendors and /customers.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers both party tables under r.
func (h *Handler) MountRoutes(r chi.Router) {
	for _, kind := range []Kind{KindVendor, KindCustomer} {
		r.Route("/"+string(kind), func(r chi.Router) {
			r.Get("/", h.list(kind))
			r.Post("/", h.create(kind))
			r.Get("/{id}", h.show(kind))
			r.Put("/{id}", h.update(kind))
		})
	}
}

type listResponse struct {
	Items      []Party           `json:"items"`
	Pagination shared.Pagination `json:"pagination"`
}

func (h *Handler) list(kind Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		items, pagination, err := h.service.List(r.Context(), kind, q.Get("search"), shared.ParsePageRequest(q))
		if err != nil {
			h.fail(w, kind, "fetch", err)
			return
		}
		httpx.JSON(w, http.StatusOK, listResponse{Items: items, Pagination: pagination})
	}
}

func (h *Handler) show(kind Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseID(r)
		if err != nil {
			h.fail(w, kind, "fetch", err)
			return
		}
		p, err := h.service.Get(r.Context(), kind, id)
		if err != nil {
			h.fail(w, kind, "fetch", err)
			return
		}
		httpx.JSON(w, http.StatusOK, p)
	}
}

func (h *Handler) create(kind Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in Input
		if err := httpx.DecodeJSON(r, &in); err != nil {
			h.fail(w, kind, "create", err)
			return
		}
		p, err := h.service.Create(r.Context(), kind, in)
		if err != nil {
			h.fail(w, kind, "create", err)
			return
		}
		httpx.JSON(w, http.StatusCreated, p)
	}
}

func (h *Handler) update(kind Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseID(r)
		if err != nil {
			h.fail(w, kind, "update", err)
			return
		}
		var in Input
		if err := httpx.DecodeJSON(r, &in); err != nil {
			h.fail(w, kind, "update", err)
			return
		}
		p, err := h.service.Update(r.Context(), kind, id, in)
		if err != nil {
			h.fail(w, kind, "update", err)
			return
		}
		httpx.JSON(w, http.StatusOK, p)
	}
}

func (h *Handler) fail(w http.ResponseWriter, kind Kind, op string, err error) {
	if httpx.StatusFor(err) >= http.StatusInternalServerError {
		h.logger.Error(op+" party failed", slog.String("kind", string(kind)), slog.Any("error", err))
	}
	httpx.RespondError(w, fmt.Sprintf("Failed to %s %s", op, kind.Label()), err)
}

func parseID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid id %q", shared.ErrValidation, raw)
	}
	return id, nil
}
