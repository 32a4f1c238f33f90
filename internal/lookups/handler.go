package lookups

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/partsdesk/partsdesk/internal/platform/httpx"
	"github.com/partsdesk/partsdesk/internal/shared"
)

// Handler exposes CRUD endpoints for every lookup table.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers /categories, /companies and /subcategories.
func (h *Handler) MountRoutes(r chi.Router) {
	for _, kind := range Kinds {
		kind := kind
		r.Route("/"+string(kind), func(r chi.Router) {
			r.Get("/", h.list(kind))
			r.Post("/", h.create(kind))
			r.Get("/{id}", h.show(kind))
			r.Put("/{id}", h.update(kind))
			r.Delete("/{id}", h.remove(kind))
		})
	}
}

type listResponse struct {
	Items      []Entry           `json:"items"`
	Pagination shared.Pagination `json:"pagination"`
}

func (h *Handler) list(kind Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page := shared.ParsePageRequest(r.URL.Query())
		entries, pagination, err := h.service.List(r.Context(), kind, r.URL.Query().Get("search"), page)
		if err != nil {
			h.fail(w, kind, "fetch", err)
			return
		}
		httpx.JSON(w, http.StatusOK, listResponse{Items: entries, Pagination: pagination})
	}
}

func (h *Handler) show(kind Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseID(r)
		if err != nil {
			h.fail(w, kind, "fetch", err)
			return
		}
		entry, err := h.service.Get(r.Context(), kind, id)
		if err != nil {
			h.fail(w, kind, "fetch", err)
			return
		}
		httpx.JSON(w, http.StatusOK, entry)
	}
}

func (h *Handler) create(kind Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in EntryInput
		if err := httpx.DecodeJSON(r, &in); err != nil {
			h.fail(w, kind, "create", err)
			return
		}
		entry, err := h.service.Create(r.Context(), kind, in)
		if err != nil {
			h.fail(w, kind, "create", err)
			return
		}
		httpx.JSON(w, http.StatusCreated, entry)
	}
}

func (h *Handler) update(kind Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseID(r)
		if err != nil {
			h.fail(w, kind, "update", err)
			return
		}
		var in EntryInput
		if err := httpx.DecodeJSON(r, &in); err != nil {
			h.fail(w, kind, "update", err)
			return
		}
		entry, err := h.service.Update(r.Context(), kind, id, in)
		if err != nil {
			h.fail(w, kind, "update", err)
			return
		}
		httpx.JSON(w, http.StatusOK, entry)
	}
}

func (h *Handler) remove(kind Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseID(r)
		if err != nil {
			h.fail(w, kind, "delete", err)
			return
		}
		if err := h.service.Delete(r.Context(), kind, id); err != nil {
			h.fail(w, kind, "delete", err)
			return
		}
		httpx.NoContent(w)
	}
}

func (h *Handler) fail(w http.ResponseWriter, kind Kind, op string, err error) {
	if httpx.StatusFor(err) >= http.StatusInternalServerError {
		h.logger.Error(op+" lookup failed", slog.String("kind", string(kind)), slog.Any("error", err))
	}
	httpx.RespondError(w, fmt.Sprintf("Failed to %s %s", op, kind.Label()), err)
}

func parseID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid id %q", shared.ErrValidation, chi.URLParam(r, "id"))
	}
	return id, nil
}
