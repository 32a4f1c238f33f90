package catalog

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/partsdesk/partsdesk/internal/platform/httpx"
	"github.com/partsdesk/partsdesk/internal/shared"
)

// Handler serves the product API.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers product routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.show)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.remove)
}

// ParseListFilter reads the listing query parameters.
func ParseListFilter(r *http.Request) ListFilter {
	q := r.URL.Query()
	return ListFilter{
		Page:        shared.ParsePageRequest(q),
		Search:      q.Get("search"),
		Category:    q.Get("category"),
		Subcategory: q.Get("subcategory"),
		Company:     q.Get("company"),
		LowStock:    q.Get("lowStock") == "true",
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter := ParseListFilter(r)
	result, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.fail(w, "Failed to fetch products", err, slog.String("mode", filter.Mode().String()))
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := productID(r)
	if err != nil {
		h.fail(w, "Failed to fetch product", err)
		return
	}
	product, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, "Failed to fetch product", err, slog.Int64("id", id))
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in ProductInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		h.fail(w, "Failed to create product", err)
		return
	}
	product, err := h.service.Create(r.Context(), in)
	if err != nil {
		h.fail(w, "Failed to create product", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, product)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := productID(r)
	if err != nil {
		h.fail(w, "Failed to update product", err)
		return
	}
	var in ProductInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		h.fail(w, "Failed to update product", err)
		return
	}
	product, err := h.service.Update(r.Context(), id, in)
	if err != nil {
		h.fail(w, "Failed to update product", err, slog.Int64("id", id))
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id, err := productID(r)
	if err != nil {
		h.fail(w, "Failed to delete product", err)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.fail(w, "Failed to delete product", err, slog.Int64("id", id))
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) fail(w http.ResponseWriter, message string, err error, attrs ...any) {
	if httpx.StatusFor(err) >= http.StatusInternalServerError {
		h.logger.Error(message, append(attrs, slog.Any("error", err))...)
	}
	httpx.RespondError(w, message, err)
}

func productID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid product id %q", shared.ErrValidation, raw)
	}
	return id, nil
}
