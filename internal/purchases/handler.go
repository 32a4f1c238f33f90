package purchases

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/partsdesk/partsdesk/internal/platform/httpx"
	"github.com/partsdesk/partsdesk/internal/shared"
)

// Handler serves the purchase invoice API.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers purchase routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.show)
	r.Delete("/{id}", h.remove)
}

// ParseListFilter reads page, search, vendor, from and to.
func ParseListFilter(q url.Values) (ListFilter, error) {
	f := ListFilter{Page: shared.ParsePageRequest(q), Search: q.Get("search")}
	if raw := q.Get("vendor"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return ListFilter{}, fmt.Errorf("%w: invalid vendor %q", shared.ErrValidation, raw)
		}
		f.VendorID = id
	}
	var err error
	if f.From, err = parseDate("from", q.Get("from")); err != nil {
		return ListFilter{}, err
	}
	if f.To, err = parseDate("to", q.Get("to")); err != nil {
		return ListFilter{}, err
	}
	return f, nil
}

func parseDate(field, raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(DateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be YYYY-MM-DD", shared.ErrValidation, field)
	}
	return t, nil
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	f, err := ParseListFilter(r.URL.Query())
	if err != nil {
		h.fail(w, "Failed to fetch purchases", err)
		return
	}
	result, err := h.service.List(r.Context(), f)
	if err != nil {
		h.fail(w, "Failed to fetch purchases", err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := invoiceID(r)
	if err != nil {
		h.fail(w, "Failed to fetch purchase", err)
		return
	}
	inv, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, "Failed to fetch purchase", err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		h.fail(w, "Failed to create purchase", err)
		return
	}
	inv, err := h.service.Create(r.Context(), in)
	if err != nil {
		h.fail(w, "Failed to create purchase", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, inv)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id, err := invoiceID(r)
	if err != nil {
		h.fail(w, "Failed to delete purchase", err)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.fail(w, "Failed to delete purchase", err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) fail(w http.ResponseWriter, message string, err error) {
	if httpx.StatusFor(err) >= http.StatusInternalServerError {
		h.logger.Error(message, slog.Any("error", err))
	}
	httpx.RespondError(w, message, err)
}

func invoiceID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid purchase invoice id %q", shared.ErrValidation, raw)
	}
	return id, nil
}
