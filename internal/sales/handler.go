package sales

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

// Handler serves the sales invoice API.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers sales routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.show)
}

func parseListFilter(q url.Values) (ListFilter, error) {
	f := ListFilter{Page: shared.ParsePageRequest(q), Search: q.Get("search")}
	if raw := q.Get("customer"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return ListFilter{}, fmt.Errorf("%w: invalid customer %q", shared.ErrValidation, raw)
		}
		f.CustomerID = id
	}
	for field, dst := range map[string]*time.Time{"from": &f.From, "to": &f.To} {
		raw := q.Get(field)
		if raw == "" {
			continue
		}
		t, err := time.Parse(DateLayout, raw)
		if err != nil {
			return ListFilter{}, fmt.Errorf("%w: %s must be YYYY-MM-DD", shared.ErrValidation, field)
		}
		*dst = t
	}
	return f, nil
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	f, err := parseListFilter(r.URL.Query())
	if err != nil {
		h.fail(w, "Failed to fetch sales", err)
		return
	}
	result, err := h.service.List(r.Context(), f)
	if err != nil {
		h.fail(w, "Failed to fetch sales", err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		h.fail(w, "Failed to fetch sale", fmt.Errorf("%w: invalid sales invoice id %q", shared.ErrValidation, raw))
		return
	}
	inv, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, "Failed to fetch sale", err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		h.fail(w, "Failed to create sale", err)
		return
	}
	inv, err := h.service.Create(r.Context(), in)
	if err != nil {
		h.fail(w, "Failed to create sale", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, inv)
}

func (h *Handler) fail(w http.ResponseWriter, message string, err error) {
	if httpx.StatusFor(err) >= http.StatusInternalServerError {
		h.logger.Error(message, slog.Any("error", err))
	}
	httpx.RespondError(w, message, err)
}
