package reports

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/partsdesk/partsdesk/internal/platform/httpx"
	"github.com/partsdesk/partsdesk/internal/shared"
)

// Handler serves the dashboard endpoint.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers GET /.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.summary)
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	rng := h.service.DefaultRange()
	q := r.URL.Query()
	for field, dst := range map[string]*time.Time{"from": &rng.From, "to": &rng.To} {
		raw := q.Get(field)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			httpx.RespondError(w, "Failed to fetch dashboard", fmt.Errorf("%w: %s must be YYYY-MM-DD", shared.ErrValidation, field))
			return
		}
		*dst = t
	}
	sum, err := h.service.Summary(r.Context(), rng)
	if err != nil {
		if httpx.StatusFor(err) >= http.StatusInternalServerError {
			h.logger.Error("dashboard failed", slog.Any("error", err))
		}
		httpx.RespondError(w, "Failed to fetch dashboard", err)
		return
	}
	httpx.JSON(w, http.StatusOK, sum)
}
