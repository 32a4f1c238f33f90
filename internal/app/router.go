package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/partsdesk/partsdesk/internal/catalog"
	"github.com/partsdesk/partsdesk/internal/lookups"
	"github.com/partsdesk/partsdesk/internal/observability"
	"github.com/partsdesk/partsdesk/internal/parties"
	"github.com/partsdesk/partsdesk/internal/purchases"
	"github.com/partsdesk/partsdesk/internal/reports"
	"github.com/partsdesk/partsdesk/internal/sales"
	"github.com/partsdesk/partsdesk/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	CatalogHandler   *catalog.Handler
	LookupsHandler   *lookups.Handler
	PartiesHandler   *parties.Handler
	PurchasesHandler *purchases.Handler
	SalesHandler     *sales.Handler
	ReportsHandler   *reports.Handler
	JobHandler       *jobs.Handler
	Metrics          *observability.Metrics
	Idempotency      IdempotencyStore
	// HealthCheck reports dependency readiness; nil means always healthy.
	HealthCheck func(r *http.Request) error
}

// NewRouter constructs the chi.Router with partsdesk defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if params.HealthCheck != nil {
			if err := params.HealthCheck(r); err != nil {
				if params.Logger != nil {
					params.Logger.Warn("health check", slog.Any("error", err))
				}
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"unavailable"}`))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		if params.Idempotency != nil {
			r.Use(Idempotency(params.Idempotency, params.Logger))
		}
		if params.CatalogHandler != nil {
			r.Route("/products", params.CatalogHandler.MountRoutes)
		}
		if params.LookupsHandler != nil {
			params.LookupsHandler.MountRoutes(r)
		}
		if params.PartiesHandler != nil {
			params.PartiesHandler.MountRoutes(r)
		}
		if params.PurchasesHandler != nil {
			r.Route("/purchases", params.PurchasesHandler.MountRoutes)
		}
		if params.SalesHandler != nil {
			r.Route("/sales", params.SalesHandler.MountRoutes)
		}
		if params.ReportsHandler != nil {
			r.Route("/dashboard", params.ReportsHandler.MountRoutes)
		}
	})
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
