package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/partsdesk/partsdesk/cmd/partsdesk/cli"
	"github.com/partsdesk/partsdesk/internal/app"
	"github.com/partsdesk/partsdesk/internal/catalog"
	"github.com/partsdesk/partsdesk/internal/lookup"
	"github.com/partsdesk/partsdesk/internal/lookups"
	"github.com/partsdesk/partsdesk/internal/observability"
	"github.com/partsdesk/partsdesk/internal/parties"
	"github.com/partsdesk/partsdesk/internal/platform/cache"
	"github.com/partsdesk/partsdesk/internal/platform/db"
	"github.com/partsdesk/partsdesk/internal/platform/migrations"
	"github.com/partsdesk/partsdesk/internal/purchases"
	"github.com/partsdesk/partsdesk/internal/reports"
	"github.com/partsdesk/partsdesk/internal/sales"
	"github.com/partsdesk/partsdesk/internal/shared"
	"github.com/partsdesk/partsdesk/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	if len(os.Args) > 1 && os.Args[1] == "jobs" {
		os.Exit(cli.RunJobs(ctx, cfg.RedisAddr, os.Args[2:], os.Stdout, os.Stderr))
	}

	dbpool, err := db.New(ctx, cfg.PGDSN, db.Options{MaxConns: cfg.PGMaxConns})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	if cfg.MigrateOnStart {
		if err := migrations.Up(dbpool); err != nil {
			logger.Error("apply migrations", slog.Any("error", err))
			os.Exit(1)
		}
	}

	// Redis is optional for the API: without it the dashboard is computed on
	// every request and invoice writes do not enqueue warmups.
	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, continuing without shared caches", slog.Any("error", err))
		redisClient = nil
	}
	if redisClient != nil {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	metrics := observability.NewMetrics()

	lookupCache, err := newLookupCache(ctx, cfg, redisClient, logger, metrics)
	if err != nil {
		logger.Error("init lookup cache", slog.Any("error", err))
		os.Exit(1)
	}

	lookupsRepo := lookups.NewRepository(dbpool)
	lookupsService := lookups.NewService(lookupsRepo, lookupCache, logger)
	partiesService := parties.NewService(parties.NewRepository(dbpool), logger)

	catalogRepo := catalog.NewRepository(dbpool)
	resolver := catalog.NewResolver(lookupsRepo, lookupCache)
	rates := catalog.NewRateResolver(
		catalog.BulkRateStrategy{Store: catalogRepo},
		catalog.PerItemRateStrategy{
			Store:     catalogRepo,
			BatchSize: cfg.RateFallbackBatch,
			Budget:    cfg.RateFallbackTimeout,
			Logger:    logger,
		},
		logger,
		metrics,
	)
	catalogService := catalog.NewService(catalogRepo, resolver, rates, logger)

	var reportsCache *reports.Cache
	if redisClient != nil {
		reportsCache = reports.NewCache(redisClient, cfg.DashboardCacheTTL)
	}
	reportsService := reports.NewService(reports.NewRepository(dbpool), reportsCache, logger)

	purchasesService := purchases.NewService(purchases.NewRepository(dbpool), partiesService, reportsCache, logger)
	salesService := sales.NewService(sales.NewRepository(dbpool), partiesService, reportsCache, logger)

	var jobHandler *jobs.Handler
	if redisClient != nil {
		redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
		jobClient, err := jobs.NewClient(redisOpts)
		if err != nil {
			logger.Error("init job client", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() {
			if err := jobClient.Close(); err != nil {
				logger.Warn("job client close", slog.Any("error", err))
			}
		}()
		inspector := asynq.NewInspector(redisOpts)
		defer func() { _ = inspector.Close() }()
		jobHandler = jobs.NewHandler(inspector, logger)

		reportsCache.Subscribe(ctx, func(version int64) {
			if _, err := jobClient.EnqueueDashboardWarmup(ctx, fmt.Sprintf("bump:%d", version)); err != nil {
				logger.Warn("enqueue dashboard warmup", slog.Int64("version", version), slog.Any("error", err))
			}
		})
	}

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		CatalogHandler:   catalog.NewHandler(logger, catalogService),
		LookupsHandler:   lookups.NewHandler(logger, lookupsService),
		PartiesHandler:   parties.NewHandler(logger, partiesService),
		PurchasesHandler: purchases.NewHandler(logger, purchasesService),
		SalesHandler:     sales.NewHandler(logger, salesService),
		ReportsHandler:   reports.NewHandler(logger, reportsService),
		JobHandler:       jobHandler,
		Metrics:          metrics,
		Idempotency:      shared.NewIdempotencyStore(dbpool),
		HealthCheck: func(r *http.Request) error {
			return dbpool.Ping(r.Context())
		},
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

// newLookupCache picks the lookup cache driver. The in-process cache is swept
// in the background until ctx ends.
func newLookupCache(ctx context.Context, cfg *app.Config, client *redis.Client, logger *slog.Logger, metrics *observability.Metrics) (lookup.Cache, error) {
	switch cfg.LookupCacheDriver {
	case app.LookupDriverRedis:
		if client == nil {
			return nil, errors.New("LOOKUP_CACHE_DRIVER=redis needs a reachable REDIS_ADDR")
		}
		return lookup.NewRedisCache(client, app.LookupRedisNamespace, cfg.LookupCacheTTL, logger, metrics), nil
	default:
		mem := lookup.NewMemoryCache(lookup.MemoryOptions{
			TTL:        cfg.LookupCacheTTL,
			MaxEntries: cfg.LookupCacheMaxEntries,
			Observer:   metrics,
		})
		go mem.Run(ctx, cfg.LookupCacheSweep)
		return mem, nil
	}
}
