package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/partsdesk/partsdesk/internal/app"
	"github.com/partsdesk/partsdesk/internal/catalog"
	jobmetrics "github.com/partsdesk/partsdesk/internal/jobs"
	"github.com/partsdesk/partsdesk/internal/lookup"
	"github.com/partsdesk/partsdesk/internal/lookups"
	"github.com/partsdesk/partsdesk/internal/platform/cache"
	"github.com/partsdesk/partsdesk/internal/platform/db"
	"github.com/partsdesk/partsdesk/internal/reports"
	"github.com/partsdesk/partsdesk/internal/shared"
	"github.com/partsdesk/partsdesk/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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

	pool, err := db.New(ctx, cfg.PGDSN, db.Options{MaxConns: cfg.PGMaxConns})
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := jobmetrics.NewMetrics(nil)

	// The worker resolves names through Redis so a sweep here is visible to
	// every API process using the redis lookup driver.
	lookupCache := lookup.NewRedisCache(redisClient, app.LookupRedisNamespace, cfg.LookupCacheTTL, logger, nil)

	catalogRepo := catalog.NewRepository(pool)
	catalogService := catalog.NewService(
		catalogRepo,
		catalog.NewResolver(lookups.NewRepository(pool), lookupCache),
		catalog.NewRateResolver(catalog.BulkRateStrategy{Store: catalogRepo}, nil, logger, nil),
		logger,
	)
	reportsService := reports.NewService(reports.NewRepository(pool), reports.NewCache(redisClient, cfg.DashboardCacheTTL), logger)

	lowStockJob := jobs.NewLowStockScanJob(catalogService, logger, metrics)
	warmupJob := jobs.NewDashboardWarmupJob(reportsService, logger, metrics)
	sweepJob := jobs.NewLookupSweepJob(lookupCache, logger, metrics)
	cleanupJob := jobs.NewIdempotencyCleanupJob(shared.NewIdempotencyStore(pool), logger, metrics)

	lowStockTask, err := jobs.NewLowStockScanTask(0)
	if err != nil {
		logger.Error("build low stock task", slog.Any("error", err))
		os.Exit(1)
	}
	warmupTask, err := jobs.NewDashboardWarmupTask("cron")
	if err != nil {
		logger.Error("build warmup task", slog.Any("error", err))
		os.Exit(1)
	}

	cleanupTask, err := jobs.NewIdempotencyCleanupTask(0)
	if err != nil {
		logger.Error("build cleanup task", slog.Any("error", err))
		os.Exit(1)
	}

	cron := []jobs.CronRegistration{
		{Spec: "0 7 * * *", Task: lowStockTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		{Spec: "15 0 * * *", Task: warmupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		{Spec: "45 2 * * *", Task: cleanupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
	}
	if cfg.LookupCacheDriver == app.LookupDriverRedis {
		sweepTask, err := jobs.NewLookupSweepTask()
		if err != nil {
			logger.Error("build sweep task", slog.Any("error", err))
			os.Exit(1)
		}
		cron = append(cron, jobs.CronRegistration{Spec: "@hourly", Task: sweepTask})
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:       asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:          logger,
		Concurrency:     cfg.WorkerConcurrency,
		Queues:          cfg.WorkerQueues,
		ShutdownTimeout: cfg.WorkerShutdownTimeout,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskLowStockScan, Handler: lowStockJob.Handle},
			{Type: jobs.TaskDashboardWarmup, Handler: warmupJob.Handle},
			{Type: jobs.TaskLookupSweep, Handler: sweepJob.Handle},
			{Type: jobs.TaskIdempotencyCleanup, Handler: cleanupJob.Handle},
		},
		Cron: cron,
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
