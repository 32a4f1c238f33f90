package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/partsdesk/partsdesk/internal/catalog"
	jobmetrics "github.com/partsdesk/partsdesk/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

const defaultLowStockLimit = 20

// LowStockLister is the slice of catalog.Service the scan needs.
type LowStockLister interface {
	LowStock(ctx context.Context, limit int) (catalog.ListResult, error)
}

// LowStockScanJob counts products below their stock threshold and logs the
// first page of them.
type LowStockScanJob struct {
	Catalog LowStockLister
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewLowStockScanJob wires dependencies for the scan handler.
func NewLowStockScanJob(lister LowStockLister, logger *slog.Logger, metrics *jobmetrics.Metrics) *LowStockScanJob {
	return &LowStockScanJob{Catalog: lister, Logger: logger, Metrics: metrics}
}

// Handle processes low-stock scan tasks.
func (j *LowStockScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Catalog == nil {
		return errors.New("low stock scan: handler not configured")
	}
	var payload LowStockScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.Limit <= 0 {
		payload.Limit = defaultLowStockLimit
	}

	metrics := jobMetrics(j.Metrics)
	tracker := metrics.Track(TaskLowStockScan)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := jobLogger(j.Logger, TaskLowStockScan)
	started := time.Now()

	result, err := j.Catalog.LowStock(ctx, payload.Limit)
	if err != nil {
		resultErr = err
		logger.Error("list low stock products", slog.Any("error", err))
		return resultErr
	}

	metrics.SetLowStock(result.Pagination.Total)
	for _, p := range result.Products {
		logger.Warn("low stock",
			slog.Int64("product_id", p.ID),
			slog.String("product", p.ProductName),
			slog.String("part_no", p.PartNo),
			slog.Int("stock", p.Stock),
			slog.Int("min_stock", p.MinStock))
	}
	logger.Info("completed low stock scan", slog.Int("low_stock", result.Pagination.Total), slog.Duration("duration", time.Since(started)))
	return resultErr
}

func jobLogger(logger *slog.Logger, task string) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With(slog.String("job", task))
}

func jobMetrics(m *jobmetrics.Metrics) *jobmetrics.Metrics {
	if m != nil {
		return m
	}
	return defaultJobMetrics
}
