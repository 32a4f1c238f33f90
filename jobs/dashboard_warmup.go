package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/partsdesk/partsdesk/internal/jobs"
	"github.com/partsdesk/partsdesk/internal/reports"
)

const warmupTimeout = 20 * time.Second

// DashboardWarmer is the slice of reports.Service the warmup needs.
type DashboardWarmer interface {
	Warm(ctx context.Context) (reports.Summary, error)
}

// DashboardWarmupJob rebuilds the default-range dashboard under the current
// cache version so the first request after a write is served from Redis.
type DashboardWarmupJob struct {
	Reports DashboardWarmer
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewDashboardWarmupJob wires dependencies for the warmup handler.
func NewDashboardWarmupJob(warmer DashboardWarmer, logger *slog.Logger, metrics *jobmetrics.Metrics) *DashboardWarmupJob {
	return &DashboardWarmupJob{Reports: warmer, Logger: logger, Metrics: metrics}
}

// Handle processes dashboard warmup tasks.
func (j *DashboardWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Reports == nil {
		return errors.New("dashboard warmup: handler not configured")
	}
	var payload DashboardWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := jobMetrics(j.Metrics).Track(TaskDashboardWarmup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := jobLogger(j.Logger, TaskDashboardWarmup).With(slog.String("reason", payload.Reason))

	warmCtx, cancel := context.WithTimeout(ctx, warmupTimeout)
	defer cancel()

	summary, err := j.Reports.Warm(warmCtx)
	if err != nil {
		resultErr = err
		logger.Error("warm dashboard", slog.Any("error", err))
		return resultErr
	}
	logger.Info("completed dashboard warmup",
		slog.String("from", summary.Range.From.Format(time.DateOnly)),
		slog.String("to", summary.Range.To.Format(time.DateOnly)),
		slog.Int("low_stock", summary.LowStockCount))
	return resultErr
}
