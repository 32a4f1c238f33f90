package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/partsdesk/partsdesk/internal/jobs"
)

const defaultKeyRetentionHours = 72

// KeyCleaner deletes idempotency keys older than retention.
type KeyCleaner interface {
	Cleanup(ctx context.Context, retention time.Duration) (int64, error)
}

// IdempotencyCleanupJob prunes claimed request keys.
type IdempotencyCleanupJob struct {
	Keys    KeyCleaner
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewIdempotencyCleanupJob wires dependencies for the cleanup handler.
func NewIdempotencyCleanupJob(keys KeyCleaner, logger *slog.Logger, metrics *jobmetrics.Metrics) *IdempotencyCleanupJob {
	return &IdempotencyCleanupJob{Keys: keys, Logger: logger, Metrics: metrics}
}

// Handle processes idempotency cleanup tasks.
func (j *IdempotencyCleanupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Keys == nil {
		return errors.New("idempotency cleanup: handler not configured")
	}
	var payload IdempotencyCleanupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.RetentionHours <= 0 {
		payload.RetentionHours = defaultKeyRetentionHours
	}

	tracker := jobMetrics(j.Metrics).Track(TaskIdempotencyCleanup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := jobLogger(j.Logger, TaskIdempotencyCleanup)
	removed, err := j.Keys.Cleanup(ctx, time.Duration(payload.RetentionHours)*time.Hour)
	if err != nil {
		resultErr = err
		logger.Error("cleanup idempotency keys", slog.Any("error", err))
		return resultErr
	}
	logger.Info("completed idempotency cleanup", slog.Int64("removed", removed), slog.Int("retention_hours", payload.RetentionHours))
	return resultErr
}
