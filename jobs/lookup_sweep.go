package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/partsdesk/partsdesk/internal/jobs"
	"github.com/partsdesk/partsdesk/internal/lookup"
	"github.com/partsdesk/partsdesk/internal/lookups"
)

// LookupSweepJob drops cached lookup name maps so the next listing refetches
// them. Unknown table names in the payload are rejected without retry.
type LookupSweepJob struct {
	Cache   lookup.Cache
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewLookupSweepJob wires dependencies for the sweep handler.
func NewLookupSweepJob(cache lookup.Cache, logger *slog.Logger, metrics *jobmetrics.Metrics) *LookupSweepJob {
	return &LookupSweepJob{Cache: cache, Logger: logger, Metrics: metrics}
}

// Handle processes lookup sweep tasks.
func (j *LookupSweepJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Cache == nil {
		return errors.New("lookup sweep: handler not configured")
	}
	var payload LookupSweepPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	kinds, err := sweepKinds(payload.Tables)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	tracker := jobMetrics(j.Metrics).Track(TaskLookupSweep)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := jobLogger(j.Logger, TaskLookupSweep)
	for _, kind := range kinds {
		if err := j.Cache.Invalidate(ctx, string(kind)); err != nil {
			resultErr = err
			logger.Error("invalidate lookup cache", slog.String("table", string(kind)), slog.Any("error", err))
			return resultErr
		}
	}
	logger.Info("completed lookup sweep", slog.Int("tables", len(kinds)))
	return resultErr
}

func sweepKinds(tables []string) ([]lookups.Kind, error) {
	if len(tables) == 0 {
		return lookups.Kinds, nil
	}
	kinds := make([]lookups.Kind, 0, len(tables))
	for _, table := range tables {
		kind := lookups.Kind(table)
		if !kind.Valid() {
			return nil, fmt.Errorf("lookup sweep: unknown table %q", table)
		}
		kinds = append(kinds, kind)
	}
	return kinds, nil
}
