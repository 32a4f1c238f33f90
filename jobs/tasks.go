package jobs

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"

	// TaskLowStockScan counts and logs products below their stock threshold.
	TaskLowStockScan = "catalog:low_stock_scan"
	// TaskDashboardWarmup rebuilds the cached default-range dashboard.
	TaskDashboardWarmup = "reports:dashboard_warmup"
	// TaskLookupSweep drops cached lookup name maps.
	TaskLookupSweep = "lookup:sweep"
	// TaskIdempotencyCleanup removes expired idempotency keys.
	TaskIdempotencyCleanup = "maintenance:idempotency_cleanup"
)

// LowStockScanPayload bounds how many products the scan logs by name.
type LowStockScanPayload struct {
	Limit int `json:"limit"`
}

// DashboardWarmupPayload records why the warmup was requested.
type DashboardWarmupPayload struct {
	Reason string `json:"reason"`
}

// LookupSweepPayload lists the lookup tables to drop. Empty means all.
type LookupSweepPayload struct {
	Tables []string `json:"tables,omitempty"`
}

// IdempotencyCleanupPayload sets how long claimed keys are kept.
type IdempotencyCleanupPayload struct {
	RetentionHours int `json:"retention_hours"`
}

// NewLowStockScanTask constructs a low-stock scan task.
func NewLowStockScanTask(limit int) (*asynq.Task, error) {
	return newTask(TaskLowStockScan, LowStockScanPayload{Limit: limit})
}

// NewDashboardWarmupTask constructs a dashboard warmup task.
func NewDashboardWarmupTask(reason string) (*asynq.Task, error) {
	return newTask(TaskDashboardWarmup, DashboardWarmupPayload{Reason: reason})
}

// NewLookupSweepTask constructs a lookup sweep task.
func NewLookupSweepTask(tables ...string) (*asynq.Task, error) {
	return newTask(TaskLookupSweep, LookupSweepPayload{Tables: tables})
}

// NewIdempotencyCleanupTask constructs an idempotency cleanup task.
func NewIdempotencyCleanupTask(retentionHours int) (*asynq.Task, error) {
	return newTask(TaskIdempotencyCleanup, IdempotencyCleanupPayload{RetentionHours: retentionHours})
}

func newTask(typ string, payload any) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(typ, body, asynq.Queue(QueueDefault)), nil
}

// uniqueID tags one enqueue so retries and the inspector can refer to it.
func uniqueID(typ string) asynq.Option {
	return asynq.TaskID(typ + ":" + uuid.NewString())
}
