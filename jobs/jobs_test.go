package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/partsdesk/partsdesk/internal/catalog"
	jobmetrics "github.com/partsdesk/partsdesk/internal/jobs"
	"github.com/partsdesk/partsdesk/internal/lookup"
	"github.com/partsdesk/partsdesk/internal/reports"
	"github.com/partsdesk/partsdesk/internal/shared"
)

type stubLister struct {
	result    catalog.ListResult
	err       error
	lastLimit int
}

func (s *stubLister) LowStock(_ context.Context, limit int) (catalog.ListResult, error) {
	s.lastLimit = limit
	return s.result, s.err
}

type stubWarmer struct {
	calls       int
	err         error
	hasDeadline bool
}

func (s *stubWarmer) Warm(ctx context.Context) (reports.Summary, error) {
	s.calls++
	_, s.hasDeadline = ctx.Deadline()
	return reports.Summary{LowStockCount: 3}, s.err
}

func gaugeValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, fam := range families {
		if fam.GetName() == name && len(fam.GetMetric()) > 0 {
			return fam.GetMetric()[0].GetGauge().GetValue()
		}
	}
	t.Fatalf("metric %s not found", name)
	return 0
}

func TestTaskConstructorsUseDefaultQueuePayloads(t *testing.T) {
	task, err := NewLowStockScanTask(15)
	require.NoError(t, err)
	assert.Equal(t, TaskLowStockScan, task.Type())
	var scan LowStockScanPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &scan))
	assert.Equal(t, 15, scan.Limit)

	task, err = NewLookupSweepTask("companies")
	require.NoError(t, err)
	assert.Equal(t, TaskLookupSweep, task.Type())
	assert.JSONEq(t, `{"tables":["companies"]}`, string(task.Payload()))

	task, err = NewDashboardWarmupTask("bump")
	require.NoError(t, err)
	assert.Equal(t, TaskDashboardWarmup, task.Type())
	assert.JSONEq(t, `{"reason":"bump"}`, string(task.Payload()))
}

func TestLowStockScanPublishesCount(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(reg)
	lister := &stubLister{result: catalog.ListResult{
		Products:   []catalog.EnrichedProduct{{Product: catalog.Product{ID: 4, ProductName: "Brake Pad", Stock: 1, MinStock: 5}}},
		Pagination: shared.Pagination{Page: 1, Limit: 20, Total: 12},
	}}
	job := NewLowStockScanJob(lister, nil, metrics)

	task, err := NewLowStockScanTask(0)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	assert.Equal(t, defaultLowStockLimit, lister.lastLimit)
	assert.Equal(t, float64(12), gaugeValue(t, reg, "partsdesk_low_stock_products"))
}

func TestLowStockScanReturnsListError(t *testing.T) {
	boom := errors.New("db down")
	job := NewLowStockScanJob(&stubLister{err: boom}, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))
	task, err := NewLowStockScanTask(5)
	require.NoError(t, err)
	assert.ErrorIs(t, job.Handle(context.Background(), task), boom)
}

func TestHandlersSkipRetryOnBadPayload(t *testing.T) {
	bad := asynq.NewTask(TaskLowStockScan, []byte("{"))
	metrics := jobmetrics.NewMetrics(prometheus.NewRegistry())

	assert.ErrorIs(t, NewLowStockScanJob(&stubLister{}, nil, metrics).Handle(context.Background(), bad), asynq.SkipRetry)
	assert.ErrorIs(t, NewDashboardWarmupJob(&stubWarmer{}, nil, metrics).Handle(context.Background(), bad), asynq.SkipRetry)
	assert.ErrorIs(t, NewLookupSweepJob(lookup.NewMemoryCache(lookup.MemoryOptions{}), nil, metrics).Handle(context.Background(), bad), asynq.SkipRetry)
}

func TestDashboardWarmupRunsWithDeadline(t *testing.T) {
	warmer := &stubWarmer{}
	job := NewDashboardWarmupJob(warmer, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))
	task, err := NewDashboardWarmupTask("cron")
	require.NoError(t, err)

	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, 1, warmer.calls)
	assert.True(t, warmer.hasDeadline)

	warmer.err = errors.New("redis gone")
	assert.ErrorIs(t, job.Handle(context.Background(), task), warmer.err)
}

func TestLookupSweepInvalidatesRequestedTables(t *testing.T) {
	ctx := context.Background()
	cache := lookup.NewMemoryCache(lookup.MemoryOptions{TTL: time.Hour})
	fetch := func(context.Context) (map[string]string, error) { return map[string]string{"1": "x"}, nil }
	for _, prefix := range []string{"categories", "companies", "subcategories"} {
		_, err := cache.GetOrFetch(ctx, lookup.Key(prefix, []string{"1"}), fetch)
		require.NoError(t, err)
	}
	require.Equal(t, 3, cache.Len())

	job := NewLookupSweepJob(cache, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))
	task, err := NewLookupSweepTask("companies")
	require.NoError(t, err)
	require.NoError(t, job.Handle(ctx, task))
	assert.Equal(t, 2, cache.Len())

	task, err = NewLookupSweepTask()
	require.NoError(t, err)
	require.NoError(t, job.Handle(ctx, task))
	assert.Equal(t, 0, cache.Len())
}

func TestLookupSweepRejectsUnknownTable(t *testing.T) {
	job := NewLookupSweepJob(lookup.NewMemoryCache(lookup.MemoryOptions{}), nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))
	task, err := NewLookupSweepTask("users")
	require.NoError(t, err)
	assert.ErrorIs(t, job.Handle(context.Background(), task), asynq.SkipRetry)
}

func TestHealthWithoutInspector(t *testing.T) {
	rec := serveHealth(t, NewHandler(nil, nil))
	assert.JSONEq(t, `{"queue":"default","pending":0}`, rec)
}

type stubCleaner struct {
	retention time.Duration
	removed   int64
	err       error
}

func (s *stubCleaner) Cleanup(_ context.Context, retention time.Duration) (int64, error) {
	s.retention = retention
	return s.removed, s.err
}

func TestIdempotencyCleanupDefaultsRetention(t *testing.T) {
	cleaner := &stubCleaner{removed: 9}
	job := NewIdempotencyCleanupJob(cleaner, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))

	task, err := NewIdempotencyCleanupTask(0)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, 72*time.Hour, cleaner.retention)

	task, err = NewIdempotencyCleanupTask(24)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, 24*time.Hour, cleaner.retention)

	cleaner.err = errors.New("timeout")
	assert.ErrorIs(t, job.Handle(context.Background(), task), cleaner.err)
}
