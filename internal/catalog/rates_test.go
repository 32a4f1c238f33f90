package catalog

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pathRecorder struct {
	paths []string
}

func (r *pathRecorder) ObserveRatePath(path string) {
	r.paths = append(r.paths, path)
}

func sampleLines() *lineTable {
	return &lineTable{items: []lineItem{
		{id: 1, product: "5", date: day(1), rate: 100},
		{id: 2, product: "5", date: day(3), rate: 120},
		{id: 3, product: "5", date: day(2), rate: 140},
		{id: 4, product: "6", date: day(4), rate: 50},
		{id: 9, product: "6", date: day(4), rate: 55},
		{id: 7, product: "6", date: day(4), rate: 52},
	}}
}

func TestRateResolverPrimaryPath(t *testing.T) {
	lines := sampleLines()
	rec := &pathRecorder{}
	resolver := NewRateResolver(BulkRateStrategy{Store: lines}, PerItemRateStrategy{Store: lines}, nil, rec)

	got := resolver.Resolve(context.Background(), []string{"5", "6", "8"})
	assert.Equal(t, RatePathPrimary, got.Path)
	assert.Equal(t, map[string]float64{"5": 120, "6": 55}, got.Rates)
	assert.Zero(t, lines.singleCalls)
	assert.Equal(t, []string{"primary"}, rec.paths)
}

func TestRateResolverFallbackMatchesPrimary(t *testing.T) {
	healthy := sampleLines()
	primary := NewRateResolver(BulkRateStrategy{Store: healthy}, nil, nil, nil).
		Resolve(context.Background(), []string{"5", "6", "8"})

	broken := sampleLines()
	broken.bulkErr = errors.New("statement timeout")
	rec := &pathRecorder{}
	fallback := NewRateResolver(BulkRateStrategy{Store: broken}, PerItemRateStrategy{Store: broken}, nil, rec).
		Resolve(context.Background(), []string{"5", "6", "8"})

	assert.Equal(t, RatePathFallback, fallback.Path)
	assert.Equal(t, primary.Rates, fallback.Rates)
	assert.Equal(t, 3, broken.singleCalls)
	assert.Equal(t, []string{"fallback"}, rec.paths)
}

func TestRateResolverWithoutFallback(t *testing.T) {
	lines := sampleLines()
	lines.bulkErr = errors.New("boom")
	got := NewRateResolver(BulkRateStrategy{Store: lines}, nil, nil, nil).Resolve(context.Background(), []string{"5"})
	assert.Equal(t, RatePathNone, got.Path)
	assert.Empty(t, got.Rates)
}

func TestRateResolverEmptyInput(t *testing.T) {
	lines := sampleLines()
	got := NewRateResolver(BulkRateStrategy{Store: lines}, nil, nil, nil).Resolve(context.Background(), nil)
	assert.Equal(t, RatePathNone, got.Path)
	assert.Zero(t, lines.bulkCalls)
}

func TestPerItemOmitsFailures(t *testing.T) {
	lines := sampleLines()
	lines.failIDs = map[string]bool{"5": true}

	rates, err := PerItemRateStrategy{Store: lines}.LatestRates(context.Background(), []string{"5", "6"})
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"6": 55}, rates)
}

func TestPerItemBatchesConcurrency(t *testing.T) {
	lines := &lineTable{delay: 5 * time.Millisecond}
	ids := make([]string, 45)
	for i := range ids {
		ids[i] = strconv.Itoa(i + 1)
		lines.items = append(lines.items, lineItem{id: int64(i + 1), product: ids[i], date: day(1), rate: float64(i)})
	}

	rates, err := PerItemRateStrategy{Store: lines, BatchSize: 20}.LatestRates(context.Background(), ids)
	require.NoError(t, err)
	assert.Len(t, rates, 45)
	assert.LessOrEqual(t, lines.maxInFlight, 20)
	assert.Equal(t, 45, lines.singleCalls)
}

func TestPerItemStopsAtBudget(t *testing.T) {
	lines := sampleLines()
	lines.delay = 200 * time.Millisecond
	ids := []string{"5", "6", "7", "8", "9", "10"}

	start := time.Now()
	rates, err := PerItemRateStrategy{Store: lines, BatchSize: 2, Budget: 20 * time.Millisecond}.
		LatestRates(context.Background(), ids)
	require.NoError(t, err)
	assert.Empty(t, rates)
	assert.Equal(t, 2, lines.singleCalls)
	assert.Less(t, time.Since(start), 150*time.Millisecond)
}
