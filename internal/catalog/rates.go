package catalog

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	// DefaultFallbackBatch is how many per-product queries run together.
	DefaultFallbackBatch = 20
	// DefaultFallbackBudget bounds the wall-clock time of the fallback path.
	DefaultFallbackBudget = 5 * time.Second
)

// RatePath tags which strategy produced a rate lookup.
type RatePath string

const (
	RatePathPrimary  RatePath = "primary"
	RatePathFallback RatePath = "fallback"
	RatePathNone     RatePath = "none"
)

// RateLookup is the outcome of a latest-rate resolution. Products missing from
// Rates have no usable purchase history and display their stored rate.
type RateLookup struct {
	Rates map[string]float64
	Path  RatePath
}

// RateStrategy resolves the latest purchase rate for a set of product keys.
type RateStrategy interface {
	LatestRates(ctx context.Context, productIDs []string) (map[string]float64, error)
}

// BulkRateStore answers every product in one statement.
type BulkRateStore interface {
	LatestRates(ctx context.Context, productIDs []string) (map[string]float64, error)
}

// SingleRateStore answers one product per call.
type SingleRateStore interface {
	LatestRate(ctx context.Context, productID string) (float64, bool, error)
}

// BulkRateStrategy is the single round-trip strategy.
type BulkRateStrategy struct {
	Store BulkRateStore
}

// LatestRates implements RateStrategy.
func (s BulkRateStrategy) LatestRates(ctx context.Context, productIDs []string) (map[string]float64, error) {
	return s.Store.LatestRates(ctx, productIDs)
}

// PerItemRateStrategy queries each product separately, BatchSize at a time,
// within Budget. A failed or unfinished product is left out of the result; the
// strategy itself never fails.
type PerItemRateStrategy struct {
	Store     SingleRateStore
	BatchSize int
	Budget    time.Duration
	Logger    *slog.Logger
}

// LatestRates implements RateStrategy.
func (s PerItemRateStrategy) LatestRates(ctx context.Context, productIDs []string) (map[string]float64, error) {
	batchSize := s.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultFallbackBatch
	}
	budget := s.Budget
	if budget <= 0 {
		budget = DefaultFallbackBudget
	}
	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	var (
		mu    sync.Mutex
		rates = make(map[string]float64, len(productIDs))
	)
	for start := 0; start < len(productIDs); start += batchSize {
		if ctx.Err() != nil {
			s.logger().Warn("rate fallback budget exhausted",
				slog.Int("resolved", len(rates)), slog.Int("requested", len(productIDs)))
			break
		}
		end := min(start+batchSize, len(productIDs))
		var g errgroup.Group
		for _, id := range productIDs[start:end] {
			g.Go(func() error {
				rate, ok, err := s.Store.LatestRate(ctx, id)
				if err != nil {
					s.logger().Debug("rate fallback lookup failed", slog.String("product", id), slog.Any("error", err))
					return nil
				}
				if ok {
					mu.Lock()
					rates[id] = rate
					mu.Unlock()
				}
				return nil
			})
		}
		_ = g.Wait()
	}
	return rates, nil
}

func (s PerItemRateStrategy) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// RateObserver is told which path served each resolution.
type RateObserver interface {
	ObserveRatePath(path string)
}

// RateResolver tries the primary strategy and, if it reports an error, hands
// the same ids to the fallback strategy.
type RateResolver struct {
	primary  RateStrategy
	fallback RateStrategy
	logger   *slog.Logger
	observer RateObserver
}

// NewRateResolver composes two strategies. fallback may be nil.
func NewRateResolver(primary, fallback RateStrategy, logger *slog.Logger, observer RateObserver) *RateResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &RateResolver{primary: primary, fallback: fallback, logger: logger, observer: observer}
}

// Resolve never fails: when both strategies fail the lookup is empty and every
// product keeps its stored rate.
func (r *RateResolver) Resolve(ctx context.Context, productIDs []string) RateLookup {
	if len(productIDs) == 0 {
		return RateLookup{Rates: map[string]float64{}, Path: RatePathNone}
	}
	rates, err := r.primary.LatestRates(ctx, productIDs)
	if err == nil {
		return r.done(rates, RatePathPrimary)
	}
	r.logger.Warn("latest rate query failed, using per-product fallback", slog.Any("error", err))
	if r.fallback == nil {
		return r.done(nil, RatePathNone)
	}
	rates, err = r.fallback.LatestRates(ctx, productIDs)
	if err != nil {
		r.logger.Error("rate fallback failed", slog.Any("error", err))
		return r.done(nil, RatePathNone)
	}
	return r.done(rates, RatePathFallback)
}

func (r *RateResolver) done(rates map[string]float64, path RatePath) RateLookup {
	if rates == nil {
		rates = map[string]float64{}
	}
	if r.observer != nil {
		r.observer.ObserveRatePath(string(path))
	}
	return RateLookup{Rates: rates, Path: path}
}
