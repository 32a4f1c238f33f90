package reports

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/partsdesk/partsdesk/internal/shared"
)

// Service coordinates dashboard queries with the cache layer.
type Service struct {
	store  Store
	cache  *Cache
	logger *slog.Logger
	now    func() time.Time
}

// NewService wires a Store with a Cache. cache may be nil.
func NewService(store Store, cache *Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, cache: cache, logger: logger, now: time.Now}
}

// DefaultRange is the first of the current month through today.
func (s *Service) DefaultRange() Range {
	today := s.now().UTC().Truncate(24 * time.Hour)
	return Range{From: time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC), To: today}
}

// Summary returns the dashboard for rng, from cache when the data has not
// changed since it was built.
func (s *Service) Summary(ctx context.Context, rng Range) (Summary, error) {
	if rng.To.Before(rng.From) {
		return Summary{}, fmt.Errorf("%w: from must not be after to", shared.ErrValidation)
	}
	key, err := s.cache.BuildKey(ctx, "dashboard", "summary", rng.From.Format(time.DateOnly), rng.To.Format(time.DateOnly))
	if err != nil {
		s.logger.Warn("dashboard cache unavailable", slog.Any("error", err))
		return s.build(ctx, rng)
	}
	return FetchJSON(ctx, s.cache, key, func(ctx context.Context) (Summary, error) {
		return s.build(ctx, rng)
	})
}

// Warm builds and caches the default-range dashboard.
func (s *Service) Warm(ctx context.Context) (Summary, error) {
	return s.Summary(ctx, s.DefaultRange())
}

func (s *Service) build(ctx context.Context, rng Range) (Summary, error) {
	sum := Summary{Range: rng, GeneratedAt: s.now().UTC()}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		sum.ProductCount, err = s.store.ProductCount(ctx)
		return err
	})
	g.Go(func() (err error) {
		sum.LowStockCount, err = s.store.LowStockCount(ctx)
		return err
	})
	g.Go(func() (err error) {
		sum.Purchases, err = s.store.PurchaseTotals(ctx, rng)
		return err
	})
	g.Go(func() (err error) {
		sum.Sales, err = s.store.SalesTotals(ctx, rng)
		return err
	})
	g.Go(func() (err error) {
		sum.LowStock, err = s.store.LowestStock(ctx, TopLowStock)
		return err
	})
	if err := g.Wait(); err != nil {
		return Summary{}, fmt.Errorf("reports: build summary: %w", err)
	}
	if sum.LowStock == nil {
		sum.LowStock = []LowStockItem{}
	}
	return sum, nil
}
