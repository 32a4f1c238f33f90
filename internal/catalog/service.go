package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/partsdesk/partsdesk/internal/platform/db"
	"github.com/partsdesk/partsdesk/internal/shared"
)

// Service lists enriched products and validates product writes.
type Service struct {
	store     ProductStore
	paginator *Paginator
	resolver  *Resolver
	rates     *RateResolver
	logger    *slog.Logger
}

// NewService wires the listing pipeline.
func NewService(store ProductStore, resolver *Resolver, rates *RateResolver, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:     store,
		paginator: NewPaginator(store),
		resolver:  resolver,
		rates:     rates,
		logger:    logger,
	}
}

// List paginates products, resolves their lookup names and latest rates
// concurrently, and merges the results.
func (s *Service) List(ctx context.Context, f ListFilter) (ListResult, error) {
	products, total, err := s.paginator.Page(ctx, f)
	if err != nil {
		return ListResult{}, err
	}
	enriched, err := s.enrich(ctx, products)
	if err != nil {
		return ListResult{}, err
	}
	return ListResult{Products: enriched, Pagination: shared.NewPagination(f.Page, total)}, nil
}

// Get returns one enriched product.
func (s *Service) Get(ctx context.Context, id int64) (EnrichedProduct, error) {
	if id <= 0 {
		return EnrichedProduct{}, fmt.Errorf("%w: invalid product id", shared.ErrValidation)
	}
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return EnrichedProduct{}, err
	}
	return s.one(ctx, p)
}

// Create validates and stores a product.
func (s *Service) Create(ctx context.Context, in ProductInput) (EnrichedProduct, error) {
	p, err := fromInput(in)
	if err != nil {
		return EnrichedProduct{}, err
	}
	created, err := s.store.Create(ctx, p)
	if err != nil {
		return EnrichedProduct{}, err
	}
	s.logger.Info("product created", slog.Int64("id", created.ID), slog.String("part_no", created.PartNo))
	return s.one(ctx, created)
}

// Update replaces a product's fields and subcategories.
func (s *Service) Update(ctx context.Context, id int64, in ProductInput) (EnrichedProduct, error) {
	if id <= 0 {
		return EnrichedProduct{}, fmt.Errorf("%w: invalid product id", shared.ErrValidation)
	}
	p, err := fromInput(in)
	if err != nil {
		return EnrichedProduct{}, err
	}
	p.ID = id
	updated, err := s.store.Update(ctx, p)
	if err != nil {
		return EnrichedProduct{}, err
	}
	return s.one(ctx, updated)
}

// Delete removes a product. A product still referenced by sales lines is
// reported as a conflict.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid product id", shared.ErrValidation)
	}
	if err := s.store.Delete(ctx, id); err != nil {
		if db.IsForeignKeyViolation(err) {
			return fmt.Errorf("%w: product %d has sales history", shared.ErrDuplicate, id)
		}
		return err
	}
	return nil
}

// LowStock returns the first page of low-stock products.
func (s *Service) LowStock(ctx context.Context, limit int) (ListResult, error) {
	return s.List(ctx, ListFilter{LowStock: true, Page: shared.PageRequest{Page: 1, Limit: limit}})
}

func (s *Service) one(ctx context.Context, p Product) (EnrichedProduct, error) {
	enriched, err := s.enrich(ctx, []Product{p})
	if err != nil {
		return EnrichedProduct{}, err
	}
	return enriched[0], nil
}

func (s *Service) enrich(ctx context.Context, products []Product) ([]EnrichedProduct, error) {
	if len(products) == 0 {
		return []EnrichedProduct{}, nil
	}
	keys := make([]string, len(products))
	for i, p := range products {
		keys[i] = p.Key()
	}

	var (
		names Names
		rates RateLookup
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		names, err = s.resolver.Resolve(gctx, products)
		return err
	})
	g.Go(func() error {
		rates = s.rates.Resolve(gctx, keys)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("catalog: resolve names: %w", err)
	}
	return Merge(products, names, rates.Rates), nil
}

func fromInput(in ProductInput) (Product, error) {
	in.ProductName = strings.TrimSpace(in.ProductName)
	in.PartNo = strings.TrimSpace(in.PartNo)
	in.HSN = strings.TrimSpace(in.HSN)
	in.Category = strings.TrimSpace(in.Category)
	in.Company = strings.TrimSpace(in.Company)
	if err := shared.Validate(in); err != nil {
		return Product{}, err
	}
	subs := SplitIDs(in.Subcategory)
	if _, err := parseIDs("product_subcategory", subs); err != nil {
		return Product{}, err
	}
	return Product{
		ProductName: in.ProductName,
		PartNo:      in.PartNo,
		HSN:         in.HSN,
		Category:    in.Category,
		Subcategory: strings.Join(subs, ","),
		Company:     in.Company,
		Stock:       in.Stock,
		MinStock:    in.MinStock,
		Rate:        in.Rate,
	}, nil
}
