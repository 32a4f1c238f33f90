package catalog

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/partsdesk/partsdesk/internal/shared"
)

// Mode is how a listing request is paginated.
type Mode int

const (
	// ModeDatabase pushes every filter into SQL and pages with LIMIT/OFFSET.
	ModeDatabase Mode = iota
	// ModeMemory fetches every SQL-filterable match, then filters and slices
	// in process. Each page re-reads the whole candidate set.
	ModeMemory
)

func (m Mode) String() string {
	if m == ModeMemory {
		return "memory"
	}
	return "database"
}

// Mode picks the pagination mode: low-stock and subcategory filters are
// evaluated in process.
func (f ListFilter) Mode() Mode {
	if f.LowStock || strings.TrimSpace(f.Subcategory) != "" {
		return ModeMemory
	}
	return ModeDatabase
}

// Query converts the SQL-pushable part of the filter.
func (f ListFilter) Query() (Query, error) {
	category, err := optionalID("category", f.Category)
	if err != nil {
		return Query{}, err
	}
	company, err := optionalID("company", f.Company)
	if err != nil {
		return Query{}, err
	}
	return Query{Search: f.Search, Category: category, Company: company}, nil
}

// Paginator returns one page of products and the total match count.
type Paginator struct {
	store ProductStore
}

// NewPaginator builds a Paginator over store.
func NewPaginator(store ProductStore) *Paginator {
	return &Paginator{store: store}
}

// Page runs the request in the mode chosen by f.Mode.
func (p *Paginator) Page(ctx context.Context, f ListFilter) ([]Product, int, error) {
	q, err := f.Query()
	if err != nil {
		return nil, 0, err
	}
	if f.Mode() == ModeMemory {
		return p.memoryPage(ctx, f, q)
	}
	return p.databasePage(ctx, f.Page, q)
}

func (p *Paginator) databasePage(ctx context.Context, page shared.PageRequest, q Query) ([]Product, int, error) {
	var (
		products []Product
		total    int
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		products, err = p.store.List(ctx, q, page.Limit, page.Offset())
		return err
	})
	g.Go(func() error {
		var err error
		total, err = p.store.Count(ctx, q)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (p *Paginator) memoryPage(ctx context.Context, f ListFilter, q Query) ([]Product, int, error) {
	candidates, err := p.store.List(ctx, q, 0, 0)
	if err != nil {
		return nil, 0, fmt.Errorf("catalog: load candidates: %w", err)
	}
	filtered := FilterInMemory(candidates, f.LowStock, strings.TrimSpace(f.Subcategory))
	return SlicePage(filtered, f.Page), len(filtered), nil
}

// FilterInMemory keeps the products that pass the low-stock predicate (when
// lowStock is set) and list subcategory among their subcategory ids (when
// subcategory is non-empty). Input order is preserved.
func FilterInMemory(products []Product, lowStock bool, subcategory string) []Product {
	out := make([]Product, 0, len(products))
	for _, p := range products {
		if lowStock && !p.IsLowStock() {
			continue
		}
		if subcategory != "" && !slices.Contains(SplitIDs(p.Subcategory), subcategory) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// SlicePage returns products[offset : offset+limit], clamped to the slice.
func SlicePage(products []Product, page shared.PageRequest) []Product {
	start := page.Offset()
	if start < 0 || start >= len(products) {
		return []Product{}
	}
	end := len(products)
	if page.Limit > 0 && page.Limit < end-start {
		end = start + page.Limit
	}
	return products[start:end]
}
