package catalog

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/partsdesk/partsdesk/internal/lookup"
	"github.com/partsdesk/partsdesk/internal/lookups"
)

// NameStore resolves lookup ids to names with a single batched query.
type NameStore interface {
	NamesByIDs(ctx context.Context, kind lookups.Kind, ids []int64) (map[string]string, error)
}

// Names holds the id->name maps for one page of products.
type Names struct {
	Categories    map[string]string
	Companies     map[string]string
	Subcategories map[string]string
}

// Resolver batch-resolves the lookup names referenced by a page of products:
// one query per lookup table at most, fewer when the cache answers.
type Resolver struct {
	store NameStore
	cache lookup.Cache
}

// NewResolver builds a Resolver. A nil cache disables caching.
func NewResolver(store NameStore, cache lookup.Cache) *Resolver {
	return &Resolver{store: store, cache: cache}
}

// Resolve collects the distinct category, company and subcategory ids used by
// products and resolves the three sets concurrently. Any failure fails the
// whole call.
func (r *Resolver) Resolve(ctx context.Context, products []Product) (Names, error) {
	categoryIDs, companyIDs, subcategoryIDs := collectIDs(products)

	var names Names
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		m, err := r.names(ctx, lookups.KindCategory, categoryIDs)
		names.Categories = m
		return err
	})
	g.Go(func() error {
		m, err := r.names(ctx, lookups.KindCompany, companyIDs)
		names.Companies = m
		return err
	})
	g.Go(func() error {
		m, err := r.names(ctx, lookups.KindSubcategory, subcategoryIDs)
		names.Subcategories = m
		return err
	})
	if err := g.Wait(); err != nil {
		return Names{}, err
	}
	return names, nil
}

func (r *Resolver) names(ctx context.Context, kind lookups.Kind, ids []string) (map[string]string, error) {
	if len(ids) == 0 {
		return map[string]string{}, nil
	}
	fetch := func(ctx context.Context) (map[string]string, error) {
		return r.store.NamesByIDs(ctx, kind, numericIDs(ids))
	}
	if r.cache == nil {
		return fetch(ctx)
	}
	return r.cache.GetOrFetch(ctx, lookup.Key(string(kind), ids), fetch)
}

// collectIDs returns the distinct non-empty ids per lookup table, in first
// seen order.
func collectIDs(products []Product) (categories, companies, subcategories []string) {
	seenCat := map[string]struct{}{}
	seenCo := map[string]struct{}{}
	seenSub := map[string]struct{}{}
	add := func(seen map[string]struct{}, list *[]string, id string) {
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		*list = append(*list, id)
	}
	for _, p := range products {
		add(seenCat, &categories, p.Category)
		add(seenCo, &companies, p.Company)
		for _, id := range SplitIDs(p.Subcategory) {
			add(seenSub, &subcategories, id)
		}
	}
	return categories, companies, subcategories
}
