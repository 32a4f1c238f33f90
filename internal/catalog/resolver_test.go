package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/partsdesk/partsdesk/internal/lookup"
	"github.com/partsdesk/partsdesk/internal/lookups"
)

func TestResolverOneQueryPerTable(t *testing.T) {
	names := newFakeNames()
	resolver := NewResolver(names, nil)

	products := make([]Product, 0, 30)
	for i := range 30 {
		cat := "1"
		if i%2 == 0 {
			cat = "2"
		}
		products = append(products, Product{ID: int64(i + 1), Category: cat, Company: "10", Subcategory: "3,7"})
	}

	got, err := resolver.Resolve(context.Background(), products)
	require.NoError(t, err)
	assert.Equal(t, 1, names.calls[lookups.KindCategory])
	assert.Equal(t, 1, names.calls[lookups.KindCompany])
	assert.Equal(t, 1, names.calls[lookups.KindSubcategory])
	assert.ElementsMatch(t, []int64{1, 2}, names.ids[lookups.KindCategory])
	assert.Equal(t, "Filters", got.Categories["2"])
	assert.Equal(t, "Bosch", got.Companies["10"])
}

func TestResolverSkipsEmptySets(t *testing.T) {
	names := newFakeNames()
	resolver := NewResolver(names, nil)

	got, err := resolver.Resolve(context.Background(), []Product{{ID: 1, Category: "1"}})
	require.NoError(t, err)
	assert.Equal(t, 1, names.calls[lookups.KindCategory])
	assert.Zero(t, names.calls[lookups.KindCompany])
	assert.Zero(t, names.calls[lookups.KindSubcategory])
	assert.Empty(t, got.Companies)
}

func TestResolverSubcategoryList(t *testing.T) {
	names := newFakeNames()
	resolver := NewResolver(names, nil)
	products := []Product{{ID: 1, Subcategory: "3, 7,9"}}

	got, err := resolver.Resolve(context.Background(), products)
	require.NoError(t, err)

	merged := Merge(products, got, nil)
	assert.Equal(t, "Sedan, SUV, Hatch", merged[0].SubcategoryNames)
}

func TestResolverUsesCache(t *testing.T) {
	names := newFakeNames()
	cache := lookup.NewMemoryCache(lookup.MemoryOptions{})
	resolver := NewResolver(names, cache)
	products := []Product{{ID: 1, Category: "1", Company: "11", Subcategory: "9"}}

	for range 3 {
		_, err := resolver.Resolve(context.Background(), products)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, names.calls[lookups.KindCategory])
	assert.Equal(t, 1, names.calls[lookups.KindCompany])
	assert.Equal(t, 1, names.calls[lookups.KindSubcategory])

	require.NoError(t, cache.Invalidate(context.Background(), string(lookups.KindCompany)))
	_, err := resolver.Resolve(context.Background(), products)
	require.NoError(t, err)
	assert.Equal(t, 2, names.calls[lookups.KindCompany])
	assert.Equal(t, 1, names.calls[lookups.KindCategory])
}

func TestResolverIgnoresNonNumericIDs(t *testing.T) {
	names := newFakeNames()
	resolver := NewResolver(names, nil)

	_, err := resolver.Resolve(context.Background(), []Product{{ID: 1, Category: "legacy", Company: "10"}})
	require.NoError(t, err)
	assert.Empty(t, names.ids[lookups.KindCategory])
}

func TestResolverFailurePropagates(t *testing.T) {
	names := newFakeNames()
	names.err = errors.New("db down")
	resolver := NewResolver(names, nil)

	_, err := resolver.Resolve(context.Background(), []Product{{ID: 1, Category: "1"}})
	require.Error(t, err)
}
