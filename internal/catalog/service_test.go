package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/partsdesk/partsdesk/internal/lookup"
	"github.com/partsdesk/partsdesk/internal/shared"
)

type serviceFixture struct {
	store *memoryStore
	names *fakeNames
	lines *lineTable
	svc   *Service
}

func newServiceFixture(products ...Product) serviceFixture {
	store := newMemoryStore(products...)
	names := newFakeNames()
	lines := sampleLines()
	resolver := NewResolver(names, lookup.NewMemoryCache(lookup.MemoryOptions{}))
	rates := NewRateResolver(BulkRateStrategy{Store: lines}, PerItemRateStrategy{Store: lines}, nil, nil)
	return serviceFixture{
		store: store,
		names: names,
		lines: lines,
		svc:   NewService(store, resolver, rates, slog.Default()),
	}
}

func TestServiceListEnriches(t *testing.T) {
	fx := newServiceFixture(
		Product{ID: 5, ProductName: "Brake Pad", Category: "1", Company: "10", Subcategory: "3, 7,9", Stock: 1, Rate: 90},
		Product{ID: 6, ProductName: "Oil Filter", Category: "2", Company: "77", Stock: 20, MinStock: 5, Rate: 40},
		Product{ID: 8, ProductName: "Headlamp", Category: "3", Stock: 4, Rate: 300},
	)

	result, err := fx.svc.List(context.Background(), ListFilter{Page: shared.PageRequest{Page: 1, Limit: 50}})
	require.NoError(t, err)
	require.Len(t, result.Products, 3)
	assert.Equal(t, 3, result.Pagination.Total)
	assert.Equal(t, 1, result.Pagination.TotalPages)

	byID := map[int64]EnrichedProduct{}
	for _, p := range result.Products {
		byID[p.ID] = p
	}
	assert.Equal(t, "Brakes", byID[5].CategoryName)
	assert.Equal(t, "Sedan, SUV, Hatch", byID[5].SubcategoryNames)
	assert.Equal(t, 120.0, byID[5].LatestPurchaseRate)
	assert.Equal(t, "77", byID[6].CompanyName)
	assert.Equal(t, 55.0, byID[6].LatestPurchaseRate)
	assert.Equal(t, 300.0, byID[8].LatestPurchaseRate)
	assert.Equal(t, 1, fx.lines.bulkCalls)
}

func TestServiceListLowStock(t *testing.T) {
	fx := newServiceFixture(
		Product{ID: 1, ProductName: "A", Stock: 1},
		Product{ID: 2, ProductName: "B", Stock: 3, MinStock: 5},
		Product{ID: 3, ProductName: "C", Stock: 9, MinStock: 5},
	)
	result, err := fx.svc.LowStock(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, result.Products, 2)
	assert.Equal(t, 2, result.Pagination.Total)
}

func TestServiceListEmptyPageSkipsLookups(t *testing.T) {
	fx := newServiceFixture()
	result, err := fx.svc.List(context.Background(), ListFilter{Page: shared.PageRequest{Page: 1, Limit: 50}})
	require.NoError(t, err)
	assert.NotNil(t, result.Products)
	assert.Empty(t, result.Products)
	assert.Zero(t, fx.lines.bulkCalls)
}

func TestServiceListNameFailure(t *testing.T) {
	fx := newServiceFixture(Product{ID: 1, Category: "1"})
	fx.names.err = errors.New("db down")
	_, err := fx.svc.List(context.Background(), ListFilter{Page: shared.PageRequest{Page: 1, Limit: 50}})
	require.Error(t, err)
}

func TestServiceCreateValidates(t *testing.T) {
	fx := newServiceFixture()

	_, err := fx.svc.Create(context.Background(), ProductInput{ProductName: "  "})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = fx.svc.Create(context.Background(), ProductInput{ProductName: "Pad", Subcategory: "3,x"})
	require.ErrorIs(t, err, shared.ErrValidation)

	created, err := fx.svc.Create(context.Background(), ProductInput{
		ProductName: " Brake Pad ", Category: "1", Subcategory: " 3, 7 ,", Stock: 4, Rate: 90,
	})
	require.NoError(t, err)
	assert.Equal(t, "Brake Pad", created.ProductName)
	assert.Equal(t, "3,7", created.Subcategory)
	assert.Equal(t, "Brakes", created.CategoryName)
	assert.Equal(t, "Sedan, SUV", created.SubcategoryNames)
}

func TestServiceGetAndDelete(t *testing.T) {
	fx := newServiceFixture(Product{ID: 5, ProductName: "Brake Pad"})

	got, err := fx.svc.Get(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, 120.0, got.LatestPurchaseRate)

	require.NoError(t, fx.svc.Delete(context.Background(), 5))
	_, err = fx.svc.Get(context.Background(), 5)
	require.ErrorIs(t, err, shared.ErrNotFound)

	_, err = fx.svc.Get(context.Background(), 0)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestServiceDeleteProductWithSalesHistory(t *testing.T) {
	fx := newServiceFixture(Product{ID: 5, ProductName: "Brake Pad"})
	fx.store.deleteErr = fmt.Errorf("catalog: delete product: %w", &pgconn.PgError{
		Code:           "23503",
		Message:        `update or delete on table "products" violates foreign key constraint`,
		ConstraintName: "sales_line_items_product_id_fkey",
	})

	err := fx.svc.Delete(context.Background(), 5)
	require.ErrorIs(t, err, shared.ErrDuplicate)
	assert.Contains(t, err.Error(), "product 5 has sales history")
	assert.NotContains(t, err.Error(), "foreign key")

	fx.store.deleteErr = errors.New("connection reset")
	err = fx.svc.Delete(context.Background(), 5)
	require.Error(t, err)
	assert.NotErrorIs(t, err, shared.ErrDuplicate)
}
