package catalog

import (
	"context"
	"strconv"
	"testing"

	"github.com/partsdesk/partsdesk/internal/shared"
)

func benchProducts(n int) []Product {
	products := make([]Product, n)
	for i := range products {
		products[i] = Product{
			ID:          int64(i + 1),
			ProductName: "Part " + strconv.Itoa(i),
			Category:    strconv.Itoa(i%3 + 1),
			Company:     strconv.Itoa(10 + i%2),
			Subcategory: "3,7",
			Stock:       i % 7,
			MinStock:    3,
		}
	}
	return products
}

func BenchmarkServiceListWarmCache(b *testing.B) {
	fx := newServiceFixture(benchProducts(2000)...)
	ctx := context.Background()
	filter := ListFilter{Page: shared.PageRequest{Page: 3, Limit: 50}}
	if _, err := fx.svc.List(ctx, filter); err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for range b.N {
		if _, err := fx.svc.List(ctx, filter); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkServiceListLowStockMemoryMode(b *testing.B) {
	fx := newServiceFixture(benchProducts(2000)...)
	ctx := context.Background()
	filter := ListFilter{LowStock: true, Page: shared.PageRequest{Page: 2, Limit: 50}}
	b.ResetTimer()
	for range b.N {
		if _, err := fx.svc.List(ctx, filter); err != nil {
			b.Fatal(err)
		}
	}
}
