package catalog

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/partsdesk/partsdesk/internal/platform/db"
	"github.com/partsdesk/partsdesk/internal/shared"
)

// StockDeltas accumulates per-product stock movements of one invoice.
type StockDeltas map[int64]int

// Add records qty more (or, when negative, fewer) units of productID.
func (d StockDeltas) Add(productID int64, qty int) {
	d[productID] += qty
}

// Apply writes every non-zero delta in ascending product id order so
// concurrent invoices touching the same products lock rows in the same order.
// A decrement that would take stock below zero fails with
// shared.ErrInsufficientStock and an unknown product with shared.ErrValidation.
func (d StockDeltas) Apply(ctx context.Context, q db.DBTX) error {
	for _, id := range slices.Sorted(maps.Keys(d)) {
		if d[id] == 0 {
			continue
		}
		if err := AdjustStock(ctx, q, id, d[id]); err != nil {
			return err
		}
	}
	return nil
}

// AdjustStock adds delta to a product's stock.
func AdjustStock(ctx context.Context, q db.DBTX, productID int64, delta int) error {
	tag, err := q.Exec(ctx,
		`UPDATE products SET stock = stock + $1, updated_at = now() WHERE id = $2 AND stock + $1 >= 0`,
		delta, productID)
	if err != nil {
		return fmt.Errorf("catalog: adjust stock %d: %w", productID, err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var stock int
	err = q.QueryRow(ctx, `SELECT stock FROM products WHERE id = $1`, productID).Scan(&stock)
	if db.IsNoRows(err) {
		return fmt.Errorf("%w: unknown product %d", shared.ErrValidation, productID)
	}
	if err != nil {
		return fmt.Errorf("catalog: read stock %d: %w", productID, err)
	}
	return fmt.Errorf("%w: product %d has %d in stock, %d requested", shared.ErrInsufficientStock, productID, stock, -delta)
}
