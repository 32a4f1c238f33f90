package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/partsdesk/partsdesk/internal/platform/db"
)

// Store runs the dashboard aggregate queries.
type Store interface {
	ProductCount(ctx context.Context) (int, error)
	LowStockCount(ctx context.Context) (int, error)
	PurchaseTotals(ctx context.Context, r Range) (Totals, error)
	SalesTotals(ctx context.Context, r Range) (Totals, error)
	LowestStock(ctx context.Context, limit int) ([]LowStockItem, error)
}

// Repository is the PostgreSQL Store.
type Repository struct {
	db db.DBTX
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

// lowStockPredicate matches catalog's rule: stock below min_stock or below 2.
const lowStockPredicate = `(stock < min_stock OR stock < 2)`

func (r *Repository) ProductCount(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM products`).Scan(&n)
	return n, err
}

func (r *Repository) LowStockCount(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM products WHERE `+lowStockPredicate).Scan(&n)
	return n, err
}

func (r *Repository) PurchaseTotals(ctx context.Context, rng Range) (Totals, error) {
	return r.totals(ctx, "purchase_invoices", rng)
}

func (r *Repository) SalesTotals(ctx context.Context, rng Range) (Totals, error) {
	return r.totals(ctx, "sales_invoices", rng)
}

func (r *Repository) totals(ctx context.Context, table string, rng Range) (Totals, error) {
	var (
		t     Totals
		total pgtype.Numeric
	)
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(total), 0) FROM `+table+` WHERE invoice_date BETWEEN $1 AND $2`,
		dateOnly(rng.From), dateOnly(rng.To)).Scan(&t.Count, &total)
	if err != nil {
		return Totals{}, fmt.Errorf("reports: %s totals: %w", table, err)
	}
	t.Total = db.Decimal(total)
	return t, nil
}

func (r *Repository) LowestStock(ctx context.Context, limit int) ([]LowStockItem, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, product_name, part_no, stock, min_stock
		FROM products WHERE `+lowStockPredicate+`
		ORDER BY stock - min_stock, stock, id
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("reports: lowest stock: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[LowStockItem])
}

func dateOnly(t time.Time) pgtype.Date {
	return pgtype.Date{Time: time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), Valid: true}
}
