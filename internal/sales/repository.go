package sales

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/partsdesk/partsdesk/internal/catalog"
	"github.com/partsdesk/partsdesk/internal/parties"
	"github.com/partsdesk/partsdesk/internal/platform/db"
	"github.com/partsdesk/partsdesk/internal/shared"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the writes that must commit together.
type TxRepository interface {
	UpsertCustomer(ctx context.Context, name string) (int64, error)
	CreateInvoice(ctx context.Context, inv Invoice) (int64, error)
	InsertLines(ctx context.Context, lines []Line) error
	ApplyStock(ctx context.Context, deltas catalog.StockDeltas) error
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx runs fn in one read-committed transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

func scanHeader(row pgx.Row) (Invoice, error) {
	var (
		inv                  Invoice
		subtotal, gst, total pgtype.Numeric
	)
	err := row.Scan(&inv.ID, &inv.InvoiceNo, &inv.CustomerID, &inv.InvoiceDate, &subtotal, &gst, &total, &inv.CreatedAt)
	if err != nil {
		return Invoice{}, err
	}
	inv.Subtotal, inv.GSTAmount, inv.Total = db.Decimal(subtotal), db.Decimal(gst), db.Decimal(total)
	return inv, nil
}

const headerColumns = `i.id, i.invoice_no, i.customer_id, i.invoice_date, i.subtotal, i.gst_amount, i.total, i.created_at`

// Get returns one invoice with its customer name and lines.
func (r *Repository) Get(ctx context.Context, id int64) (Invoice, error) {
	inv, err := scanHeader(r.pool.QueryRow(ctx, `SELECT `+headerColumns+` FROM sales_invoices i WHERE i.id = $1`, id))
	if db.IsNoRows(err) {
		return Invoice{}, fmt.Errorf("%w: sales invoice %d", shared.ErrNotFound, id)
	}
	if err != nil {
		return Invoice{}, err
	}
	if err := r.pool.QueryRow(ctx, `SELECT name FROM customers WHERE id = $1`, inv.CustomerID).Scan(&inv.CustomerName); err != nil && !db.IsNoRows(err) {
		return Invoice{}, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, sales_invoice_id, product_id, qty, rate, gst_percent, amount
		FROM sales_line_items WHERE sales_invoice_id = $1 ORDER BY id`, id)
	if err != nil {
		return Invoice{}, err
	}
	inv.Lines, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (Line, error) {
		var (
			l                 Line
			rate, gst, amount pgtype.Numeric
		)
		err := row.Scan(&l.ID, &l.InvoiceID, &l.ProductID, &l.Qty, &rate, &gst, &amount)
		l.Rate, l.GSTPercent, l.Amount = db.Decimal(rate), db.Decimal(gst), db.Decimal(amount)
		return l, err
	})
	if err != nil {
		return Invoice{}, fmt.Errorf("sales: lines %d: %w", id, err)
	}
	return inv, nil
}

// List returns one page of headers, newest first.
func (r *Repository) List(ctx context.Context, f ListFilter) ([]Invoice, int, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.Search != "" {
		add("strpos(i.invoice_no, $%d) > 0", f.Search)
	}
	if f.CustomerID > 0 {
		add("i.customer_id = $%d", f.CustomerID)
	}
	if !f.From.IsZero() {
		add("i.invoice_date >= $%d", f.From)
	}
	if !f.To.IsZero() {
		add("i.invoice_date <= $%d", f.To)
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM sales_invoices i`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("sales: count: %w", err)
	}
	query := `SELECT ` + headerColumns + ` FROM sales_invoices i` + where +
		fmt.Sprintf(` ORDER BY i.invoice_date DESC, i.id DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	rows, err := r.pool.Query(ctx, query, append(args, f.Page.Limit, f.Page.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("sales: list: %w", err)
	}
	invoices, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Invoice, error) {
		return scanHeader(row)
	})
	if err != nil {
		return nil, 0, err
	}
	return invoices, total, nil
}

func (r *txRepo) UpsertCustomer(ctx context.Context, name string) (int64, error) {
	return parties.UpsertByName(ctx, r.tx, parties.KindCustomer, name)
}

func (r *txRepo) CreateInvoice(ctx context.Context, inv Invoice) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `
		INSERT INTO sales_invoices (invoice_no, customer_id, invoice_date, subtotal, gst_amount, total)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		inv.InvoiceNo, inv.CustomerID, inv.InvoiceDate,
		db.Numeric(inv.Subtotal), db.Numeric(inv.GSTAmount), db.Numeric(inv.Total)).Scan(&id)
	if db.IsUniqueViolation(err) {
		return 0, fmt.Errorf("%w: sales invoice %q already exists", shared.ErrDuplicate, inv.InvoiceNo)
	}
	return id, err
}

func (r *txRepo) InsertLines(ctx context.Context, lines []Line) error {
	rows := make([][]any, 0, len(lines))
	for _, l := range lines {
		rows = append(rows, []any{l.InvoiceID, l.ProductID, l.Qty, db.Numeric(l.Rate), db.Numeric(l.GSTPercent), db.Numeric(l.Amount)})
	}
	_, err := r.tx.CopyFrom(ctx, pgx.Identifier{"sales_line_items"},
		[]string{"sales_invoice_id", "product_id", "qty", "rate", "gst_percent", "amount"},
		pgx.CopyFromRows(rows))
	if db.IsForeignKeyViolation(err) {
		return fmt.Errorf("%w: line references an unknown product", shared.ErrValidation)
	}
	if err != nil {
		return fmt.Errorf("sales: insert lines: %w", err)
	}
	return nil
}

func (r *txRepo) ApplyStock(ctx context.Context, deltas catalog.StockDeltas) error {
	return deltas.Apply(ctx, r.tx)
}
