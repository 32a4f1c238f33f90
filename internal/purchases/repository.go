package purchases

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
	UpsertVendor(ctx context.Context, name string) (int64, error)
	CreateInvoice(ctx context.Context, inv Invoice) (int64, error)
	InsertLines(ctx context.Context, lines []Line) error
	ApplyStock(ctx context.Context, deltas catalog.StockDeltas) error
	GetForUpdate(ctx context.Context, id int64) (Invoice, error)
	DeleteInvoice(ctx context.Context, id int64) error
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

const invoiceColumns = `i.id, i.invoice_no, i.vendor_id, v.name, i.invoice_date, i.subtotal, i.gst_amount, i.total, i.created_at`

// scanHeader reads the header columns; withVendor expects v.name after vendor_id.
func scanHeader(row pgx.Row, withVendor bool) (Invoice, error) {
	var (
		inv                  Invoice
		subtotal, gst, total pgtype.Numeric
	)
	dest := []any{&inv.ID, &inv.InvoiceNo, &inv.VendorID}
	if withVendor {
		dest = append(dest, &inv.VendorName)
	}
	dest = append(dest, &inv.InvoiceDate, &subtotal, &gst, &total, &inv.CreatedAt)
	if err := row.Scan(dest...); err != nil {
		return Invoice{}, err
	}
	inv.Subtotal, inv.GSTAmount, inv.Total = db.Decimal(subtotal), db.Decimal(gst), db.Decimal(total)
	return inv, nil
}

func scanLine(row pgx.CollectableRow) (Line, error) {
	var (
		l                 Line
		rate, gst, amount pgtype.Numeric
	)
	err := row.Scan(&l.ID, &l.InvoiceID, &l.NameOfProduct, &l.Qty, &rate, &gst, &amount, &l.InvoiceDate)
	l.Rate, l.GSTPercent, l.Amount = db.Decimal(rate), db.Decimal(gst), db.Decimal(amount)
	return l, err
}

func getInvoice(ctx context.Context, q db.DBTX, id int64, lock bool) (Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM purchase_invoices i JOIN vendors v ON v.id = i.vendor_id WHERE i.id = $1`
	if lock {
		query += ` FOR UPDATE OF i`
	}
	inv, err := scanHeader(q.QueryRow(ctx, query, id), true)
	if db.IsNoRows(err) {
		return Invoice{}, fmt.Errorf("%w: purchase invoice %d", shared.ErrNotFound, id)
	}
	if err != nil {
		return Invoice{}, err
	}
	rows, err := q.Query(ctx, `
		SELECT id, purchase_invoice_id, name_of_product, qty, rate, gst_percent, amount, invoice_date
		FROM purchase_line_items WHERE purchase_invoice_id = $1 ORDER BY id`, id)
	if err != nil {
		return Invoice{}, err
	}
	inv.Lines, err = pgx.CollectRows(rows, scanLine)
	if err != nil {
		return Invoice{}, fmt.Errorf("purchases: lines %d: %w", id, err)
	}
	return inv, nil
}

// Get returns one invoice with its lines.
func (r *Repository) Get(ctx context.Context, id int64) (Invoice, error) {
	return getInvoice(ctx, r.pool, id, false)
}

func whereClause(f ListFilter) (string, []any) {
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
	if f.VendorID > 0 {
		add("i.vendor_id = $%d", f.VendorID)
	}
	if !f.From.IsZero() {
		add("i.invoice_date >= $%d", f.From)
	}
	if !f.To.IsZero() {
		add("i.invoice_date <= $%d", f.To)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// List returns one page of invoice headers, newest first, without vendor
// names; the service resolves those in one batch.
func (r *Repository) List(ctx context.Context, f ListFilter) ([]Invoice, int, error) {
	where, args := whereClause(f)

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM purchase_invoices i`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("purchases: count: %w", err)
	}

	query := `SELECT i.id, i.invoice_no, i.vendor_id, i.invoice_date, i.subtotal, i.gst_amount, i.total, i.created_at
		FROM purchase_invoices i` + where +
		fmt.Sprintf(` ORDER BY i.invoice_date DESC, i.id DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	rows, err := r.pool.Query(ctx, query, append(args, f.Page.Limit, f.Page.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("purchases: list: %w", err)
	}
	invoices, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Invoice, error) {
		return scanHeader(row, false)
	})
	if err != nil {
		return nil, 0, err
	}
	return invoices, total, nil
}

func (r *txRepo) UpsertVendor(ctx context.Context, name string) (int64, error) {
	return parties.UpsertByName(ctx, r.tx, parties.KindVendor, name)
}

func (r *txRepo) CreateInvoice(ctx context.Context, inv Invoice) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `
		INSERT INTO purchase_invoices (invoice_no, vendor_id, invoice_date, subtotal, gst_amount, total)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		inv.InvoiceNo, inv.VendorID, inv.InvoiceDate, db.Numeric(inv.Subtotal), db.Numeric(inv.GSTAmount), db.Numeric(inv.Total)).Scan(&id)
	if db.IsUniqueViolation(err) {
		return 0, fmt.Errorf("%w: invoice %q already recorded for this vendor", shared.ErrDuplicate, inv.InvoiceNo)
	}
	return id, err
}

func (r *txRepo) InsertLines(ctx context.Context, lines []Line) error {
	rows := make([][]any, 0, len(lines))
	for _, l := range lines {
		rows = append(rows, []any{l.InvoiceID, l.NameOfProduct, l.Qty, db.Numeric(l.Rate), db.Numeric(l.GSTPercent), db.Numeric(l.Amount), l.InvoiceDate})
	}
	_, err := r.tx.CopyFrom(ctx, pgx.Identifier{"purchase_line_items"},
		[]string{"purchase_invoice_id", "name_of_product", "qty", "rate", "gst_percent", "amount", "invoice_date"},
		pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("purchases: insert lines: %w", err)
	}
	return nil
}

func (r *txRepo) ApplyStock(ctx context.Context, deltas catalog.StockDeltas) error {
	return deltas.Apply(ctx, r.tx)
}

func (r *txRepo) GetForUpdate(ctx context.Context, id int64) (Invoice, error) {
	return getInvoice(ctx, r.tx, id, true)
}

func (r *txRepo) DeleteInvoice(ctx context.Context, id int64) error {
	tag, err := r.tx.Exec(ctx, `DELETE FROM purchase_invoices WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("purchases: delete %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: purchase invoice %d", shared.ErrNotFound, id)
	}
	return nil
}
