package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/partsdesk/partsdesk/internal/platform/db"
	"github.com/partsdesk/partsdesk/internal/shared"
)

// Query holds the filters that can be pushed into SQL.
type Query struct {
	Search   string
	Category *int64
	Company  *int64
}

// ProductStore reads and writes products.
type ProductStore interface {
	// List returns matching products newest first. limit <= 0 returns every match.
	List(ctx context.Context, q Query, limit, offset int) ([]Product, error)
	Count(ctx context.Context, q Query) (int, error)
	Get(ctx context.Context, id int64) (Product, error)
	Create(ctx context.Context, p Product) (Product, error)
	Update(ctx context.Context, p Product) (Product, error)
	Delete(ctx context.Context, id int64) error
}

// Repository is the PostgreSQL implementation of ProductStore and of the
// two rate stores consumed by the rate strategies.
type Repository struct {
	pool *pgxpool.Pool
	db   db.DBTX
}

var (
	_ ProductStore    = (*Repository)(nil)
	_ BulkRateStore   = (*Repository)(nil)
	_ SingleRateStore = (*Repository)(nil)
)

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool, db: pool}
}

const productColumns = `p.id, p.product_name, p.part_no, p.hsn,
	COALESCE(p.category_id::text, ''),
	COALESCE((SELECT string_agg(ps.subcategory_id::text, ',' ORDER BY ps.position, ps.subcategory_id)
	          FROM product_subcategories ps WHERE ps.product_id = p.id), ''),
	COALESCE(p.company_id::text, ''),
	p.stock, p.min_stock, p.rate::float8, p.created_at, p.updated_at`

func whereClause(q Query) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if q.Search != "" {
		args = append(args, q.Search)
		n := len(args)
		conds = append(conds, fmt.Sprintf("(strpos(p.product_name, $%d) > 0 OR strpos(p.part_no, $%d) > 0)", n, n))
	}
	if q.Category != nil {
		args = append(args, *q.Category)
		conds = append(conds, fmt.Sprintf("p.category_id = $%d", len(args)))
	}
	if q.Company != nil {
		args = append(args, *q.Company)
		conds = append(conds, fmt.Sprintf("p.company_id = $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.ProductName, &p.PartNo, &p.HSN, &p.Category, &p.Subcategory, &p.Company,
		&p.Stock, &p.MinStock, &p.Rate, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *Repository) List(ctx context.Context, q Query, limit, offset int) ([]Product, error) {
	where, args := whereClause(q)
	query := `SELECT ` + productColumns + ` FROM products p` + where + ` ORDER BY p.id DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
		args = append(args, limit, offset)
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("catalog: list products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r *Repository) Count(ctx context.Context, q Query) (int, error) {
	where, args := whereClause(q)
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM products p`+where, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("catalog: count products: %w", err)
	}
	return total, nil
}

func (r *Repository) Get(ctx context.Context, id int64) (Product, error) {
	p, err := scanProduct(r.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products p WHERE p.id = $1`, id))
	if db.IsNoRows(err) {
		return Product{}, fmt.Errorf("%w: product %d", shared.ErrNotFound, id)
	}
	return p, err
}

func (r *Repository) Create(ctx context.Context, p Product) (Product, error) {
	refs, err := productRefs(p)
	if err != nil {
		return Product{}, err
	}
	var id int64
	err = db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `INSERT INTO products (product_name, part_no, hsn, category_id, company_id, stock, min_stock, rate)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
			p.ProductName, p.PartNo, p.HSN, refs.category, refs.company, p.Stock, p.MinStock, p.Rate).Scan(&id)
		if err != nil {
			return fmt.Errorf("catalog: insert product: %w", err)
		}
		return writeSubcategories(ctx, tx, id, refs.subcategories)
	})
	if err != nil {
		return Product{}, translateWriteErr(err)
	}
	return r.Get(ctx, id)
}

func (r *Repository) Update(ctx context.Context, p Product) (Product, error) {
	refs, err := productRefs(p)
	if err != nil {
		return Product{}, err
	}
	err = db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE products SET product_name = $1, part_no = $2, hsn = $3, category_id = $4,
			company_id = $5, stock = $6, min_stock = $7, rate = $8, updated_at = now() WHERE id = $9`,
			p.ProductName, p.PartNo, p.HSN, refs.category, refs.company, p.Stock, p.MinStock, p.Rate, p.ID)
		if err != nil {
			return fmt.Errorf("catalog: update product: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: product %d", shared.ErrNotFound, p.ID)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM product_subcategories WHERE product_id = $1`, p.ID); err != nil {
			return fmt.Errorf("catalog: clear subcategories: %w", err)
		}
		return writeSubcategories(ctx, tx, p.ID, refs.subcategories)
	})
	if err != nil {
		return Product{}, translateWriteErr(err)
	}
	return r.Get(ctx, p.ID)
}

func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("catalog: delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: product %d", shared.ErrNotFound, id)
	}
	return nil
}

// LatestRates returns the rate of the most recent purchase line per product
// in one round-trip. Lines sharing the latest invoice_date are ordered by id
// descending and the first one per product wins.
func (r *Repository) LatestRates(ctx context.Context, productIDs []string) (map[string]float64, error) {
	rates := make(map[string]float64, len(productIDs))
	if len(productIDs) == 0 {
		return rates, nil
	}
	rows, err := r.db.Query(ctx, `
		SELECT li.name_of_product, li.rate::float8
		FROM purchase_line_items li
		JOIN (
			SELECT name_of_product, MAX(invoice_date) AS max_date
			FROM purchase_line_items
			WHERE name_of_product = ANY($1)
			GROUP BY name_of_product
		) latest ON latest.name_of_product = li.name_of_product AND latest.max_date = li.invoice_date
		ORDER BY li.name_of_product, li.id DESC`, productIDs)
	if err != nil {
		return nil, fmt.Errorf("catalog: latest rates: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			key  string
			rate float64
		)
		if err := rows.Scan(&key, &rate); err != nil {
			return nil, err
		}
		if _, seen := rates[key]; !seen {
			rates[key] = rate
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: latest rates: %w", err)
	}
	return rates, nil
}

// LatestRate returns the rate of the most recent purchase line for one product.
func (r *Repository) LatestRate(ctx context.Context, productID string) (float64, bool, error) {
	var rate float64
	err := r.db.QueryRow(ctx, `
		SELECT rate::float8 FROM purchase_line_items
		WHERE name_of_product = $1
		ORDER BY invoice_date DESC, id DESC
		LIMIT 1`, productID).Scan(&rate)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return rate, true, nil
}

type refs struct {
	category      *int64
	company       *int64
	subcategories []int64
}

func productRefs(p Product) (refs, error) {
	category, err := optionalID("product_category", p.Category)
	if err != nil {
		return refs{}, err
	}
	company, err := optionalID("company", p.Company)
	if err != nil {
		return refs{}, err
	}
	subs, err := parseIDs("product_subcategory", SplitIDs(p.Subcategory))
	if err != nil {
		return refs{}, err
	}
	return refs{category: category, company: company, subcategories: subs}, nil
}

func writeSubcategories(ctx context.Context, tx pgx.Tx, productID int64, ids []int64) error {
	seen := make(map[int64]struct{}, len(ids))
	rows := make([][]any, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		rows = append(rows, []any{productID, id, len(rows)})
	}
	if len(rows) == 0 {
		return nil
	}
	_, err := tx.CopyFrom(ctx, pgx.Identifier{"product_subcategories"},
		[]string{"product_id", "subcategory_id", "position"}, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("catalog: write subcategories: %w", err)
	}
	return nil
}

func translateWriteErr(err error) error {
	if db.IsForeignKeyViolation(err) {
		return fmt.Errorf("%w: unknown category, company or subcategory", shared.ErrValidation)
	}
	return err
}
