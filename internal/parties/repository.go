package parties

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/partsdesk/partsdesk/internal/platform/db"
	"github.com/partsdesk/partsdesk/internal/shared"
)

// Repository persists parties.
type Repository interface {
	List(ctx context.Context, kind Kind, search string, limit, offset int) ([]Party, int, error)
	Get(ctx context.Context, kind Kind, id int64) (Party, error)
	Create(ctx context.Context, kind Kind, p Party) (Party, error)
	Update(ctx context.Context, kind Kind, p Party) (Party, error)
	NamesByIDs(ctx context.Context, kind Kind, ids []int64) (map[int64]string, error)
}

type repository struct {
	db db.DBTX
}

// NewRepository returns a PostgreSQL backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

const partyColumns = `id, name, gstin, phone, address, created_at, updated_at`

func table(kind Kind) (string, error) {
	if !kind.Valid() {
		return "", fmt.Errorf("%w: unknown party %q", shared.ErrValidation, kind)
	}
	return string(kind), nil
}

func (r *repository) List(ctx context.Context, kind Kind, search string, limit, offset int) ([]Party, int, error) {
	tbl, err := table(kind)
	if err != nil {
		return nil, 0, err
	}
	where := ""
	args := []any{}
	if search != "" {
		where = " WHERE name ILIKE $1 OR gstin ILIKE $1 OR phone ILIKE $1"
		args = append(args, "%"+search+"%")
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM `+tbl+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("parties: count %s: %w", tbl, err)
	}

	query := `SELECT ` + partyColumns + ` FROM ` + tbl + where + ` ORDER BY name`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
		args = append(args, limit, offset)
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("parties: list %s: %w", tbl, err)
	}
	list, err := pgx.CollectRows(rows, pgx.RowToStructByPos[Party])
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *repository) Get(ctx context.Context, kind Kind, id int64) (Party, error) {
	tbl, err := table(kind)
	if err != nil {
		return Party{}, err
	}
	rows, err := r.db.Query(ctx, `SELECT `+partyColumns+` FROM `+tbl+` WHERE id = $1`, id)
	if err != nil {
		return Party{}, err
	}
	p, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByPos[Party])
	if db.IsNoRows(err) {
		return Party{}, fmt.Errorf("%w: %s %d", shared.ErrNotFound, kind.Label(), id)
	}
	return p, err
}

func (r *repository) Create(ctx context.Context, kind Kind, p Party) (Party, error) {
	tbl, err := table(kind)
	if err != nil {
		return Party{}, err
	}
	rows, err := r.db.Query(ctx,
		`INSERT INTO `+tbl+` (name, gstin, phone, address) VALUES ($1, $2, $3, $4) RETURNING `+partyColumns,
		p.Name, p.GSTIN, p.Phone, p.Address)
	if err != nil {
		return Party{}, err
	}
	created, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByPos[Party])
	if db.IsUniqueViolation(err) {
		return Party{}, fmt.Errorf("%w: %s %q already exists", shared.ErrDuplicate, kind.Label(), p.Name)
	}
	return created, err
}

func (r *repository) Update(ctx context.Context, kind Kind, p Party) (Party, error) {
	tbl, err := table(kind)
	if err != nil {
		return Party{}, err
	}
	rows, err := r.db.Query(ctx,
		`UPDATE `+tbl+` SET name = $1, gstin = $2, phone = $3, address = $4, updated_at = now()
		 WHERE id = $5 RETURNING `+partyColumns,
		p.Name, p.GSTIN, p.Phone, p.Address, p.ID)
	if err != nil {
		return Party{}, err
	}
	updated, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByPos[Party])
	switch {
	case db.IsNoRows(err):
		return Party{}, fmt.Errorf("%w: %s %d", shared.ErrNotFound, kind.Label(), p.ID)
	case db.IsUniqueViolation(err):
		return Party{}, fmt.Errorf("%w: %s %q already exists", shared.ErrDuplicate, kind.Label(), p.Name)
	}
	return updated, err
}

func (r *repository) NamesByIDs(ctx context.Context, kind Kind, ids []int64) (map[int64]string, error) {
	tbl, err := table(kind)
	if err != nil {
		return nil, err
	}
	names := make(map[int64]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}
	rows, err := r.db.Query(ctx, `SELECT id, name FROM `+tbl+` WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("parties: names %s: %w", tbl, err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id   int64
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		names[id] = name
	}
	return names, rows.Err()
}

// UpsertByName returns the id of the party called name (case-insensitive),
// creating it when missing. Run it on the invoice transaction so a rolled back
// invoice leaves no orphan party behind.
func UpsertByName(ctx context.Context, q db.DBTX, kind Kind, name string) (int64, error) {
	tbl, err := table(kind)
	if err != nil {
		return 0, err
	}
	name = shared.NormalizeName(name)
	if name == "" {
		return 0, fmt.Errorf("%w: %s name is required", shared.ErrValidation, kind.Label())
	}
	var id int64
	err = q.QueryRow(ctx,
		`INSERT INTO `+tbl+` (name) VALUES ($1)
		 ON CONFLICT ((lower(name))) DO UPDATE SET updated_at = now()
		 RETURNING id`, name).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("parties: upsert %s: %w", kind.Label(), err)
	}
	return id, nil
}
