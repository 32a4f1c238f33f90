package lookups

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/partsdesk/partsdesk/internal/platform/db"
	"github.com/partsdesk/partsdesk/internal/shared"
)

// Repository persists lookup rows.
type Repository interface {
	NamesByIDs(ctx context.Context, kind Kind, ids []int64) (map[string]string, error)
	List(ctx context.Context, kind Kind, search string, limit, offset int) ([]Entry, int, error)
	Get(ctx context.Context, kind Kind, id int64) (Entry, error)
	Create(ctx context.Context, kind Kind, name string) (Entry, error)
	Update(ctx context.Context, kind Kind, id int64, name string) (Entry, error)
	Delete(ctx context.Context, kind Kind, id int64) error
}

type repository struct {
	db db.DBTX
}

// NewRepository returns a PostgreSQL backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

func table(kind Kind) (string, error) {
	if !kind.Valid() {
		return "", fmt.Errorf("%w: unknown lookup %q", shared.ErrValidation, kind)
	}
	return string(kind), nil
}

// NamesByIDs resolves every id in one query. Ids without a row are absent
// from the result.
func (r *repository) NamesByIDs(ctx context.Context, kind Kind, ids []int64) (map[string]string, error) {
	tbl, err := table(kind)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}
	rows, err := r.db.Query(ctx, `SELECT id, name FROM `+tbl+` WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("lookups: names %s: %w", tbl, err)
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
		names[strconv.FormatInt(id, 10)] = name
	}
	return names, rows.Err()
}

func (r *repository) List(ctx context.Context, kind Kind, search string, limit, offset int) ([]Entry, int, error) {
	tbl, err := table(kind)
	if err != nil {
		return nil, 0, err
	}
	where := ""
	args := []any{}
	if search != "" {
		where = " WHERE name ILIKE $1"
		args = append(args, "%"+search+"%")
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM `+tbl+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("lookups: count %s: %w", tbl, err)
	}

	query := `SELECT id, name, created_at, updated_at FROM ` + tbl + where + ` ORDER BY name`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
		args = append(args, limit, offset)
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("lookups: list %s: %w", tbl, err)
	}
	entries, err := pgx.CollectRows(rows, pgx.RowToStructByPos[Entry])
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func (r *repository) Get(ctx context.Context, kind Kind, id int64) (Entry, error) {
	tbl, err := table(kind)
	if err != nil {
		return Entry{}, err
	}
	var e Entry
	err = r.db.QueryRow(ctx, `SELECT id, name, created_at, updated_at FROM `+tbl+` WHERE id = $1`, id).
		Scan(&e.ID, &e.Name, &e.CreatedAt, &e.UpdatedAt)
	if db.IsNoRows(err) {
		return Entry{}, fmt.Errorf("%w: %s %d", shared.ErrNotFound, kind.Label(), id)
	}
	return e, err
}

func (r *repository) Create(ctx context.Context, kind Kind, name string) (Entry, error) {
	tbl, err := table(kind)
	if err != nil {
		return Entry{}, err
	}
	var e Entry
	err = r.db.QueryRow(ctx, `INSERT INTO `+tbl+` (name) VALUES ($1) RETURNING id, name, created_at, updated_at`, name).
		Scan(&e.ID, &e.Name, &e.CreatedAt, &e.UpdatedAt)
	if db.IsUniqueViolation(err) {
		return Entry{}, fmt.Errorf("%w: %s %q already exists", shared.ErrDuplicate, kind.Label(), name)
	}
	return e, err
}

func (r *repository) Update(ctx context.Context, kind Kind, id int64, name string) (Entry, error) {
	tbl, err := table(kind)
	if err != nil {
		return Entry{}, err
	}
	var e Entry
	err = r.db.QueryRow(ctx, `UPDATE `+tbl+` SET name = $1, updated_at = now() WHERE id = $2 RETURNING id, name, created_at, updated_at`, name, id).
		Scan(&e.ID, &e.Name, &e.CreatedAt, &e.UpdatedAt)
	switch {
	case db.IsNoRows(err):
		return Entry{}, fmt.Errorf("%w: %s %d", shared.ErrNotFound, kind.Label(), id)
	case db.IsUniqueViolation(err):
		return Entry{}, fmt.Errorf("%w: %s %q already exists", shared.ErrDuplicate, kind.Label(), name)
	}
	return e, err
}

func (r *repository) Delete(ctx context.Context, kind Kind, id int64) error {
	tbl, err := table(kind)
	if err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, `DELETE FROM `+tbl+` WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("lookups: delete %s: %w", tbl, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s %d", shared.ErrNotFound, kind.Label(), id)
	}
	return nil
}
