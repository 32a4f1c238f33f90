// Package migrations applies the embedded schema on startup.
package migrations

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
)

//go:embed sql/*.sql
var embedded embed.FS

// Up applies every pending migration using a database/sql view of the pool.
func Up(pool *pgxpool.Pool) error {
	if pool == nil {
		return errors.New("migrations: pool is required")
	}

	source, err := iofs.New(embedded, "sql")
	if err != nil {
		return fmt.Errorf("migrations: open source: %w", err)
	}

	sqlDB := stdlib.OpenDBFromPool(pool)
	driver, err := pgxmigrate.WithInstance(sqlDB, &pgxmigrate.Config{})
	if err != nil {
		return fmt.Errorf("migrations: create driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "pgx5", driver)
	if err != nil {
		return fmt.Errorf("migrations: create migrator: %w", err)
	}

	if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrations: apply: %w", err)
	}
	// The migrator is not closed: closing it would close sqlDB and, through it, the shared pool.
	return nil
}
