package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type migrator interface {
	Up() error
}

// Overridden in tests so no Postgres connection is needed.
var withPostgresInstance = func(db *sql.DB) (migratedb.Driver, error) {
	return postgres.WithInstance(db, &postgres.Config{})
}

var newMigrateWithInstance = func(src source.Driver, driver migratedb.Driver) (migrator, error) {
	return migrate.NewWithInstance("iofs", src, "postgres", driver)
}

// Source returns the embedded migration files.
func Source() (source.Driver, error) {
	return iofs.New(migrationsFS, "migrations")
}

// Migrate applies every pending migration to db.
func Migrate(db *sql.DB) error {
	src, err := Source()
	if err != nil {
		return fmt.Errorf("failed to open migrations: %w", err)
	}

	driver, err := withPostgresInstance(db)
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := newMigrateWithInstance(src, driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			slog.Info("database schema is up to date")
			return nil
		}
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	slog.Info("database migrations applied")
	return nil
}
