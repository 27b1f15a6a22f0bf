package storage

import (
	"context"
	"database/sql"
	"embed"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// RunMigrations applies every pending schema migration.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	goose.SetBaseFS(migrationsFS)
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return err
	}

	return nil
}

// Migrate applies pending migrations on the storage connection.
func (postgresql *PostgreSQL) Migrate(ctx context.Context) error {
	if err := RunMigrations(ctx, postgresql.db); err != nil {
		postgresql.log.Sugar().Errorf("Failed to apply migrations: %s", err)
		return err
	}
	return nil
}
