package db

import (
	"context"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
)

//go:embed migrations
var embedMigrations embed.FS

// Migrate applies all pending migrations for the database's dialect.
func Migrate(db *DB) error {
	dir := "migrations/sqlite"
	dialect := goose.DialectSQLite3
	if db.Dialect == DialectPostgres {
		dir = "migrations/postgres"
		dialect = goose.DialectPostgres
	}

	migrations, err := fs.Sub(embedMigrations, dir)
	if err != nil {
		return fmt.Errorf("opening migrations: %w", err)
	}

	provider, err := goose.NewProvider(dialect, db.DB.DB, migrations)
	if err != nil {
		return fmt.Errorf("creating migration provider: %w", err)
	}

	if _, err := provider.Up(context.Background()); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	return nil
}
