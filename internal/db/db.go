// Package db opens the relational store and applies its migrations.
// SQLite (modernc.org/sqlite) is the default; postgres:// URLs use pgx.
package db

import (
	"database/sql"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
)

// Dialect identifies the SQL engine behind a DB.
type Dialect string

// Supported dialects.
const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// DB is a connection pool together with the dialect it speaks.
type DB struct {
	*sqlx.DB
	Dialect Dialect
}

// Open opens the database named by dsn. A postgres:// or postgresql:// URL
// selects PostgreSQL; anything else is a SQLite path, optionally prefixed
// with sqlite://.
func Open(dsn string) (*DB, error) {
	if isPostgres(dsn) {
		return openPostgres(dsn)
	}
	return openSQLite(strings.TrimPrefix(dsn, "sqlite://"))
}

// New wraps an existing connection. Used by tests with driver mocks.
func New(conn *sql.DB, driverName string, dialect Dialect) *DB {
	return &DB{DB: sqlx.NewDb(conn, driverName), Dialect: dialect}
}

// Builder returns a squirrel statement builder using the dialect's placeholders.
func (db *DB) Builder() sq.StatementBuilderType {
	if db.Dialect == DialectPostgres {
		return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	}
	return sq.StatementBuilder.PlaceholderFormat(sq.Question)
}

func isPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

func openPostgres(dsn string) (*DB, error) {
	conn, err := sqlx.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	conn.SetMaxOpenConns(10)
	conn.SetMaxIdleConns(4)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &DB{DB: conn, Dialect: DialectPostgres}, nil
}

func openSQLite(path string) (*DB, error) {
	// Store times in a fixed, lexically ordered layout.
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	conn, err := sqlx.Open("sqlite", path+sep+"_time_format=sqlite")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// A single connection keeps pragmas (and :memory: databases) consistent
	// and serializes writers.
	conn.SetMaxOpenConns(1)

	// Set pragmas for performance and correctness.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := conn.Exec(p); err != nil {
			conn.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	return &DB{DB: conn, Dialect: DialectSQLite}, nil
}
