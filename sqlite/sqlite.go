// Package sqlite indexes extracted sections in SQLite.
//
// The index is derived data: it can be dropped and rebuilt from the section
// ledger at any time with the index command.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fwojciec/calregs"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// migrations are applied in order; PRAGMA user_version records how many
// have run.
var migrations = []string{
	`CREATE TABLE sections (
		id TEXT PRIMARY KEY,
		section_key TEXT NOT NULL UNIQUE,
		source_url TEXT NOT NULL,
		section_number TEXT NOT NULL,
		section_heading TEXT NOT NULL DEFAULT '',
		citation TEXT NOT NULL DEFAULT '',
		title_number INTEGER,
		title_name TEXT,
		division TEXT,
		chapter TEXT,
		subchapter TEXT,
		article TEXT,
		breadcrumb_path TEXT NOT NULL DEFAULT '',
		content_markdown TEXT NOT NULL DEFAULT '',
		content_hash TEXT NOT NULL DEFAULT '',
		retrieved_at TEXT NOT NULL,
		indexed_at TEXT NOT NULL
	)`,
	`CREATE INDEX idx_sections_title_number ON sections(title_number)`,
	`CREATE INDEX idx_sections_citation ON sections(citation)`,
}

// DB is a SQLite connection holding the section index.
type DB struct {
	db   *sql.DB
	path string
}

// NewDB creates a DB for the file at path.
// Use ":memory:" for an in-memory database.
func NewDB(path string) *DB {
	return &DB{path: path}
}

// Open connects to the database and migrates the schema to the latest
// version. A database written by a newer schema is rejected with ECONFLICT.
func (db *DB) Open() error {
	conn, err := sql.Open("sqlite3", db.path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// One writer at a time.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	pragmas := []string{"PRAGMA busy_timeout = 5000"}
	if db.path != ":memory:" {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL", "PRAGMA synchronous = NORMAL")
	}
	for _, p := range pragmas {
		if _, err := conn.Exec(p); err != nil {
			conn.Close()
			return fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}

	db.db = conn

	if err := db.migrate(context.Background()); err != nil {
		conn.Close()
		return err
	}
	return nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	if db.db == nil {
		return nil
	}
	return db.db.Close()
}

// SchemaVersion returns the number of migrations applied to the database.
func (db *DB) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	if err := db.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&v); err != nil {
		return 0, err
	}
	return v, nil
}

func (db *DB) migrate(ctx context.Context) error {
	version, err := db.SchemaVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if version > len(migrations) {
		return calregs.Errorf(calregs.ECONFLICT, "index %s has schema version %d, newer than supported %d", db.path, version, len(migrations))
	}
	if version == len(migrations) {
		return nil
	}

	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for i, stmt := range migrations[version:] {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply migration %d: %w", version+i+1, err)
		}
	}
	// PRAGMA does not accept bound parameters.
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", len(migrations))); err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}
	return tx.Commit()
}

// QueryRowContext executes a query that returns a single row.
func (db *DB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return db.db.QueryRowContext(ctx, query, args...)
}

// QueryContext executes a query that returns rows.
func (db *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return db.db.QueryContext(ctx, query, args...)
}

// ExecContext executes a statement that doesn't return rows.
func (db *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return db.db.ExecContext(ctx, query, args...)
}

// BeginTx starts a transaction.
func (db *DB) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return db.db.BeginTx(ctx, nil)
}
