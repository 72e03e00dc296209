// Package store persists users, departments and permission grants in
// SQLite. Permission grants are namespaced rows: department-scoped codes
// carry the department acronym, system-scoped codes carry an empty one.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

type Config struct {
	Dialect string `conf:"dialect" yaml:"dialect" json:"dialect"`
	DSN     string `conf:"dsn" yaml:"dsn" json:"dsn"`
}

func DefaultConfig() Config {
	return Config{
		Dialect: "sqlite",
		DSN:     "file:docdesk.db?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)",
	}
}

type Store struct {
	db *sql.DB
}

func Open(ctx context.Context, config Config) (*Store, error) {
	if config.Dialect != "" && config.Dialect != "sqlite" {
		return nil, fmt.Errorf("unsupported dialect %q", config.Dialect)
	}

	db, err := sql.Open("sqlite", config.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// An in-memory database exists per connection; keep the pool at one so
	// every query sees the same data.
	if strings.Contains(config.DSN, ":memory:") {
		db.SetMaxOpenConns(1)
	}

	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			email TEXT NOT NULL UNIQUE,
			full_name TEXT NOT NULL DEFAULT '',
			password TEXT NOT NULL,
			active INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS departments (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			acronym TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS department_members (
			user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			department_id INTEGER NOT NULL REFERENCES departments(id) ON DELETE CASCADE,
			PRIMARY KEY (user_id, department_id)
		)`,
		`CREATE TABLE IF NOT EXISTS user_permissions (
			user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			department TEXT NOT NULL DEFAULT '',
			code TEXT NOT NULL,
			PRIMARY KEY (user_id, department, code)
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}

	return nil
}

// withTx runs fn inside a transaction, rolling back on error.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
