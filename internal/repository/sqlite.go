package repository

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/jobtrace/jobtrace-gateway/migrations"
	_ "modernc.org/sqlite"
)

// ErrNotInitialized is returned by all operations after Close (or before a
// successful open).
var ErrNotInitialized = errors.New("repository not initialized")

// SQLiteRepository implements the audit store using SQLite. The *sqlx.DB
// handle provides the internal concurrency control; callers do not coordinate
// locking themselves.
type SQLiteRepository struct {
	mu sync.RWMutex
	db *sqlx.DB
}

// NewSQLiteRepository opens or creates the backing database at dbPath.
// Use ":memory:" for an ephemeral store in tests.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	db, err := sqlx.Connect("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SQLite: %w", err)
	}

	// An in-memory database exists per connection; cap the pool at one so
	// every caller sees the same tables.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	return &SQLiteRepository{db: db}, nil
}

// Migrate applies all embedded migration files in lexical order. Each file is
// written to be idempotent (CREATE ... IF NOT EXISTS), so Migrate is safe to
// call on an existing database.
func (r *SQLiteRepository) Migrate() error {
	db, err := r.handle()
	if err != nil {
		return err
	}

	entries, err := fs.Glob(migrations.FS, "*.sql")
	if err != nil {
		return fmt.Errorf("failed to list migrations: %w", err)
	}
	sort.Strings(entries)

	for _, name := range entries {
		sqlBytes, err := fs.ReadFile(migrations.FS, name)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", name, err)
		}
		if _, err := db.Exec(string(sqlBytes)); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", name, err)
		}
	}
	return nil
}

// Close releases the database handle. Safe to call multiple times; subsequent
// operations return ErrNotInitialized.
func (r *SQLiteRepository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

func (r *SQLiteRepository) handle() (*sqlx.DB, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.db == nil {
		return nil, ErrNotInitialized
	}
	return r.db, nil
}
