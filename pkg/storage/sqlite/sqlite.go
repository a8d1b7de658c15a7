// Package sqlite provides the embedded SQLite backend used for local runs
// and tests.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/mattn/go-sqlite3"

	"github.com/platinummonkey/grove/pkg/storage"
	"github.com/platinummonkey/grove/pkg/storage/sqlstore"
)

// DriverName is the database/sql driver registered by go-sqlite3.
const DriverName = "sqlite3"

// MemoryDSN is a private in-memory database with foreign keys enforced.
const MemoryDSN = "file::memory:?_foreign_keys=on"

// fileDefaults are added to file DSNs that do not set them. Transactions
// take the write lock at BEGIN so two read-then-write transactions queue on
// the busy timeout instead of failing with "database is locked".
var fileDefaults = []struct{ key, value string }{
	{"_txlock", "immediate"},
	{"_busy_timeout", "5000"},
	{"_journal_mode", "WAL"},
}

// OpenDB opens and pings a SQLite database configured from cfg. In-memory
// databases are pinned to one connection so every query sees the same data.
func OpenDB(ctx context.Context, cfg storage.Config) (*sql.DB, error) {
	dsn := cfg.DSN
	if !isMemory(dsn) {
		var err error
		if dsn, err = FileDSN(dsn); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open(DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	if isMemory(cfg.DSN) {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
		db.SetConnMaxIdleTime(0)
	} else {
		db.SetMaxOpenConns(cfg.MaxConns)
		db.SetMaxIdleConns(cfg.MinConns)
		db.SetConnMaxLifetime(cfg.MaxLifetime)
		db.SetConnMaxIdleTime(cfg.MaxIdleTime)
	}

	pingCtx := ctx
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite: %w", err)
	}
	return db, nil
}

// Open returns a Store backed by SQLite.
func Open(ctx context.Context, cfg storage.Config, opts ...sqlstore.Option) (*sqlstore.Store, error) {
	db, err := OpenDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return sqlstore.New(db, Dialect{}, opts...), nil
}

// OpenMemory returns a bootstrapped in-memory Store.
func OpenMemory(ctx context.Context, opts ...sqlstore.Option) (*sqlstore.Store, error) {
	cfg := storage.DefaultConfig()
	cfg.DSN = MemoryDSN

	store, err := Open(ctx, cfg, opts...)
	if err != nil {
		return nil, err
	}
	if err := store.Bootstrap(ctx); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

// FileDSN returns dsn with the locking parameters grove relies on. Values
// already present in dsn win.
func FileDSN(dsn string) (string, error) {
	base, rawQuery, _ := strings.Cut(dsn, "?")
	query, err := url.ParseQuery(rawQuery)
	if err != nil {
		return "", fmt.Errorf("invalid sqlite dsn %q: %w", dsn, err)
	}
	for _, d := range fileDefaults {
		if d.key == "_busy_timeout" && query.Has("_timeout") {
			continue
		}
		if !query.Has(d.key) {
			query.Set(d.key, d.value)
		}
	}
	return base + "?" + query.Encode(), nil
}

func isMemory(dsn string) bool {
	return dsn == ":memory:" || strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}

// Dialect classifies go-sqlite3 errors and carries the SQLite schema.
type Dialect struct{}

func (Dialect) Name() string { return "sqlite" }

func (Dialect) Schema() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS trees (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			tree TEXT NOT NULL DEFAULT '',
			location TEXT NOT NULL DEFAULT '',
			height_ft REAL NOT NULL DEFAULT 0,
			ground_circumference_ft REAL NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS insects (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			fact TEXT NOT NULL DEFAULT '',
			territory TEXT NOT NULL DEFAULT '',
			millimeters REAL NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS insect_trees (
			tree_id INTEGER NOT NULL REFERENCES trees(id) ON DELETE CASCADE,
			insect_id INTEGER NOT NULL REFERENCES insects(id) ON DELETE CASCADE,
			PRIMARY KEY (tree_id, insect_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_insect_trees_insect ON insect_trees(insect_id)`,
		`CREATE INDEX IF NOT EXISTS idx_trees_tree ON trees(tree)`,
		`CREATE INDEX IF NOT EXISTS idx_insects_name ON insects(name)`,
	}
}

func (Dialect) IsUniqueViolation(err error) bool {
	var sqlErr sqlite3.Error
	if !errors.As(err, &sqlErr) {
		return false
	}
	return sqlErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
		sqlErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

func (Dialect) Messages(err error) []string {
	var sqlErr sqlite3.Error
	if !errors.As(err, &sqlErr) {
		return nil
	}
	return []string{sqlErr.Error()}
}
