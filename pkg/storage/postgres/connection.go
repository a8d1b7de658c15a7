package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/platinummonkey/grove/pkg/storage"
	"github.com/platinummonkey/grove/pkg/storage/sqlstore"
)

// DriverName is the database/sql driver registered by lib/pq.
const DriverName = "postgres"

// OpenDB opens and pings a PostgreSQL pool configured from cfg.
func OpenDB(ctx context.Context, cfg storage.Config) (*sql.DB, error) {
	db, err := sql.Open(DriverName, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConns)
	db.SetMaxIdleConns(cfg.MinConns)
	db.SetConnMaxLifetime(cfg.MaxLifetime)
	db.SetConnMaxIdleTime(cfg.MaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return db, nil
}

// Open returns a Store backed by PostgreSQL.
func Open(ctx context.Context, cfg storage.Config, opts ...sqlstore.Option) (*sqlstore.Store, error) {
	db, err := OpenDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return sqlstore.New(db, Dialect{}, opts...), nil
}
