// Package backends selects a storage implementation from configuration.
package backends

import (
	"context"
	"fmt"

	"github.com/platinummonkey/grove/pkg/storage"
	"github.com/platinummonkey/grove/pkg/storage/postgres"
	"github.com/platinummonkey/grove/pkg/storage/sqlite"
	"github.com/platinummonkey/grove/pkg/storage/sqlstore"
)

// Open connects to the backend named by cfg.Driver and bootstraps the schema
// when cfg.Bootstrap is set. The caller owns the returned store.
func Open(ctx context.Context, cfg storage.Config, opts ...sqlstore.Option) (*sqlstore.Store, error) {
	var (
		store *sqlstore.Store
		err   error
	)
	switch cfg.Driver {
	case "postgres", "postgresql":
		store, err = postgres.Open(ctx, cfg, opts...)
	case "sqlite", "sqlite3", "":
		store, err = sqlite.Open(ctx, cfg, opts...)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	if cfg.Bootstrap {
		if err := store.Bootstrap(ctx); err != nil {
			store.Close()
			return nil, fmt.Errorf("failed to bootstrap schema: %w", err)
		}
	}
	return store, nil
}
