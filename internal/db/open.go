package db

import (
	"context"

	"lv-ledger/internal/config"
	"lv-ledger/internal/store"
	"lv-ledger/internal/store/memstore"
	"lv-ledger/internal/store/postgres"
)

// OpenStore returns the store named by cfg.Store.Driver. Postgres is migrated
// before it is returned.
func OpenStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	if cfg.Store.Driver == config.DriverMemory {
		return memstore.New(), nil
	}
	pool, err := NewPool(ctx, cfg.DB.DSN, cfg.DB.MaxConns)
	if err != nil {
		return nil, err
	}
	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return postgres.New(pool), nil
}
