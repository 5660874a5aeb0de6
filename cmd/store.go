package main

import (
	"context"

	"github.com/sangam-labs/fieldops-cli/internal/store"
)

// openStore opens the configured store backend. Callers own Close.
func openStore(ctx context.Context) (store.Store, error) {
	return store.New(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL, &store.PoolConfig{
		MaxConns: cfg.Store.MaxConns,
		MinConns: cfg.Store.MinConns,
	})
}
