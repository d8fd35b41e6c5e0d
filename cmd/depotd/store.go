package main

import (
	"context"
	"fmt"

	"github.com/xraph/depot/config"
	"github.com/xraph/depot/store"
	"github.com/xraph/depot/store/memory"
	"github.com/xraph/depot/store/mongo"
	"github.com/xraph/depot/store/postgres"
	"github.com/xraph/depot/store/sqlite"
)

// openStore connects the backend named by cfg.Store.Driver.
func openStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	switch cfg.Store.Driver {
	case config.DriverMemory:
		return memory.New(), nil
	case config.DriverSQLite:
		return sqlite.Open(cfg.Store.DSN)
	case config.DriverPostgres:
		return postgres.New(ctx, cfg.Store.DSN)
	case config.DriverMongo:
		return mongo.New(ctx, cfg.Store.DSN, cfg.Store.Database)
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}
