package store

import (
	"context"
	"fmt"

	"price-tracker/internal/config"
)

// Open constructs the store selected by cfg.StoreDriver
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.StoreDriver {
	case "sqlite", "":
		return NewSQLite(cfg.DataDir)
	case "postgres":
		pool, err := Connect(ctx, cfg.DatabaseURL, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		s, err := NewPostgres(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, err
		}
		return s, nil
	case "json":
		return NewMemory(cfg.DataDir)
	case "memory":
		return NewMemory("")
	default:
		return nil, &config.ConfigurationError{
			Field: "STORE_DRIVER",
			Err:   fmt.Errorf("unsupported driver %q", cfg.StoreDriver),
		}
	}
}
