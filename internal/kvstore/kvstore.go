// Package kvstore provides the persistent string key-value store that backs
// practice records and the last used selection.
package kvstore

import (
	"context"
	"fmt"
	"strings"

	"dictation/internal/config"
	"dictation/internal/database"
)

// Store is a persistent string key-value store.
// Get reports ok=false for an absent key rather than an error.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Open builds the store selected by cfg.StoreBackend. The returned close
// function releases the underlying connection.
func Open(ctx context.Context, cfg *config.Config) (Store, func() error, error) {
	switch strings.ToLower(cfg.StoreBackend) {
	case "sql", "":
		db, err := database.InitializeWithConfig(cfg)
		if err != nil {
			return nil, nil, err
		}
		if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		return NewSQLStore(db), db.Close, nil
	case "redis":
		store, err := NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	case "memory":
		return NewMemoryStore(), func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unsupported store backend: %s", cfg.StoreBackend)
	}
}
