// Package storage selects and opens the local key/value store.
package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/jsamuelsen/quotesync/internal/adapters/storage/memory"
	"github.com/jsamuelsen/quotesync/internal/adapters/storage/redis"
	"github.com/jsamuelsen/quotesync/internal/adapters/storage/sqlite"
	"github.com/jsamuelsen/quotesync/internal/ports"
)

// Supported drivers.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// Store is a key/value store that reports its health and must be closed.
type Store interface {
	ports.KeyValueStore
	ports.HealthChecker
	io.Closer
}

// Config selects the store driver.
type Config struct {
	Driver    string
	Path      string
	URL       string
	Namespace string
	Logger    *slog.Logger
}

// Open returns the store for cfg.Driver.
func Open(ctx context.Context, cfg Config) (Store, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	logger = logger.With(slog.String("store", cfg.Driver))

	switch cfg.Driver {
	case DriverMemory, "":
		return memory.New(cfg.Namespace), nil
	case DriverSQLite:
		s, err := sqlite.Open(ctx, sqlite.Config{
			Path:      cfg.Path,
			Namespace: cfg.Namespace,
			Logger:    logger,
		})
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store: %w", err)
		}

		return s, nil
	case DriverRedis:
		s, err := redis.Open(ctx, redis.Config{
			URL:       cfg.URL,
			Namespace: cfg.Namespace,
			Logger:    logger,
		})
		if err != nil {
			return nil, fmt.Errorf("opening redis store: %w", err)
		}

		return s, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
