// Package redis provides a shared key/value store on Redis.
package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"github.com/jsamuelsen/quotesync/internal/domain"
	"github.com/jsamuelsen/quotesync/internal/ports"
)

// Name is the health check name of the Redis store.
const Name = "store-redis"

// Config configures the Redis store.
type Config struct {
	// URL is a redis:// URL. A bare host:port is accepted too.
	URL string

	// Namespace prefixes every key when set.
	Namespace string

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Store implements ports.KeyValueStore on Redis strings.
type Store struct {
	client    goredis.UniversalClient
	namespace string
}

var (
	_ ports.KeyValueStore = (*Store)(nil)
	_ ports.HealthChecker = (*Store)(nil)
)

// Open connects to Redis. An unreachable server is logged, not fatal;
// readiness reports it until the connection recovers.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.URL == "" {
		return nil, errors.New("redis: url is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	opt, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		logger.Warn("failed to parse redis url, using it as address", slog.Any("error", err))

		opt = &goredis.Options{Addr: cfg.URL}
	}

	client := goredis.NewClient(opt)

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not reachable", slog.String("addr", opt.Addr), slog.Any("error", err))
	}

	return NewWithClient(client, cfg.Namespace), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client goredis.UniversalClient, namespace string) *Store {
	if client == nil {
		panic("redis: client is required")
	}

	return &Store{client: client, namespace: namespace}
}

func (s *Store) key(k string) string {
	if s.namespace == "" {
		return k
	}

	return s.namespace + ":" + k
}

// Get returns the value stored under key.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	v, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, goredis.Nil) {
		return "", domain.NewNotFoundError("key", key)
	}

	if err != nil {
		return "", domain.NewStorageError("get", key, err)
	}

	return v, nil
}

// Set stores value under key without expiry.
func (s *Store) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return domain.NewStorageError("set", key, err)
	}

	return nil
}

// Delete removes key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return domain.NewStorageError("delete", key, err)
	}

	return nil
}

// Name implements ports.HealthChecker.
func (s *Store) Name() string {
	return Name
}

// Check pings the server.
func (s *Store) Check(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}

	return nil
}

// Close closes the client.
func (s *Store) Close() error {
	return s.client.Close()
}
