// Package memory provides an in-process key/value store backed by go-cache.
// Values live for the lifetime of the process; it also serves as session storage.
package memory

import (
	"context"

	gocache "github.com/patrickmn/go-cache"

	"github.com/jsamuelsen/quotesync/internal/domain"
	"github.com/jsamuelsen/quotesync/internal/ports"
)

// Name is the health check name of the memory store.
const Name = "store-memory"

// Store implements ports.KeyValueStore in memory.
type Store struct {
	cache     *gocache.Cache
	namespace string
}

var (
	_ ports.KeyValueStore = (*Store)(nil)
	_ ports.HealthChecker = (*Store)(nil)
)

// New creates an empty memory store. Keys are prefixed with namespace when it is set.
func New(namespace string) *Store {
	return &Store{
		cache:     gocache.New(gocache.NoExpiration, 0),
		namespace: namespace,
	}
}

func (s *Store) key(k string) string {
	if s.namespace == "" {
		return k
	}

	return s.namespace + ":" + k
}

// Get returns the value stored under key.
func (s *Store) Get(_ context.Context, key string) (string, error) {
	v, ok := s.cache.Get(s.key(key))
	if !ok {
		return "", domain.NewNotFoundError("key", key)
	}

	str, ok := v.(string)
	if !ok {
		return "", domain.NewStorageError("get", key, nil)
	}

	return str, nil
}

// Set stores value under key.
func (s *Store) Set(_ context.Context, key, value string) error {
	s.cache.Set(s.key(key), value, gocache.NoExpiration)

	return nil
}

// Delete removes key.
func (s *Store) Delete(_ context.Context, key string) error {
	s.cache.Delete(s.key(key))

	return nil
}

// Len returns the number of stored keys across all namespaces.
func (s *Store) Len() int {
	return s.cache.ItemCount()
}

// Name implements ports.HealthChecker.
func (s *Store) Name() string {
	return Name
}

// Check implements ports.HealthChecker. The memory store is always healthy.
func (s *Store) Check(context.Context) error {
	return nil
}

// Close flushes all stored values.
func (s *Store) Close() error {
	s.cache.Flush()

	return nil
}
