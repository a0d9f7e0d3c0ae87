package staged

import (
	"context"

	"github.com/jsamuelsen/quotesync/internal/domain"
	"github.com/jsamuelsen/quotesync/internal/ports"
)

// StoreWrite sets one key. Rollback restores the value seen at Execute,
// or deletes the key if it did not exist.
type StoreWrite struct {
	store ports.KeyValueStore
	key   string
	value string

	prev    string
	hadPrev bool
}

// NewStoreWrite stages store.Set(key, value).
func NewStoreWrite(store ports.KeyValueStore, key, value string) *StoreWrite {
	return &StoreWrite{store: store, key: key, value: value}
}

// Execute snapshots the current value and writes the new one.
func (w *StoreWrite) Execute(ctx context.Context) error {
	prev, err := w.store.Get(ctx, w.key)
	switch {
	case err == nil:
		w.prev, w.hadPrev = prev, true
	case domain.IsNotFound(err):
		w.hadPrev = false
	default:
		return err
	}

	return w.store.Set(ctx, w.key, w.value)
}

// Rollback restores the snapshot.
func (w *StoreWrite) Rollback(ctx context.Context) error {
	if w.hadPrev {
		return w.store.Set(ctx, w.key, w.prev)
	}

	return w.store.Delete(ctx, w.key)
}

// Description names the key being written.
func (w *StoreWrite) Description() string {
	return "set " + w.key
}
