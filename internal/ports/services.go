// Package ports defines interfaces for external dependencies.
// Ports are contracts that adapters implement, allowing the application layer
// to depend on abstractions rather than concrete implementations.
//
// Port Design Principles:
//   - Context as first parameter (always) for cancellation and deadlines
//   - Return domain types, never external DTOs or infrastructure types
//   - Error returns use domain error types (ErrNotFound, ErrStorage, ErrNetwork, etc.)
//   - Keep interfaces small and focused
package ports

import (
	"context"

	"github.com/jsamuelsen/quotesync/internal/domain"
)

// Well-known keys in the local store.
const (
	KeyQuotes           = "quotes"
	KeyLastQuote        = "lastQuote"
	KeySelectedCategory = "selectedCategory"
	KeySearchText       = "searchText"
	KeyLastSync         = "lastSync"
)

// KeyValueStore is the local string-keyed persistence used for the quote
// collection, view preferences and sync bookkeeping.
//
// Implementations may prefix keys with a namespace. Values are opaque strings;
// callers own serialization.
type KeyValueStore interface {
	// Get returns the value stored under key.
	// Returns domain.ErrNotFound if the key is absent and domain.ErrStorage on failure.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key, overwriting any previous value.
	// Returns domain.ErrStorage on failure.
	Set(ctx context.Context, key, value string) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

// QuoteRemote is the remote resource quotes are pulled from and pushed to.
type QuoteRemote interface {
	// FetchQuotes returns the remote snapshot translated into domain quotes.
	// Returns domain.ErrNetwork on transport failure or a non-success status.
	FetchQuotes(ctx context.Context) ([]domain.Quote, error)

	// PostQuote pushes a single quote to the remote resource.
	// Returns domain.ErrNetwork on transport failure or a non-success status.
	PostQuote(ctx context.Context, q domain.Quote) (*domain.RemoteRecord, error)
}

// Notifier surfaces transient status messages to the user.
type Notifier interface {
	// Notify publishes n, replacing whatever notice is currently shown.
	Notify(ctx context.Context, n domain.Notice)
}
