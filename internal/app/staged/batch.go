// Package staged collects store writes and applies them as one unit.
//
// Actions are staged with Add and applied in order by Commit. When an action
// fails, the actions already applied are rolled back in reverse order:
//
//	b := staged.New()
//	_ = b.Add(staged.NewStoreWrite(store, ports.KeyQuotes, quotesJSON))
//	_ = b.Add(staged.NewStoreWrite(store, ports.KeyLastSync, ts))
//
//	if err := b.Commit(ctx); err != nil {
//	    // nothing was left half-written
//	}
package staged

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrAlreadyCommitted is returned when trying to add actions or commit
// after the Batch has already been committed.
var ErrAlreadyCommitted = errors.New("batch already committed")

// Action represents a staged write operation.
type Action interface {
	// Execute performs the action.
	Execute(ctx context.Context) error

	// Rollback undoes the action if possible.
	Rollback(ctx context.Context) error

	// Description returns a human-readable description for logging.
	Description() string
}

// Batch is an ordered list of staged actions. It is single use.
type Batch struct {
	mu        sync.Mutex
	actions   []Action
	committed bool
}

// New creates an empty batch.
func New() *Batch {
	return &Batch{}
}

// Add stages an action for later execution.
func (b *Batch) Add(action Action) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.committed {
		return ErrAlreadyCommitted
	}

	b.actions = append(b.actions, action)

	return nil
}

// Commit executes all staged actions in order.
// On failure, rolls back executed actions in reverse order and returns the
// failure joined with any rollback errors. A failed batch stays uncommitted.
func (b *Batch) Commit(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.committed {
		return ErrAlreadyCommitted
	}

	executed := make([]Action, 0, len(b.actions))
	for _, action := range b.actions {
		if err := action.Execute(ctx); err != nil {
			errs := []error{fmt.Errorf("action %q failed: %w", action.Description(), err)}

			for i := len(executed) - 1; i >= 0; i-- {
				if rbErr := executed[i].Rollback(ctx); rbErr != nil {
					errs = append(errs, fmt.Errorf("rolling back %q: %w", executed[i].Description(), rbErr))
				}
			}

			return errors.Join(errs...)
		}

		executed = append(executed, action)
	}

	b.committed = true

	return nil
}

// Actions returns a copy of staged actions.
func (b *Batch) Actions() []Action {
	b.mu.Lock()
	defer b.mu.Unlock()

	result := make([]Action, len(b.actions))
	copy(result, b.actions)

	return result
}
