package outbox

import (
	"context"
	"errors"

	domain "sportify/internal/domain/outbox"
)

// ErrNotFound is returned when no entry has the requested id.
var ErrNotFound = errors.New("repair entry not found")

// Store defines the interface for repair entry persistence.
type Store interface {
	// GetByID retrieves an entry by its ID.
	// PRE: id is non-empty
	// POST: Returns the entry or ErrNotFound
	GetByID(ctx context.Context, id string) (domain.Entry, error)

	// Save persists an entry (insert or update).
	// PRE: entry has been validated
	Save(ctx context.Context, e domain.Entry) error

	// ListPending returns entries that still need processing (pending or retrying).
	// PRE: limit > 0
	// POST: Returns up to limit entries ordered by created_at
	ListPending(ctx context.Context, limit int) ([]domain.Entry, error)

	// ListUnresolved returns every entry that is not done or abandoned,
	// including entries that exhausted their attempts.
	// PRE: limit > 0
	// POST: Returns up to limit entries, newest first
	ListUnresolved(ctx context.Context, limit int) ([]domain.Entry, error)

	// Delete removes an entry.
	// PRE: id is non-empty and entry is in terminal state
	Delete(ctx context.Context, id string) error
}
