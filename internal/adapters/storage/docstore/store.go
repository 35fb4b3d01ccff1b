// Package docstore is the remote store client: tenant-scoped collections of
// loosely typed JSON documents with filtered live queries.
package docstore

import (
	"context"
	"errors"
	"time"
)

// Store errors.
var (
	ErrNotFound           = errors.New("document not found")
	ErrAlreadyExists      = errors.New("document already exists")
	ErrPreconditionFailed = errors.New("document precondition failed")
	ErrInvalidFilter      = errors.New("invalid filter")
	ErrEmptyID            = errors.New("document id is required")
	ErrClosed             = errors.New("store is closed")
)

// Document is one stored record. Fields holds normalized JSON values:
// strings, float64, bool, nil, []any and map[string]any.
type Document struct {
	ID        string
	Fields    map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Snapshot is the full result set of a live query at one point in time.
// A snapshot with Err set is the last one a subscription delivers.
type Snapshot struct {
	Docs []Document
	Err  error
}

// Subscription is a standing live query.
type Subscription interface {
	// Unsubscribe stops delivery and returns once no callback is running.
	// It must not be called from inside the subscription callback.
	Unsubscribe()
}

// Store is the document database boundary used by the rest of the core.
type Store interface {
	// Get returns one document or ErrNotFound.
	Get(ctx context.Context, collection, id string) (Document, error)

	// Query returns every document in collection matching all filters.
	// Result order is unspecified.
	Query(ctx context.Context, collection string, filters ...Filter) ([]Document, error)

	// Add stores fields under a generated id and returns it.
	Add(ctx context.Context, collection string, fields map[string]any) (string, error)

	// Create stores fields under id, failing with ErrAlreadyExists if taken.
	Create(ctx context.Context, collection, id string, fields map[string]any) error

	// Set replaces (or inserts) the document at id.
	Set(ctx context.Context, collection, id string, fields map[string]any) error

	// Update merges partial into an existing document, ErrNotFound if absent.
	// Nested maps merge recursively; nil values remove keys.
	Update(ctx context.Context, collection, id string, partial map[string]any) error

	// UpdateIf is Update guarded by preconditions on the current fields.
	// It fails with ErrPreconditionFailed, leaving the document unchanged,
	// if any precondition does not hold at write time.
	UpdateIf(ctx context.Context, collection, id string, preconditions []Filter, partial map[string]any) error

	// Delete removes the document. Deleting a missing document is not an error.
	Delete(ctx context.Context, collection, id string) error

	// Subscribe delivers an initial snapshot of the query and a fresh one
	// after each committed change to collection. Delivery stops after an
	// error snapshot, on ctx cancellation, or on Unsubscribe.
	Subscribe(ctx context.Context, collection string, filters []Filter, fn func(Snapshot)) (Subscription, error)
}

// Observer receives store instrumentation. Implementations must be safe for
// concurrent use.
type Observer interface {
	ObserveStoreOp(op string, d time.Duration, err error)
	SubscriptionOpened()
	SubscriptionClosed()
}

type nopObserver struct{}

func (nopObserver) ObserveStoreOp(string, time.Duration, error) {}
func (nopObserver) SubscriptionOpened()                         {}
func (nopObserver) SubscriptionClosed()                         {}

// Options configure a store implementation.
type Options struct {
	Feed     Feed
	Observer Observer
	NewID    func() string
	Now      func() time.Time
}
