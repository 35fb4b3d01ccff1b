// Package projections holds the live read side: role-scoped queries over the
// document store that keep a sorted, filtered view current.
package projections

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"sportify/internal/adapters/storage/docstore"
	"sportify/internal/domain/fault"
)

// Item is one decoded record and its document id.
type Item[T any] struct {
	ID    string
	Value T
}

// MarshalJSON flattens the value's fields and adds "id".
func (it Item[T]) MarshalJSON() ([]byte, error) {
	fields, err := docstore.Encode(it.Value)
	if err != nil {
		return nil, err
	}
	if fields == nil {
		fields = map[string]any{}
	}
	fields["id"] = it.ID
	return json.Marshal(fields)
}

// View is the current result of a feed. Err is set when the query failed;
// a failed view is the last one its subscription delivers.
type View[T any] struct {
	Items []Item[T]
	Err   error
}

// Spec describes one role-scoped query. Filters run in the store; Keep runs
// locally for ownership rules the store filters cannot express. Less orders
// the result, since the store does not order filtered queries.
type Spec[T any] struct {
	Name       string
	Collection string
	Filters    []docstore.Filter
	Keep       func(T) bool
	Less       func(a, b T) bool
}

func (s Spec[T]) build(docs []docstore.Document) (View[T], error) {
	items := make([]Item[T], 0, len(docs))
	for _, doc := range docs {
		v, err := docstore.As[T](doc)
		if err != nil {
			slog.Warn("feed_event", "event", "undecodable_document", "feed", s.Name, "id", doc.ID, "error", err)
			continue
		}
		if s.Keep != nil && !s.Keep(v) {
			continue
		}
		items = append(items, Item[T]{ID: doc.ID, Value: v})
	}
	if s.Less != nil {
		sort.SliceStable(items, func(i, j int) bool {
			a, b := items[i].Value, items[j].Value
			if s.Less(a, b) {
				return true
			}
			if s.Less(b, a) {
				return false
			}
			return items[i].ID < items[j].ID
		})
	}
	return View[T]{Items: items}, nil
}

// First runs spec once.
func First[T any](ctx context.Context, store docstore.Store, spec Spec[T]) (View[T], error) {
	docs, err := store.Query(ctx, spec.Collection, spec.Filters...)
	if err != nil {
		return View[T]{}, fault.Remote("query_"+spec.Name, err)
	}
	return spec.build(docs)
}

// Open subscribes to spec and delivers a fresh view per store snapshot.
// Errors are delivered once as a view with Err set; there is no retry.
func Open[T any](ctx context.Context, store docstore.Store, spec Spec[T], fn func(View[T])) (docstore.Subscription, error) {
	sub, err := store.Subscribe(ctx, spec.Collection, spec.Filters, func(snap docstore.Snapshot) {
		if snap.Err != nil {
			slog.Warn("feed_event", "event", "subscription_failed", "feed", spec.Name, "error", snap.Err)
			fn(View[T]{Err: fault.Remote("subscribe_"+spec.Name, snap.Err)})
			return
		}
		view, err := spec.build(snap.Docs)
		if err != nil {
			fn(View[T]{Err: err})
			return
		}
		fn(view)
	})
	if err != nil {
		return nil, fault.Remote("subscribe_"+spec.Name, fmt.Errorf("open feed: %w", err))
	}
	return sub, nil
}
