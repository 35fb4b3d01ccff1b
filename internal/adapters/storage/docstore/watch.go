package docstore

import (
	"context"
	"log/slog"
	"sync"
)

type queryFunc func(ctx context.Context, collection string, filters []Filter) ([]Document, error)

// watcher runs live queries on top of a Feed and a query function.
// Both store implementations share it.
type watcher struct {
	feed     Feed
	observer Observer
	query    queryFunc
}

type subscription struct {
	collection string
	kick       chan struct{}
	done       chan struct{}
	stopped    chan struct{}
	stopOnce   sync.Once
}

func (w *watcher) subscribe(ctx context.Context, collection string, filters []Filter, fn func(Snapshot)) (Subscription, error) {
	prepared, err := prepareFilters(filters)
	if err != nil {
		return nil, err
	}
	sub := &subscription{
		collection: collection,
		kick:       make(chan struct{}, 1),
		done:       make(chan struct{}),
		stopped:    make(chan struct{}),
	}
	cancel := w.feed.Listen(func(c Change) {
		if c.Collection == collection {
			sub.notify()
		}
	})
	w.observer.SubscriptionOpened()
	go func() {
		defer close(sub.stopped)
		defer w.observer.SubscriptionClosed()
		defer cancel()
		sub.run(ctx, w.query, prepared, fn)
	}()
	return sub, nil
}

// notify coalesces bursts of changes into one pending re-query.
func (s *subscription) notify() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

func (s *subscription) run(ctx context.Context, query queryFunc, filters []Filter, fn func(Snapshot)) {
	for {
		docs, err := query(ctx, s.collection, filters)
		if s.isDone(ctx) {
			return
		}
		if err != nil {
			slog.Warn("docstore_event", "event", "subscription_failed", "collection", s.collection, "error", err)
			fn(Snapshot{Err: err})
			return
		}
		fn(Snapshot{Docs: docs})

		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-s.kick:
		}
	}
}

func (s *subscription) isDone(ctx context.Context) bool {
	select {
	case <-s.done:
		return true
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// Unsubscribe stops the subscription and waits for its goroutine to exit.
func (s *subscription) Unsubscribe() {
	s.stopOnce.Do(func() { close(s.done) })
	<-s.stopped
}
