package projections

import (
	"context"
	"log/slog"
	"sync"

	"sportify/internal/adapters/storage/docstore"
	"sportify/internal/application/session"
)

// SpecFunc builds the query for a settled session snapshot. It returns a
// fault.KindAuthorization error when the snapshot may not see the feed.
type SpecFunc[T any] func(snap session.Snapshot) (Spec[T], error)

// Follower keeps one feed subscribed for the scope of a session.
type Follower struct {
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// Close stops the feed and returns once no callback is running.
// It must not be called from inside the feed callback.
func (f *Follower) Close() {
	f.stopOnce.Do(func() { close(f.stop) })
	<-f.done
}

// Done is closed after the follower has stopped.
func (f *Follower) Done() <-chan struct{} { return f.done }

// Follow opens the feed once the session has settled and re-subscribes
// whenever its scope (state, role, identity, assigned sport) changes.
// Nothing is delivered while the session is resolving.
func Follow[T any](ctx context.Context, sess *session.Context, store docstore.Store, specFor SpecFunc[T], fn func(View[T])) *Follower {
	f := &Follower{stop: make(chan struct{}), done: make(chan struct{})}
	snaps, unwatch := sess.Watch()

	go func() {
		defer close(f.done)
		defer unwatch()

		var (
			sub     docstore.Subscription
			current session.Scope
			opened  bool
		)
		teardown := func() {
			if sub != nil {
				sub.Unsubscribe()
				sub = nil
			}
		}
		defer teardown()

		for {
			select {
			case <-ctx.Done():
				return
			case <-f.stop:
				return
			case snap, ok := <-snaps:
				if !ok {
					return
				}
				if !snap.State.Settled() {
					continue
				}
				scope := snap.Scope()
				if opened && scope == current {
					continue
				}
				teardown()
				current, opened = scope, true

				spec, err := specFor(snap)
				if err != nil {
					fn(View[T]{Err: err})
					continue
				}
				slog.Debug("feed_event", "event", "subscribe", "feed", spec.Name, "role", scope.Role.String(), "uid", scope.UserID)
				sub, err = Open(ctx, store, spec, fn)
				if err != nil {
					fn(View[T]{Err: err})
				}
			}
		}
	}()
	return f
}

// Get runs the feed once for snap.
func Get[T any](ctx context.Context, snap session.Snapshot, store docstore.Store, specFor SpecFunc[T]) (View[T], error) {
	spec, err := specFor(snap)
	if err != nil {
		return View[T]{}, err
	}
	return First(ctx, store, spec)
}
