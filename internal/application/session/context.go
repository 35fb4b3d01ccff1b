package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"sportify/internal/domain/account"
	"sportify/internal/domain/profile"
)

// ErrProfileNotFound is returned by a ProfileReader when no profile exists.
var ErrProfileNotFound = profile.ErrNotFound

// ProfileReader loads the profile for an identity.
type ProfileReader interface {
	GetProfile(ctx context.Context, userID string) (profile.Profile, error)
}

// ProfileWatcher is implemented by profile readers that can report changes
// to one stored profile. fn may run on another goroutine and must not block.
type ProfileWatcher interface {
	WatchProfile(ctx context.Context, userID string, fn func()) (stop func(), err error)
}

// Context is the state machine for one client. It is safe for concurrent use.
type Context struct {
	profiles ProfileReader
	watcher  ProfileWatcher // nil when profiles cannot be watched
	signOut  func(ctx context.Context) error
	refresh  chan struct{} // asks Run to re-resolve the current identity

	mu            sync.Mutex
	snap          Snapshot
	eventGen      uint64
	optimisticGen uint64 // eventGen when Optimistic last ran, 0 if none
	changed       chan struct{}
	watchers      map[uint64]chan Snapshot
	nextWatcher   uint64
}

// Option configures a Context.
type Option func(*Context)

// WithSignOut sets the function Logout uses to revoke the identity.
func WithSignOut(fn func(ctx context.Context) error) Option {
	return func(c *Context) { c.signOut = fn }
}

// New creates a Context in the Unresolved state.
func New(profiles ProfileReader, opts ...Option) *Context {
	c := &Context{
		profiles: profiles,
		refresh:  make(chan struct{}, 1),
		snap:     Snapshot{State: Unresolved},
		changed:  make(chan struct{}),
		watchers: make(map[uint64]chan Snapshot),
	}
	if w, ok := profiles.(ProfileWatcher); ok {
		c.watcher = w
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Current returns the latest snapshot.
func (c *Context) Current() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap.clone()
}

// Run applies every identity event from events until the channel closes or
// ctx is done. Each event starts its own resolution; a resolution that
// finishes after a newer event has begun is discarded. When the profile
// reader is a ProfileWatcher, every change to the followed identity's
// profile is resolved as a new event too, so role and assigned sport
// changes reach the session while it is open.
func (c *Context) Run(ctx context.Context, events <-chan *account.Identity) {
	var wg sync.WaitGroup
	defer wg.Wait()
	pw := &profileWatch{watcher: c.watcher}
	defer pw.stop()

	start := func(id *account.Identity) {
		gen := c.begin(id)
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.resolve(ctx, gen, id)
		}()
	}
	for {
		select {
		case <-ctx.Done():
			return
		case id, ok := <-events:
			if !ok {
				return
			}
			pw.follow(ctx, id, c.requestRefresh)
			start(id)
		case <-c.refresh:
			if id := c.Current().Identity; id != nil {
				slog.Debug("session_event", "event", "re_resolve", "uid", id.ID)
				start(id)
			}
		}
	}
}

// requestRefresh asks Run to resolve the current identity again.
func (c *Context) requestRefresh() {
	select {
	case c.refresh <- struct{}{}:
	default:
	}
}

// profileWatch holds the live watch on the followed identity's profile.
type profileWatch struct {
	watcher ProfileWatcher
	uid     string
	cancel  func()
}

func (w *profileWatch) follow(ctx context.Context, id *account.Identity, onChange func()) {
	if w.watcher == nil || (id != nil && id.ID == w.uid) {
		return
	}
	w.stop()
	if id == nil {
		return
	}
	cancel, err := w.watcher.WatchProfile(ctx, id.ID, onChange)
	if err != nil {
		slog.Warn("session_event", "event", "profile_watch_failed", "uid", id.ID, "error", err)
		return
	}
	w.uid, w.cancel = id.ID, cancel
}

func (w *profileWatch) stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.uid, w.cancel = "", nil
}

// IdentityChanged applies one identity event and waits for its resolution.
// POST: state reflects id unless a newer event superseded it meanwhile
func (c *Context) IdentityChanged(ctx context.Context, id *account.Identity) {
	gen := c.begin(id)
	c.resolve(ctx, gen, id)
}

// begin records a new identity event and returns its generation.
func (c *Context) begin(id *account.Identity) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.eventGen++
	gen := c.eventGen
	// Re-resolving the identity already shown keeps the settled state visible.
	sameSettled := id != nil && c.snap.Identity != nil && c.snap.Identity.ID == id.ID && c.snap.State.Settled()
	if id != nil && !sameSettled {
		c.transitionLocked(Snapshot{State: Resolving, Identity: copyIdentity(id), Generation: gen})
	}
	return gen
}

// resolve fetches the profile for id and applies the outcome if gen is
// still the latest event.
func (c *Context) resolve(ctx context.Context, gen uint64, id *account.Identity) {
	if id == nil {
		c.apply(gen, id, Snapshot{State: Anonymous, Generation: gen}, false)
		return
	}
	p, err := c.profiles.GetProfile(ctx, id.ID)
	switch {
	case err == nil && p.Role.IsTrusted():
		c.apply(gen, id, Snapshot{State: Authenticated, Identity: copyIdentity(id), Profile: &p, Generation: gen}, false)
	case err == nil:
		c.apply(gen, id, Snapshot{
			State:      Unrecognized,
			Identity:   copyIdentity(id),
			Profile:    &p,
			Notice:     "Your account does not have a recognized role. Contact an administrator.",
			Generation: gen,
		}, false)
	case errors.Is(err, ErrProfileNotFound):
		c.apply(gen, id, Snapshot{
			State:      Unrecognized,
			Identity:   copyIdentity(id),
			Notice:     "No profile was found for this account.",
			Generation: gen,
		}, false)
	default:
		slog.Warn("session_event", "event", "profile_fetch_failed", "uid", id.ID, "error", err)
		c.apply(gen, id, Snapshot{
			State:      Unrecognized,
			Identity:   copyIdentity(id),
			Notice:     "Permission denied while loading your profile.",
			Generation: gen,
		}, true)
	}
}

// apply commits next unless it is stale. fetchFailed marks resolutions that
// could not read the profile; those never replace a provisional profile for
// the same identity.
func (c *Context) apply(gen uint64, id *account.Identity, next Snapshot, fetchFailed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.eventGen {
		slog.Debug("session_event", "event", "stale_resolution_discarded", "generation", gen, "latest", c.eventGen)
		return
	}
	if c.snap.Provisional {
		sameIdentity := id != nil && c.snap.Identity != nil && id.ID == c.snap.Identity.ID
		switch {
		case !sameIdentity && gen <= c.optimisticGen:
			slog.Debug("session_event", "event", "resolution_predates_login", "generation", gen)
			return
		case sameIdentity && fetchFailed:
			slog.Info("session_event", "event", "provisional_kept", "uid", id.ID)
			return
		case sameIdentity && next.Role() != c.snap.Role():
			slog.Info("session_event", "event", "provisional_role_corrected",
				"uid", id.ID, "provisional", c.snap.Role().String(), "resolved", next.Role().String())
		}
	}
	c.optimisticGen = 0
	c.transitionLocked(next)
}

// Optimistic pushes a provisional Authenticated state after a successful
// login flow has already read the profile. The next authoritative resolution
// for the same identity reconciles it. When the latest event already settled
// as Authenticated for this identity, the settled state stands; when it
// settled otherwise, a fresh resolution is requested to confirm the login.
func (c *Context) Optimistic(id account.Identity, p profile.Profile) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cur := c.snap
	settledLatest := cur.Identity != nil && cur.Identity.ID == id.ID &&
		cur.State.Settled() && !cur.Provisional && cur.Generation == c.eventGen
	if settledLatest && cur.State == Authenticated {
		slog.Debug("session_event", "event", "optimistic_skipped", "uid", id.ID, "generation", c.eventGen)
		return
	}
	c.optimisticGen = c.eventGen
	c.transitionLocked(Snapshot{
		State:       Authenticated,
		Identity:    &id,
		Profile:     &p,
		Provisional: true,
		Generation:  c.eventGen,
	})
	if settledLatest {
		c.requestRefresh()
	}
}

// Logout revokes the identity (when a sign-out function is configured), then
// moves to Anonymous without waiting for the identity stream.
func (c *Context) Logout(ctx context.Context) error {
	if c.signOut != nil {
		if err := c.signOut(ctx); err != nil {
			return err
		}
	}
	c.IdentityChanged(ctx, nil)
	return nil
}

// Await blocks until the session has settled or ctx is done.
func (c *Context) Await(ctx context.Context) (Snapshot, error) {
	for {
		c.mu.Lock()
		snap := c.snap.clone()
		changed := c.changed
		c.mu.Unlock()
		if snap.State.Settled() {
			return snap, nil
		}
		select {
		case <-ctx.Done():
			return snap, ctx.Err()
		case <-changed:
		}
	}
}

// Watch streams snapshots, starting with the current one. A slow reader only
// sees the latest. The returned func closes the stream.
func (c *Context) Watch() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)
	c.mu.Lock()
	id := c.nextWatcher
	c.nextWatcher++
	c.watchers[id] = ch
	ch <- c.snap.clone()
	c.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			delete(c.watchers, id)
			close(ch)
		})
	}
}

func (c *Context) transitionLocked(next Snapshot) {
	prev := c.snap.State
	c.snap = next
	close(c.changed)
	c.changed = make(chan struct{})
	for _, ch := range c.watchers {
		select {
		case <-ch:
		default:
		}
		ch <- next.clone()
	}
	slog.Debug("session_event", "event", "transition", "from", prev.String(), "to", next.State.String(),
		"uid", next.UserID(), "role", next.Role().String(), "provisional", next.Provisional)
}

func copyIdentity(id *account.Identity) *account.Identity {
	cp := *id
	return &cp
}
