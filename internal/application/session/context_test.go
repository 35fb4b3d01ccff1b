package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"sportify/internal/domain/account"
	"sportify/internal/domain/fault"
	"sportify/internal/domain/profile"
	"sportify/internal/domain/role"
)

// mockProfiles is a hand-written ProfileReader. A gate, when set for a user,
// blocks GetProfile until it is closed.
type mockProfiles struct {
	mu       sync.Mutex
	profiles map[string]profile.Profile
	errs     map[string]error
	gates    map[string]chan struct{}
	entered  chan string
}

func newMockProfiles() *mockProfiles {
	return &mockProfiles{
		profiles: make(map[string]profile.Profile),
		errs:     make(map[string]error),
		gates:    make(map[string]chan struct{}),
		entered:  make(chan string, 16),
	}
}

func (m *mockProfiles) put(id string, r role.Role) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[id] = profile.Profile{ID: id, Email: id + "@example.com", Role: r}
}

func (m *mockProfiles) GetProfile(ctx context.Context, id string) (profile.Profile, error) {
	m.mu.Lock()
	gate := m.gates[id]
	m.mu.Unlock()
	m.entered <- id
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return profile.Profile{}, ctx.Err()
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.errs[id]; err != nil {
		return profile.Profile{}, err
	}
	p, ok := m.profiles[id]
	if !ok {
		return profile.Profile{}, ErrProfileNotFound
	}
	return p, nil
}

func ident(id string) *account.Identity {
	return &account.Identity{ID: id, Email: id + "@example.com"}
}

// TestResolution tests the outcome of a single identity event.
func TestResolution(t *testing.T) {
	profiles := newMockProfiles()
	profiles.put("admin1", role.Admin)
	profiles.put("weird", role.Unrecognized)
	profiles.errs["denied"] = errors.New("permission denied")

	tests := []struct {
		name  string
		id    *account.Identity
		state State
		role  role.Role
	}{
		{"signed out", nil, Anonymous, role.Unrecognized},
		{"profile found", ident("admin1"), Authenticated, role.Admin},
		{"no profile", ident("ghost"), Unrecognized, role.Unrecognized},
		{"garbled role", ident("weird"), Unrecognized, role.Unrecognized},
		{"fetch failed", ident("denied"), Unrecognized, role.Unrecognized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(profiles)
			c.IdentityChanged(context.Background(), tt.id)
			snap := c.Current()
			if snap.State != tt.state {
				t.Errorf("state = %v, want %v", snap.State, tt.state)
			}
			if snap.Role() != tt.role {
				t.Errorf("role = %v, want %v", snap.Role(), tt.role)
			}
			if tt.state == Unrecognized && snap.Notice == "" {
				t.Error("expected a notice for unrecognized sessions")
			}
		})
	}
}

// TestStaleResolutionDiscarded verifies last-event-wins ordering.
func TestStaleResolutionDiscarded(t *testing.T) {
	profiles := newMockProfiles()
	profiles.put("slow", role.Admin)
	profiles.put("fast", role.Player)
	gate := make(chan struct{})
	profiles.gates["slow"] = gate

	c := New(profiles)
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.IdentityChanged(context.Background(), ident("slow"))
	}()
	<-profiles.entered // the slow fetch is in flight

	c.IdentityChanged(context.Background(), ident("fast"))
	<-profiles.entered
	close(gate)
	<-done

	snap := c.Current()
	if snap.UserID() != "fast" || snap.Role() != role.Player {
		t.Errorf("stale resolution won: uid=%q role=%v", snap.UserID(), snap.Role())
	}
}

// TestOptimistic_Reconciled verifies the authoritative profile replaces a
// provisional one for the same identity.
func TestOptimistic_Reconciled(t *testing.T) {
	profiles := newMockProfiles()
	profiles.put("u1", role.Coach)
	c := New(profiles)

	c.Optimistic(*ident("u1"), profile.Profile{ID: "u1", Role: role.Admin})
	if snap := c.Current(); !snap.Provisional || snap.Role() != role.Admin {
		t.Fatalf("expected provisional admin, got %+v", snap)
	}

	c.IdentityChanged(context.Background(), ident("u1"))
	snap := c.Current()
	if snap.Provisional || snap.Role() != role.Coach {
		t.Errorf("expected reconciled coach, got provisional=%v role=%v", snap.Provisional, snap.Role())
	}
}

// TestOptimistic_KeptOnFetchFailure verifies a failed re-read does not
// demote a provisional login.
func TestOptimistic_KeptOnFetchFailure(t *testing.T) {
	profiles := newMockProfiles()
	profiles.errs["u1"] = errors.New("network down")
	c := New(profiles)

	c.Optimistic(*ident("u1"), profile.Profile{ID: "u1", Role: role.Player})
	c.IdentityChanged(context.Background(), ident("u1"))
	if snap := c.Current(); snap.State != Authenticated || snap.Role() != role.Player {
		t.Errorf("provisional state lost: %+v", snap)
	}
}

// TestOptimistic_OlderEventIgnored verifies a resolution that began before
// the login cannot overwrite it.
func TestOptimistic_OlderEventIgnored(t *testing.T) {
	c := New(newMockProfiles())
	gen := c.begin(nil)
	c.Optimistic(*ident("u1"), profile.Profile{ID: "u1", Role: role.Player})
	c.resolve(context.Background(), gen, nil)

	if snap := c.Current(); snap.State != Authenticated || snap.UserID() != "u1" {
		t.Errorf("older anonymous resolution overwrote login: %+v", snap)
	}
}

// TestAwait verifies Await blocks while resolving and returns once settled.
func TestAwait(t *testing.T) {
	profiles := newMockProfiles()
	profiles.put("u1", role.Player)
	gate := make(chan struct{})
	profiles.gates["u1"] = gate
	c := New(profiles)

	go c.IdentityChanged(context.Background(), ident("u1"))
	<-profiles.entered

	if got := c.Current().State; got != Resolving {
		t.Fatalf("state = %v, want resolving", got)
	}

	short, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := c.Await(short); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline while resolving, got %v", err)
	}

	close(gate)
	snap, err := c.Await(context.Background())
	if err != nil || snap.State != Authenticated {
		t.Errorf("Await = %v, %v", snap.State, err)
	}
}

// TestWatch verifies watchers see the latest snapshot.
func TestWatch(t *testing.T) {
	profiles := newMockProfiles()
	profiles.put("u1", role.Player)
	c := New(profiles)

	ch, cancel := c.Watch()
	defer cancel()
	if first := <-ch; first.State != Unresolved {
		t.Errorf("first state = %v", first.State)
	}
	c.IdentityChanged(context.Background(), ident("u1"))
	if latest := <-ch; latest.State != Authenticated {
		t.Errorf("latest state = %v, want authenticated", latest.State)
	}
}

// TestLogout verifies sign-out runs and the session becomes anonymous.
func TestLogout(t *testing.T) {
	profiles := newMockProfiles()
	profiles.put("u1", role.Player)
	var signedOut bool
	c := New(profiles, WithSignOut(func(context.Context) error { signedOut = true; return nil }))
	c.IdentityChanged(context.Background(), ident("u1"))

	if err := c.Logout(context.Background()); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if !signedOut || c.Current().State != Anonymous {
		t.Errorf("signedOut=%v state=%v", signedOut, c.Current().State)
	}
}

// TestRequire verifies gating across states.
func TestRequire(t *testing.T) {
	admin := profile.Profile{ID: "a", Role: role.Admin}
	tests := []struct {
		name    string
		snap    Snapshot
		feature role.Feature
		allowed bool
	}{
		{"admin approves", Snapshot{State: Authenticated, Identity: ident("a"), Profile: &admin}, role.FeatureReviewApplications, true},
		{"admin cannot mark attendance", Snapshot{State: Authenticated, Identity: ident("a"), Profile: &admin}, role.FeatureMarkAttendance, false},
		{"anonymous", Snapshot{State: Anonymous}, role.FeatureReviewApplications, false},
		{"resolving", Snapshot{State: Resolving, Identity: ident("a")}, role.FeatureViewTrials, false},
		{"unrecognized", Snapshot{State: Unrecognized, Identity: ident("a")}, role.FeatureViewTrials, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.snap.Require(tt.feature)
			if tt.allowed && err != nil {
				t.Errorf("unexpected error %v", err)
			}
			if !tt.allowed && !fault.Is(err, fault.KindAuthorization) {
				t.Errorf("expected authorization error, got %v", err)
			}
		})
	}
}

// TestScope verifies only coaches carry an assigned sport.
func TestScope(t *testing.T) {
	coach := profile.Profile{ID: "c", Role: role.Coach, AssignedSport: "Basketball"}
	player := profile.Profile{ID: "p", Role: role.Player, AssignedSport: "Basketball"}
	if got := (Snapshot{State: Authenticated, Identity: ident("c"), Profile: &coach}).Scope(); got.AssignedSport != "Basketball" {
		t.Errorf("coach scope = %+v", got)
	}
	if got := (Snapshot{State: Authenticated, Identity: ident("p"), Profile: &player}).Scope(); got.AssignedSport != "" {
		t.Errorf("player scope = %+v", got)
	}
}

// TestOptimistic_SettledStateStands verifies a login cannot replace the
// settled role of the latest resolution for the same identity.
func TestOptimistic_SettledStateStands(t *testing.T) {
	profiles := newMockProfiles()
	profiles.put("u1", role.Coach)
	c := New(profiles)

	c.IdentityChanged(context.Background(), ident("u1"))
	c.Optimistic(*ident("u1"), profile.Profile{ID: "u1", Role: role.Admin})

	snap := c.Current()
	if snap.Provisional || snap.Role() != role.Coach {
		t.Errorf("expected settled coach, got provisional=%v role=%v", snap.Provisional, snap.Role())
	}
}

// TestOptimistic_UnrecognizedRequestsRefresh verifies a login over a settled
// unrecognized state goes provisional and asks for a fresh resolution.
func TestOptimistic_UnrecognizedRequestsRefresh(t *testing.T) {
	c := New(newMockProfiles())
	c.IdentityChanged(context.Background(), ident("u1"))
	if got := c.Current().State; got != Unrecognized {
		t.Fatalf("state = %v, want unrecognized", got)
	}

	c.Optimistic(*ident("u1"), profile.Profile{ID: "u1", Role: role.Player})
	if snap := c.Current(); !snap.Provisional || snap.Role() != role.Player {
		t.Errorf("expected provisional player, got %+v", snap)
	}
	select {
	case <-c.refresh:
	default:
		t.Error("expected a refresh request")
	}
}

// watchingProfiles is a mockProfiles that also reports profile changes.
type watchingProfiles struct {
	*mockProfiles
	wmu     sync.Mutex
	fns     map[string]func()
	stopped []string
}

func (w *watchingProfiles) WatchProfile(ctx context.Context, userID string, fn func()) (func(), error) {
	w.wmu.Lock()
	defer w.wmu.Unlock()
	w.fns[userID] = fn
	return func() {
		w.wmu.Lock()
		defer w.wmu.Unlock()
		delete(w.fns, userID)
		w.stopped = append(w.stopped, userID)
	}, nil
}

func (w *watchingProfiles) changed(userID string) bool {
	w.wmu.Lock()
	fn := w.fns[userID]
	w.wmu.Unlock()
	if fn == nil {
		return false
	}
	fn()
	return true
}

func waitForSnapshot(t *testing.T, c *Context, cond func(Snapshot) bool) Snapshot {
	t.Helper()
	ch, cancel := c.Watch()
	defer cancel()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case snap := <-ch:
			if cond(snap) {
				return snap
			}
		case <-deadline:
			t.Fatalf("timed out; last snapshot %+v", c.Current())
			return Snapshot{}
		}
	}
}

// TestRun_ProfileChangeReResolves verifies a change to the followed profile
// updates the role of an open session.
func TestRun_ProfileChangeReResolves(t *testing.T) {
	profiles := &watchingProfiles{mockProfiles: newMockProfiles(), fns: make(map[string]func())}
	go func() {
		for range profiles.entered {
		}
	}()
	profiles.put("u1", role.Admin)
	c := New(profiles)

	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan *account.Identity, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Run(ctx, events)
	}()

	events <- ident("u1")
	waitForSnapshot(t, c, func(s Snapshot) bool { return s.State == Authenticated && s.Role() == role.Admin })

	profiles.put("u1", role.Player)
	if !profiles.changed("u1") {
		t.Fatal("profile u1 is not watched")
	}
	snap := waitForSnapshot(t, c, func(s Snapshot) bool { return s.Role() == role.Player })
	if snap.Provisional || snap.State != Authenticated {
		t.Errorf("expected settled player, got %+v", snap)
	}

	events <- ident("u2")
	waitForSnapshot(t, c, func(s Snapshot) bool { return s.UserID() == "u2" && s.State.Settled() })
	cancel()
	<-done

	profiles.wmu.Lock()
	defer profiles.wmu.Unlock()
	if len(profiles.stopped) != 2 || profiles.stopped[0] != "u1" || profiles.stopped[1] != "u2" {
		t.Errorf("stopped watches = %v, want [u1 u2]", profiles.stopped)
	}
}
