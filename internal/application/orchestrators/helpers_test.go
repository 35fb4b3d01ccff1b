package orchestrators

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"sportify/internal/adapters/email"
	"sportify/internal/adapters/storage/docstore"
	outboxStore "sportify/internal/adapters/storage/outbox"
	"sportify/internal/application/session"
	"sportify/internal/domain/account"
	"sportify/internal/domain/notification"
	domainOutbox "sportify/internal/domain/outbox"
	"sportify/internal/domain/profile"
	"sportify/internal/domain/role"
)

var fixedTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return fixedTime }

// seqIDs hands out predictable ids.
type seqIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

func (s *seqIDs) next() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("%s%d", s.prefix, s.n)
}

// mockRepairs is an in-memory repair log and outbox store.
type mockRepairs struct {
	mu      sync.Mutex
	entries map[string]domainOutbox.Entry
	saveErr error
}

var _ outboxStore.Store = (*mockRepairs)(nil)

func newMockRepairs() *mockRepairs {
	return &mockRepairs{entries: make(map[string]domainOutbox.Entry)}
}

func (m *mockRepairs) GetByID(_ context.Context, id string) (domainOutbox.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return domainOutbox.Entry{}, outboxStore.ErrNotFound
	}
	return e, nil
}

func (m *mockRepairs) Save(_ context.Context, e domainOutbox.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.entries[e.ID] = e
	return nil
}

func (m *mockRepairs) ListPending(_ context.Context, limit int) ([]domainOutbox.Entry, error) {
	return m.list(limit, func(e domainOutbox.Entry) bool {
		return e.Status == domainOutbox.StatusPending || e.Status == domainOutbox.StatusRetrying
	})
}

func (m *mockRepairs) ListUnresolved(_ context.Context, limit int) ([]domainOutbox.Entry, error) {
	return m.list(limit, func(e domainOutbox.Entry) bool {
		return e.Status != domainOutbox.StatusDone && e.Status != domainOutbox.StatusAbandoned
	})
}

func (m *mockRepairs) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, id)
	return nil
}

func (m *mockRepairs) list(limit int, keep func(domainOutbox.Entry) bool) ([]domainOutbox.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domainOutbox.Entry
	for _, e := range m.entries {
		if keep(e) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockRepairs) byAction(action string) []domainOutbox.Entry {
	all, _ := m.ListUnresolved(context.Background(), 1000)
	var out []domainOutbox.Entry
	for _, e := range all {
		if e.ActionType == action {
			out = append(out, e)
		}
	}
	return out
}

// flakyStore fails writes to the collections in fail.
type flakyStore struct {
	docstore.Store
	mu   sync.Mutex
	fail map[string]error
}

func (f *flakyStore) failWrites(collection string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail == nil {
		f.fail = make(map[string]error)
	}
	if err == nil {
		delete(f.fail, collection)
		return
	}
	f.fail[collection] = err
}

func (f *flakyStore) failure(collection string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fail[collection]
}

func (f *flakyStore) Add(ctx context.Context, collection string, fields map[string]any) (string, error) {
	if err := f.failure(collection); err != nil {
		return "", err
	}
	return f.Store.Add(ctx, collection, fields)
}

func (f *flakyStore) Set(ctx context.Context, collection, id string, fields map[string]any) error {
	if err := f.failure(collection); err != nil {
		return err
	}
	return f.Store.Set(ctx, collection, id, fields)
}

func (f *flakyStore) Update(ctx context.Context, collection, id string, partial map[string]any) error {
	if err := f.failure(collection); err != nil {
		return err
	}
	return f.Store.Update(ctx, collection, id, partial)
}

// mockMetrics records workflow outcomes.
type mockMetrics struct {
	mu       sync.Mutex
	outcomes map[string][]string
	repairs  map[string][]bool
}

func newMockMetrics() *mockMetrics {
	return &mockMetrics{outcomes: make(map[string][]string), repairs: make(map[string][]bool)}
}

func (m *mockMetrics) WorkflowOutcome(workflow, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes[workflow] = append(m.outcomes[workflow], outcome)
}

func (m *mockMetrics) RepairAttempt(action string, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.repairs[action] = append(m.repairs[action], ok)
}

func (m *mockMetrics) last(workflow string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	o := m.outcomes[workflow]
	if len(o) == 0 {
		return ""
	}
	return o[len(o)-1]
}

// fixture is a workflow environment over an in-memory store.
type fixture struct {
	deps    Deps
	store   *flakyStore
	repairs *mockRepairs
	metrics *mockMetrics
	mailer  *email.NoopSender
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	docIDs := &seqIDs{prefix: "doc-"}
	repairIDs := &seqIDs{prefix: "repair-"}
	mem := docstore.NewMemoryStore(docstore.Options{NewID: docIDs.next, Now: fixedNow})
	f := &fixture{
		store:   &flakyStore{Store: mem},
		repairs: newMockRepairs(),
		metrics: newMockMetrics(),
	}
	f.deps = Deps{
		Store:      f.store,
		Paths:      docstore.Paths{AppID: "test-app"},
		Repairs:    f.repairs,
		Metrics:    f.metrics,
		Now:        fixedNow,
		GenerateID: repairIDs.next,
	}
	return f
}

// withMailer makes notifications mail their addressee.
func (f *fixture) withMailer() *email.NoopSender {
	f.mailer = email.NewNoopSender()
	f.deps.Mailer = f.mailer
	f.deps.From = "Sportify <noreply@sportify.test>"
	return f.mailer
}

// putProfile stores p and returns an Authenticated snapshot for it.
func (f *fixture) putProfile(t *testing.T, p profile.Profile) session.Snapshot {
	t.Helper()
	fields, err := docstore.Encode(p)
	if err != nil {
		t.Fatalf("encode profile: %v", err)
	}
	if err := f.store.Store.Set(context.Background(), f.deps.Paths.Profiles(), p.ID, fields); err != nil {
		t.Fatalf("put profile: %v", err)
	}
	return session.Snapshot{
		State:    session.Authenticated,
		Identity: &account.Identity{ID: p.ID, Email: p.Email},
		Profile:  &p,
	}
}

func (f *fixture) admin(t *testing.T) session.Snapshot {
	return f.putProfile(t, profile.Profile{ID: "admin-1", Email: "admin@sportify.test", Role: role.Admin, Name: "Ada Admin", RegisteredAt: fixedTime})
}

func (f *fixture) coach(t *testing.T, sport string) session.Snapshot {
	return f.putProfile(t, profile.Profile{ID: "coach-1", Email: "coach@sportify.test", Role: role.Coach, Name: "Cleo Coach", AssignedSport: sport, RegisteredAt: fixedTime})
}

func (f *fixture) player(t *testing.T, id string) session.Snapshot {
	return f.putProfile(t, profile.Profile{ID: id, Email: id + "@sportify.test", Role: role.Player, RegisteredAt: fixedTime})
}

func (f *fixture) getProfile(t *testing.T, id string) profile.Profile {
	t.Helper()
	p, err := getDoc[profile.Profile](context.Background(), f.store, f.deps.Paths.Profiles(), id)
	if err != nil {
		t.Fatalf("get profile %s: %v", id, err)
	}
	return p
}

// notificationsFor returns the notifications addressed to userID.
func (f *fixture) notificationsFor(t *testing.T, userID string) []notification.Notification {
	t.Helper()
	docs, err := f.store.Query(context.Background(), f.deps.Paths.Notifications(), docstore.Eq("targetUserId", userID))
	if err != nil {
		t.Fatalf("query notifications: %v", err)
	}
	out := make([]notification.Notification, 0, len(docs))
	for _, d := range docs {
		n, err := docstore.As[notification.Notification](d)
		if err != nil {
			t.Fatalf("decode notification: %v", err)
		}
		out = append(out, n)
	}
	return out
}

func anonymous() session.Snapshot {
	return session.Snapshot{State: session.Anonymous}
}

// failingSender rejects every email.
type failingSender struct{ err error }

func (s failingSender) Send(context.Context, email.SendRequest) (email.SendResult, error) {
	return email.SendResult{}, s.err
}
