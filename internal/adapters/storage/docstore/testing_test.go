package docstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// storeFactory builds a fresh store sharing feed.
type storeFactory func(t *testing.T, feed Feed) Store

// recorder collects snapshots delivered to a subscription.
type recorder struct {
	mu    sync.Mutex
	snaps []Snapshot
	ch    chan Snapshot
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan Snapshot, 64)}
}

func (r *recorder) fn(s Snapshot) {
	r.mu.Lock()
	r.snaps = append(r.snaps, s)
	r.mu.Unlock()
	r.ch <- s
}

func (r *recorder) next(t *testing.T) Snapshot {
	t.Helper()
	select {
	case s := <-r.ch:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return Snapshot{}
	}
}

// waitFor reads snapshots until one satisfies ok.
func (r *recorder) waitFor(t *testing.T, ok func(Snapshot) bool) Snapshot {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case s := <-r.ch:
			if ok(s) {
				return s
			}
		case <-deadline:
			t.Fatal("timed out waiting for matching snapshot")
			return Snapshot{}
		}
	}
}

func ids(docs []Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.ID
	}
	return out
}

// runStoreContract exercises the behaviour every Store must share.
func runStoreContract(t *testing.T, newStore storeFactory) {
	ctx := context.Background()
	const coll = "artifacts/test/pending_applications"

	t.Run("create get and conflict", func(t *testing.T) {
		s := newStore(t, NewLocalFeed())
		if err := s.Create(ctx, coll, "a1", map[string]any{"status": "Pending Review", "sport": "Football"}); err != nil {
			t.Fatalf("Create: %v", err)
		}
		if err := s.Create(ctx, coll, "a1", map[string]any{"status": "x"}); !errors.Is(err, ErrAlreadyExists) {
			t.Errorf("expected ErrAlreadyExists, got %v", err)
		}
		doc, err := s.Get(ctx, coll, "a1")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if doc.Fields["status"] != "Pending Review" {
			t.Errorf("status = %v", doc.Fields["status"])
		}
		if _, err := s.Get(ctx, coll, "missing"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("add generates ids", func(t *testing.T) {
		s := newStore(t, NewLocalFeed())
		id1, err := s.Add(ctx, coll, map[string]any{"n": 1})
		if err != nil {
			t.Fatalf("Add: %v", err)
		}
		id2, _ := s.Add(ctx, coll, map[string]any{"n": 2})
		if id1 == "" || id1 == id2 {
			t.Errorf("expected distinct ids, got %q %q", id1, id2)
		}
	})

	t.Run("filters", func(t *testing.T) {
		s := newStore(t, NewLocalFeed())
		s.Set(ctx, coll, "a", map[string]any{"status": "Pending", "spots": 10, "targetUserIds": []string{"u1", "u2"}, "open": true})
		s.Set(ctx, coll, "b", map[string]any{"status": "Pending Review", "spots": 5, "targetUserIds": []string{"all"}})
		s.Set(ctx, coll, "c", map[string]any{"status": "Approved", "spots": 10, "targetUserIds": "u1"})
		s.Set(ctx, "artifacts/other/pending_applications", "d", map[string]any{"status": "Pending"})

		tests := []struct {
			name    string
			filters []Filter
			want    []string
		}{
			{"eq string", []Filter{Eq("status", "Pending")}, []string{"a"}},
			{"eq number", []Filter{Eq("spots", 10)}, []string{"a", "c"}},
			{"eq bool", []Filter{Eq("open", true)}, []string{"a"}},
			{"in", []Filter{In("status", "Pending", "Pending Review")}, []string{"a", "b"}},
			{"array contains", []Filter{ArrayContains("targetUserIds", "u1")}, []string{"a"}},
			{"array contains any", []Filter{ArrayContainsAny("targetUserIds", "u2", "all")}, []string{"a", "b"}},
			{"conjunction", []Filter{Eq("spots", 10), In("status", "Approved")}, []string{"c"}},
			{"missing field", []Filter{Eq("nope", "x")}, []string{}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				docs, err := s.Query(ctx, coll, tt.filters...)
				if err != nil {
					t.Fatalf("Query: %v", err)
				}
				got := map[string]bool{}
				for _, id := range ids(docs) {
					got[id] = true
				}
				if len(got) != len(tt.want) {
					t.Fatalf("got %v, want %v", ids(docs), tt.want)
				}
				for _, id := range tt.want {
					if !got[id] {
						t.Errorf("missing %q in %v", id, ids(docs))
					}
				}
			})
		}

		if _, err := s.Query(ctx, coll, Eq("bad field; DROP", 1)); !errors.Is(err, ErrInvalidFilter) {
			t.Errorf("expected ErrInvalidFilter, got %v", err)
		}
		if _, err := s.Query(ctx, coll, In[string]("status")); !errors.Is(err, ErrInvalidFilter) {
			t.Errorf("expected ErrInvalidFilter for empty In, got %v", err)
		}
	})

	t.Run("update merges", func(t *testing.T) {
		s := newStore(t, NewLocalFeed())
		s.Set(ctx, coll, "p", map[string]any{"name": "Asha", "meta": map[string]any{"a": 1, "b": 2}, "drop": "x"})
		err := s.Update(ctx, coll, "p", map[string]any{"sport": "Football", "meta": map[string]any{"b": 3}, "drop": nil})
		if err != nil {
			t.Fatalf("Update: %v", err)
		}
		doc, _ := s.Get(ctx, coll, "p")
		if doc.Fields["name"] != "Asha" || doc.Fields["sport"] != "Football" {
			t.Errorf("unexpected fields %v", doc.Fields)
		}
		meta, _ := doc.Fields["meta"].(map[string]any)
		if meta["a"] != float64(1) || meta["b"] != float64(3) {
			t.Errorf("nested merge failed: %v", meta)
		}
		if _, ok := doc.Fields["drop"]; ok {
			t.Error("nil should remove the key")
		}
		if err := s.Update(ctx, coll, "missing", map[string]any{"x": 1}); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("conditional update", func(t *testing.T) {
		s := newStore(t, NewLocalFeed())
		s.Set(ctx, coll, "a1", map[string]any{"status": "Pending Review"})
		pending := []Filter{In("status", "Pending", "Pending Review")}

		if err := s.UpdateIf(ctx, coll, "a1", pending, map[string]any{"status": "Approved"}); err != nil {
			t.Fatalf("first UpdateIf: %v", err)
		}
		err := s.UpdateIf(ctx, coll, "a1", pending, map[string]any{"status": "Rejected"})
		if !errors.Is(err, ErrPreconditionFailed) {
			t.Fatalf("expected ErrPreconditionFailed, got %v", err)
		}
		doc, _ := s.Get(ctx, coll, "a1")
		if doc.Fields["status"] != "Approved" {
			t.Errorf("status = %v, want Approved", doc.Fields["status"])
		}
		if err := s.UpdateIf(ctx, coll, "nope", pending, map[string]any{"status": "Approved"}); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("concurrent conditional updates", func(t *testing.T) {
		s := newStore(t, NewLocalFeed())
		s.Set(ctx, coll, "a1", map[string]any{"status": "Pending"})
		pending := []Filter{In("status", "Pending", "Pending Review")}

		var wg sync.WaitGroup
		var mu sync.Mutex
		wins := 0
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := s.UpdateIf(ctx, coll, "a1", pending, map[string]any{"status": "Approved"}); err == nil {
					mu.Lock()
					wins++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		if wins != 1 {
			t.Errorf("expected exactly one winning transition, got %d", wins)
		}
	})

	t.Run("delete", func(t *testing.T) {
		s := newStore(t, NewLocalFeed())
		s.Set(ctx, coll, "x", map[string]any{"a": 1})
		if err := s.Delete(ctx, coll, "x"); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if err := s.Delete(ctx, coll, "x"); err != nil {
			t.Errorf("second Delete should be a no-op, got %v", err)
		}
		if _, err := s.Get(ctx, coll, "x"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("subscribe delivers snapshots", func(t *testing.T) {
		s := newStore(t, NewLocalFeed())
		s.Set(ctx, coll, "a", map[string]any{"status": "Pending"})

		rec := newRecorder()
		sub, err := s.Subscribe(ctx, coll, []Filter{In("status", "Pending", "Pending Review")}, rec.fn)
		if err != nil {
			t.Fatalf("Subscribe: %v", err)
		}
		first := rec.next(t)
		if first.Err != nil || len(first.Docs) != 1 {
			t.Fatalf("unexpected initial snapshot %+v", first)
		}

		s.Set(ctx, coll, "b", map[string]any{"status": "Pending Review"})
		rec.waitFor(t, func(s Snapshot) bool { return len(s.Docs) == 2 })

		s.Update(ctx, coll, "a", map[string]any{"status": "Approved"})
		rec.waitFor(t, func(s Snapshot) bool { return len(s.Docs) == 1 && s.Docs[0].ID == "b" })

		sub.Unsubscribe()
		rec.mu.Lock()
		delivered := len(rec.snaps)
		rec.mu.Unlock()

		s.Set(ctx, coll, "c", map[string]any{"status": "Pending"})
		time.Sleep(50 * time.Millisecond)
		rec.mu.Lock()
		after := len(rec.snaps)
		rec.mu.Unlock()
		if after != delivered {
			t.Errorf("snapshot delivered after Unsubscribe returned")
		}
		sub.Unsubscribe()
	})

	t.Run("subscribe stops on context cancel", func(t *testing.T) {
		s := newStore(t, NewLocalFeed())
		cctx, cancel := context.WithCancel(ctx)
		rec := newRecorder()
		sub, err := s.Subscribe(cctx, coll, nil, rec.fn)
		if err != nil {
			t.Fatalf("Subscribe: %v", err)
		}
		rec.next(t)
		cancel()
		done := make(chan struct{})
		go func() { sub.Unsubscribe(); close(done) }()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("Unsubscribe blocked after cancel")
		}
	})

	t.Run("subscribe rejects bad filters", func(t *testing.T) {
		s := newStore(t, NewLocalFeed())
		if _, err := s.Subscribe(ctx, coll, []Filter{Eq("", 1)}, func(Snapshot) {}); !errors.Is(err, ErrInvalidFilter) {
			t.Errorf("expected ErrInvalidFilter, got %v", err)
		}
	})

	t.Run("shared feed reaches other store handles", func(t *testing.T) {
		feed := NewLocalFeed()
		writer := newStore(t, feed)
		rec := newRecorder()
		sub, err := writer.Subscribe(ctx, coll, nil, rec.fn)
		if err != nil {
			t.Fatalf("Subscribe: %v", err)
		}
		defer sub.Unsubscribe()
		rec.next(t)
		feed.Publish(ctx, Change{Collection: coll, ID: "external", Kind: ChangeUpdated})
		rec.next(t)
	})
}
