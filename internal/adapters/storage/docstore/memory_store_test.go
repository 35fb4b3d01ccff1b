package docstore

import (
	"testing"
)

// TestMemoryStore runs the store contract against the in-memory store.
func TestMemoryStore(t *testing.T) {
	runStoreContract(t, func(t *testing.T, feed Feed) Store {
		return NewMemoryStore(Options{Feed: feed})
	})
}

// TestMemoryStore_Isolation verifies callers cannot mutate stored documents.
func TestMemoryStore_Isolation(t *testing.T) {
	s := NewMemoryStore(Options{})
	fields := map[string]any{"tags": []any{"a"}}
	if err := s.Set(t.Context(), "c", "1", fields); err != nil {
		t.Fatalf("Set: %v", err)
	}
	fields["tags"] = []any{"mutated"}

	doc, _ := s.Get(t.Context(), "c", "1")
	doc.Fields["tags"] = "changed"

	again, _ := s.Get(t.Context(), "c", "1")
	tags, _ := again.Fields["tags"].([]any)
	if len(tags) != 1 || tags[0] != "a" {
		t.Errorf("stored document was mutated: %v", again.Fields)
	}
}
