package docstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store for tests and local development.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]*memoryDoc
	seq         int64
	feed        Feed
	observer    Observer
	newID       func() string
	now         func() time.Time
	watcher     watcher
}

type memoryDoc struct {
	seq int64
	doc Document
}

// Compile-time check that *MemoryStore satisfies Store.
var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore(opts Options) *MemoryStore {
	s := &MemoryStore{
		collections: make(map[string]map[string]*memoryDoc),
		feed:        opts.Feed,
		observer:    opts.Observer,
		newID:       opts.NewID,
		now:         opts.Now,
	}
	if s.feed == nil {
		s.feed = NewLocalFeed()
	}
	if s.observer == nil {
		s.observer = nopObserver{}
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.watcher = watcher{feed: s.feed, observer: s.observer, query: s.query}
	return s
}

// Get returns one document.
func (s *MemoryStore) Get(ctx context.Context, collection, id string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.collections[collection][id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return cloneDoc(d.doc), nil
}

// Query returns matching documents in insertion order.
func (s *MemoryStore) Query(ctx context.Context, collection string, filters ...Filter) ([]Document, error) {
	prepared, err := prepareFilters(filters)
	if err != nil {
		return nil, err
	}
	return s.query(ctx, collection, prepared)
}

func (s *MemoryStore) query(ctx context.Context, collection string, filters []Filter) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	matched := make([]*memoryDoc, 0, len(s.collections[collection]))
	for _, d := range s.collections[collection] {
		if MatchAll(d.doc.Fields, filters) {
			matched = append(matched, d)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].seq < matched[j].seq })
	out := make([]Document, len(matched))
	for i, d := range matched {
		out[i] = cloneDoc(d.doc)
	}
	s.mu.RUnlock()
	return out, nil
}

// Add stores fields under a generated id.
func (s *MemoryStore) Add(ctx context.Context, collection string, fields map[string]any) (string, error) {
	id := s.newID()
	if err := s.Create(ctx, collection, id, fields); err != nil {
		return "", err
	}
	return id, nil
}

// Create stores fields under id if it is free.
func (s *MemoryStore) Create(ctx context.Context, collection, id string, fields map[string]any) error {
	if err := s.check(ctx, id); err != nil {
		return err
	}
	normalized, err := normalizeFields(fields)
	if err != nil {
		return err
	}
	s.mu.Lock()
	if _, ok := s.collections[collection][id]; ok {
		s.mu.Unlock()
		return ErrAlreadyExists
	}
	s.put(collection, id, normalized, time.Time{})
	s.mu.Unlock()
	s.feed.Publish(ctx, Change{Collection: collection, ID: id, Kind: ChangeCreated})
	return nil
}

// Set replaces or inserts the document at id.
func (s *MemoryStore) Set(ctx context.Context, collection, id string, fields map[string]any) error {
	if err := s.check(ctx, id); err != nil {
		return err
	}
	normalized, err := normalizeFields(fields)
	if err != nil {
		return err
	}
	s.mu.Lock()
	kind := ChangeCreated
	var created time.Time
	if existing, ok := s.collections[collection][id]; ok {
		kind = ChangeUpdated
		created = existing.doc.CreatedAt
	}
	s.put(collection, id, normalized, created)
	s.mu.Unlock()
	s.feed.Publish(ctx, Change{Collection: collection, ID: id, Kind: kind})
	return nil
}

// Update merges partial into an existing document.
func (s *MemoryStore) Update(ctx context.Context, collection, id string, partial map[string]any) error {
	return s.UpdateIf(ctx, collection, id, nil, partial)
}

// UpdateIf merges partial if every precondition holds.
func (s *MemoryStore) UpdateIf(ctx context.Context, collection, id string, preconditions []Filter, partial map[string]any) error {
	if err := s.check(ctx, id); err != nil {
		return err
	}
	prepared, err := prepareFilters(preconditions)
	if err != nil {
		return err
	}
	patch, err := normalizeFields(partial)
	if err != nil {
		return err
	}
	s.mu.Lock()
	d, ok := s.collections[collection][id]
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	if !MatchAll(d.doc.Fields, prepared) {
		s.mu.Unlock()
		return ErrPreconditionFailed
	}
	fields := copyFields(d.doc.Fields)
	mergePatch(fields, patch)
	d.doc.Fields = fields
	d.doc.UpdatedAt = s.now()
	s.mu.Unlock()
	s.feed.Publish(ctx, Change{Collection: collection, ID: id, Kind: ChangeUpdated})
	return nil
}

// Delete removes the document at id.
func (s *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	if err := s.check(ctx, id); err != nil {
		return err
	}
	s.mu.Lock()
	_, ok := s.collections[collection][id]
	delete(s.collections[collection], id)
	s.mu.Unlock()
	if ok {
		s.feed.Publish(ctx, Change{Collection: collection, ID: id, Kind: ChangeDeleted})
	}
	return nil
}

// Subscribe opens a live query.
func (s *MemoryStore) Subscribe(ctx context.Context, collection string, filters []Filter, fn func(Snapshot)) (Subscription, error) {
	return s.watcher.subscribe(ctx, collection, filters, fn)
}

func (s *MemoryStore) check(ctx context.Context, id string) error {
	if id == "" {
		return ErrEmptyID
	}
	return ctx.Err()
}

// put stores a document. Caller holds s.mu.
func (s *MemoryStore) put(collection, id string, fields map[string]any, created time.Time) {
	now := s.now()
	if created.IsZero() {
		created = now
	}
	coll, ok := s.collections[collection]
	if !ok {
		coll = make(map[string]*memoryDoc)
		s.collections[collection] = coll
	}
	seq := s.seq
	if existing, ok := coll[id]; ok {
		seq = existing.seq
	} else {
		s.seq++
	}
	coll[id] = &memoryDoc{
		seq: seq,
		doc: Document{ID: id, Fields: fields, CreatedAt: created, UpdatedAt: now},
	}
}

func cloneDoc(d Document) Document {
	d.Fields = copyFields(d.Fields)
	return d
}
