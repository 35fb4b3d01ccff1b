package docstore

import (
	"context"
	"sync"
)

// ChangeKind is the kind of committed write.
type ChangeKind string

const (
	ChangeCreated ChangeKind = "created"
	ChangeUpdated ChangeKind = "updated"
	ChangeDeleted ChangeKind = "deleted"
)

// Change announces one committed write.
type Change struct {
	Collection string     `json:"collection"`
	ID         string     `json:"id"`
	Kind       ChangeKind `json:"kind"`
}

// Feed fans committed changes out to live queries.
type Feed interface {
	// Publish announces a change to every listener.
	Publish(ctx context.Context, c Change)
	// Listen registers fn and returns a function that removes it.
	// fn runs on the publisher's goroutine and must not block.
	Listen(fn func(Change)) (cancel func())
}

// LocalFeed is an in-process Feed.
type LocalFeed struct {
	mu        sync.RWMutex
	next      int
	listeners map[int]func(Change)
}

// NewLocalFeed creates an empty in-process feed.
func NewLocalFeed() *LocalFeed {
	return &LocalFeed{listeners: make(map[int]func(Change))}
}

// Publish calls every listener with c.
func (f *LocalFeed) Publish(_ context.Context, c Change) {
	f.mu.RLock()
	fns := make([]func(Change), 0, len(f.listeners))
	for _, fn := range f.listeners {
		fns = append(fns, fn)
	}
	f.mu.RUnlock()
	for _, fn := range fns {
		fn(c)
	}
}

// Listen registers fn.
func (f *LocalFeed) Listen(fn func(Change)) func() {
	f.mu.Lock()
	id := f.next
	f.next++
	f.listeners[id] = fn
	f.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.listeners, id)
			f.mu.Unlock()
		})
	}
}

// Listeners returns the number of registered listeners.
func (f *LocalFeed) Listeners() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.listeners)
}
