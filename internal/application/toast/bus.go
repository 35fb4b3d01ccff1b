// Package toast is the ephemeral notification bus: short-lived, in-memory
// feedback entries that expire on their own.
package toast

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"sportify/internal/domain/notification"
)

// DefaultDuration is how long an entry lives unless told otherwise.
const DefaultDuration = 4000 * time.Millisecond

// Toast is one ephemeral entry.
type Toast struct {
	ID        string                `json:"id"`
	Message   string                `json:"message"`
	Type      notification.Severity `json:"type"`
	Duration  time.Duration         `json:"-"`
	CreatedAt time.Time             `json:"createdAt"`
	seq       uint64
}

// DurationMs is the configured lifetime in milliseconds.
func (t Toast) DurationMs() int64 { return t.Duration.Milliseconds() }

type entry struct {
	toast Toast
	timer *time.Timer
}

// listener serialises deliveries to one subscriber and drops snapshots
// older than the last one it delivered.
type listener struct {
	fn        func([]Toast)
	mu        sync.Mutex
	delivered bool
	last      uint64
}

func (l *listener) deliver(version uint64, list []Toast) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.delivered && version <= l.last {
		return
	}
	l.delivered, l.last = true, version
	l.fn(list)
}

// Bus is one client's ordered list of live toasts.
type Bus struct {
	mu        sync.Mutex
	defaultD  time.Duration
	now       func() time.Time
	seq       uint64
	version   uint64 // bumped on every change to entries
	entries   map[string]*entry
	listeners map[uint64]*listener
	nextL     uint64
	closed    bool
}

// NewBus creates a bus. A non-positive defaultDuration uses DefaultDuration.
func NewBus(defaultDuration time.Duration) *Bus {
	if defaultDuration <= 0 {
		defaultDuration = DefaultDuration
	}
	return &Bus{
		defaultD:  defaultDuration,
		now:       time.Now,
		entries:   make(map[string]*entry),
		listeners: make(map[uint64]*listener),
	}
}

// Publish appends a toast and schedules its removal after d
// (the bus default when d <= 0). Returns the new toast id.
func (b *Bus) Publish(message string, severity notification.Severity, d time.Duration) string {
	if d <= 0 {
		d = b.defaultD
	}
	if !severity.Valid() {
		severity = notification.SeverityInfo
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ""
	}
	b.seq++
	t := Toast{
		ID:        uuid.New().String(),
		Message:   message,
		Type:      severity,
		Duration:  d,
		CreatedAt: b.now(),
		seq:       b.seq,
	}
	e := &entry{toast: t}
	b.entries[t.ID] = e
	e.timer = time.AfterFunc(d, func() { b.Dismiss(t.ID) })
	version, snapshot, listeners := b.changedLocked()
	b.mu.Unlock()

	notify(listeners, version, snapshot)
	return t.ID
}

// Dismiss removes a toast now. Unknown ids are ignored.
func (b *Bus) Dismiss(id string) {
	b.mu.Lock()
	e, ok := b.entries[id]
	if !ok {
		b.mu.Unlock()
		return
	}
	e.timer.Stop()
	delete(b.entries, id)
	version, snapshot, listeners := b.changedLocked()
	b.mu.Unlock()

	notify(listeners, version, snapshot)
}

// List returns live toasts in publish order.
func (b *Bus) List() []Toast {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.listLocked()
}

// Subscribe calls fn with the current list and again after every change.
// Callbacks run outside the bus lock, one at a time, and never with a list
// older than one already delivered. fn must not publish to or dismiss from
// the bus. The returned func stops delivery.
func (b *Bus) Subscribe(fn func([]Toast)) (cancel func()) {
	l := &listener{fn: fn}
	b.mu.Lock()
	id := b.nextL
	b.nextL++
	b.listeners[id] = l
	version, current := b.version, b.listLocked()
	b.mu.Unlock()

	l.deliver(version, current)
	return func() {
		b.mu.Lock()
		delete(b.listeners, id)
		b.mu.Unlock()
	}
}

// Close stops every pending timer and drops all entries and listeners.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, e := range b.entries {
		e.timer.Stop()
		delete(b.entries, id)
	}
	clear(b.listeners)
	b.closed = true
}

func (b *Bus) listLocked() []Toast {
	out := make([]Toast, 0, len(b.entries))
	for _, e := range b.entries {
		out = append(out, e.toast)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

// changedLocked records a change and returns what its listeners receive.
func (b *Bus) changedLocked() (uint64, []Toast, []*listener) {
	b.version++
	listeners := make([]*listener, 0, len(b.listeners))
	for _, l := range b.listeners {
		listeners = append(listeners, l)
	}
	return b.version, b.listLocked(), listeners
}

func notify(listeners []*listener, version uint64, snapshot []Toast) {
	for _, l := range listeners {
		l.deliver(version, snapshot)
	}
}
