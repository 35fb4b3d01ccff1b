package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"sportify/internal/application/toast"
	"sportify/internal/domain/account"
)

// DefaultIdleTTL is how long an unused client stays registered.
const DefaultIdleTTL = 24 * time.Hour

// IdentityService is the identity surface the registry needs.
type IdentityService interface {
	Verify(ctx context.Context, token string) (account.Session, error)
	Watch(ctx context.Context, token string) (<-chan *account.Identity, func())
	SignOut(ctx context.Context, token string) error
}

// Client is one signed-in browser or device: its session context and its
// ephemeral notification bus.
type Client struct {
	SessionID string
	Session   *Context
	Toasts    *toast.Bus

	mu       sync.Mutex
	token    string
	lastSeen time.Time

	stop    context.CancelFunc
	stopped chan struct{}
}

// Token returns the most recent token presented for this client.
func (c *Client) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

func (c *Client) touch(token string, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
	c.lastSeen = now
}

func (c *Client) idleSince() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSeen
}

// RegistryOptions configures a Registry.
type RegistryOptions struct {
	ToastDuration time.Duration
	IdleTTL       time.Duration
	Now           func() time.Time
}

// Registry maps identity sessions to clients.
type Registry struct {
	identities IdentityService
	profiles   ProfileReader
	toastD     time.Duration
	idleTTL    time.Duration
	now        func() time.Time

	mu      sync.Mutex
	clients map[string]*Client
}

// NewRegistry creates an empty registry.
func NewRegistry(identities IdentityService, profiles ProfileReader, opts RegistryOptions) *Registry {
	r := &Registry{
		identities: identities,
		profiles:   profiles,
		toastD:     opts.ToastDuration,
		idleTTL:    opts.IdleTTL,
		now:        opts.Now,
		clients:    make(map[string]*Client),
	}
	if r.idleTTL <= 0 {
		r.idleTTL = DefaultIdleTTL
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r
}

// Attach returns the client for token, starting one if this is the first
// time its session is seen.
// PRE: token was issued by the identity service
// POST: the client's Context follows the identity stream of the session
func (r *Registry) Attach(ctx context.Context, token string) (*Client, error) {
	sess, err := r.identities.Verify(ctx, token)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.clients[sess.SessionID]; ok {
		c.touch(token, r.now())
		return c, nil
	}

	c := &Client{
		SessionID: sess.SessionID,
		Toasts:    toast.NewBus(r.toastD),
		token:     token,
		lastSeen:  r.now(),
		stopped:   make(chan struct{}),
	}
	c.Session = New(r.profiles, WithSignOut(func(ctx context.Context) error {
		return r.identities.SignOut(ctx, c.Token())
	}))

	runCtx, cancel := context.WithCancel(context.Background())
	c.stop = cancel
	events, unwatch := r.identities.Watch(ctx, token)
	go func() {
		defer close(c.stopped)
		defer unwatch()
		c.Session.Run(runCtx, events)
		r.remove(c)
	}()

	r.clients[sess.SessionID] = c
	slog.Info("session_event", "event", "client_attached", "session_id", sess.SessionID, "uid", sess.Identity.ID)
	return c, nil
}

// Lookup returns a registered client by session id.
func (r *Registry) Lookup(sessionID string) (*Client, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[sessionID]
	return c, ok
}

// Detach stops a client and waits for its resolution loop to exit.
func (r *Registry) Detach(sessionID string) {
	r.mu.Lock()
	c, ok := r.clients[sessionID]
	r.mu.Unlock()
	if !ok {
		return
	}
	c.stop()
	<-c.stopped
}

// Sweep detaches clients idle for longer than the idle TTL.
func (r *Registry) Sweep() int {
	cutoff := r.now().Add(-r.idleTTL)
	r.mu.Lock()
	var idle []string
	for id, c := range r.clients {
		if c.idleSince().Before(cutoff) {
			idle = append(idle, id)
		}
	}
	r.mu.Unlock()
	for _, id := range idle {
		r.Detach(id)
	}
	return len(idle)
}

// Len returns the number of registered clients.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// Close detaches every client.
func (r *Registry) Close() {
	r.mu.Lock()
	ids := make([]string, 0, len(r.clients))
	for id := range r.clients {
		ids = append(ids, id)
	}
	r.mu.Unlock()
	for _, id := range ids {
		r.Detach(id)
	}
}

func (r *Registry) remove(c *Client) {
	r.mu.Lock()
	if cur, ok := r.clients[c.SessionID]; ok && cur == c {
		delete(r.clients, c.SessionID)
	}
	r.mu.Unlock()
	c.Toasts.Close()
	slog.Info("session_event", "event", "client_detached", "session_id", c.SessionID)
}
