package projections

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sort"

	"sportify/internal/adapters/storage/docstore"
	"sportify/internal/application/session"
	"sportify/internal/domain/fault"
	"sportify/internal/domain/profile"
)

// ErrUnknownFeed is returned for a feed name the catalog does not list.
var ErrUnknownFeed = errors.New("unknown feed")

// Update is one untyped delivery of a named feed, ready for JSON encoding.
type Update struct {
	Feed  string `json:"feed"`
	Items any    `json:"items,omitempty"`
	Error string `json:"error,omitempty"`
	Err   error  `json:"-"`
}

type opener func(ctx context.Context, sess *session.Context, store docstore.Store, fn func(Update)) *Follower

// Catalog names every live feed a client may stream.
type Catalog struct {
	store docstore.Store
	feeds map[string]opener
}

// NewCatalog registers the feature feeds for one tenant.
func NewCatalog(store docstore.Store, p docstore.Paths) *Catalog {
	c := &Catalog{store: store, feeds: make(map[string]opener)}
	register(c, "pending_applications", PendingApplications(p))
	register(c, "approved_applicants", ApprovedApplicants(p, ""))
	register(c, "players", PlayerDirectory(p))
	register(c, "coaches", Coaches(p))
	register(c, "roster", Roster(p))
	register(c, "trials", Trials(p))
	register(c, "schedules", Schedules(p))
	register(c, "notifications", Notifications(p))
	register(c, "results", TrialResults(p))
	register(c, "evaluations", Evaluations(p))
	register(c, "attendance", Attendance(p))
	return c
}

func register[T any](c *Catalog, name string, specFor SpecFunc[T]) {
	c.feeds[name] = func(ctx context.Context, sess *session.Context, store docstore.Store, fn func(Update)) *Follower {
		return Follow(ctx, sess, store, specFor, func(v View[T]) {
			u := Update{Feed: name, Err: v.Err}
			if v.Err != nil {
				u.Error = fault.Message(v.Err)
			} else {
				u.Items = v.Items
			}
			fn(u)
		})
	}
}

// Names lists the registered feeds in order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.feeds))
	for name := range c.feeds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Follow starts the named feed for sess.
func (c *Catalog) Follow(ctx context.Context, name string, sess *session.Context, fn func(Update)) (*Follower, error) {
	open, ok := c.feeds[name]
	if !ok {
		return nil, fault.NotFound("follow_feed", "no feed named "+name, ErrUnknownFeed)
	}
	return open(ctx, sess, c.store, fn), nil
}

// Profiles reads profile documents for the session context.
type Profiles struct {
	Store docstore.Store
	Paths docstore.Paths
}

// GetProfile implements session.ProfileReader.
func (p Profiles) GetProfile(ctx context.Context, userID string) (profile.Profile, error) {
	doc, err := p.Store.Get(ctx, p.Paths.Profiles(), userID)
	if errors.Is(err, docstore.ErrNotFound) {
		return profile.Profile{}, profile.ErrNotFound
	}
	if err != nil {
		return profile.Profile{}, err
	}
	return docstore.As[profile.Profile](doc)
}

// WatchProfile implements session.ProfileWatcher. fn runs once the watch is
// open and again whenever the stored profile for userID is written, created
// or deleted. Writes to other profiles are ignored.
func (p Profiles) WatchProfile(ctx context.Context, userID string, fn func()) (func(), error) {
	var (
		seen bool
		last string
	)
	sub, err := p.Store.Subscribe(ctx, p.Paths.Profiles(), nil, func(snap docstore.Snapshot) {
		if snap.Err != nil {
			slog.Warn("session_event", "event", "profile_watch_error", "uid", userID, "error", snap.Err)
			return
		}
		fp := profileFingerprint(snap.Docs, userID)
		if seen && fp == last {
			return
		}
		seen, last = true, fp
		fn()
	})
	if err != nil {
		return nil, err
	}
	return sub.Unsubscribe, nil
}

// profileFingerprint identifies the stored state of one profile; "" when absent.
func profileFingerprint(docs []docstore.Document, userID string) string {
	for _, d := range docs {
		if d.ID != userID {
			continue
		}
		b, err := json.Marshal(d.Fields)
		if err != nil {
			return d.UpdatedAt.String()
		}
		return d.UpdatedAt.String() + string(b)
	}
	return ""
}
