package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"sportify/internal/application/session"
)

// contextKey is an unexported type for context keys in this package.
type contextKey string

const clientContextKey contextKey = "client"

// SessionCookieName carries the identity token for browser clients.
const SessionCookieName = "sportify_session"

// DefaultResolveTimeout bounds how long a request waits for its session to settle.
const DefaultResolveTimeout = 5 * time.Second

// SecureCookies marks the session cookie Secure. Set in production.
var SecureCookies = false

// ClientAttacher resolves a token to its registered client.
type ClientAttacher interface {
	Attach(ctx context.Context, token string) (*session.Client, error)
}

// requestClient is what Auth stores on the request context.
type requestClient struct {
	client *session.Client
	snap   session.Snapshot
}

// Auth returns middleware that attaches the caller's client, waits for its
// session context to settle and stores both in the request context.
// It does NOT block unauthenticated requests; handlers check the snapshot.
func Auth(clients ClientAttacher, timeout time.Duration) func(http.Handler) http.Handler {
	if timeout <= 0 {
		timeout = DefaultResolveTimeout
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := requestToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			client, err := clients.Attach(r.Context(), token)
			if err != nil {
				slog.Debug("auth_event", "event", "token_rejected", "path", r.URL.Path, "error", err)
				next.ServeHTTP(w, r)
				return
			}
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			snap, err := client.Session.Await(ctx)
			cancel()
			if err != nil {
				slog.Warn("auth_event", "event", "session_unresolved", "session_id", client.SessionID, "error", err)
				snap = client.Session.Current()
			}
			r = r.WithContext(context.WithValue(r.Context(), clientContextKey, requestClient{client: client, snap: snap}))
			next.ServeHTTP(w, r)
		})
	}
}

// ClientFromContext returns the caller's registered client, if any.
func ClientFromContext(ctx context.Context) (*session.Client, bool) {
	rc, ok := ctx.Value(clientContextKey).(requestClient)
	if !ok || rc.client == nil {
		return nil, false
	}
	return rc.client, true
}

// SnapshotFromContext returns the caller's settled session snapshot.
// Requests without a usable token are Anonymous.
func SnapshotFromContext(ctx context.Context) session.Snapshot {
	rc, ok := ctx.Value(clientContextKey).(requestClient)
	if !ok {
		return session.Snapshot{State: session.Anonymous}
	}
	return rc.snap
}

// ContextWithClient returns a context carrying client and snap.
// Intended for use in tests.
func ContextWithClient(ctx context.Context, client *session.Client, snap session.Snapshot) context.Context {
	return context.WithValue(ctx, clientContextKey, requestClient{client: client, snap: snap})
}

func requestToken(r *http.Request) string {
	if t := bearerToken(r); t != "" {
		return t
	}
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// SetSessionCookie sets the session cookie on the response.
func SetSessionCookie(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		HttpOnly: true,
		Secure:   SecureCookies,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
		Expires:  expires,
	})
}

// ClearSessionCookie removes the session cookie.
func ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		HttpOnly: true,
		Secure:   SecureCookies,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
		MaxAge:   -1,
	})
}
