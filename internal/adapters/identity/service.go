// Package identity is the local identity service: credential accounts,
// signed session tokens and a per-session identity-change stream.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	accountStore "sportify/internal/adapters/storage/account"
	"sportify/internal/domain/account"
	"sportify/internal/domain/fault"
)

// DefaultTokenTTL is used when Options.TokenTTL is zero.
const DefaultTokenTTL = 24 * time.Hour

// Service errors. They reach callers wrapped in a fault.KindAuth error.
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountDisabled    = errors.New("account disabled")
	ErrAccountLocked      = errors.New("account temporarily locked")
	ErrInvalidToken       = errors.New("session token is invalid or expired")
	ErrSecretTooShort     = errors.New("token secret must be at least 32 bytes")
)

// Options configures a Service.
type Options struct {
	Secret   []byte
	Issuer   string
	TokenTTL time.Duration
	Now      func() time.Time
	NewID    func() string
}

// Service issues and verifies identities.
type Service struct {
	accounts accountStore.Store
	secret   []byte
	issuer   string
	ttl      time.Duration
	now      func() time.Time
	newID    func() string

	mu       sync.Mutex
	watchers map[string]map[*watcher]struct{} // by session id
}

type watcher struct {
	ch chan *account.Identity
}

// New creates a Service over the account store.
// PRE: len(opts.Secret) >= 32
func New(accounts accountStore.Store, opts Options) (*Service, error) {
	if len(opts.Secret) < 32 {
		return nil, ErrSecretTooShort
	}
	s := &Service{
		accounts: accounts,
		secret:   opts.Secret,
		issuer:   opts.Issuer,
		ttl:      opts.TokenTTL,
		now:      opts.Now,
		newID:    opts.NewID,
		watchers: make(map[string]map[*watcher]struct{}),
	}
	if s.issuer == "" {
		s.issuer = "sportify"
	}
	if s.ttl <= 0 {
		s.ttl = DefaultTokenTTL
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = func() string { return uuid.New().String() }
	}
	return s, nil
}

// SignUp creates an account and signs it in.
// PRE: password satisfies account.ValidatePassword
// POST: Account persisted; returns a live session
func (s *Service) SignUp(ctx context.Context, email, password string) (account.Session, error) {
	const op = "sign_up"
	acct := account.Account{
		ID:        s.newID(),
		Email:     account.NormalizeEmail(email),
		CreatedAt: s.now(),
	}
	if err := acct.Validate(); err != nil {
		return account.Session{}, fault.Validation(op, err)
	}
	if err := acct.SetPassword(password); err != nil {
		if errors.Is(err, account.ErrEmptyPassword) || errors.Is(err, account.ErrPasswordLength) || errors.Is(err, account.ErrPasswordStrength) {
			return account.Session{}, fault.Validation(op, err)
		}
		return account.Session{}, fault.Remote(op, err)
	}
	if err := s.accounts.Create(ctx, acct); err != nil {
		if errors.Is(err, accountStore.ErrEmailTaken) {
			return account.Session{}, fault.Auth(op, "an account with this email already exists", err)
		}
		return account.Session{}, fault.Remote(op, err)
	}
	slog.Info("auth_event", "event", "sign_up", "uid", acct.ID)
	return s.issue(acct.Identity(), s.newID())
}

// SignIn verifies credentials and issues a session.
// POST: failed attempts are counted; the account locks after account.MaxFailedLogins
func (s *Service) SignIn(ctx context.Context, email, password string) (account.Session, error) {
	const op = "sign_in"
	now := s.now()
	acct, err := s.accounts.GetByEmail(ctx, email)
	if errors.Is(err, accountStore.ErrNotFound) {
		slog.Info("auth_event", "event", "sign_in_failed", "reason", "unknown_email")
		return account.Session{}, fault.Auth(op, ErrInvalidCredentials.Error(), ErrInvalidCredentials)
	}
	if err != nil {
		return account.Session{}, fault.Remote(op, err)
	}
	if acct.Disabled {
		return account.Session{}, fault.Auth(op, "this account has been disabled", ErrAccountDisabled)
	}
	if acct.IsLocked(now) {
		slog.Warn("auth_event", "event", "sign_in_locked", "uid", acct.ID)
		return account.Session{}, fault.Auth(op, "too many failed attempts, try again later", ErrAccountLocked)
	}
	dirty := acct.FailedLogins > 0 || !acct.LockedUntil.IsZero()
	if !acct.LockedUntil.IsZero() {
		acct.ResetFailedLogins()
	}
	if err := acct.CheckPassword(password); err != nil {
		acct.RecordFailedLogin(now)
		if saveErr := s.accounts.Save(ctx, acct); saveErr != nil {
			slog.Error("auth_event", "event", "failed_login_not_recorded", "uid", acct.ID, "error", saveErr)
		}
		slog.Info("auth_event", "event", "sign_in_failed", "uid", acct.ID, "failed_logins", acct.FailedLogins)
		return account.Session{}, fault.Auth(op, ErrInvalidCredentials.Error(), ErrInvalidCredentials)
	}
	if dirty {
		acct.ResetFailedLogins()
		if err := s.accounts.Save(ctx, acct); err != nil {
			return account.Session{}, fault.Remote(op, err)
		}
	}
	slog.Info("auth_event", "event", "sign_in", "uid", acct.ID)
	return s.issue(acct.Identity(), s.newID())
}

// Verify checks a token and returns the identity it names.
// POST: revoked, expired, tampered or orphaned tokens fail with KindAuth
func (s *Service) Verify(ctx context.Context, token string) (account.Session, error) {
	const op = "verify_token"
	claims, err := parseToken(s.secret, s.issuer, strings.TrimSpace(token), s.now)
	if err != nil {
		return account.Session{}, fault.Auth(op, ErrInvalidToken.Error(), err)
	}
	revoked, err := s.accounts.IsRevoked(ctx, claims.ID)
	if err != nil {
		return account.Session{}, fault.Remote(op, err)
	}
	if revoked {
		return account.Session{}, fault.Auth(op, ErrInvalidToken.Error(), ErrInvalidToken)
	}
	acct, err := s.accounts.GetByID(ctx, claims.Subject)
	if errors.Is(err, accountStore.ErrNotFound) {
		return account.Session{}, fault.Auth(op, ErrInvalidToken.Error(), err)
	}
	if err != nil {
		return account.Session{}, fault.Remote(op, err)
	}
	if acct.Disabled {
		return account.Session{}, fault.Auth(op, "this account has been disabled", ErrAccountDisabled)
	}
	return account.Session{
		Token:     token,
		SessionID: claims.SessionID,
		Identity:  acct.Identity(),
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// SignOut revokes the token and emits nil to its session's watchers.
// Signing out an already revoked token is not an error.
func (s *Service) SignOut(ctx context.Context, token string) error {
	const op = "sign_out"
	claims, err := parseToken(s.secret, s.issuer, strings.TrimSpace(token), s.now)
	if err != nil {
		return fault.Auth(op, ErrInvalidToken.Error(), err)
	}
	if err := s.accounts.RevokeToken(ctx, claims.ID, claims.Subject, claims.ExpiresAt.Time); err != nil {
		return fault.Remote(op, err)
	}
	slog.Info("auth_event", "event", "sign_out", "uid", claims.Subject)
	s.emit(claims.SessionID, nil, true)
	return nil
}

// Refresh exchanges a valid token for a new one in the same session and
// re-emits the identity to the session's watchers.
func (s *Service) Refresh(ctx context.Context, token string) (account.Session, error) {
	const op = "refresh_token"
	current, err := s.Verify(ctx, token)
	if err != nil {
		return account.Session{}, err
	}
	claims, err := parseToken(s.secret, s.issuer, strings.TrimSpace(token), s.now)
	if err != nil {
		return account.Session{}, fault.Auth(op, ErrInvalidToken.Error(), err)
	}
	next, err := s.issue(current.Identity, current.SessionID)
	if err != nil {
		return account.Session{}, err
	}
	if err := s.accounts.RevokeToken(ctx, claims.ID, claims.Subject, claims.ExpiresAt.Time); err != nil {
		return account.Session{}, fault.Remote(op, err)
	}
	id := current.Identity
	s.emit(current.SessionID, &id, false)
	slog.Debug("auth_event", "event", "refresh", "uid", id.ID)
	return next, nil
}

// Watch streams identity changes for the session token belongs to. The
// current identity is delivered first; nil follows on sign-out and the
// channel is then closed. Slow readers only ever see the latest value.
// An invalid token yields a stream holding a single nil.
func (s *Service) Watch(ctx context.Context, token string) (<-chan *account.Identity, func()) {
	w := &watcher{ch: make(chan *account.Identity, 1)}
	sess, err := s.Verify(ctx, token)
	if err != nil {
		w.ch <- nil
		close(w.ch)
		return w.ch, func() {}
	}
	id := sess.Identity
	w.ch <- &id

	s.mu.Lock()
	set, ok := s.watchers[sess.SessionID]
	if !ok {
		set = make(map[*watcher]struct{})
		s.watchers[sess.SessionID] = set
	}
	set[w] = struct{}{}
	s.mu.Unlock()

	var once sync.Once
	return w.ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if set, ok := s.watchers[sess.SessionID]; ok {
				if _, live := set[w]; live {
					delete(set, w)
					close(w.ch)
				}
				if len(set) == 0 {
					delete(s.watchers, sess.SessionID)
				}
			}
		})
	}
}

// PurgeRevoked drops revocations of tokens that have expired anyway.
func (s *Service) PurgeRevoked(ctx context.Context) (int64, error) {
	return s.accounts.PurgeRevoked(ctx, s.now())
}

func (s *Service) issue(id account.Identity, sessionID string) (account.Session, error) {
	now := s.now()
	expires := now.Add(s.ttl)
	token, err := signToken(s.secret, Claims{
		Email:     id.Email,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        s.newID(),
			Subject:   id.ID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	})
	if err != nil {
		return account.Session{}, fault.Remote("issue_token", fmt.Errorf("sign token: %w", err))
	}
	return account.Session{Token: token, SessionID: sessionID, Identity: id, ExpiresAt: expires}, nil
}

// emit delivers v to every watcher of sessionID, replacing an unread value.
func (s *Service) emit(sessionID string, v *account.Identity, final bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.watchers[sessionID]
	for w := range set {
		select {
		case <-w.ch:
		default:
		}
		w.ch <- v
		if final {
			close(w.ch)
		}
	}
	if final {
		delete(s.watchers, sessionID)
	}
}
