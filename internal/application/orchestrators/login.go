package orchestrators

import (
	"context"
	"errors"
	"log/slog"

	"sportify/internal/adapters/storage/docstore"
	"sportify/internal/application/session"
	"sportify/internal/domain/account"
	"sportify/internal/domain/fault"
	domainOutbox "sportify/internal/domain/outbox"
	"sportify/internal/domain/profile"
	"sportify/internal/domain/role"
)

// IdentitySignUp creates credential accounts.
type IdentitySignUp interface {
	SignUp(ctx context.Context, email, password string) (account.Session, error)
}

// IdentitySignIn verifies credentials and revokes sessions.
type IdentitySignIn interface {
	SignIn(ctx context.Context, email, password string) (account.Session, error)
	SignOut(ctx context.Context, token string) error
}

// IdentityRefresh exchanges a session token for a new one.
type IdentityRefresh interface {
	Refresh(ctx context.Context, token string) (account.Session, error)
}

// ClientAttacher starts or finds the client for a session token.
type ClientAttacher interface {
	Attach(ctx context.Context, token string) (*session.Client, error)
}

// --- Sign Up Player ---

// SignUpPlayerInput carries the self-registration form.
type SignUpPlayerInput struct {
	Email    string
	Password string
}

// SignUpPlayerDeps holds dependencies for SignUpPlayer.
type SignUpPlayerDeps struct {
	Deps
	Identity IdentitySignUp
}

// SignUpPlayerResult is the signed-in session and the new profile.
type SignUpPlayerResult struct {
	Result
	Session account.Session
	Profile profile.Profile
}

// ExecuteSignUpPlayer creates an account and its player profile.
// PRE: password satisfies the sign-up rules
// POST: Account exists; profile created, or a profile_create repair recorded
func ExecuteSignUpPlayer(ctx context.Context, input SignUpPlayerInput, deps SignUpPlayerDeps) (out SignUpPlayerResult, err error) {
	defer func() { err = deps.finish(WorkflowSignUp, out.Result, err) }()

	sess, err := deps.Identity.SignUp(ctx, input.Email, input.Password)
	if err != nil {
		return SignUpPlayerResult{}, err
	}
	out.Session = sess
	out.Profile = profile.NewPlayer(sess.Identity.ID, sess.Identity.Email, deps.now())

	fields, err := docstore.Encode(out.Profile)
	if err != nil {
		return SignUpPlayerResult{}, fault.Remote("sign_up_player", err)
	}
	w := DocumentWrite{Collection: deps.Paths.Profiles(), ID: out.Profile.ID, Fields: fields, Merge: true, Upsert: true}
	deps.secondaryWrite(ctx, WorkflowSignUp, domainOutbox.ActionProfileCreate, w, &out.Result,
		"your account was created but your profile is still being set up")

	slog.Info("auth_event", "event", "player_signed_up", "uid", sess.Identity.ID, "partial", out.Partial())
	return out, nil
}

// --- Portal Login ---

// PortalLoginInput carries the credentials and the portal they were entered on.
type PortalLoginInput struct {
	Portal   role.Role
	Email    string
	Password string
}

// PortalLoginDeps holds dependencies for PortalLogin.
type PortalLoginDeps struct {
	Deps
	Identity IdentitySignIn
	Clients  ClientAttacher
}

// PortalLoginResult is the session of a caller whose role matches the portal.
type PortalLoginResult struct {
	Session account.Session
	Profile profile.Profile
	Client  *session.Client
}

// ExecutePortalLogin signs in and admits the caller only if their stored
// role matches the portal.
// PRE: Portal is a trusted role
// POST: on success the client session is provisionally Authenticated with the
// read profile; on a role mismatch the identity is signed out again
func ExecutePortalLogin(ctx context.Context, input PortalLoginInput, deps PortalLoginDeps) (out PortalLoginResult, err error) {
	const op = "portal_login"
	defer func() { err = deps.finish(WorkflowPortalLogin, Result{}, err) }()

	if !input.Portal.IsTrusted() {
		return PortalLoginResult{}, fault.Validation(op, role.ErrUnknownRole)
	}
	sess, err := deps.Identity.SignIn(ctx, input.Email, input.Password)
	if err != nil {
		return PortalLoginResult{}, err
	}

	p, err := getDoc[profile.Profile](ctx, deps.Store, deps.Paths.Profiles(), sess.Identity.ID)
	switch {
	case errors.Is(err, docstore.ErrNotFound):
		signOutQuietly(ctx, deps.Identity, sess)
		return PortalLoginResult{}, fault.Authorization(op, "Access Denied: no profile is registered for this account")
	case err != nil:
		signOutQuietly(ctx, deps.Identity, sess)
		return PortalLoginResult{}, fault.Remote(op, err)
	}
	if p.Role != input.Portal {
		signOutQuietly(ctx, deps.Identity, sess)
		slog.Warn("auth_event", "event", "portal_role_mismatch", "uid", sess.Identity.ID, "portal", input.Portal.String(), "role", p.Role.String())
		return PortalLoginResult{}, fault.Authorization(op, "Access Denied: this account cannot use the "+input.Portal.String()+" portal")
	}

	client, err := deps.Clients.Attach(ctx, sess.Token)
	if err != nil {
		return PortalLoginResult{}, err
	}
	client.Session.Optimistic(sess.Identity, p)

	slog.Info("auth_event", "event", "portal_login", "uid", sess.Identity.ID, "portal", input.Portal.String(), "session_id", sess.SessionID)
	return PortalLoginResult{Session: sess, Profile: p, Client: client}, nil
}

func signOutQuietly(ctx context.Context, ids IdentitySignIn, sess account.Session) {
	if err := ids.SignOut(ctx, sess.Token); err != nil {
		slog.Error("auth_event", "event", "sign_out_failed", "uid", sess.Identity.ID, "error", err)
	}
}

// --- Logout ---

// ExecuteLogout revokes the client's identity and settles it as Anonymous.
// POST: the client's session token no longer verifies
func ExecuteLogout(ctx context.Context, client *session.Client) error {
	if client == nil {
		return nil
	}
	if err := client.Session.Logout(ctx); err != nil {
		return fault.Remote("logout", err)
	}
	slog.Info("auth_event", "event", "logout", "session_id", client.SessionID)
	return nil
}

// --- Refresh Session ---

// RefreshSessionDeps holds dependencies for RefreshSession.
type RefreshSessionDeps struct {
	Identity IdentityRefresh
	Clients  ClientAttacher
}

// RefreshSessionResult is the new token and the client now carrying it.
type RefreshSessionResult struct {
	Session account.Session
	Client  *session.Client
}

// ExecuteRefreshSession replaces the client's token with a fresh one.
// PRE: client holds a token that still verifies
// POST: the old token no longer verifies; the same client answers the new one
func ExecuteRefreshSession(ctx context.Context, client *session.Client, deps RefreshSessionDeps) (RefreshSessionResult, error) {
	const op = "refresh_session"
	if client == nil {
		return RefreshSessionResult{}, fault.Auth(op, "sign in to refresh your session", nil)
	}
	sess, err := deps.Identity.Refresh(ctx, client.Token())
	if err != nil {
		return RefreshSessionResult{}, err
	}
	next, err := deps.Clients.Attach(ctx, sess.Token)
	if err != nil {
		return RefreshSessionResult{}, err
	}
	if next.SessionID != client.SessionID {
		slog.Warn("auth_event", "event", "refresh_changed_client", "from", client.SessionID, "to", next.SessionID)
	}
	slog.Info("auth_event", "event", "session_refreshed", "uid", sess.Identity.ID, "session_id", sess.SessionID)
	return RefreshSessionResult{Session: sess, Client: next}, nil
}
