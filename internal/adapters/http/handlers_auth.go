package web

import (
	"net/http"
	"time"

	"sportify/internal/adapters/http/middleware"
	"sportify/internal/application/orchestrators"
	"sportify/internal/application/projections"
	"sportify/internal/domain/fault"
	"sportify/internal/domain/notification"
	"sportify/internal/domain/profile"
	"sportify/internal/domain/role"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// sessionBody answers a successful sign-in or sign-up.
type sessionBody struct {
	Token     string                           `json:"token"`
	ExpiresAt time.Time                        `json:"expiresAt"`
	Profile   projections.Item[profile.Profile] `json:"profile"`
	Warnings  []string                         `json:"warnings,omitempty"`
}

// handlePortalLogin handles POST /api/auth/{portal}/login
func (s *Server) handlePortalLogin(w http.ResponseWriter, r *http.Request) {
	portal, err := role.ParseStrict(r.PathValue("portal"))
	if err != nil {
		writeError(w, r, fault.NotFound("portal_login", "no such portal", err))
		return
	}
	var in credentials
	if !decodeOrReject(w, r, &in) {
		return
	}

	res, err := orchestrators.ExecutePortalLogin(r.Context(), orchestrators.PortalLoginInput{
		Portal:   portal,
		Email:    in.Email,
		Password: in.Password,
	}, orchestrators.PortalLoginDeps{Deps: s.deps, Identity: s.identity, Clients: s.clients})
	if err != nil {
		writeError(w, r, err)
		return
	}

	middleware.SetSessionCookie(w, res.Session.Token, res.Session.ExpiresAt)
	res.Client.Toasts.Publish("Welcome back!", notification.SeveritySuccess, 0)
	writeJSON(w, http.StatusOK, sessionBody{
		Token:     res.Session.Token,
		ExpiresAt: res.Session.ExpiresAt,
		Profile:   projections.Item[profile.Profile]{ID: res.Profile.ID, Value: res.Profile},
	})
}

// handleSignUp handles POST /api/auth/signup
func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if !decodeOrReject(w, r, &in) {
		return
	}
	res, err := orchestrators.ExecuteSignUpPlayer(r.Context(), orchestrators.SignUpPlayerInput{
		Email:    in.Email,
		Password: in.Password,
	}, orchestrators.SignUpPlayerDeps{Deps: s.deps, Identity: s.identity})
	if err != nil {
		writeError(w, r, err)
		return
	}

	if client, err := s.clients.Attach(r.Context(), res.Session.Token); err == nil {
		client.Toasts.Publish("Your account was created.", notification.SeveritySuccess, 0)
	}
	middleware.SetSessionCookie(w, res.Session.Token, res.Session.ExpiresAt)
	writeJSON(w, http.StatusCreated, sessionBody{
		Token:     res.Session.Token,
		ExpiresAt: res.Session.ExpiresAt,
		Profile:   projections.Item[profile.Profile]{ID: res.Profile.ID, Value: res.Profile},
		Warnings:  res.Warnings,
	})
}

// handleLogout handles POST /api/auth/logout
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	client, _ := middleware.ClientFromContext(r.Context())
	if err := orchestrators.ExecuteLogout(r.Context(), client); err != nil {
		writeError(w, r, err)
		return
	}
	middleware.ClearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// handleRefresh handles POST /api/auth/refresh
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	client, _ := middleware.ClientFromContext(r.Context())
	res, err := orchestrators.ExecuteRefreshSession(r.Context(), client, orchestrators.RefreshSessionDeps{
		Identity: s.identity,
		Clients:  s.clients,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	middleware.SetSessionCookie(w, res.Session.Token, res.Session.ExpiresAt)
	body := sessionBody{Token: res.Session.Token, ExpiresAt: res.Session.ExpiresAt}
	if p := res.Client.Session.Current().Profile; p != nil {
		body.Profile = projections.Item[profile.Profile]{ID: p.ID, Value: *p}
	}
	writeJSON(w, http.StatusOK, body)
}

// meBody describes the caller's session state.
type meBody struct {
	State       string                             `json:"state"`
	Role        string                             `json:"role"`
	UserID      string                             `json:"uid,omitempty"`
	Email       string                             `json:"email,omitempty"`
	Provisional bool                               `json:"provisional,omitempty"`
	Notice      string                             `json:"notice,omitempty"`
	Profile     *projections.Item[profile.Profile] `json:"profile,omitempty"`
}

// handleMe handles GET /api/me
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	snap := snapshot(r)
	body := meBody{
		State:       snap.State.String(),
		Role:        snap.Role().String(),
		UserID:      snap.UserID(),
		Provisional: snap.Provisional,
		Notice:      snap.Notice,
	}
	if snap.Identity != nil {
		body.Email = snap.Identity.Email
	}
	if snap.Profile != nil {
		body.Profile = &projections.Item[profile.Profile]{ID: snap.Profile.ID, Value: *snap.Profile}
	}
	writeJSON(w, http.StatusOK, body)
}
