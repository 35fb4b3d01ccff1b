// Package session is the Session/Authorization Context: one authoritative
// state machine per client that resolves an identity to a role-bearing
// profile and gates features on the result.
package session

import (
	"sportify/internal/domain/account"
	"sportify/internal/domain/fault"
	"sportify/internal/domain/profile"
	"sportify/internal/domain/role"
)

// State is the resolution state of a session.
type State int

const (
	Unresolved State = iota
	Resolving
	Authenticated
	Anonymous
	Unrecognized
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Unresolved:
		return "unresolved"
	case Resolving:
		return "resolving"
	case Authenticated:
		return "authenticated"
	case Anonymous:
		return "anonymous"
	case Unrecognized:
		return "unrecognized"
	default:
		return "unresolved"
	}
}

// Settled reports whether role-gated work may start.
func (s State) Settled() bool {
	switch s {
	case Authenticated, Anonymous, Unrecognized:
		return true
	case Unresolved, Resolving:
		return false
	default:
		return false
	}
}

// Snapshot is the session state at one point in time.
// Identity and Profile point at copies owned by the snapshot.
type Snapshot struct {
	State    State
	Identity *account.Identity
	Profile  *profile.Profile
	// Provisional marks a state pushed by a login flow that the next
	// authoritative resolution has not yet confirmed.
	Provisional bool
	// Notice is the user-facing explanation for an Unrecognized state.
	Notice string
	// Generation is the identity event the snapshot resolves.
	Generation uint64
}

// Role returns the resolved role; Unrecognized unless Authenticated.
func (s Snapshot) Role() role.Role {
	if s.State != Authenticated || s.Profile == nil {
		return role.Unrecognized
	}
	return s.Profile.Role
}

// UserID returns the identity id, or "" when signed out.
func (s Snapshot) UserID() string {
	if s.Identity == nil {
		return ""
	}
	return s.Identity.ID
}

// Scope is the subset of a snapshot that role-scoped queries depend on.
// It is comparable; a change means live queries must re-subscribe.
type Scope struct {
	State         State
	Role          role.Role
	UserID        string
	AssignedSport string
}

// Scope returns the query-determining inputs of s.
func (s Snapshot) Scope() Scope {
	sc := Scope{State: s.State, Role: s.Role(), UserID: s.UserID()}
	if s.Profile != nil && sc.Role == role.Coach {
		sc.AssignedSport = s.Profile.AssignedSport
	}
	return sc
}

// Require returns nil if the snapshot may use f, else a
// fault.KindAuthorization error. Unsettled sessions are denied.
func (s Snapshot) Require(f role.Feature) error {
	const op = "require_feature"
	switch s.State {
	case Authenticated:
		if s.Role().CanAccess(f) {
			return nil
		}
		return fault.Authorization(op, "Access Denied: your role cannot use "+f.String())
	case Anonymous:
		return fault.Authorization(op, "Access Denied: please sign in")
	case Unrecognized:
		return fault.Authorization(op, "Access Denied: your account has no recognized role")
	case Unresolved, Resolving:
		return fault.Authorization(op, "Access Denied: session is still resolving")
	default:
		return fault.Authorization(op, "Access Denied")
	}
}

// Actor is the caller identity handed to mutation workflows.
type Actor struct {
	UserID  string
	Email   string
	Role    role.Role
	Profile profile.Profile
}

// Actor returns the acting user for workflows, ok=false unless Authenticated.
func (s Snapshot) Actor() (Actor, bool) {
	if s.State != Authenticated || s.Identity == nil || s.Profile == nil {
		return Actor{}, false
	}
	return Actor{UserID: s.Identity.ID, Email: s.Identity.Email, Role: s.Profile.Role, Profile: *s.Profile}, true
}

func (s Snapshot) clone() Snapshot {
	if s.Identity != nil {
		id := *s.Identity
		s.Identity = &id
	}
	if s.Profile != nil {
		p := *s.Profile
		p.Achievements = append([]profile.Achievement(nil), p.Achievements...)
		s.Profile = &p
	}
	return s
}
