package role

import (
	"errors"
	"strings"
)

// Role is the closed set of roles a profile can carry.
// The zero value is Unrecognized so a missing or garbled role is never trusted.
type Role int

const (
	Unrecognized Role = iota
	Admin
	Coach
	Player
)

// legacyPlayer is the role value written by early player sign-ups.
const legacyPlayer = "user"

// ErrUnknownRole is returned by ParseStrict for values outside the closed set.
var ErrUnknownRole = errors.New("role must be one of: admin, coach, player")

// Parse maps a stored role string to a Role.
// Unknown values map to Unrecognized rather than failing.
func Parse(s string) Role {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "admin":
		return Admin
	case "coach":
		return Coach
	case "player", legacyPlayer:
		return Player
	default:
		return Unrecognized
	}
}

// ParseStrict is Parse for user input: anything but a trusted role is an error.
func ParseStrict(s string) (Role, error) {
	r := Parse(s)
	if !r.IsTrusted() {
		return Unrecognized, ErrUnknownRole
	}
	return r, nil
}

// String returns the stored form of the role.
func (r Role) String() string {
	switch r {
	case Admin:
		return "admin"
	case Coach:
		return "coach"
	case Player:
		return "player"
	case Unrecognized:
		return "unrecognized"
	default:
		return "unrecognized"
	}
}

// IsTrusted reports whether the role grants access to any feature.
func (r Role) IsTrusted() bool {
	switch r {
	case Admin, Coach, Player:
		return true
	case Unrecognized:
		return false
	default:
		return false
	}
}

// MarshalText implements encoding.TextMarshaler.
func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Role) UnmarshalText(text []byte) error {
	*r = Parse(string(text))
	return nil
}
