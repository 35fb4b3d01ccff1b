package notification

import (
	"errors"
	"strings"
	"time"

	"sportify/internal/domain/role"
)

// Severity is the tone of a notification.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// TargetAll addresses a notification to every role.
const TargetAll = "all"

// MaxMessageLength bounds the stored message.
const MaxMessageLength = 500

// Domain errors
var (
	ErrEmptyMessage    = errors.New("notification message is required")
	ErrMessageTooLong  = errors.New("notification message cannot exceed 500 characters")
	ErrInvalidSeverity = errors.New("severity must be one of: info, success, warning, error")
	ErrInvalidTarget   = errors.New("target role must be admin, coach, player or all")
)

// Notification is a persisted message addressed to a role and optionally one identity.
// An empty TargetUserID broadcasts to everyone with TargetRole.
type Notification struct {
	ID           string    `json:"-"`
	Message      string    `json:"message"`
	Type         Severity  `json:"type"`
	TargetRole   string    `json:"targetRole"`
	TargetUserID string    `json:"targetUserId,omitempty"`
	Related      string    `json:"related,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ParseSeverity maps stored values to a Severity, defaulting to info.
func ParseSeverity(s string) Severity {
	switch Severity(strings.ToLower(strings.TrimSpace(s))) {
	case SeveritySuccess:
		return SeveritySuccess
	case SeverityWarning:
		return SeverityWarning
	case SeverityError:
		return SeverityError
	default:
		return SeverityInfo
	}
}

// Valid reports whether s is one of the four severities.
func (s Severity) Valid() bool {
	switch s {
	case SeverityInfo, SeveritySuccess, SeverityWarning, SeverityError:
		return true
	default:
		return false
	}
}

// Validate checks if the Notification has valid data.
// PRE: Notification struct is populated
// POST: Returns nil if valid, error otherwise
func (n *Notification) Validate() error {
	if strings.TrimSpace(n.Message) == "" {
		return ErrEmptyMessage
	}
	if len(n.Message) > MaxMessageLength {
		return ErrMessageTooLong
	}
	if !n.Type.Valid() {
		return ErrInvalidSeverity
	}
	if n.TargetRole != TargetAll {
		if _, err := role.ParseStrict(n.TargetRole); err != nil {
			return ErrInvalidTarget
		}
	}
	return nil
}

// VisibleTo reports whether the notification is shown to a user with r and userID.
// INVARIANT: Notification fields are not mutated
func (n *Notification) VisibleTo(r role.Role, userID string) bool {
	if !r.IsTrusted() {
		return false
	}
	if n.TargetRole != TargetAll && role.Parse(n.TargetRole) != r {
		return false
	}
	return n.TargetUserID == "" || n.TargetUserID == userID
}

// ForUser builds a notification addressed to one identity.
func ForUser(r role.Role, userID, message string, severity Severity, related string, now time.Time) Notification {
	return Notification{
		Message:      message,
		Type:         severity,
		TargetRole:   r.String(),
		TargetUserID: userID,
		Related:      related,
		CreatedAt:    now,
	}
}
