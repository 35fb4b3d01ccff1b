// Package outbox records secondary writes that failed after their workflow's
// primary write committed, so the partial state can be detected and repaired.
package outbox

import (
	"errors"
	"time"
)

// Status constants for repair entry lifecycle.
const (
	StatusPending   = "pending"
	StatusRetrying  = "retrying"
	StatusDone      = "done"
	StatusFailed    = "failed"
	StatusAbandoned = "abandoned"
)

// Action types, one per repairable secondary write.
const (
	ActionProfileApproval   = "profile_approval"
	ActionRosterSync        = "roster_sync"
	ActionProfileCreate     = "profile_create"
	ActionProfileSync       = "profile_sync"
	ActionNotificationEmail = "notification_email"
)

// DefaultMaxAttempts applies when an entry is created without a limit.
const DefaultMaxAttempts = 5

// Domain errors.
var (
	ErrEmptyActionType = errors.New("action type is required")
	ErrEmptyPayload    = errors.New("payload is required")
	ErrEmptyWorkflow   = errors.New("workflow is required")
	ErrNotRetryable    = errors.New("entry cannot be retried")
)

// Entry is one pending compensating action.
type Entry struct {
	ID              string    `json:"-"`
	Workflow        string    `json:"workflow"`   // e.g. "review_application"
	ActionType      string    `json:"actionType"` // one of the Action constants
	Subject         string    `json:"subject"`    // id of the record left inconsistent
	Payload         string    `json:"payload"`    // JSON payload for replay
	Status          string    `json:"status"`
	Attempts        int       `json:"attempts"`
	MaxAttempts     int       `json:"maxAttempts"`
	LastAttemptedAt time.Time `json:"lastAttemptedAt"`
	CreatedAt       time.Time `json:"createdAt"`
	ErrorMessage    string    `json:"errorMessage,omitempty"`
}

// Validate checks that the Entry has valid data.
// PRE: Entry struct is populated
// POST: Returns nil if valid, error otherwise; MaxAttempts defaulted
func (e *Entry) Validate() error {
	if e.ActionType == "" {
		return ErrEmptyActionType
	}
	if e.Workflow == "" {
		return ErrEmptyWorkflow
	}
	if e.Payload == "" {
		return ErrEmptyPayload
	}
	if e.CreatedAt.IsZero() {
		return errors.New("created_at must be set")
	}
	if e.MaxAttempts <= 0 {
		e.MaxAttempts = DefaultMaxAttempts
	}
	if e.Status == "" {
		e.Status = StatusPending
	}
	return nil
}

// CanRetry returns true if the entry can be retried.
// POST: Returns true for pending/retrying/failed with attempts < max
func (e *Entry) CanRetry() bool {
	return (e.Status == StatusPending || e.Status == StatusRetrying || e.Status == StatusFailed) &&
		e.Attempts < e.MaxAttempts
}

// IsTerminal returns true if the entry has reached a terminal state.
// POST: Returns true for done, abandoned, or failed at max attempts
func (e *Entry) IsTerminal() bool {
	switch e.Status {
	case StatusDone, StatusAbandoned:
		return true
	case StatusFailed:
		return e.Attempts >= e.MaxAttempts
	default:
		return false
	}
}

// IsDue reports whether the backoff after the last attempt has elapsed at now.
func (e *Entry) IsDue(now time.Time, baseDelay, maxDelay time.Duration) bool {
	if !e.CanRetry() {
		return false
	}
	if e.LastAttemptedAt.IsZero() {
		return true
	}
	return !now.Before(e.LastAttemptedAt.Add(e.NextRetryDelay(baseDelay, maxDelay)))
}

// MarkAttempt records a retry attempt.
// PRE: CanRetry is true
// POST: Attempts incremented, LastAttemptedAt updated, status set to retrying
func (e *Entry) MarkAttempt(now time.Time) error {
	if !e.CanRetry() {
		return ErrNotRetryable
	}
	e.Attempts++
	e.LastAttemptedAt = now
	e.Status = StatusRetrying
	return nil
}

// MarkSuccess marks the repair complete.
// POST: Status set to done, ErrorMessage cleared
func (e *Entry) MarkSuccess() {
	e.Status = StatusDone
	e.ErrorMessage = ""
}

// MarkFailed records the attempt's error.
// POST: ErrorMessage set; status becomes failed once attempts are exhausted
func (e *Entry) MarkFailed(err error) {
	e.ErrorMessage = err.Error()
	if e.Attempts >= e.MaxAttempts {
		e.Status = StatusFailed
	}
}

// MarkAbandoned marks the entry as abandoned by an admin.
// POST: Status set to abandoned
func (e *Entry) MarkAbandoned() {
	e.Status = StatusAbandoned
}

// NextRetryDelay calculates the delay before the next retry attempt.
// Uses exponential backoff: 2^attempts * baseDelay, capped at maxDelay.
func (e *Entry) NextRetryDelay(baseDelay time.Duration, maxDelay time.Duration) time.Duration {
	if e.Attempts >= 30 {
		return maxDelay
	}
	delay := baseDelay * (1 << e.Attempts)
	if delay > maxDelay || delay <= 0 {
		return maxDelay
	}
	return delay
}
