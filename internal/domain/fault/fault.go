// Package fault classifies every error the core can surface to a user.
package fault

import (
	"errors"
	"fmt"
)

// Kind is the user-facing category of a failure.
type Kind int

const (
	// KindRemote covers store and identity-service failures (permission,
	// missing index, network). It is also the classification of unknown errors.
	KindRemote Kind = iota
	KindAuth
	KindAuthorization
	KindValidation
	KindConflict
	KindNotFound
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindAuthorization:
		return "authorization"
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindRemote:
		return "remote"
	default:
		return "remote"
	}
}

// Error is a classified failure.
type Error struct {
	Kind Kind
	Op   string // operation that failed, e.g. "review_application"
	Msg  string // user-facing message
	Err  error  // underlying cause, may be nil
}

// Error implements error.
func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	default:
		return e.Msg
	}
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// Auth reports invalid credentials or an unusable account.
func Auth(op, msg string, err error) error {
	return &Error{Kind: KindAuth, Op: op, Msg: msg, Err: err}
}

// Authorization reports a role that may not use the requested feature.
func Authorization(op, msg string) error {
	return &Error{Kind: KindAuthorization, Op: op, Msg: msg}
}

// Validation reports bad user input detected before any write.
func Validation(op string, err error) error {
	return &Error{Kind: KindValidation, Op: op, Msg: err.Error(), Err: err}
}

// Remote wraps a store or identity-service failure.
func Remote(op string, err error) error {
	return &Error{Kind: KindRemote, Op: op, Msg: "remote operation failed", Err: err}
}

// Conflict reports a transition rejected because its precondition no longer holds.
func Conflict(op, msg string, err error) error {
	return &Error{Kind: KindConflict, Op: op, Msg: msg, Err: err}
}

// NotFound reports a missing record the operation depends on.
func NotFound(op, msg string, err error) error {
	return &Error{Kind: KindNotFound, Op: op, Msg: msg, Err: err}
}

// KindOf classifies err. Unclassified errors are remote failures.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindRemote
}

// Is reports whether err is classified as k.
func Is(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}

// Message returns the user-facing message for err.
func Message(err error) string {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Msg
	}
	return "something went wrong, please try again"
}
