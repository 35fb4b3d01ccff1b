// Package email delivers persisted notifications to their addressee's inbox.
package email

import (
	"context"
	"time"
)

// SendRequest is one outgoing notification email.
type SendRequest struct {
	To      []string // addressee inboxes
	From    string   // overrides the sender default when set
	Subject string
	HTML    string // rendered notification body
	Text    string // plain-text alternative
	ReplyTo string
	// Tags label the message at the provider, e.g. severity=warning.
	Tags map[string]string
}

// SendResult is the provider's acceptance of a SendRequest.
type SendResult struct {
	MessageID string
	SentAt    time.Time
}

// Sender delivers notification emails. Repair entries replay failed sends.
type Sender interface {
	Send(ctx context.Context, req SendRequest) (SendResult, error)
}
