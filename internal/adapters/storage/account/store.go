package account

import (
	"context"
	"errors"
	"time"

	domain "sportify/internal/domain/account"
)

// Store errors.
var (
	ErrNotFound   = errors.New("account not found")
	ErrEmailTaken = errors.New("an account with this email already exists")
)

// Store persists identity accounts and revoked session tokens.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Account, error)
	GetByEmail(ctx context.Context, email string) (domain.Account, error)
	// Create inserts a new account, ErrEmailTaken if the email is registered.
	Create(ctx context.Context, value domain.Account) error
	// Save updates login bookkeeping and the disabled flag of an existing account.
	Save(ctx context.Context, value domain.Account) error
	Count(ctx context.Context) (int, error)
	RevokeToken(ctx context.Context, tokenID, accountID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
	PurgeRevoked(ctx context.Context, now time.Time) (int64, error)
}
