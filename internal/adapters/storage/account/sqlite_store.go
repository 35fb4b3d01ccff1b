package account

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"sportify/internal/adapters/storage"
	domain "sportify/internal/domain/account"
)

const dateLayout = "2006-01-02T15:04:05.999999999Z07:00"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// Compile-time check that *SQLiteStore satisfies Store.
var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new account store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

const selectAccount = "SELECT id, email, password_hash, disabled, created_at, failed_logins, locked_until FROM account"

// GetByID retrieves an Account by its ID.
// PRE: id is non-empty
// POST: Returns the entity or ErrNotFound
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Account, error) {
	return s.getOne(ctx, selectAccount+" WHERE id = ?", id)
}

// GetByEmail retrieves an Account by normalized email.
// PRE: email is non-empty
// POST: Returns the entity or ErrNotFound
func (s *SQLiteStore) GetByEmail(ctx context.Context, email string) (domain.Account, error) {
	return s.getOne(ctx, selectAccount+" WHERE email = ?", domain.NormalizeEmail(email))
}

func (s *SQLiteStore) getOne(ctx context.Context, query string, arg string) (domain.Account, error) {
	entity, err := scanAccount(s.db.QueryRowContext(ctx, query, arg).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Account{}, ErrNotFound
	}
	return entity, err
}

// Create inserts a new Account.
// PRE: entity has been validated and has a password hash
// POST: Entity is persisted, or ErrEmailTaken if the email is registered
func (s *SQLiteStore) Create(ctx context.Context, entity domain.Account) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO account (id, email, password_hash, disabled, created_at, failed_logins, locked_until)
		 VALUES (?, ?, ?, ?, ?, ?, ?) ON CONFLICT DO NOTHING`,
		entity.ID,
		domain.NormalizeEmail(entity.Email),
		entity.PasswordHash,
		entity.Disabled,
		entity.CreatedAt.UTC().Format(dateLayout),
		entity.FailedLogins,
		formatOptional(entity.LockedUntil),
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrEmailTaken
	}
	return nil
}

// Save updates mutable account state.
// PRE: entity exists
// POST: password hash, disabled flag and lockout fields are persisted
func (s *SQLiteStore) Save(ctx context.Context, entity domain.Account) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE account SET password_hash = ?, disabled = ?, failed_logins = ?, locked_until = ? WHERE id = ?`,
		entity.PasswordHash, entity.Disabled, entity.FailedLogins, formatOptional(entity.LockedUntil), entity.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the total number of accounts.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM account").Scan(&count)
	return count, err
}

// RevokeToken records a signed-out token id until it would have expired.
// POST: IsRevoked(tokenID) is true until PurgeRevoked passes expiresAt
func (s *SQLiteStore) RevokeToken(ctx context.Context, tokenID, accountID string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO revoked_token (token_id, account_id, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT(token_id) DO NOTHING`,
		tokenID, accountID, expiresAt.UTC().Format(dateLayout))
	return err
}

// IsRevoked reports whether tokenID was signed out.
func (s *SQLiteStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM revoked_token WHERE token_id = ?", tokenID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// PurgeRevoked deletes revocations for tokens that have expired anyway.
func (s *SQLiteStore) PurgeRevoked(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM revoked_token WHERE expires_at < ?", now.UTC().Format(dateLayout))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// scanAccount extracts an Account from a row scanner function.
func scanAccount(scan func(dest ...any) error) (domain.Account, error) {
	var entity domain.Account
	var createdAt string
	var lockedUntil sql.NullString
	err := scan(
		&entity.ID,
		&entity.Email,
		&entity.PasswordHash,
		&entity.Disabled,
		&createdAt,
		&entity.FailedLogins,
		&lockedUntil,
	)
	if err != nil {
		return domain.Account{}, err
	}
	entity.CreatedAt, _ = time.Parse(dateLayout, createdAt)
	if lockedUntil.Valid && lockedUntil.String != "" {
		entity.LockedUntil, _ = time.Parse(dateLayout, lockedUntil.String)
	}
	return entity, nil
}

func formatOptional(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(dateLayout)
}
