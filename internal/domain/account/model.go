package account

import (
	"errors"
	"strings"
	"time"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// Credential limits.
const (
	MaxEmailLength    = 254
	MinPasswordLength = 5
	MaxPasswordLength = 10
	MaxFailedLogins   = 5
	LockoutDuration   = 15 * time.Minute
)

// HashCost is the bcrypt cost used by SetPassword. Tests lower it.
var HashCost = 12

// Domain errors
var (
	ErrInvalidEmail     = errors.New("email must contain '@'")
	ErrEmptyEmail       = errors.New("email cannot be empty")
	ErrEmailTooLong     = errors.New("email cannot exceed 254 characters")
	ErrEmptyPassword    = errors.New("password cannot be empty")
	ErrPasswordLength   = errors.New("password must be 5 to 10 characters long")
	ErrPasswordStrength = errors.New("password must include an uppercase letter, a lowercase letter, a number and a special character")
	ErrWrongPassword    = errors.New("incorrect password")
)

// Identity is the authenticated subject: an opaque id plus its email.
type Identity struct {
	ID    string `json:"uid"`
	Email string `json:"email"`
}

// Session is an issued session token and the identity it carries. Tokens
// refreshed within one sign-in share the SessionID.
type Session struct {
	Token     string
	SessionID string
	Identity  Identity
	ExpiresAt time.Time
}

// Account holds the credentials behind one Identity.
type Account struct {
	ID           string
	Email        string
	PasswordHash string
	Disabled     bool
	CreatedAt    time.Time
	FailedLogins int
	LockedUntil  time.Time
}

// NormalizeEmail lowercases and trims an email for lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Validate checks if the Account has valid data.
// PRE: Account struct is populated
// POST: Returns nil if valid, error otherwise
func (a *Account) Validate() error {
	if strings.TrimSpace(a.Email) == "" {
		return ErrEmptyEmail
	}
	if len(a.Email) > MaxEmailLength {
		return ErrEmailTooLong
	}
	if !strings.Contains(a.Email, "@") {
		return ErrInvalidEmail
	}
	return nil
}

// Identity returns the public identity of the account.
func (a *Account) Identity() Identity {
	return Identity{ID: a.ID, Email: a.Email}
}

// ValidatePassword enforces the sign-up password rules.
// POST: Returns nil for 5-10 characters with upper, lower, digit and special
func ValidatePassword(plaintext string) error {
	if plaintext == "" {
		return ErrEmptyPassword
	}
	n := len([]rune(plaintext))
	if n < MinPasswordLength || n > MaxPasswordLength {
		return ErrPasswordLength
	}
	var upper, lower, digit, special bool
	for _, r := range plaintext {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			special = true
		}
	}
	if !upper || !lower || !digit || !special {
		return ErrPasswordStrength
	}
	return nil
}

// SetPassword validates and hashes a password using bcrypt.
// PRE: plaintext satisfies ValidatePassword
// POST: PasswordHash is set to bcrypt hash
func (a *Account) SetPassword(plaintext string) error {
	if err := ValidatePassword(plaintext); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), HashCost)
	if err != nil {
		return err
	}
	a.PasswordHash = string(hash)
	return nil
}

// CheckPassword verifies a plaintext password against the stored hash.
// PRE: PasswordHash is set
// INVARIANT: Account fields are not mutated
func (a *Account) CheckPassword(plaintext string) error {
	if a.PasswordHash == "" {
		return ErrWrongPassword
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(plaintext)); err != nil {
		return ErrWrongPassword
	}
	return nil
}

// IsLocked returns true if the account is locked out at now.
// INVARIANT: Account fields are not mutated
func (a *Account) IsLocked(now time.Time) bool {
	if a.LockedUntil.IsZero() {
		return false
	}
	return now.Before(a.LockedUntil)
}

// RecordFailedLogin increments the failed login counter and locks the account
// after MaxFailedLogins failures.
// POST: FailedLogins incremented; LockedUntil set once the limit is reached
func (a *Account) RecordFailedLogin(now time.Time) {
	a.FailedLogins++
	if a.FailedLogins >= MaxFailedLogins {
		a.LockedUntil = now.Add(LockoutDuration)
	}
}

// ResetFailedLogins clears the failed login counter and lock.
// POST: FailedLogins is 0, LockedUntil is zero
func (a *Account) ResetFailedLogins() {
	a.FailedLogins = 0
	a.LockedUntil = time.Time{}
}
