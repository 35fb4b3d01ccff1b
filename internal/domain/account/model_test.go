package account_test

import (
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"sportify/internal/domain/account"
)

func init() {
	account.HashCost = bcrypt.MinCost
}

// TestAccount_Validate tests validation of Account.
func TestAccount_Validate(t *testing.T) {
	tests := []struct {
		name    string
		account account.Account
		wantErr bool
	}{
		{"valid", account.Account{ID: "1", Email: "player@sportify.test"}, false},
		{"empty email", account.Account{ID: "2"}, true},
		{"no at sign", account.Account{ID: "3", Email: "not-an-email"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.account.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Account.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// TestValidatePassword tests the sign-up password rules.
func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		want     error
	}{
		{"valid", "Ab1!x", nil},
		{"valid 10 chars", "Abcdef12#$", nil},
		{"empty", "", account.ErrEmptyPassword},
		{"4 chars", "Ab1!", account.ErrPasswordLength},
		{"11 chars", "Abcdefg12#$", account.ErrPasswordLength},
		{"no upper", "ab1!xy", account.ErrPasswordStrength},
		{"no lower", "AB1!XY", account.ErrPasswordStrength},
		{"no digit", "Abc!xy", account.ErrPasswordStrength},
		{"no special", "Abc1xy", account.ErrPasswordStrength},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := account.ValidatePassword(tt.password); got != tt.want {
				t.Errorf("ValidatePassword(%q) = %v, want %v", tt.password, got, tt.want)
			}
		})
	}
}

// TestAccount_CheckPassword tests the CheckPassword method.
func TestAccount_CheckPassword(t *testing.T) {
	a := &account.Account{}
	if err := a.SetPassword("Secr3t!"); err != nil {
		t.Fatalf("SetPassword() failed: %v", err)
	}
	if a.PasswordHash == "Secr3t!" {
		t.Fatal("SetPassword() should hash the password, not store plaintext")
	}

	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"correct password", "Secr3t!", false},
		{"wrong password", "Secr3t?", true},
		{"empty password", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := a.CheckPassword(tt.password)
			if (err != nil) != tt.wantErr {
				t.Errorf("CheckPassword() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// TestAccount_CheckPassword_NoHash tests CheckPassword with no hash set.
func TestAccount_CheckPassword_NoHash(t *testing.T) {
	a := &account.Account{}
	if err := a.CheckPassword("Secr3t!"); err == nil {
		t.Error("CheckPassword() should fail when no hash is set")
	}
}

// TestAccount_Lockout tests failed-login lockout and its expiry.
func TestAccount_Lockout(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	a := &account.Account{}

	for i := 0; i < account.MaxFailedLogins-1; i++ {
		a.RecordFailedLogin(now)
		if a.IsLocked(now) {
			t.Fatalf("account should not be locked after %d failures", i+1)
		}
	}

	a.RecordFailedLogin(now)
	if !a.IsLocked(now) {
		t.Error("account should be locked after 5 failures")
	}
	if a.IsLocked(now.Add(account.LockoutDuration + time.Second)) {
		t.Error("lock should expire after the lockout duration")
	}

	a.ResetFailedLogins()
	if a.FailedLogins != 0 || a.IsLocked(now) {
		t.Error("account should not be locked after reset")
	}
}
