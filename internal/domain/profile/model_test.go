package profile_test

import (
	"testing"
	"time"

	"sportify/internal/domain/profile"
	"sportify/internal/domain/role"
)

// TestValidatePhone tests the 10-digit phone rule.
func TestValidatePhone(t *testing.T) {
	tests := []struct {
		phone   string
		wantErr bool
	}{
		{"9876543210", false},
		{"987654321", true},
		{"98765432101", true},
		{"98765-4321", true},
		{"98765a3210", true},
		{"", true},
		{"٩٨٧٦٥٤٣٢١٠", true},
	}
	for _, tt := range tests {
		err := profile.ValidatePhone(tt.phone)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidatePhone(%q) error = %v, wantErr %v", tt.phone, err, tt.wantErr)
		}
	}
}

// TestValidateNationalID tests the grouped-digit pattern.
func TestValidateNationalID(t *testing.T) {
	tests := []struct {
		id      string
		wantErr bool
	}{
		{"1234-5678-9012", false},
		{"123456789012", true},
		{"1234-5678-901", true},
		{"1234-5678-90123", true},
		{"1234 5678 9012", true},
		{"abcd-5678-9012", true},
	}
	for _, tt := range tests {
		err := profile.ValidateNationalID(tt.id)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateNationalID(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
		}
	}
}

// TestProfile_Validate tests profile validation.
func TestProfile_Validate(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	p := profile.NewPlayer("u1", "p@example.com", now)
	if err := p.Validate(); err != nil {
		t.Fatalf("new player should be valid: %v", err)
	}
	if p.Role != role.Player {
		t.Errorf("expected player role, got %v", p.Role)
	}

	p.Role = role.Unrecognized
	if err := p.Validate(); err != profile.ErrUntrustedRole {
		t.Errorf("expected ErrUntrustedRole, got %v", err)
	}

	p.Role = role.Player
	p.PhoneNumber = "12345"
	if err := p.Validate(); err != profile.ErrInvalidPhone {
		t.Errorf("expected ErrInvalidPhone, got %v", err)
	}

	empty := profile.Profile{Role: role.Player}
	if err := empty.Validate(); err != profile.ErrEmptyUserID {
		t.Errorf("expected ErrEmptyUserID, got %v", err)
	}
}

// TestAchievement_Validate tests title and year rules.
func TestAchievement_Validate(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		a    profile.Achievement
		want error
	}{
		{"valid", profile.Achievement{Title: "State champion", Year: "2024"}, nil},
		{"current year", profile.Achievement{Title: "MVP", Year: "2026"}, nil},
		{"future year", profile.Achievement{Title: "MVP", Year: "2027"}, profile.ErrFutureYear},
		{"short year", profile.Achievement{Title: "MVP", Year: "24"}, profile.ErrInvalidYear},
		{"empty title", profile.Achievement{Title: "  ", Year: "2024"}, profile.ErrEmptyAchievement},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Validate(now); got != tt.want {
				t.Errorf("Validate = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestDisplayName tests the name fallbacks.
func TestDisplayName(t *testing.T) {
	p := profile.Profile{ID: "u1", Email: "p@example.com"}
	if got := p.DisplayName(); got != "p@example.com" {
		t.Errorf("expected email fallback, got %q", got)
	}
	p.Name = "Asha"
	if got := p.DisplayName(); got != "Asha" {
		t.Errorf("expected name, got %q", got)
	}
}
