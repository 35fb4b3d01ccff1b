package profile

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"sportify/internal/domain/role"
)

// Max length constants for user-editable fields.
const (
	MaxNameLength             = 100
	MaxAchievementTitleLength = 200
)

var (
	phonePattern      = regexp.MustCompile(`^\d{10}$`)
	nationalIDPattern = regexp.MustCompile(`^\d{4}-\d{4}-\d{4}$`)
	yearPattern       = regexp.MustCompile(`^\d{4}$`)
)

// Domain errors
var (
	ErrNotFound           = errors.New("profile not found")
	ErrEmptyUserID        = errors.New("profile must belong to an identity")
	ErrEmptyName          = errors.New("name is required")
	ErrNameTooLong        = errors.New("name cannot exceed 100 characters")
	ErrInvalidPhone       = errors.New("phone number must be exactly 10 digits")
	ErrInvalidNationalID  = errors.New("aadhar number must be in the format 1234-5678-9012")
	ErrEmptyAchievement   = errors.New("achievement title is required")
	ErrAchievementTooLong = errors.New("achievement title cannot exceed 200 characters")
	ErrInvalidYear        = errors.New("achievement year must be a 4-digit year")
	ErrFutureYear         = errors.New("achievement year cannot be in the future")
	ErrUntrustedRole      = errors.New("profile role must be admin, coach or player")
)

// Achievement is a single entry on a player's record.
type Achievement struct {
	Title string `json:"title"`
	Year  string `json:"year"`
}

// Profile is the role-bearing record for one identity.
// Its document id is the identity id.
type Profile struct {
	ID            string        `json:"-"`
	Email         string        `json:"email,omitempty"`
	Role          role.Role     `json:"role"`
	Name          string        `json:"name"`
	PhoneNumber   string        `json:"phoneNumber"`
	Sport         string        `json:"sport"`
	DOB           string        `json:"dob"`
	AssignedSport string        `json:"assignedSport,omitempty"`
	Status        string        `json:"status,omitempty"`
	ApprovedAt    *time.Time    `json:"approvedAt,omitempty"`
	RegisteredAt  time.Time     `json:"registeredAt"`
	Achievements  []Achievement `json:"achievements,omitempty"`
}

// NewPlayer returns the profile created at self-registration.
// POST: Role is Player, contact fields are empty
func NewPlayer(id, email string, now time.Time) Profile {
	return Profile{
		ID:           id,
		Email:        email,
		Role:         role.Player,
		RegisteredAt: now,
	}
}

// Validate checks if the Profile has valid data.
// PRE: Profile struct is populated
// POST: Returns nil if valid, error otherwise
func (p *Profile) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return ErrEmptyUserID
	}
	if !p.Role.IsTrusted() {
		return ErrUntrustedRole
	}
	if len(p.Name) > MaxNameLength {
		return ErrNameTooLong
	}
	if p.PhoneNumber != "" {
		if err := ValidatePhone(p.PhoneNumber); err != nil {
			return err
		}
	}
	return nil
}

// DisplayName returns the name, falling back to the email for profiles
// that have not filled in their details yet.
func (p *Profile) DisplayName() string {
	if strings.TrimSpace(p.Name) != "" {
		return p.Name
	}
	if p.Email != "" {
		return p.Email
	}
	return p.ID
}

// ValidatePhone accepts exactly 10 ASCII digits.
func ValidatePhone(phone string) error {
	if !phonePattern.MatchString(phone) {
		return ErrInvalidPhone
	}
	return nil
}

// ValidateNationalID accepts only the grouped 4-4-4 digit form.
func ValidateNationalID(id string) error {
	if !nationalIDPattern.MatchString(id) {
		return ErrInvalidNationalID
	}
	return nil
}

// ValidateDetails checks the self-editable contact fields.
func ValidateDetails(name, phone string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	if len(name) > MaxNameLength {
		return ErrNameTooLong
	}
	return ValidatePhone(phone)
}

// Validate checks the achievement against the current year.
// PRE: now is the current time
// POST: Returns nil if the title is set and the year is a 4-digit year not after now
func (a Achievement) Validate(now time.Time) error {
	title := strings.TrimSpace(a.Title)
	if title == "" {
		return ErrEmptyAchievement
	}
	if len(title) > MaxAchievementTitleLength {
		return ErrAchievementTooLong
	}
	if !yearPattern.MatchString(a.Year) {
		return ErrInvalidYear
	}
	year, err := strconv.Atoi(a.Year)
	if err != nil {
		return ErrInvalidYear
	}
	if year > now.Year() {
		return ErrFutureYear
	}
	return nil
}
