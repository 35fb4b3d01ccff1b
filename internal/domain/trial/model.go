package trial

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// MaxLocationLength bounds the free-text location.
const MaxLocationLength = 200

// Domain errors
var (
	ErrEmptySport    = errors.New("sport is required")
	ErrEmptyDate     = errors.New("trial date is required")
	ErrInvalidDate   = errors.New("trial date must be YYYY-MM-DD")
	ErrEmptyLocation = errors.New("location is required")
	ErrLocationLong  = errors.New("location cannot exceed 200 characters")
	ErrEmptyCoach    = errors.New("a coach must be assigned to the trial")
)

// Trial is an admin-scheduled selection event for one sport.
type Trial struct {
	ID          string    `json:"-"`
	Sport       string    `json:"sport"`
	Date        string    `json:"date"` // YYYY-MM-DD
	Location    string    `json:"location"`
	CoachID     string    `json:"coachId"`
	CoachName   string    `json:"coachName"`
	Description string    `json:"description,omitempty"` // markdown
	CreatedAt   time.Time `json:"createdAt"`
}

// Validate checks if the Trial has valid data.
// PRE: Trial struct is populated
// POST: Returns nil if valid, error otherwise
func (t *Trial) Validate() error {
	if strings.TrimSpace(t.Sport) == "" {
		return ErrEmptySport
	}
	if strings.TrimSpace(t.Date) == "" {
		return ErrEmptyDate
	}
	if _, err := time.Parse(time.DateOnly, t.Date); err != nil {
		return ErrInvalidDate
	}
	if strings.TrimSpace(t.Location) == "" {
		return ErrEmptyLocation
	}
	if len(t.Location) > MaxLocationLength {
		return ErrLocationLong
	}
	if strings.TrimSpace(t.CoachID) == "" {
		return ErrEmptyCoach
	}
	return nil
}

// Label is the human form used in notifications and applications.
func (t *Trial) Label() string {
	return fmt.Sprintf("%s on %s", t.Sport, t.Date)
}
