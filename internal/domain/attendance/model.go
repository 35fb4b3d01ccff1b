package attendance

import (
	"errors"
	"strings"
	"time"
)

// Status constants
const (
	StatusPresent = "Present"
	StatusAbsent  = "Absent"
)

// Domain errors
var (
	ErrEmptyPlayer   = errors.New("attendance must be associated with a player")
	ErrEmptyCoach    = errors.New("attendance must be recorded by a coach")
	ErrInvalidStatus = errors.New("attendance status must be Present or Absent")
	ErrInvalidDate   = errors.New("attendance date must be YYYY-MM-DD")
	ErrFutureDate    = errors.New("attendance cannot be recorded for a future date")
)

// Record is one player's attendance for one session date.
// Its document id is RecordID(Date, PlayerID), so a pair is recorded once.
type Record struct {
	ID          string    `json:"-"`
	PlayerID    string    `json:"playerId"`
	PlayerName  string    `json:"playerName"`
	Sport       string    `json:"sport"`
	Status      string    `json:"status"`
	Date        string    `json:"date"` // YYYY-MM-DD
	CoachID     string    `json:"coachId"`
	CoachName   string    `json:"coachName"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// RecordID is the deterministic id for a (date, player) pair.
func RecordID(date, playerID string) string {
	return date + "_" + playerID
}

// ParseStatus normalizes a status value.
func ParseStatus(s string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "present":
		return StatusPresent, nil
	case "absent":
		return StatusAbsent, nil
	default:
		return "", ErrInvalidStatus
	}
}

// Validate checks if the Record has valid data.
// PRE: Record struct is initialized
// POST: Returns error if validation fails, nil otherwise
// INVARIANT: the date is not after now
func (r *Record) Validate(now time.Time) error {
	if strings.TrimSpace(r.PlayerID) == "" {
		return ErrEmptyPlayer
	}
	if strings.TrimSpace(r.CoachID) == "" {
		return ErrEmptyCoach
	}
	if r.Status != StatusPresent && r.Status != StatusAbsent {
		return ErrInvalidStatus
	}
	day, err := time.Parse(time.DateOnly, r.Date)
	if err != nil {
		return ErrInvalidDate
	}
	if day.After(now) {
		return ErrFutureDate
	}
	return nil
}

// IsPresent reports whether the player attended.
func (r *Record) IsPresent() bool {
	return r.Status == StatusPresent
}
