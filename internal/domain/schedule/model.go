package schedule

import (
	"errors"
	"strings"
	"time"
)

// AudienceAll opens a session to every player.
const AudienceAll = "all"

// Domain errors
var (
	ErrEmptySport    = errors.New("sport is required")
	ErrInvalidDate   = errors.New("date must be YYYY-MM-DD")
	ErrInvalidTime   = errors.New("time must be HH:MM")
	ErrEmptyLocation = errors.New("location is required")
	ErrInvalidSpots  = errors.New("spots must be greater than zero")
	ErrNoAudience    = errors.New("schedule must target all players or at least one player")
)

// Schedule is a concrete session on a date, visible to its target audience.
type Schedule struct {
	ID            string    `json:"-"`
	Sport         string    `json:"sport"`
	Date          string    `json:"date"` // YYYY-MM-DD
	Time          string    `json:"time"` // HH:MM
	Location      string    `json:"location"`
	Spots         int       `json:"spots"`
	CreatorID     string    `json:"creatorId"`
	CreatedAt     time.Time `json:"createdAt"`
	TargetUserIDs []string  `json:"targetUserIds"`
}

// Validate checks if the Schedule has valid data.
// PRE: Schedule struct is populated
// POST: Returns nil if valid, error otherwise
func (s *Schedule) Validate() error {
	if strings.TrimSpace(s.Sport) == "" {
		return ErrEmptySport
	}
	if _, err := time.Parse(time.DateOnly, s.Date); err != nil {
		return ErrInvalidDate
	}
	if _, err := time.Parse("15:04", s.Time); err != nil {
		return ErrInvalidTime
	}
	if strings.TrimSpace(s.Location) == "" {
		return ErrEmptyLocation
	}
	if s.Spots <= 0 {
		return ErrInvalidSpots
	}
	if len(s.Audience()) == 0 {
		return ErrNoAudience
	}
	return nil
}

// Audience returns the non-empty target ids with duplicates removed.
// INVARIANT: Schedule fields are not mutated
func (s *Schedule) Audience() []string {
	seen := make(map[string]bool, len(s.TargetUserIDs))
	out := make([]string, 0, len(s.TargetUserIDs))
	for _, id := range s.TargetUserIDs {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// IsOpenToAll reports whether every player may see the session.
func (s *Schedule) IsOpenToAll() bool {
	for _, id := range s.TargetUserIDs {
		if id == AudienceAll {
			return true
		}
	}
	return false
}

// IsVisibleTo reports whether the player with userID is in the audience.
func (s *Schedule) IsVisibleTo(userID string) bool {
	if s.IsOpenToAll() {
		return true
	}
	for _, id := range s.TargetUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}
