package roster

import (
	"errors"
	"strings"
	"time"
)

// StatusApproved marks an entry created by an approved application.
const StatusApproved = "Approved"

// Domain errors
var (
	ErrEmptyPlayer = errors.New("roster entry must reference a player")
	ErrEmptySport  = errors.New("roster entry must have a sport")
)

// Entry places an approved player on a sport's roster.
// Its document id is EntryID(PlayerID, Sport).
type Entry struct {
	ID            string    `json:"-"`
	PlayerID      string    `json:"playerId"`
	Name          string    `json:"name"`
	Email         string    `json:"email,omitempty"`
	PhoneNumber   string    `json:"phoneNumber,omitempty"`
	Sport         string    `json:"sport"`
	Status        string    `json:"status"`
	ApplicationID string    `json:"applicationId,omitempty"`
	ApprovedAt    time.Time `json:"approvedAt"`
}

// EntryID is the deterministic id that keeps one entry per player and sport.
func EntryID(playerID, sport string) string {
	return playerID + "_" + strings.ToLower(strings.ReplaceAll(strings.TrimSpace(sport), " ", "-"))
}

// Validate checks if the Entry has valid data.
// PRE: Entry struct is populated
// POST: Returns nil if valid, error otherwise
func (e *Entry) Validate() error {
	if strings.TrimSpace(e.PlayerID) == "" {
		return ErrEmptyPlayer
	}
	if strings.TrimSpace(e.Sport) == "" {
		return ErrEmptySport
	}
	return nil
}
