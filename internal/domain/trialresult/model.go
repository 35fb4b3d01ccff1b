package trialresult

import (
	"errors"
	"strings"
	"time"
)

// Recommendation constants
const (
	RecommendationPending     = "Pending"
	RecommendationSelected    = "Selected"
	RecommendationWaitlist    = "Waitlist"
	RecommendationNotSelected = "Not Selected"
)

// Score bounds.
const (
	MinScore = 0
	MaxScore = 100
)

// ValidRecommendations contains all valid recommendation values.
var ValidRecommendations = []string{RecommendationPending, RecommendationSelected, RecommendationWaitlist, RecommendationNotSelected}

// Domain errors
var (
	ErrEmptyPlayer           = errors.New("please select a player")
	ErrEmptyCoach            = errors.New("result must be uploaded by a coach")
	ErrInvalidDate           = errors.New("trial date must be YYYY-MM-DD")
	ErrScoreRange            = errors.New("scores must be between 0 and 100")
	ErrInvalidRecommendation = errors.New("recommendation must be one of: Pending, Selected, Waitlist, Not Selected")
	ErrFeedbackTooLong       = errors.New("feedback cannot exceed 2000 characters")
)

// Result is a coach's measured outcome for a player at a trial.
type Result struct {
	ID             string    `json:"-"`
	PlayerID       string    `json:"playerId"`
	PlayerName     string    `json:"playerName"`
	TrialDate      string    `json:"trialDate"` // YYYY-MM-DD
	SpeedScore     int       `json:"speedScore"`
	AgilityScore   int       `json:"agilityScore"`
	Feedback       string    `json:"feedback"`
	Recommendation string    `json:"recommendation"`
	CoachID        string    `json:"coachId"`
	UploadDate     time.Time `json:"uploadDate"`
}

// Validate checks if the Result has valid data.
// PRE: Result struct is populated
// POST: Returns nil if valid, error otherwise
func (r *Result) Validate() error {
	if strings.TrimSpace(r.PlayerID) == "" {
		return ErrEmptyPlayer
	}
	if strings.TrimSpace(r.CoachID) == "" {
		return ErrEmptyCoach
	}
	if _, err := time.Parse(time.DateOnly, r.TrialDate); err != nil {
		return ErrInvalidDate
	}
	if !inRange(r.SpeedScore) || !inRange(r.AgilityScore) {
		return ErrScoreRange
	}
	if !isValidRecommendation(r.Recommendation) {
		return ErrInvalidRecommendation
	}
	if len(r.Feedback) > 2000 {
		return ErrFeedbackTooLong
	}
	return nil
}

// IsDecided reports whether the coach reached a final recommendation.
func (r *Result) IsDecided() bool {
	return r.Recommendation != RecommendationPending
}

func inRange(score int) bool {
	return score >= MinScore && score <= MaxScore
}

func isValidRecommendation(rec string) bool {
	for _, r := range ValidRecommendations {
		if r == rec {
			return true
		}
	}
	return false
}
