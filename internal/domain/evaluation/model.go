package evaluation

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Rubric skills, rated 1 to 5.
const (
	SkillTechnical = "Technical Skill"
	SkillFitness   = "Fitness & Stamina"
	SkillTeamwork  = "Teamwork"
	SkillAttitude  = "Attitude & Discipline"
)

// Rating bounds and the default a blank form starts at.
const (
	MinRating     = 1
	MaxRating     = 5
	DefaultRating = 3
)

// MaxCommentLength bounds free-text comments.
const MaxCommentLength = 2000

// Skills is the fixed rubric in display order.
var Skills = []string{SkillTechnical, SkillFitness, SkillTeamwork, SkillAttitude}

// Domain errors
var (
	ErrEmptyPlayer    = errors.New("evaluation must reference a player")
	ErrEmptyCoach     = errors.New("evaluation must be authored by a coach")
	ErrUnknownSkill   = errors.New("rating given for a skill outside the rubric")
	ErrRatingRange    = errors.New("ratings must be between 1 and 5")
	ErrCommentTooLong = errors.New("comments cannot exceed 2000 characters")
	ErrMissingRubric  = errors.New("every rubric skill must be rated")
)

// Evaluation is a coach's rubric assessment of one player.
type Evaluation struct {
	ID          string         `json:"-"`
	PlayerID    string         `json:"playerId"`
	PlayerName  string         `json:"playerName"`
	CoachID     string         `json:"coachId"`
	CoachName   string         `json:"coachName"`
	Sport       string         `json:"sport,omitempty"`
	SessionType string         `json:"sessionType,omitempty"`
	Ratings     map[string]int `json:"ratings"`
	Comments    string         `json:"comments"`
	CreatedAt   time.Time      `json:"createdAt"`
}

// DefaultRatings returns a rubric with every skill at DefaultRating.
func DefaultRatings() map[string]int {
	r := make(map[string]int, len(Skills))
	for _, s := range Skills {
		r[s] = DefaultRating
	}
	return r
}

// FillDefaults rates any unrated rubric skill with DefaultRating.
// POST: Ratings holds an entry for every skill
func (e *Evaluation) FillDefaults() {
	if e.Ratings == nil {
		e.Ratings = DefaultRatings()
		return
	}
	for _, s := range Skills {
		if _, ok := e.Ratings[s]; !ok {
			e.Ratings[s] = DefaultRating
		}
	}
}

// Validate checks if the Evaluation has valid data.
// PRE: Evaluation struct is populated
// POST: Returns nil if valid, error otherwise
func (e *Evaluation) Validate() error {
	if strings.TrimSpace(e.PlayerID) == "" {
		return ErrEmptyPlayer
	}
	if strings.TrimSpace(e.CoachID) == "" {
		return ErrEmptyCoach
	}
	for skill, v := range e.Ratings {
		if !isSkill(skill) {
			return fmt.Errorf("%w: %q", ErrUnknownSkill, skill)
		}
		if v < MinRating || v > MaxRating {
			return ErrRatingRange
		}
	}
	for _, s := range Skills {
		if _, ok := e.Ratings[s]; !ok {
			return ErrMissingRubric
		}
	}
	if len(e.Comments) > MaxCommentLength {
		return ErrCommentTooLong
	}
	return nil
}

// Average returns the mean rating across the rubric.
// INVARIANT: Evaluation fields are not mutated
func (e *Evaluation) Average() float64 {
	if len(e.Ratings) == 0 {
		return 0
	}
	total := 0
	for _, v := range e.Ratings {
		total += v
	}
	return float64(total) / float64(len(e.Ratings))
}

func isSkill(name string) bool {
	for _, s := range Skills {
		if s == name {
			return true
		}
	}
	return false
}
