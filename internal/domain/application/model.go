package application

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"sportify/internal/domain/notification"
	"sportify/internal/domain/profile"
)

// Status constants. Pending Review is what submissions write; Pending is the
// legacy value still matched by review queues.
const (
	StatusPending       = "Pending"
	StatusPendingReview = "Pending Review"
	StatusApproved      = "Approved"
	StatusRejected      = "Rejected"
)

// PendingStatuses lists every status a review queue shows.
var PendingStatuses = []string{StatusPending, StatusPendingReview}

// Decision is an admin's verdict on an application.
type Decision int

const (
	DecisionApprove Decision = iota + 1
	DecisionReject
	DecisionKeepPending
)

// Domain errors
var (
	ErrEmptyApplicant   = errors.New("application must have an applicant")
	ErrEmptySport       = errors.New("sport is required")
	ErrEmptyFullName    = errors.New("full name is required")
	ErrEmptyDOB         = errors.New("date of birth is required")
	ErrInvalidDecision  = errors.New("decision must be one of: approve, reject, pending")
	ErrAlreadyReviewed  = errors.New("application has already been reviewed")
	ErrEmptyReviewer    = errors.New("reviewer is required")
	ErrInvalidDOBFormat = errors.New("date of birth must be YYYY-MM-DD")
)

// Application is a player's request to join a trial.
type Application struct {
	ID             string     `json:"-"`
	UserID         string     `json:"userId"`
	Email          string     `json:"email,omitempty"`
	FullName       string     `json:"fullName"`
	DOB            string     `json:"dob"`
	PhoneNumber    string     `json:"phoneNumber"`
	NationalID     string     `json:"aadhar,omitempty"`
	Experience     string     `json:"experience,omitempty"`
	Sport          string     `json:"sport"`
	TrialID        string     `json:"trialId,omitempty"`
	TrialName      string     `json:"trialName,omitempty"`
	SubmissionDate time.Time  `json:"submissionDate"`
	Status         string     `json:"status"`
	ReviewedAt     *time.Time `json:"reviewedAt,omitempty"`
	ReviewedBy     string     `json:"reviewedBy,omitempty"`
}

// Validate checks the submission fields before anything is written.
// PRE: Application struct is populated from the form
// POST: Returns the first validation failure, nil if valid
func (a *Application) Validate() error {
	if strings.TrimSpace(a.UserID) == "" {
		return ErrEmptyApplicant
	}
	if strings.TrimSpace(a.Sport) == "" {
		return ErrEmptySport
	}
	if strings.TrimSpace(a.FullName) == "" {
		return ErrEmptyFullName
	}
	if len(a.FullName) > profile.MaxNameLength {
		return profile.ErrNameTooLong
	}
	if strings.TrimSpace(a.DOB) == "" {
		return ErrEmptyDOB
	}
	if _, err := time.Parse(time.DateOnly, a.DOB); err != nil {
		return ErrInvalidDOBFormat
	}
	if err := profile.ValidatePhone(a.PhoneNumber); err != nil {
		return err
	}
	if a.NationalID != "" {
		if err := profile.ValidateNationalID(a.NationalID); err != nil {
			return err
		}
	}
	return nil
}

// IsPending reports whether the application still awaits a decision.
// INVARIANT: Application fields are not mutated
func (a *Application) IsPending() bool {
	return IsPendingStatus(a.Status)
}

// IsPendingStatus reports whether status is one of the review-queue statuses.
func IsPendingStatus(status string) bool {
	for _, s := range PendingStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// ParseDecision maps a request value to a Decision.
func ParseDecision(s string) (Decision, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "approve", "approved":
		return DecisionApprove, nil
	case "reject", "rejected":
		return DecisionReject, nil
	case "pending", "keep_pending", "pending review":
		return DecisionKeepPending, nil
	default:
		return 0, ErrInvalidDecision
	}
}

// Status returns the application status the decision writes.
func (d Decision) Status() string {
	switch d {
	case DecisionApprove:
		return StatusApproved
	case DecisionReject:
		return StatusRejected
	case DecisionKeepPending:
		return StatusPendingReview
	default:
		return ""
	}
}

// Severity returns the notification severity announcing the decision.
func (d Decision) Severity() notification.Severity {
	switch d {
	case DecisionApprove:
		return notification.SeveritySuccess
	case DecisionReject:
		return notification.SeverityError
	case DecisionKeepPending:
		return notification.SeverityInfo
	default:
		return notification.SeverityInfo
	}
}

// Message returns the notification text sent to the applicant.
func (d Decision) Message(sport string) string {
	switch d {
	case DecisionApprove:
		return fmt.Sprintf("Your trial application for %s has been approved.", sport)
	case DecisionReject:
		return fmt.Sprintf("Your trial application for %s has been rejected.", sport)
	case DecisionKeepPending:
		return fmt.Sprintf("Your trial application for %s is still under review.", sport)
	default:
		return ""
	}
}

// Review applies a decision to a pending application.
// PRE: reviewer is the admin identity id
// POST: Status, ReviewedAt and ReviewedBy are set; returns ErrAlreadyReviewed
// if the application left the review queue
func (a *Application) Review(d Decision, reviewer string, now time.Time) error {
	if d.Status() == "" {
		return ErrInvalidDecision
	}
	if strings.TrimSpace(reviewer) == "" {
		return ErrEmptyReviewer
	}
	if !a.IsPending() {
		return ErrAlreadyReviewed
	}
	a.Status = d.Status()
	a.ReviewedAt = &now
	a.ReviewedBy = reviewer
	return nil
}
