// Package orchestrators runs the multi-record workflows. Each workflow has one
// primary write; secondary writes after it are best-effort and leave a repair
// entry behind when they fail.
package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"sportify/internal/adapters/email"
	"sportify/internal/adapters/storage/docstore"
	"sportify/internal/domain/fault"
	domainOutbox "sportify/internal/domain/outbox"
)

// Workflow names, used in logs, metrics and repair entries.
const (
	WorkflowSignUp            = "sign_up_player"
	WorkflowPortalLogin       = "portal_login"
	WorkflowSubmitApplication = "submit_application"
	WorkflowReviewApplication = "review_application"
	WorkflowCreateTrial       = "create_trial"
	WorkflowCreateSchedule    = "create_schedule"
	WorkflowAssignCoach       = "assign_coach"
	WorkflowSetUserRole       = "set_user_role"
	WorkflowRecordAttendance  = "record_attendance"
	WorkflowSubmitEvaluation  = "submit_evaluation"
	WorkflowUploadResult      = "upload_trial_result"
	WorkflowUpdateProfile     = "update_profile"
	WorkflowAddAchievement    = "add_achievement"
)

// Outcome labels reported per workflow run.
const (
	OutcomeOK       = "ok"
	OutcomePartial  = "partial"
	OutcomeFailed   = "failed"
	OutcomeRejected = "rejected"
)

// RepairLog persists repair entries for failed secondary writes.
type RepairLog interface {
	Save(ctx context.Context, e domainOutbox.Entry) error
}

// OutcomeRecorder counts workflow outcomes.
type OutcomeRecorder interface {
	WorkflowOutcome(workflow, outcome string)
}

// Deps holds the collaborators shared by every document workflow.
type Deps struct {
	Store      docstore.Store
	Paths      docstore.Paths
	Repairs    RepairLog       // optional
	Mailer     email.Sender    // optional; notifications are mailed when set
	From       string          // sender address for notification mail
	Metrics    OutcomeRecorder // optional
	Now        func() time.Time
	GenerateID func() string
}

// Result describes what a workflow committed beyond its primary write.
// Warnings lists the secondary writes that failed; each has a repair entry
// unless the repair log itself was unreachable.
type Result struct {
	Warnings []string
}

// Partial reports whether any secondary write failed.
func (r Result) Partial() bool { return len(r.Warnings) > 0 }

func (r *Result) warn(msg string) { r.Warnings = append(r.Warnings, msg) }

func (d Deps) now() time.Time {
	if d.Now == nil {
		return time.Now().UTC()
	}
	return d.Now()
}

func (d Deps) id() string {
	if d.GenerateID == nil {
		return ""
	}
	return d.GenerateID()
}

// finish records the outcome of a run and passes err through.
func (d Deps) finish(workflow string, res Result, err error) error {
	outcome := OutcomeOK
	switch {
	case err == nil && res.Partial():
		outcome = OutcomePartial
	case err == nil:
	case fault.Is(err, fault.KindRemote):
		outcome = OutcomeFailed
	default:
		outcome = OutcomeRejected
	}
	if d.Metrics != nil {
		d.Metrics.WorkflowOutcome(workflow, outcome)
	}
	if outcome == OutcomeFailed {
		slog.Error("workflow_event", "event", "workflow_failed", "workflow", workflow, "error", err)
	}
	return err
}

// storeError classifies a store failure for op. Missing documents and lost
// races become NotFound and Conflict; everything else is Remote.
func storeError(op, what string, err error) error {
	switch {
	case errors.Is(err, docstore.ErrNotFound):
		return fault.NotFound(op, what+" not found", err)
	case errors.Is(err, docstore.ErrPreconditionFailed):
		return fault.Conflict(op, what+" was changed by someone else", err)
	case errors.Is(err, docstore.ErrAlreadyExists):
		return fault.Conflict(op, what+" already exists", err)
	default:
		return fault.Remote(op, err)
	}
}

// getDoc loads and decodes one document.
func getDoc[T any](ctx context.Context, store docstore.Store, collection, id string) (T, error) {
	var zero T
	doc, err := store.Get(ctx, collection, id)
	if err != nil {
		return zero, err
	}
	return docstore.As[T](doc)
}
