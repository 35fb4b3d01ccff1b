package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"sportify/internal/adapters/storage/docstore"
	"sportify/internal/application/session"
	"sportify/internal/domain/application"
	"sportify/internal/domain/fault"
	"sportify/internal/domain/notification"
	domainOutbox "sportify/internal/domain/outbox"
	"sportify/internal/domain/role"
	"sportify/internal/domain/roster"
)

// ReviewApplicationInput carries an admin's decision.
type ReviewApplicationInput struct {
	ApplicationID string
	Decision      application.Decision
}

// ReviewApplicationResult is the reviewed application and any partial state.
type ReviewApplicationResult struct {
	Result
	Application application.Application
}

// ExecuteReviewApplication records a decision on a pending application.
// The status change is guarded on the application still being pending, so
// of two concurrent reviews exactly one wins.
// PRE: caller is an authenticated admin
// POST: application status, reviewedAt and reviewedBy set; on approval the
// applicant's profile and roster entry are written or repair entries recorded;
// the applicant is notified
func ExecuteReviewApplication(ctx context.Context, snap session.Snapshot, input ReviewApplicationInput, deps Deps) (out ReviewApplicationResult, err error) {
	const op = "review_application"
	defer func() { err = deps.finish(WorkflowReviewApplication, out.Result, err) }()

	if err := snap.Require(role.FeatureReviewApplications); err != nil {
		return ReviewApplicationResult{}, err
	}
	actor, _ := snap.Actor()

	app, err := getDoc[application.Application](ctx, deps.Store, deps.Paths.Applications(), input.ApplicationID)
	if err != nil {
		return ReviewApplicationResult{}, storeError(op, "application", err)
	}
	now := deps.now()
	if err := app.Review(input.Decision, actor.UserID, now); err != nil {
		if errors.Is(err, application.ErrAlreadyReviewed) {
			return ReviewApplicationResult{}, fault.Conflict(op, err.Error(), err)
		}
		return ReviewApplicationResult{}, fault.Validation(op, err)
	}

	err = deps.Store.UpdateIf(ctx, deps.Paths.Applications(), app.ID,
		[]docstore.Filter{docstore.In("status", application.PendingStatuses...)},
		map[string]any{
			"status":     app.Status,
			"reviewedAt": now,
			"reviewedBy": actor.UserID,
		})
	if errors.Is(err, docstore.ErrPreconditionFailed) {
		return ReviewApplicationResult{}, fault.Conflict(op, application.ErrAlreadyReviewed.Error(), err)
	}
	if err != nil {
		return ReviewApplicationResult{}, storeError(op, "application", err)
	}
	out.Application = app
	slog.Info("application_event", "event", "application_reviewed", "application_id", app.ID, "status", app.Status, "reviewed_by", actor.UserID)

	if input.Decision == application.DecisionApprove {
		approveApplicant(ctx, deps, app, now, &out.Result)
	}

	deps.notify(ctx, WorkflowReviewApplication, notification.ForUser(role.Player, app.UserID,
		input.Decision.Message(app.Sport), input.Decision.Severity(), relatedTrial(app), now))
	return out, nil
}

// approveApplicant promotes the applicant and places them on the roster.
// Each write is independent; a failure records its own repair entry.
func approveApplicant(ctx context.Context, deps Deps, app application.Application, now time.Time, res *Result) {
	profileFields := map[string]any{
		"role":       role.Player.String(),
		"status":     application.StatusApproved,
		"approvedAt": now,
		"sport":      app.Sport,
	}
	if app.Email != "" {
		profileFields["email"] = app.Email
	}
	deps.secondaryWrite(ctx, WorkflowReviewApplication, domainOutbox.ActionProfileApproval, DocumentWrite{
		Collection: deps.Paths.Profiles(),
		ID:         app.UserID,
		Fields:     profileFields,
		Merge:      true,
		Upsert:     true,
	}, res, "the application was approved but the player's profile could not be updated")

	entry := roster.Entry{
		PlayerID:      app.UserID,
		Name:          app.FullName,
		Email:         app.Email,
		PhoneNumber:   app.PhoneNumber,
		Sport:         app.Sport,
		Status:        roster.StatusApproved,
		ApplicationID: app.ID,
		ApprovedAt:    now,
	}
	fields, err := docstore.Encode(entry)
	if err != nil {
		res.warn("the player could not be added to the roster")
		slog.Error("application_event", "event", "roster_encode_failed", "application_id", app.ID, "error", err)
		return
	}
	deps.secondaryWrite(ctx, WorkflowReviewApplication, domainOutbox.ActionRosterSync, DocumentWrite{
		Collection: deps.Paths.Roster(),
		ID:         roster.EntryID(app.UserID, app.Sport),
		Fields:     fields,
	}, res, "the application was approved but the player could not be added to the roster")
}
