package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"sportify/internal/adapters/storage/docstore"
	"sportify/internal/application/session"
	"sportify/internal/domain/application"
	"sportify/internal/domain/fault"
	"sportify/internal/domain/notification"
	domainOutbox "sportify/internal/domain/outbox"
	"sportify/internal/domain/role"
	"sportify/internal/domain/trial"
)

// SubmitApplicationInput carries the trial application form.
type SubmitApplicationInput struct {
	FullName    string
	DOB         string
	PhoneNumber string
	NationalID  string
	Experience  string
	Sport       string
	TrialID     string // optional; when set the trial's sport wins
}

// SubmitApplicationResult is the stored application.
type SubmitApplicationResult struct {
	Result
	Application application.Application
}

// ExecuteSubmitApplication files a player's application for review.
// PRE: caller is an authenticated player
// POST: application stored as Pending Review; profile contact fields synced
// or a profile_sync repair recorded; a success notification sent
func ExecuteSubmitApplication(ctx context.Context, snap session.Snapshot, input SubmitApplicationInput, deps Deps) (out SubmitApplicationResult, err error) {
	const op = "submit_application"
	defer func() { err = deps.finish(WorkflowSubmitApplication, out.Result, err) }()

	if err := snap.Require(role.FeatureApplyForTrial); err != nil {
		return SubmitApplicationResult{}, err
	}
	actor, _ := snap.Actor()

	app := application.Application{
		UserID:         actor.UserID,
		Email:          actor.Email,
		FullName:       strings.TrimSpace(input.FullName),
		DOB:            strings.TrimSpace(input.DOB),
		PhoneNumber:    strings.TrimSpace(input.PhoneNumber),
		NationalID:     strings.TrimSpace(input.NationalID),
		Experience:     strings.TrimSpace(input.Experience),
		Sport:          strings.TrimSpace(input.Sport),
		SubmissionDate: deps.now(),
		Status:         application.StatusPendingReview,
	}
	if input.TrialID != "" {
		t, err := getDoc[trial.Trial](ctx, deps.Store, deps.Paths.Trials(), input.TrialID)
		if err != nil {
			return SubmitApplicationResult{}, storeError(op, "trial", err)
		}
		app.TrialID = t.ID
		app.Sport = t.Sport
		app.TrialName = t.Label()
	}
	if err := app.Validate(); err != nil {
		return SubmitApplicationResult{}, fault.Validation(op, err)
	}

	open, err := deps.Store.Query(ctx, deps.Paths.Applications(),
		docstore.Eq("userId", app.UserID),
		docstore.Eq("sport", app.Sport),
		docstore.In("status", application.PendingStatuses...))
	if err != nil {
		return SubmitApplicationResult{}, fault.Remote(op, err)
	}
	if len(open) > 0 {
		return SubmitApplicationResult{}, fault.Conflict(op, "you already have an application for "+app.Sport+" awaiting review", nil)
	}

	fields, err := docstore.Encode(app)
	if err != nil {
		return SubmitApplicationResult{}, fault.Remote(op, err)
	}
	id, err := deps.Store.Add(ctx, deps.Paths.Applications(), fields)
	if err != nil {
		return SubmitApplicationResult{}, fault.Remote(op, err)
	}
	app.ID = id
	out.Application = app
	slog.Info("application_event", "event", "application_submitted", "application_id", id, "uid", app.UserID, "sport", app.Sport)

	deps.secondaryWrite(ctx, WorkflowSubmitApplication, domainOutbox.ActionProfileSync, DocumentWrite{
		Collection: deps.Paths.Profiles(),
		ID:         app.UserID,
		Fields: map[string]any{
			"name":        app.FullName,
			"phoneNumber": app.PhoneNumber,
			"dob":         app.DOB,
			"sport":       app.Sport,
		},
		Merge: true,
	}, &out.Result, "your application was submitted but your profile details could not be updated")

	deps.notify(ctx, WorkflowSubmitApplication, notification.ForUser(role.Player, app.UserID,
		"Your trial application was submitted successfully.", notification.SeveritySuccess,
		relatedTrial(app), deps.now()))
	return out, nil
}

// relatedTrial is the related line shown with application notifications.
func relatedTrial(app application.Application) string {
	if app.TrialName != "" {
		return "Trial: " + app.TrialName
	}
	return "Trial: " + app.Sport
}

// isMissing reports whether err means the document does not exist.
func isMissing(err error) bool {
	return errors.Is(err, docstore.ErrNotFound)
}
