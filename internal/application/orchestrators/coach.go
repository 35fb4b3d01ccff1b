package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"sportify/internal/adapters/storage/docstore"
	"sportify/internal/application/projections"
	"sportify/internal/application/session"
	"sportify/internal/domain/attendance"
	"sportify/internal/domain/evaluation"
	"sportify/internal/domain/fault"
	"sportify/internal/domain/notification"
	"sportify/internal/domain/profile"
	"sportify/internal/domain/role"
	"sportify/internal/domain/roster"
	"sportify/internal/domain/trialresult"
)

// Coach workflow errors.
var (
	ErrNoMarks     = errors.New("select at least one player")
	ErrNotOnRoster = errors.New("player is not on your roster")
	ErrNotAPlayer  = errors.New("the selected user is not a player")
)

// coachSport returns the acting coach and their assigned sport.
func coachSport(snap session.Snapshot, op string) (session.Actor, string, error) {
	actor, _ := snap.Actor()
	sport := strings.TrimSpace(actor.Profile.AssignedSport)
	if sport == "" {
		return actor, "", fault.NotFound(op, projections.ErrNoAssignedSport.Error(), projections.ErrNoAssignedSport)
	}
	return actor, sport, nil
}

// --- Record Attendance ---

// AttendanceMark is one player's status on the submitted sheet.
type AttendanceMark struct {
	PlayerID string
	Status   string
}

// RecordAttendanceInput is a coach's attendance sheet for one date.
type RecordAttendanceInput struct {
	Date  string
	Marks []AttendanceMark
}

// RecordAttendanceResult lists what was written. Duplicates holds the
// players whose attendance for the date already existed.
type RecordAttendanceResult struct {
	Recorded   []attendance.Record
	Duplicates []string
}

// ExecuteRecordAttendance records attendance for players on the coach's roster.
// Each (date, player) pair is written at most once.
// PRE: caller is an authenticated coach with an assigned sport
// POST: a record exists for every mark; marks already recorded are reported,
// and a sheet made only of such marks fails with a conflict
func ExecuteRecordAttendance(ctx context.Context, snap session.Snapshot, input RecordAttendanceInput, deps Deps) (out RecordAttendanceResult, err error) {
	const op = "record_attendance"
	defer func() { err = deps.finish(WorkflowRecordAttendance, Result{}, err) }()

	if err := snap.Require(role.FeatureMarkAttendance); err != nil {
		return RecordAttendanceResult{}, err
	}
	actor, sport, err := coachSport(snap, op)
	if err != nil {
		return RecordAttendanceResult{}, err
	}
	if len(input.Marks) == 0 {
		return RecordAttendanceResult{}, fault.Validation(op, ErrNoMarks)
	}

	docs, err := deps.Store.Query(ctx, deps.Paths.Roster(),
		docstore.Eq("sport", sport), docstore.Eq("status", roster.StatusApproved))
	if err != nil {
		return RecordAttendanceResult{}, fault.Remote(op, err)
	}
	onRoster := make(map[string]roster.Entry, len(docs))
	for _, d := range docs {
		e, err := docstore.As[roster.Entry](d)
		if err != nil {
			continue
		}
		onRoster[e.PlayerID] = e
	}

	date := strings.TrimSpace(input.Date)
	now := deps.now()
	records := make([]attendance.Record, 0, len(input.Marks))
	for _, m := range input.Marks {
		entry, ok := onRoster[m.PlayerID]
		if !ok {
			return RecordAttendanceResult{}, fault.Validation(op, fmt.Errorf("%w: %s", ErrNotOnRoster, m.PlayerID))
		}
		status, err := attendance.ParseStatus(m.Status)
		if err != nil {
			return RecordAttendanceResult{}, fault.Validation(op, err)
		}
		r := attendance.Record{
			ID:          attendance.RecordID(date, m.PlayerID),
			PlayerID:    m.PlayerID,
			PlayerName:  entry.Name,
			Sport:       sport,
			Status:      status,
			Date:        date,
			CoachID:     actor.UserID,
			CoachName:   actor.Profile.DisplayName(),
			SubmittedAt: now,
		}
		if err := r.Validate(now); err != nil {
			return RecordAttendanceResult{}, fault.Validation(op, err)
		}
		records = append(records, r)
	}

	for _, r := range records {
		fields, err := docstore.Encode(r)
		if err != nil {
			return out, fault.Remote(op, err)
		}
		err = deps.Store.Create(ctx, deps.Paths.Attendance(), r.ID, fields)
		if errors.Is(err, docstore.ErrAlreadyExists) {
			out.Duplicates = append(out.Duplicates, r.PlayerID)
			continue
		}
		if err != nil {
			return out, fault.Remote(op, err)
		}
		out.Recorded = append(out.Recorded, r)
	}
	slog.Info("attendance_event", "event", "attendance_recorded", "coach_id", actor.UserID, "date", date, "recorded", len(out.Recorded), "duplicates", len(out.Duplicates))

	if len(out.Recorded) == 0 {
		return out, fault.Conflict(op, "attendance for "+date+" has already been recorded", docstore.ErrAlreadyExists)
	}
	return out, nil
}

// --- Submit Evaluation ---

// SubmitEvaluationInput is a coach's rubric for one rostered player.
// Unrated skills default to the middle of the scale.
type SubmitEvaluationInput struct {
	PlayerID    string
	SessionType string
	Ratings     map[string]int
	Comments    string
}

// ExecuteSubmitEvaluation stores an evaluation and tells the player.
// PRE: caller is an authenticated coach; PlayerID is on their roster
// POST: evaluation stored; player notified
func ExecuteSubmitEvaluation(ctx context.Context, snap session.Snapshot, input SubmitEvaluationInput, deps Deps) (out evaluation.Evaluation, err error) {
	const op = "submit_evaluation"
	defer func() { err = deps.finish(WorkflowSubmitEvaluation, Result{}, err) }()

	if err := snap.Require(role.FeatureEvaluatePlayers); err != nil {
		return evaluation.Evaluation{}, err
	}
	actor, sport, err := coachSport(snap, op)
	if err != nil {
		return evaluation.Evaluation{}, err
	}
	if strings.TrimSpace(input.PlayerID) == "" {
		return evaluation.Evaluation{}, fault.Validation(op, evaluation.ErrEmptyPlayer)
	}
	entry, err := getDoc[roster.Entry](ctx, deps.Store, deps.Paths.Roster(), roster.EntryID(input.PlayerID, sport))
	if isMissing(err) {
		return evaluation.Evaluation{}, fault.Validation(op, ErrNotOnRoster)
	}
	if err != nil {
		return evaluation.Evaluation{}, fault.Remote(op, err)
	}

	ratings := make(map[string]int, len(input.Ratings))
	for k, v := range input.Ratings {
		ratings[k] = v
	}
	e := evaluation.Evaluation{
		PlayerID:    input.PlayerID,
		PlayerName:  entry.Name,
		CoachID:     actor.UserID,
		CoachName:   actor.Profile.DisplayName(),
		Sport:       sport,
		SessionType: strings.TrimSpace(input.SessionType),
		Ratings:     ratings,
		Comments:    strings.TrimSpace(input.Comments),
		CreatedAt:   deps.now(),
	}
	e.FillDefaults()
	if err := e.Validate(); err != nil {
		return evaluation.Evaluation{}, fault.Validation(op, err)
	}

	fields, err := docstore.Encode(e)
	if err != nil {
		return evaluation.Evaluation{}, fault.Remote(op, err)
	}
	id, err := deps.Store.Add(ctx, deps.Paths.Evaluations(), fields)
	if err != nil {
		return evaluation.Evaluation{}, fault.Remote(op, err)
	}
	e.ID = id
	slog.Info("evaluation_event", "event", "evaluation_submitted", "evaluation_id", id, "player_id", e.PlayerID, "coach_id", e.CoachID)

	deps.notify(ctx, WorkflowSubmitEvaluation, notification.ForUser(role.Player, e.PlayerID,
		fmt.Sprintf("Coach %s submitted a new evaluation for you.", e.CoachName),
		notification.SeverityInfo, "Evaluation: "+sport, deps.now()))
	return e, nil
}

// --- Upload Trial Result ---

// UploadTrialResultInput is a coach's measured outcome for a player.
// An empty Recommendation is stored as Pending.
type UploadTrialResultInput struct {
	PlayerID       string
	TrialDate      string
	SpeedScore     int
	AgilityScore   int
	Feedback       string
	Recommendation string
}

// ExecuteUploadTrialResult stores a trial result and tells the player.
// PRE: caller is an authenticated coach; PlayerID names a player profile
// POST: result stored with the player's display name; player notified
func ExecuteUploadTrialResult(ctx context.Context, snap session.Snapshot, input UploadTrialResultInput, deps Deps) (out trialresult.Result, err error) {
	const op = "upload_trial_result"
	defer func() { err = deps.finish(WorkflowUploadResult, Result{}, err) }()

	if err := snap.Require(role.FeatureUploadResults); err != nil {
		return trialresult.Result{}, err
	}
	actor, _ := snap.Actor()
	if strings.TrimSpace(input.PlayerID) == "" {
		return trialresult.Result{}, fault.Validation(op, trialresult.ErrEmptyPlayer)
	}
	player, err := getDoc[profile.Profile](ctx, deps.Store, deps.Paths.Profiles(), input.PlayerID)
	if err != nil {
		return trialresult.Result{}, storeError(op, "player", err)
	}
	if player.Role != role.Player {
		return trialresult.Result{}, fault.Validation(op, ErrNotAPlayer)
	}

	rec := strings.TrimSpace(input.Recommendation)
	if rec == "" {
		rec = trialresult.RecommendationPending
	}
	r := trialresult.Result{
		PlayerID:       player.ID,
		PlayerName:     player.DisplayName(),
		TrialDate:      strings.TrimSpace(input.TrialDate),
		SpeedScore:     input.SpeedScore,
		AgilityScore:   input.AgilityScore,
		Feedback:       strings.TrimSpace(input.Feedback),
		Recommendation: rec,
		CoachID:        actor.UserID,
		UploadDate:     deps.now(),
	}
	if err := r.Validate(); err != nil {
		return trialresult.Result{}, fault.Validation(op, err)
	}

	fields, err := docstore.Encode(r)
	if err != nil {
		return trialresult.Result{}, fault.Remote(op, err)
	}
	id, err := deps.Store.Add(ctx, deps.Paths.TrialResults(), fields)
	if err != nil {
		return trialresult.Result{}, fault.Remote(op, err)
	}
	r.ID = id
	slog.Info("trial_event", "event", "result_uploaded", "result_id", id, "player_id", r.PlayerID, "recommendation", r.Recommendation)

	deps.notify(ctx, WorkflowUploadResult, notification.ForUser(role.Player, r.PlayerID,
		fmt.Sprintf("Your trial results for %s have been uploaded. Recommendation: %s.", r.TrialDate, r.Recommendation),
		resultSeverity(r.Recommendation), "Trial results: "+r.TrialDate, deps.now()))
	return r, nil
}

func resultSeverity(rec string) notification.Severity {
	switch rec {
	case trialresult.RecommendationSelected:
		return notification.SeveritySuccess
	case trialresult.RecommendationNotSelected:
		return notification.SeverityWarning
	default:
		return notification.SeverityInfo
	}
}
