package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"sportify/internal/adapters/storage/docstore"
	"sportify/internal/application/session"
	"sportify/internal/domain/fault"
	"sportify/internal/domain/notification"
	"sportify/internal/domain/profile"
	"sportify/internal/domain/role"
	"sportify/internal/domain/schedule"
	"sportify/internal/domain/trial"
)

// ErrNotACoach is returned when a coach-only assignment names another role.
var ErrNotACoach = errors.New("the selected user is not a coach")

// ErrOwnRole is returned when an admin tries to change their own role.
var ErrOwnRole = errors.New("you cannot change your own role")

// --- Create Trial ---

// CreateTrialInput carries the new trial form.
type CreateTrialInput struct {
	Sport       string
	Date        string
	Location    string
	CoachID     string
	Description string
}

// ExecuteCreateTrial schedules a trial and tells the assigned coach.
// PRE: caller is an authenticated admin; CoachID names a coach profile
// POST: trial stored with the coach's display name; coach notified
func ExecuteCreateTrial(ctx context.Context, snap session.Snapshot, input CreateTrialInput, deps Deps) (out trial.Trial, err error) {
	const op = "create_trial"
	defer func() { err = deps.finish(WorkflowCreateTrial, Result{}, err) }()

	if err := snap.Require(role.FeatureManageTrials); err != nil {
		return trial.Trial{}, err
	}
	t := trial.Trial{
		Sport:       strings.TrimSpace(input.Sport),
		Date:        strings.TrimSpace(input.Date),
		Location:    strings.TrimSpace(input.Location),
		CoachID:     strings.TrimSpace(input.CoachID),
		Description: input.Description,
		CreatedAt:   deps.now(),
	}
	if err := t.Validate(); err != nil {
		return trial.Trial{}, fault.Validation(op, err)
	}
	coach, err := loadCoach(ctx, deps, op, t.CoachID)
	if err != nil {
		return trial.Trial{}, err
	}
	t.CoachName = coach.DisplayName()

	fields, err := docstore.Encode(t)
	if err != nil {
		return trial.Trial{}, fault.Remote(op, err)
	}
	id, err := deps.Store.Add(ctx, deps.Paths.Trials(), fields)
	if err != nil {
		return trial.Trial{}, fault.Remote(op, err)
	}
	t.ID = id
	slog.Info("trial_event", "event", "trial_created", "trial_id", id, "sport", t.Sport, "date", t.Date, "coach_id", t.CoachID)

	deps.notify(ctx, WorkflowCreateTrial, notification.ForUser(role.Coach, t.CoachID,
		fmt.Sprintf("You have been assigned to the %s trial on %s at %s.", t.Sport, t.Date, t.Location),
		notification.SeverityInfo, "Trial: "+t.Label(), deps.now()))
	deps.notify(ctx, WorkflowCreateTrial, notification.Notification{
		Message:    fmt.Sprintf("A new %s trial has been scheduled for %s.", t.Sport, t.Date),
		Type:       notification.SeverityInfo,
		TargetRole: role.Player.String(),
		Related:    "Trial: " + t.Label(),
	})
	return t, nil
}

// --- Create Schedule ---

// CreateScheduleInput carries a session's time, place and audience.
// An empty TargetUserIDs opens the session to every player.
type CreateScheduleInput struct {
	Sport         string
	Date          string
	Time          string
	Location      string
	Spots         int
	TargetUserIDs []string
}

// ExecuteCreateSchedule publishes a session to its audience.
// PRE: caller is an authenticated admin
// POST: schedule stored; each targeted player (or every player) notified
func ExecuteCreateSchedule(ctx context.Context, snap session.Snapshot, input CreateScheduleInput, deps Deps) (out schedule.Schedule, err error) {
	const op = "create_schedule"
	defer func() { err = deps.finish(WorkflowCreateSchedule, Result{}, err) }()

	if err := snap.Require(role.FeatureManageSchedules); err != nil {
		return schedule.Schedule{}, err
	}
	actor, _ := snap.Actor()
	s := schedule.Schedule{
		Sport:         strings.TrimSpace(input.Sport),
		Date:          strings.TrimSpace(input.Date),
		Time:          strings.TrimSpace(input.Time),
		Location:      strings.TrimSpace(input.Location),
		Spots:         input.Spots,
		CreatorID:     actor.UserID,
		CreatedAt:     deps.now(),
		TargetUserIDs: input.TargetUserIDs,
	}
	if len(s.Audience()) == 0 {
		s.TargetUserIDs = []string{schedule.AudienceAll}
	}
	s.TargetUserIDs = s.Audience()
	if err := s.Validate(); err != nil {
		return schedule.Schedule{}, fault.Validation(op, err)
	}

	fields, err := docstore.Encode(s)
	if err != nil {
		return schedule.Schedule{}, fault.Remote(op, err)
	}
	id, err := deps.Store.Add(ctx, deps.Paths.Schedules(), fields)
	if err != nil {
		return schedule.Schedule{}, fault.Remote(op, err)
	}
	s.ID = id
	slog.Info("schedule_event", "event", "schedule_created", "schedule_id", id, "sport", s.Sport, "audience", len(s.TargetUserIDs))

	msg := fmt.Sprintf("New %s session on %s at %s, %s.", s.Sport, s.Date, s.Time, s.Location)
	related := "Schedule: " + s.Sport + " on " + s.Date
	if s.IsOpenToAll() {
		deps.notify(ctx, WorkflowCreateSchedule, notification.Notification{
			Message:    msg,
			Type:       notification.SeverityInfo,
			TargetRole: role.Player.String(),
			Related:    related,
		})
		return s, nil
	}
	for _, uid := range s.TargetUserIDs {
		deps.notify(ctx, WorkflowCreateSchedule, notification.ForUser(role.Player, uid, msg, notification.SeverityInfo, related, deps.now()))
	}
	return s, nil
}

// --- Assign Coach ---

// AssignCoachInput names a coach and the sport they will run.
type AssignCoachInput struct {
	CoachID string
	Sport   string
}

// ExecuteAssignCoach sets a coach's assigned sport.
// PRE: caller is an authenticated admin; CoachID names a coach profile
// POST: coach profile's assignedSport updated; coach notified
func ExecuteAssignCoach(ctx context.Context, snap session.Snapshot, input AssignCoachInput, deps Deps) (err error) {
	const op = "assign_coach"
	defer func() { err = deps.finish(WorkflowAssignCoach, Result{}, err) }()

	if err := snap.Require(role.FeatureAssignCoaches); err != nil {
		return err
	}
	sport := strings.TrimSpace(input.Sport)
	if sport == "" {
		return fault.Validation(op, trial.ErrEmptySport)
	}
	coach, err := loadCoach(ctx, deps, op, input.CoachID)
	if err != nil {
		return err
	}
	if err := deps.Store.Update(ctx, deps.Paths.Profiles(), coach.ID, map[string]any{"assignedSport": sport}); err != nil {
		return storeError(op, "coach profile", err)
	}
	slog.Info("profile_event", "event", "coach_assigned", "coach_id", coach.ID, "sport", sport)

	deps.notify(ctx, WorkflowAssignCoach, notification.ForUser(role.Coach, coach.ID,
		fmt.Sprintf("You have been assigned to coach %s.", sport), notification.SeverityInfo, "Sport: "+sport, deps.now()))
	return nil
}

// --- Set User Role ---

// SetUserRoleInput names a user and their new role.
type SetUserRoleInput struct {
	UserID string
	Role   string
}

// ExecuteSetUserRole changes a user's role. Leaving the coach role clears
// any assigned sport.
// PRE: caller is an authenticated admin other than UserID
// POST: profile role updated; user notified under the new role
func ExecuteSetUserRole(ctx context.Context, snap session.Snapshot, input SetUserRoleInput, deps Deps) (err error) {
	const op = "set_user_role"
	defer func() { err = deps.finish(WorkflowSetUserRole, Result{}, err) }()

	if err := snap.Require(role.FeatureManageRoles); err != nil {
		return err
	}
	actor, _ := snap.Actor()
	next, err := role.ParseStrict(input.Role)
	if err != nil {
		return fault.Validation(op, err)
	}
	if input.UserID == actor.UserID {
		return fault.Validation(op, ErrOwnRole)
	}
	partial := map[string]any{"role": next.String()}
	if next != role.Coach {
		partial["assignedSport"] = nil
	}
	if err := deps.Store.Update(ctx, deps.Paths.Profiles(), input.UserID, partial); err != nil {
		return storeError(op, "profile", err)
	}
	slog.Info("profile_event", "event", "role_changed", "uid", input.UserID, "role", next.String(), "changed_by", actor.UserID)

	deps.notify(ctx, WorkflowSetUserRole, notification.ForUser(next, input.UserID,
		"Your role has been changed to "+next.String()+".", notification.SeverityInfo, "", deps.now()))
	return nil
}

// loadCoach reads a profile and requires it to carry the coach role.
func loadCoach(ctx context.Context, deps Deps, op, id string) (profile.Profile, error) {
	if strings.TrimSpace(id) == "" {
		return profile.Profile{}, fault.Validation(op, trial.ErrEmptyCoach)
	}
	p, err := getDoc[profile.Profile](ctx, deps.Store, deps.Paths.Profiles(), id)
	if err != nil {
		return profile.Profile{}, storeError(op, "coach", err)
	}
	if p.Role != role.Coach {
		return profile.Profile{}, fault.Validation(op, ErrNotACoach)
	}
	return p, nil
}
