package orchestrators

import (
	"context"
	"errors"
	"testing"

	"sportify/internal/adapters/storage/docstore"
	"sportify/internal/domain/fault"
	"sportify/internal/domain/notification"
	"sportify/internal/domain/profile"
	"sportify/internal/domain/role"
	"sportify/internal/domain/schedule"
)

// TestCreateTrial tests a trial carries its coach's name and notifies them.
func TestCreateTrial(t *testing.T) {
	f := newFixture(t)
	admin := f.admin(t)
	f.coach(t, "")

	tr, err := ExecuteCreateTrial(context.Background(), admin, CreateTrialInput{
		Sport: "Football", Date: "2026-04-10", Location: "North Field", CoachID: "coach-1",
		Description: "Bring **boots**.",
	}, f.deps)
	if err != nil {
		t.Fatalf("create trial: %v", err)
	}
	if tr.ID == "" || tr.CoachName != "Cleo Coach" || !tr.CreatedAt.Equal(fixedTime) {
		t.Errorf("unexpected trial %+v", tr)
	}
	notes := f.notificationsFor(t, "coach-1")
	if len(notes) != 1 || notes[0].Message != "You have been assigned to the Football trial on 2026-04-10 at North Field." {
		t.Errorf("unexpected coach notifications %+v", notes)
	}
	broadcast, _ := f.store.Query(context.Background(), f.deps.Paths.Notifications(), docstore.Eq("targetRole", "player"))
	if len(broadcast) != 1 {
		t.Errorf("expected one player broadcast, got %d", len(broadcast))
	}
}

// TestCreateTrial_Rejections tests invalid trials are not stored.
func TestCreateTrial_Rejections(t *testing.T) {
	f := newFixture(t)
	admin := f.admin(t)
	f.player(t, "p1")
	ctx := context.Background()

	_, err := ExecuteCreateTrial(ctx, admin, CreateTrialInput{Sport: "Football", Date: "2026-04-10", Location: "North Field", CoachID: "p1"}, f.deps)
	if !errors.Is(err, ErrNotACoach) {
		t.Errorf("player as coach: got %v", err)
	}
	_, err = ExecuteCreateTrial(ctx, admin, CreateTrialInput{Sport: "Football", Date: "2026-04-10", Location: "North Field", CoachID: "nobody"}, f.deps)
	if !fault.Is(err, fault.KindNotFound) {
		t.Errorf("unknown coach: got %v", err)
	}
	_, err = ExecuteCreateTrial(ctx, admin, CreateTrialInput{Sport: "Football", Date: "10-04-2026", Location: "North Field", CoachID: "coach-1"}, f.deps)
	if !fault.Is(err, fault.KindValidation) {
		t.Errorf("bad date: got %v", err)
	}
	_, err = ExecuteCreateTrial(ctx, f.player(t, "p2"), CreateTrialInput{}, f.deps)
	if !fault.Is(err, fault.KindAuthorization) {
		t.Errorf("player creating trial: got %v", err)
	}
	docs, _ := f.store.Query(ctx, f.deps.Paths.Trials())
	if len(docs) != 0 {
		t.Errorf("rejected trials were stored: %d", len(docs))
	}
}

// TestCreateSchedule tests audience defaults and per-player notifications.
func TestCreateSchedule(t *testing.T) {
	f := newFixture(t)
	admin := f.admin(t)
	ctx := context.Background()

	open, err := ExecuteCreateSchedule(ctx, admin, CreateScheduleInput{Sport: "Football", Date: "2026-04-11", Time: "16:30", Location: "North Field", Spots: 10}, f.deps)
	if err != nil {
		t.Fatalf("open schedule: %v", err)
	}
	if !open.IsOpenToAll() || open.CreatorID != "admin-1" {
		t.Errorf("unexpected schedule %+v", open)
	}

	targeted, err := ExecuteCreateSchedule(ctx, admin, CreateScheduleInput{
		Sport: "Football", Date: "2026-04-12", Time: "09:00", Location: "Gym", Spots: 2,
		TargetUserIDs: []string{"p1", "p2", "p1", " "},
	}, f.deps)
	if err != nil {
		t.Fatalf("targeted schedule: %v", err)
	}
	if len(targeted.TargetUserIDs) != 2 || targeted.IsVisibleTo("p3") {
		t.Errorf("unexpected audience %v", targeted.TargetUserIDs)
	}
	if got := len(f.notificationsFor(t, "p1")); got != 1 {
		t.Errorf("p1 notifications = %d", got)
	}

	_, err = ExecuteCreateSchedule(ctx, admin, CreateScheduleInput{Sport: "Football", Date: "2026-04-12", Time: "9am", Location: "Gym", Spots: 2}, f.deps)
	if !errors.Is(err, schedule.ErrInvalidTime) {
		t.Errorf("bad time: got %v", err)
	}
	_, err = ExecuteCreateSchedule(ctx, admin, CreateScheduleInput{Sport: "Football", Date: "2026-04-12", Time: "09:00", Location: "Gym"}, f.deps)
	if !errors.Is(err, schedule.ErrInvalidSpots) {
		t.Errorf("zero spots: got %v", err)
	}
}

// TestAssignCoach tests assigning a sport to a coach.
func TestAssignCoach(t *testing.T) {
	f := newFixture(t)
	admin := f.admin(t)
	f.coach(t, "")
	f.player(t, "p1")
	ctx := context.Background()

	if err := ExecuteAssignCoach(ctx, admin, AssignCoachInput{CoachID: "coach-1", Sport: "Hockey"}, f.deps); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if got := f.getProfile(t, "coach-1").AssignedSport; got != "Hockey" {
		t.Errorf("assignedSport = %q", got)
	}
	if err := ExecuteAssignCoach(ctx, admin, AssignCoachInput{CoachID: "p1", Sport: "Hockey"}, f.deps); !errors.Is(err, ErrNotACoach) {
		t.Errorf("assigning a player: got %v", err)
	}
	if err := ExecuteAssignCoach(ctx, admin, AssignCoachInput{CoachID: "coach-1"}, f.deps); !fault.Is(err, fault.KindValidation) {
		t.Errorf("no sport: got %v", err)
	}
}

// TestSetUserRole tests role changes and the self-change guard.
func TestSetUserRole(t *testing.T) {
	f := newFixture(t)
	admin := f.admin(t)
	f.coach(t, "Football")
	ctx := context.Background()

	if err := ExecuteSetUserRole(ctx, admin, SetUserRoleInput{UserID: "coach-1", Role: "player"}, f.deps); err != nil {
		t.Fatalf("set role: %v", err)
	}
	p := f.getProfile(t, "coach-1")
	if p.Role != role.Player || p.AssignedSport != "" {
		t.Errorf("unexpected profile %+v", p)
	}
	notes := f.notificationsFor(t, "coach-1")
	if len(notes) != 1 || notes[0].TargetRole != "player" || notes[0].Type != notification.SeverityInfo {
		t.Errorf("unexpected notifications %+v", notes)
	}

	if err := ExecuteSetUserRole(ctx, admin, SetUserRoleInput{UserID: "admin-1", Role: "player"}, f.deps); !errors.Is(err, ErrOwnRole) {
		t.Errorf("self change: got %v", err)
	}
	if err := ExecuteSetUserRole(ctx, admin, SetUserRoleInput{UserID: "coach-1", Role: "superuser"}, f.deps); !errors.Is(err, role.ErrUnknownRole) {
		t.Errorf("unknown role: got %v", err)
	}
	if err := ExecuteSetUserRole(ctx, admin, SetUserRoleInput{UserID: "ghost", Role: "coach"}, f.deps); !fault.Is(err, fault.KindNotFound) {
		t.Errorf("missing profile: got %v", err)
	}
}

// TestNotify_Mail tests notifications addressed to one user are mailed and a
// failed mail leaves a repair entry.
func TestNotify_Mail(t *testing.T) {
	f := newFixture(t)
	mailer := f.withMailer()
	f.putProfile(t, profile.Profile{ID: "coach-1", Email: "coach@sportify.test", Role: role.Coach, Name: "Cleo", RegisteredAt: fixedTime})
	admin := f.admin(t)
	ctx := context.Background()

	if err := ExecuteAssignCoach(ctx, admin, AssignCoachInput{CoachID: "coach-1", Sport: "Hockey"}, f.deps); err != nil {
		t.Fatalf("assign: %v", err)
	}
	sent := mailer.Sent()
	if len(sent) != 1 || sent[0].To[0] != "coach@sportify.test" || sent[0].Subject != "Sportify: Sport: Hockey" {
		t.Fatalf("unexpected mail %+v", sent)
	}

	f.deps.Mailer = failingSender{err: errors.New("provider down")}
	if err := ExecuteAssignCoach(ctx, admin, AssignCoachInput{CoachID: "coach-1", Sport: "Tennis"}, f.deps); err != nil {
		t.Fatalf("assign with failing mail: %v", err)
	}
	if got := f.repairs.byAction("notification_email"); len(got) != 1 {
		t.Errorf("expected a notification_email repair, got %+v", got)
	}
}
