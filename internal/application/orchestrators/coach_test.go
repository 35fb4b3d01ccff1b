package orchestrators

import (
	"context"
	"errors"
	"testing"

	"sportify/internal/adapters/storage/docstore"
	"sportify/internal/application/projections"
	"sportify/internal/domain/attendance"
	"sportify/internal/domain/evaluation"
	"sportify/internal/domain/fault"
	"sportify/internal/domain/notification"
	"sportify/internal/domain/profile"
	"sportify/internal/domain/role"
	"sportify/internal/domain/roster"
	"sportify/internal/domain/trialresult"
)

// rosterPlayer places a player on the roster for sport.
func rosterPlayer(t *testing.T, f *fixture, uid, name, sport string) {
	t.Helper()
	f.player(t, uid)
	fields, err := docstore.Encode(roster.Entry{PlayerID: uid, Name: name, Sport: sport, Status: roster.StatusApproved, ApprovedAt: fixedTime})
	if err != nil {
		t.Fatalf("encode roster: %v", err)
	}
	if err := f.store.Set(context.Background(), f.deps.Paths.Roster(), roster.EntryID(uid, sport), fields); err != nil {
		t.Fatalf("put roster: %v", err)
	}
}

// TestRecordAttendance tests a sheet is recorded once per date and player.
func TestRecordAttendance(t *testing.T) {
	f := newFixture(t)
	coach := f.coach(t, "Football")
	rosterPlayer(t, f, "p1", "Priya", "Football")
	rosterPlayer(t, f, "p2", "Arjun", "Football")
	ctx := context.Background()

	sheet := RecordAttendanceInput{Date: "2026-03-01", Marks: []AttendanceMark{
		{PlayerID: "p1", Status: "present"},
		{PlayerID: "p2", Status: "Absent"},
	}}
	res, err := ExecuteRecordAttendance(ctx, coach, sheet, f.deps)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if len(res.Recorded) != 2 || len(res.Duplicates) != 0 {
		t.Fatalf("unexpected result %+v", res)
	}
	r, err := getDoc[attendance.Record](ctx, f.store, f.deps.Paths.Attendance(), attendance.RecordID("2026-03-01", "p1"))
	if err != nil {
		t.Fatalf("get record: %v", err)
	}
	if r.Status != attendance.StatusPresent || r.PlayerName != "Priya" || r.CoachName != "Cleo Coach" || r.Sport != "Football" {
		t.Errorf("unexpected record %+v", r)
	}

	// the same sheet again is a conflict and changes nothing
	_, err = ExecuteRecordAttendance(ctx, coach, RecordAttendanceInput{Date: "2026-03-01", Marks: []AttendanceMark{{PlayerID: "p1", Status: "Absent"}}}, f.deps)
	if !fault.Is(err, fault.KindConflict) {
		t.Fatalf("duplicate: expected conflict, got %v", err)
	}
	r, _ = getDoc[attendance.Record](ctx, f.store, f.deps.Paths.Attendance(), attendance.RecordID("2026-03-01", "p1"))
	if r.Status != attendance.StatusPresent {
		t.Errorf("duplicate overwrote the record: %+v", r)
	}
}

// TestRecordAttendance_Rejections tests the sheet is checked before any write.
func TestRecordAttendance_Rejections(t *testing.T) {
	f := newFixture(t)
	coach := f.coach(t, "Football")
	rosterPlayer(t, f, "p1", "Priya", "Football")
	rosterPlayer(t, f, "p9", "Other", "Cricket")
	ctx := context.Background()

	tests := []struct {
		name  string
		sheet RecordAttendanceInput
		want  error
	}{
		{"future date", RecordAttendanceInput{Date: "2026-03-02", Marks: []AttendanceMark{{PlayerID: "p1", Status: "Present"}}}, attendance.ErrFutureDate},
		{"bad status", RecordAttendanceInput{Date: "2026-03-01", Marks: []AttendanceMark{{PlayerID: "p1", Status: "Late"}}}, attendance.ErrInvalidStatus},
		{"other roster", RecordAttendanceInput{Date: "2026-03-01", Marks: []AttendanceMark{{PlayerID: "p1", Status: "Present"}, {PlayerID: "p9", Status: "Present"}}}, ErrNotOnRoster},
		{"empty sheet", RecordAttendanceInput{Date: "2026-03-01"}, ErrNoMarks},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ExecuteRecordAttendance(ctx, coach, tt.sheet, f.deps)
			if !fault.Is(err, fault.KindValidation) || !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
	docs, _ := f.store.Query(ctx, f.deps.Paths.Attendance())
	if len(docs) != 0 {
		t.Errorf("rejected sheets wrote %d records", len(docs))
	}

	_, err := ExecuteRecordAttendance(ctx, f.coach(t, ""), RecordAttendanceInput{Date: "2026-03-01", Marks: []AttendanceMark{{PlayerID: "p1", Status: "Present"}}}, f.deps)
	if !fault.Is(err, fault.KindNotFound) || !errors.Is(err, projections.ErrNoAssignedSport) {
		t.Errorf("unassigned coach: got %v", err)
	}
	if _, err := ExecuteRecordAttendance(ctx, f.admin(t), RecordAttendanceInput{}, f.deps); !fault.Is(err, fault.KindAuthorization) {
		t.Errorf("admin: got %v", err)
	}
}

// TestSubmitEvaluation tests defaults, validation and the roster check.
func TestSubmitEvaluation(t *testing.T) {
	f := newFixture(t)
	coach := f.coach(t, "Football")
	rosterPlayer(t, f, "p1", "Priya", "Football")
	ctx := context.Background()

	e, err := ExecuteSubmitEvaluation(ctx, coach, SubmitEvaluationInput{
		PlayerID: "p1",
		Ratings:  map[string]int{evaluation.SkillTechnical: 5},
		Comments: "Strong first touch.",
	}, f.deps)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if e.Ratings[evaluation.SkillTechnical] != 5 || e.Ratings[evaluation.SkillTeamwork] != evaluation.DefaultRating {
		t.Errorf("unexpected ratings %v", e.Ratings)
	}
	if e.PlayerName != "Priya" || e.Sport != "Football" {
		t.Errorf("unexpected evaluation %+v", e)
	}
	if notes := f.notificationsFor(t, "p1"); len(notes) != 1 || notes[0].Message != "Coach Cleo Coach submitted a new evaluation for you." {
		t.Errorf("unexpected notifications %+v", notes)
	}

	_, err = ExecuteSubmitEvaluation(ctx, coach, SubmitEvaluationInput{PlayerID: "p1", Ratings: map[string]int{evaluation.SkillFitness: 6}}, f.deps)
	if !errors.Is(err, evaluation.ErrRatingRange) {
		t.Errorf("out of range: got %v", err)
	}
	_, err = ExecuteSubmitEvaluation(ctx, coach, SubmitEvaluationInput{PlayerID: "stranger"}, f.deps)
	if !errors.Is(err, ErrNotOnRoster) {
		t.Errorf("not rostered: got %v", err)
	}
}

// TestUploadTrialResult tests the result and its notification.
func TestUploadTrialResult(t *testing.T) {
	f := newFixture(t)
	coach := f.coach(t, "Football")
	f.putProfile(t, profile.Profile{ID: "p1", Email: "p1@sportify.test", Role: role.Player, Name: "Priya", RegisteredAt: fixedTime})
	ctx := context.Background()

	r, err := ExecuteUploadTrialResult(ctx, coach, UploadTrialResultInput{
		PlayerID: "p1", TrialDate: "2026-02-20", SpeedScore: 82, AgilityScore: 77,
		Feedback: "Quick off the mark.", Recommendation: trialresult.RecommendationSelected,
	}, f.deps)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if r.PlayerName != "Priya" || r.CoachID != "coach-1" || !r.UploadDate.Equal(fixedTime) {
		t.Errorf("unexpected result %+v", r)
	}
	notes := f.notificationsFor(t, "p1")
	if len(notes) != 1 || notes[0].Type != notification.SeveritySuccess {
		t.Errorf("unexpected notifications %+v", notes)
	}

	r, err = ExecuteUploadTrialResult(ctx, coach, UploadTrialResultInput{PlayerID: "p1", TrialDate: "2026-02-21", SpeedScore: 50, AgilityScore: 50}, f.deps)
	if err != nil || r.Recommendation != trialresult.RecommendationPending {
		t.Errorf("default recommendation: %+v, %v", r, err)
	}
	_, err = ExecuteUploadTrialResult(ctx, coach, UploadTrialResultInput{PlayerID: "p1", TrialDate: "2026-02-21", SpeedScore: 101}, f.deps)
	if !errors.Is(err, trialresult.ErrScoreRange) {
		t.Errorf("score range: got %v", err)
	}
	_, err = ExecuteUploadTrialResult(ctx, coach, UploadTrialResultInput{PlayerID: "coach-1", TrialDate: "2026-02-21"}, f.deps)
	if !errors.Is(err, ErrNotAPlayer) {
		t.Errorf("coach as player: got %v", err)
	}
}

// TestUpdateProfileDetails tests self-service edits.
func TestUpdateProfileDetails(t *testing.T) {
	f := newFixture(t)
	snap := f.player(t, "p1")
	ctx := context.Background()

	p, err := ExecuteUpdateProfileDetails(ctx, snap, UpdateProfileDetailsInput{Name: " Priya P ", PhoneNumber: "9123456780"}, f.deps)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if p.Name != "Priya P" || f.getProfile(t, "p1").PhoneNumber != "9123456780" {
		t.Errorf("unexpected profile %+v", p)
	}
	if _, err := ExecuteUpdateProfileDetails(ctx, snap, UpdateProfileDetailsInput{Name: "Priya", PhoneNumber: "12"}, f.deps); !errors.Is(err, profile.ErrInvalidPhone) {
		t.Errorf("bad phone: got %v", err)
	}
	if _, err := ExecuteUpdateProfileDetails(ctx, f.admin(t), UpdateProfileDetailsInput{Name: "Ada", PhoneNumber: "9123456780"}, f.deps); !fault.Is(err, fault.KindAuthorization) {
		t.Errorf("admin edit: got %v", err)
	}
}

// TestAddAchievement tests achievements append and validate the year.
func TestAddAchievement(t *testing.T) {
	f := newFixture(t)
	snap := f.player(t, "p1")
	ctx := context.Background()

	if _, err := ExecuteAddAchievement(ctx, snap, AddAchievementInput{Title: "District champion", Year: "2024"}, f.deps); err != nil {
		t.Fatalf("first: %v", err)
	}
	list, err := ExecuteAddAchievement(ctx, snap, AddAchievementInput{Title: "Captain", Year: "2025"}, f.deps)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if len(list) != 2 || list[1].Title != "Captain" {
		t.Errorf("unexpected list %+v", list)
	}
	if got := f.getProfile(t, "p1").Achievements; len(got) != 2 {
		t.Errorf("stored achievements %+v", got)
	}
	if _, err := ExecuteAddAchievement(ctx, snap, AddAchievementInput{Title: "Future cup", Year: "2027"}, f.deps); !errors.Is(err, profile.ErrFutureYear) {
		t.Errorf("future year: got %v", err)
	}
	if _, err := ExecuteAddAchievement(ctx, f.coach(t, "Football"), AddAchievementInput{Title: "Coach award", Year: "2024"}, f.deps); !fault.Is(err, fault.KindAuthorization) {
		t.Errorf("coach achievement: got %v", err)
	}
}
