package projections

import (
	"errors"

	"sportify/internal/adapters/storage/docstore"
	"sportify/internal/application/session"
	"sportify/internal/domain/application"
	"sportify/internal/domain/attendance"
	"sportify/internal/domain/evaluation"
	"sportify/internal/domain/fault"
	"sportify/internal/domain/notification"
	"sportify/internal/domain/profile"
	"sportify/internal/domain/role"
	"sportify/internal/domain/roster"
	"sportify/internal/domain/schedule"
	"sportify/internal/domain/trial"
	"sportify/internal/domain/trialresult"
)

// ErrNoAssignedSport is returned to coaches whose profile has no sport yet.
var ErrNoAssignedSport = errors.New("no sport has been assigned to you yet")

// PendingApplications lists applications awaiting review, newest first.
func PendingApplications(p docstore.Paths) SpecFunc[application.Application] {
	return func(snap session.Snapshot) (Spec[application.Application], error) {
		if err := snap.Require(role.FeatureReviewApplications); err != nil {
			return Spec[application.Application]{}, err
		}
		return Spec[application.Application]{
			Name:       "pending_applications",
			Collection: p.Applications(),
			Filters:    []docstore.Filter{docstore.In("status", application.PendingStatuses...)},
			Less: func(a, b application.Application) bool {
				return a.SubmissionDate.After(b.SubmissionDate)
			},
		}, nil
	}
}

// ApprovedApplicants lists approved applications for reports. An empty sport
// matches every sport.
func ApprovedApplicants(p docstore.Paths, sport string) SpecFunc[application.Application] {
	return func(snap session.Snapshot) (Spec[application.Application], error) {
		if err := snap.Require(role.FeatureGenerateReports); err != nil {
			return Spec[application.Application]{}, err
		}
		filters := []docstore.Filter{docstore.Eq("status", application.StatusApproved)}
		if sport != "" {
			filters = append(filters, docstore.Eq("sport", sport))
		}
		return Spec[application.Application]{
			Name:       "approved_applicants",
			Collection: p.Applications(),
			Filters:    filters,
			Less: func(a, b application.Application) bool {
				return a.SubmissionDate.After(b.SubmissionDate)
			},
		}, nil
	}
}

// PlayerDirectory lists player profiles, most recently registered first.
func PlayerDirectory(p docstore.Paths) SpecFunc[profile.Profile] {
	return func(snap session.Snapshot) (Spec[profile.Profile], error) {
		if err := snap.Require(role.FeatureViewPlayers); err != nil {
			return Spec[profile.Profile]{}, err
		}
		return Spec[profile.Profile]{
			Name:       "player_directory",
			Collection: p.Profiles(),
			// "user" is the legacy stored form of the player role.
			Filters: []docstore.Filter{docstore.In("role", role.Player.String(), "user")},
			Less: func(a, b profile.Profile) bool {
				return a.RegisteredAt.After(b.RegisteredAt)
			},
		}, nil
	}
}

// Coaches lists coach profiles by name.
func Coaches(p docstore.Paths) SpecFunc[profile.Profile] {
	return func(snap session.Snapshot) (Spec[profile.Profile], error) {
		if err := snap.Require(role.FeatureAssignCoaches); err != nil {
			return Spec[profile.Profile]{}, err
		}
		return Spec[profile.Profile]{
			Name:       "coaches",
			Collection: p.Profiles(),
			Filters:    []docstore.Filter{docstore.Eq("role", role.Coach.String())},
			Less: func(a, b profile.Profile) bool {
				return a.DisplayName() < b.DisplayName()
			},
		}, nil
	}
}

// Roster lists approved players in the coach's assigned sport.
func Roster(p docstore.Paths) SpecFunc[roster.Entry] {
	return func(snap session.Snapshot) (Spec[roster.Entry], error) {
		if err := snap.Require(role.FeatureViewRoster); err != nil {
			return Spec[roster.Entry]{}, err
		}
		sport := snap.Scope().AssignedSport
		if sport == "" {
			return Spec[roster.Entry]{}, fault.NotFound("roster", ErrNoAssignedSport.Error(), ErrNoAssignedSport)
		}
		return Spec[roster.Entry]{
			Name:       "roster",
			Collection: p.Roster(),
			Filters: []docstore.Filter{
				docstore.Eq("sport", sport),
				docstore.Eq("status", roster.StatusApproved),
			},
			Less: func(a, b roster.Entry) bool {
				return a.ApprovedAt.After(b.ApprovedAt)
			},
		}, nil
	}
}

// Trials lists trials in date order, earliest first.
func Trials(p docstore.Paths) SpecFunc[trial.Trial] {
	return func(snap session.Snapshot) (Spec[trial.Trial], error) {
		if err := snap.Require(role.FeatureViewTrials); err != nil {
			return Spec[trial.Trial]{}, err
		}
		return Spec[trial.Trial]{
			Name:       "trials",
			Collection: p.Trials(),
			Less: func(a, b trial.Trial) bool {
				if a.Date != b.Date {
					return a.Date < b.Date
				}
				return a.CreatedAt.Before(b.CreatedAt)
			},
		}, nil
	}
}

// Schedules lists sessions, newest first. Players only see sessions open to
// everyone or addressed to them.
func Schedules(p docstore.Paths) SpecFunc[schedule.Schedule] {
	return func(snap session.Snapshot) (Spec[schedule.Schedule], error) {
		if err := snap.Require(role.FeatureViewSchedules); err != nil {
			return Spec[schedule.Schedule]{}, err
		}
		spec := Spec[schedule.Schedule]{
			Name:       "schedules",
			Collection: p.Schedules(),
			Less: func(a, b schedule.Schedule) bool {
				return a.CreatedAt.After(b.CreatedAt)
			},
		}
		if snap.Role() == role.Player {
			uid := snap.UserID()
			spec.Filters = []docstore.Filter{docstore.ArrayContainsAny("targetUserIds", uid, schedule.AudienceAll)}
			spec.Keep = func(s schedule.Schedule) bool { return s.IsVisibleTo(uid) }
		}
		return spec, nil
	}
}

// Notifications lists persisted notifications for the caller's role that are
// broadcast or addressed to the caller, newest first.
func Notifications(p docstore.Paths) SpecFunc[notification.Notification] {
	return func(snap session.Snapshot) (Spec[notification.Notification], error) {
		if err := snap.Require(role.FeatureViewNotifications); err != nil {
			return Spec[notification.Notification]{}, err
		}
		r, uid := snap.Role(), snap.UserID()
		return Spec[notification.Notification]{
			Name:       "notifications",
			Collection: p.Notifications(),
			Filters:    []docstore.Filter{docstore.In("targetRole", r.String(), notification.TargetAll)},
			Keep:       func(n notification.Notification) bool { return n.VisibleTo(r, uid) },
			Less: func(a, b notification.Notification) bool {
				return a.CreatedAt.After(b.CreatedAt)
			},
		}, nil
	}
}

// TrialResults lists results: coaches see their uploads, players their own
// results, admins everything.
func TrialResults(p docstore.Paths) SpecFunc[trialresult.Result] {
	return func(snap session.Snapshot) (Spec[trialresult.Result], error) {
		if err := snap.Require(role.FeatureViewResults); err != nil {
			return Spec[trialresult.Result]{}, err
		}
		spec := Spec[trialresult.Result]{
			Name:       "trial_results",
			Collection: p.TrialResults(),
			Less: func(a, b trialresult.Result) bool {
				return a.UploadDate.After(b.UploadDate)
			},
		}
		switch snap.Role() {
		case role.Coach:
			spec.Filters = []docstore.Filter{docstore.Eq("coachId", snap.UserID())}
		case role.Player:
			spec.Filters = []docstore.Filter{docstore.Eq("playerId", snap.UserID())}
		case role.Admin, role.Unrecognized:
		}
		return spec, nil
	}
}

// Evaluations lists evaluations a player received or a coach authored.
func Evaluations(p docstore.Paths) SpecFunc[evaluation.Evaluation] {
	return func(snap session.Snapshot) (Spec[evaluation.Evaluation], error) {
		if err := snap.Require(role.FeatureViewEvaluations); err != nil {
			return Spec[evaluation.Evaluation]{}, err
		}
		field := "playerId"
		if snap.Role() == role.Coach {
			field = "coachId"
		}
		return Spec[evaluation.Evaluation]{
			Name:       "evaluations",
			Collection: p.Evaluations(),
			Filters:    []docstore.Filter{docstore.Eq(field, snap.UserID())},
			Less: func(a, b evaluation.Evaluation) bool {
				return a.CreatedAt.After(b.CreatedAt)
			},
		}, nil
	}
}

// Attendance lists attendance a player received or a coach recorded, most
// recent session first.
func Attendance(p docstore.Paths) SpecFunc[attendance.Record] {
	return func(snap session.Snapshot) (Spec[attendance.Record], error) {
		if err := snap.Require(role.FeatureViewAttendance); err != nil {
			return Spec[attendance.Record]{}, err
		}
		field := "playerId"
		if snap.Role() == role.Coach {
			field = "coachId"
		}
		return Spec[attendance.Record]{
			Name:       "attendance",
			Collection: p.Attendance(),
			Filters:    []docstore.Filter{docstore.Eq(field, snap.UserID())},
			Less: func(a, b attendance.Record) bool {
				if a.Date != b.Date {
					return a.Date > b.Date
				}
				return a.SubmittedAt.After(b.SubmittedAt)
			},
		}, nil
	}
}
