package docstore

import "strings"

// Collection names, relative to the tenant root.
const (
	CollectionProfiles      = "profiles"
	CollectionApplications  = "pending_applications"
	CollectionTrials        = "trials"
	CollectionSchedules     = "schedules"
	CollectionRoster        = "roster"
	CollectionAttendance    = "attendance_records"
	CollectionEvaluations   = "player_evaluations"
	CollectionTrialResults  = "trial_results"
	CollectionNotifications = "notifications"
)

// Paths builds tenant-scoped collection paths.
type Paths struct {
	AppID string
}

// Collection returns artifacts/<appId>/<name>.
func (p Paths) Collection(name string) string {
	app := strings.Trim(p.AppID, "/")
	if app == "" {
		app = "default"
	}
	return "artifacts/" + app + "/" + name
}

func (p Paths) Profiles() string      { return p.Collection(CollectionProfiles) }
func (p Paths) Applications() string  { return p.Collection(CollectionApplications) }
func (p Paths) Trials() string        { return p.Collection(CollectionTrials) }
func (p Paths) Schedules() string     { return p.Collection(CollectionSchedules) }
func (p Paths) Roster() string        { return p.Collection(CollectionRoster) }
func (p Paths) Attendance() string    { return p.Collection(CollectionAttendance) }
func (p Paths) Evaluations() string   { return p.Collection(CollectionEvaluations) }
func (p Paths) TrialResults() string  { return p.Collection(CollectionTrialResults) }
func (p Paths) Notifications() string { return p.Collection(CollectionNotifications) }
