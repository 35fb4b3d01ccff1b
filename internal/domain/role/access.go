package role

// Feature is a role-gated capability.
type Feature int

const (
	FeatureReviewApplications Feature = iota
	FeatureManageTrials
	FeatureManageSchedules
	FeatureAssignCoaches
	FeatureManageRoles
	FeatureViewPlayers
	FeatureViewRepairs
	FeatureGenerateReports
	FeatureViewRoster
	FeatureMarkAttendance
	FeatureEvaluatePlayers
	FeatureUploadResults
	FeatureApplyForTrial
	FeatureEditProfile
	FeatureViewTrials
	FeatureViewSchedules
	FeatureViewNotifications
	FeatureViewResults
	FeatureViewEvaluations
	FeatureViewAttendance
)

var featureNames = map[Feature]string{
	FeatureReviewApplications: "review_applications",
	FeatureManageTrials:       "manage_trials",
	FeatureManageSchedules:    "manage_schedules",
	FeatureAssignCoaches:      "assign_coaches",
	FeatureManageRoles:        "manage_roles",
	FeatureViewPlayers:        "view_players",
	FeatureViewRepairs:        "view_repairs",
	FeatureGenerateReports:    "generate_reports",
	FeatureViewRoster:         "view_roster",
	FeatureMarkAttendance:     "mark_attendance",
	FeatureEvaluatePlayers:    "evaluate_players",
	FeatureUploadResults:      "upload_results",
	FeatureApplyForTrial:      "apply_for_trial",
	FeatureEditProfile:        "edit_profile",
	FeatureViewTrials:         "view_trials",
	FeatureViewSchedules:      "view_schedules",
	FeatureViewNotifications:  "view_notifications",
	FeatureViewResults:        "view_results",
	FeatureViewEvaluations:    "view_evaluations",
	FeatureViewAttendance:     "view_attendance",
}

// String returns the feature's stable name.
func (f Feature) String() string {
	if name, ok := featureNames[f]; ok {
		return name
	}
	return "unknown_feature"
}

// CanAccess reports whether r may use f.
// Every role is matched explicitly; Unrecognized never gets access.
func (r Role) CanAccess(f Feature) bool {
	switch r {
	case Admin:
		return adminCan(f)
	case Coach:
		return coachCan(f)
	case Player:
		return playerCan(f)
	case Unrecognized:
		return false
	default:
		return false
	}
}

func adminCan(f Feature) bool {
	switch f {
	case FeatureReviewApplications, FeatureManageTrials, FeatureManageSchedules,
		FeatureAssignCoaches, FeatureManageRoles, FeatureViewPlayers,
		FeatureViewRepairs, FeatureGenerateReports, FeatureViewTrials,
		FeatureViewSchedules, FeatureViewNotifications, FeatureViewResults:
		return true
	default:
		return false
	}
}

func coachCan(f Feature) bool {
	switch f {
	case FeatureViewRoster, FeatureMarkAttendance, FeatureEvaluatePlayers,
		FeatureUploadResults, FeatureViewTrials, FeatureViewSchedules,
		FeatureViewNotifications, FeatureViewResults, FeatureViewEvaluations,
		FeatureViewAttendance, FeatureEditProfile:
		return true
	default:
		return false
	}
}

func playerCan(f Feature) bool {
	switch f {
	case FeatureApplyForTrial, FeatureEditProfile, FeatureViewTrials,
		FeatureViewSchedules, FeatureViewNotifications, FeatureViewResults,
		FeatureViewEvaluations, FeatureViewAttendance:
		return true
	default:
		return false
	}
}
