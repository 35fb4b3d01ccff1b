package web

import (
	"net/http"
	"strconv"
	"strings"

	"sportify/internal/application/orchestrators"
	"sportify/internal/application/projections"
	"sportify/internal/domain/application"
	"sportify/internal/domain/fault"
	"sportify/internal/domain/notification"
	"sportify/internal/domain/profile"
	"sportify/internal/domain/role"
	"sportify/internal/domain/schedule"
	"sportify/internal/domain/trial"
)

// handlePendingApplications handles GET /api/admin/applications
func (s *Server) handlePendingApplications(w http.ResponseWriter, r *http.Request) {
	v, err := projections.Get(r.Context(), snapshot(r), s.deps.Store, projections.PendingApplications(s.deps.Paths))
	writeView(w, r, v, err)
}

// handleApprovedApplicants handles GET /api/admin/reports/approved?sport=&q=&page=&per_page=
func (s *Server) handleApprovedApplicants(w http.ResponseWriter, r *http.Request) {
	sport := strings.TrimSpace(r.URL.Query().Get("sport"))
	v, err := projections.Get(r.Context(), snapshot(r), s.deps.Store, projections.ApprovedApplicants(s.deps.Paths, sport))
	writePage(w, r, v, err, func(a application.Application) []string {
		return []string{a.FullName, a.Email, a.Sport}
	})
}

// handlePlayers handles GET /api/admin/players?q=&page=&per_page=
func (s *Server) handlePlayers(w http.ResponseWriter, r *http.Request) {
	v, err := projections.Get(r.Context(), snapshot(r), s.deps.Store, projections.PlayerDirectory(s.deps.Paths))
	writePage(w, r, v, err, profileText)
}

// handleCoaches handles GET /api/admin/coaches?q=&page=&per_page=
func (s *Server) handleCoaches(w http.ResponseWriter, r *http.Request) {
	v, err := projections.Get(r.Context(), snapshot(r), s.deps.Store, projections.Coaches(s.deps.Paths))
	writePage(w, r, v, err, profileText)
}

func profileText(p profile.Profile) []string {
	return []string{p.Name, p.Email, p.Sport, p.AssignedSport}
}

// handleReviewApplication handles POST /api/admin/applications/{id}/review
func (s *Server) handleReviewApplication(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Decision string `json:"decision"`
	}
	if !decodeOrReject(w, r, &in) {
		return
	}
	decision, err := application.ParseDecision(in.Decision)
	if err != nil {
		writeError(w, r, fault.Validation("review_application", err))
		return
	}
	res, err := orchestrators.ExecuteReviewApplication(r.Context(), snapshot(r), orchestrators.ReviewApplicationInput{
		ApplicationID: r.PathValue("id"),
		Decision:      decision,
	}, s.deps)
	if err != nil {
		writeError(w, r, err)
		return
	}
	toastResult(r, "Application marked "+res.Application.Status+".", res.Result)
	writeJSON(w, http.StatusOK, map[string]any{
		"application": projections.Item[application.Application]{ID: res.Application.ID, Value: res.Application},
		"warnings":    res.Warnings,
	})
}

// handleCreateTrial handles POST /api/admin/trials
func (s *Server) handleCreateTrial(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Sport       string `json:"sport"`
		Date        string `json:"date"`
		Location    string `json:"location"`
		CoachID     string `json:"coachId"`
		Description string `json:"description"`
	}
	if !decodeOrReject(w, r, &in) {
		return
	}
	t, err := orchestrators.ExecuteCreateTrial(r.Context(), snapshot(r), orchestrators.CreateTrialInput{
		Sport:       in.Sport,
		Date:        in.Date,
		Location:    in.Location,
		CoachID:     in.CoachID,
		Description: in.Description,
	}, s.deps)
	if err != nil {
		writeError(w, r, err)
		return
	}
	pushToast(r, "Trial created.", notification.SeveritySuccess)
	writeJSON(w, http.StatusCreated, trialJSON(projections.Item[trial.Trial]{ID: t.ID, Value: t}))
}

// handleCreateSchedule handles POST /api/admin/schedules
func (s *Server) handleCreateSchedule(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Sport         string   `json:"sport"`
		Date          string   `json:"date"`
		Time          string   `json:"time"`
		Location      string   `json:"location"`
		Spots         int      `json:"spots"`
		TargetUserIDs []string `json:"targetUserIds"`
	}
	if !decodeOrReject(w, r, &in) {
		return
	}
	sc, err := orchestrators.ExecuteCreateSchedule(r.Context(), snapshot(r), orchestrators.CreateScheduleInput{
		Sport:         in.Sport,
		Date:          in.Date,
		Time:          in.Time,
		Location:      in.Location,
		Spots:         in.Spots,
		TargetUserIDs: in.TargetUserIDs,
	}, s.deps)
	if err != nil {
		writeError(w, r, err)
		return
	}
	pushToast(r, "Schedule published.", notification.SeveritySuccess)
	writeJSON(w, http.StatusCreated, projections.Item[schedule.Schedule]{ID: sc.ID, Value: sc})
}

// handleAssignCoach handles POST /api/admin/coaches/assign
func (s *Server) handleAssignCoach(w http.ResponseWriter, r *http.Request) {
	var in struct {
		CoachID string `json:"coachId"`
		Sport   string `json:"sport"`
	}
	if !decodeOrReject(w, r, &in) {
		return
	}
	if err := orchestrators.ExecuteAssignCoach(r.Context(), snapshot(r), orchestrators.AssignCoachInput{
		CoachID: in.CoachID,
		Sport:   in.Sport,
	}, s.deps); err != nil {
		writeError(w, r, err)
		return
	}
	pushToast(r, "Coach assigned.", notification.SeveritySuccess)
	w.WriteHeader(http.StatusNoContent)
}

// handleSetUserRole handles POST /api/admin/users/{id}/role
func (s *Server) handleSetUserRole(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Role string `json:"role"`
	}
	if !decodeOrReject(w, r, &in) {
		return
	}
	if err := orchestrators.ExecuteSetUserRole(r.Context(), snapshot(r), orchestrators.SetUserRoleInput{
		UserID: r.PathValue("id"),
		Role:   in.Role,
	}, s.deps); err != nil {
		writeError(w, r, err)
		return
	}
	pushToast(r, "Role updated.", notification.SeveritySuccess)
	w.WriteHeader(http.StatusNoContent)
}

// --- Repairs ---

// handleListRepairs handles GET /api/admin/repairs?limit=
func (s *Server) handleListRepairs(w http.ResponseWriter, r *http.Request) {
	if err := snapshot(r).Require(role.FeatureViewRepairs); err != nil {
		writeError(w, r, err)
		return
	}
	limit := 50
	if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && n > 0 && n <= 100 {
		limit = n
	}
	entries, err := s.repairs.ListUnresolved(r.Context(), limit)
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleRetryRepair handles POST /api/admin/repairs/{id}/retry
func (s *Server) handleRetryRepair(w http.ResponseWriter, r *http.Request) {
	if err := snapshot(r).Require(role.FeatureViewRepairs); err != nil {
		writeError(w, r, err)
		return
	}
	entry, err := s.repairs.ProcessSingle(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, repairError(err))
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// handleAbandonRepair handles POST /api/admin/repairs/{id}/abandon
func (s *Server) handleAbandonRepair(w http.ResponseWriter, r *http.Request) {
	if err := snapshot(r).Require(role.FeatureViewRepairs); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.repairs.AbandonEntry(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, repairError(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
