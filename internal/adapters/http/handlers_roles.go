package web

import (
	"net/http"

	"sportify/internal/application/orchestrators"
	"sportify/internal/application/projections"
	"sportify/internal/domain/application"
	"sportify/internal/domain/attendance"
	"sportify/internal/domain/evaluation"
	"sportify/internal/domain/notification"
	"sportify/internal/domain/profile"
	"sportify/internal/domain/trialresult"
)

// --- Coach ---

// handleRoster handles GET /api/coach/roster
func (s *Server) handleRoster(w http.ResponseWriter, r *http.Request) {
	v, err := projections.Get(r.Context(), snapshot(r), s.deps.Store, projections.Roster(s.deps.Paths))
	writeView(w, r, v, err)
}

// handleRecordAttendance handles POST /api/coach/attendance
func (s *Server) handleRecordAttendance(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Date  string `json:"date"`
		Marks []struct {
			PlayerID string `json:"playerId"`
			Status   string `json:"status"`
		} `json:"marks"`
	}
	if !decodeOrReject(w, r, &in) {
		return
	}
	sheet := orchestrators.RecordAttendanceInput{Date: in.Date}
	for _, m := range in.Marks {
		sheet.Marks = append(sheet.Marks, orchestrators.AttendanceMark{PlayerID: m.PlayerID, Status: m.Status})
	}
	res, err := orchestrators.ExecuteRecordAttendance(r.Context(), snapshot(r), sheet, s.deps)
	if err != nil {
		writeError(w, r, err)
		return
	}
	recorded := make([]projections.Item[attendance.Record], 0, len(res.Recorded))
	for _, rec := range res.Recorded {
		recorded = append(recorded, projections.Item[attendance.Record]{ID: rec.ID, Value: rec})
	}
	if len(res.Duplicates) > 0 {
		pushToast(r, "Attendance saved. Some players were already marked for this date.", notification.SeverityWarning)
	} else {
		pushToast(r, "Attendance saved.", notification.SeveritySuccess)
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"recorded":   recorded,
		"duplicates": res.Duplicates,
	})
}

// handleSubmitEvaluation handles POST /api/coach/evaluations
func (s *Server) handleSubmitEvaluation(w http.ResponseWriter, r *http.Request) {
	var in struct {
		PlayerID    string         `json:"playerId"`
		SessionType string         `json:"sessionType"`
		Ratings     map[string]int `json:"ratings"`
		Comments    string         `json:"comments"`
	}
	if !decodeOrReject(w, r, &in) {
		return
	}
	e, err := orchestrators.ExecuteSubmitEvaluation(r.Context(), snapshot(r), orchestrators.SubmitEvaluationInput{
		PlayerID:    in.PlayerID,
		SessionType: in.SessionType,
		Ratings:     in.Ratings,
		Comments:    in.Comments,
	}, s.deps)
	if err != nil {
		writeError(w, r, err)
		return
	}
	pushToast(r, "Evaluation submitted.", notification.SeveritySuccess)
	writeJSON(w, http.StatusCreated, projections.Item[evaluation.Evaluation]{ID: e.ID, Value: e})
}

// handleUploadTrialResult handles POST /api/coach/results
func (s *Server) handleUploadTrialResult(w http.ResponseWriter, r *http.Request) {
	var in struct {
		PlayerID       string `json:"playerId"`
		TrialDate      string `json:"trialDate"`
		SpeedScore     int    `json:"speedScore"`
		AgilityScore   int    `json:"agilityScore"`
		Feedback       string `json:"feedback"`
		Recommendation string `json:"recommendation"`
	}
	if !decodeOrReject(w, r, &in) {
		return
	}
	res, err := orchestrators.ExecuteUploadTrialResult(r.Context(), snapshot(r), orchestrators.UploadTrialResultInput{
		PlayerID:       in.PlayerID,
		TrialDate:      in.TrialDate,
		SpeedScore:     in.SpeedScore,
		AgilityScore:   in.AgilityScore,
		Feedback:       in.Feedback,
		Recommendation: in.Recommendation,
	}, s.deps)
	if err != nil {
		writeError(w, r, err)
		return
	}
	pushToast(r, "Trial result uploaded.", notification.SeveritySuccess)
	writeJSON(w, http.StatusCreated, projections.Item[trialresult.Result]{ID: res.ID, Value: res})
}

// --- Player ---

// handleSubmitApplication handles POST /api/player/applications
func (s *Server) handleSubmitApplication(w http.ResponseWriter, r *http.Request) {
	var in struct {
		FullName    string `json:"fullName"`
		DOB         string `json:"dob"`
		PhoneNumber string `json:"phoneNumber"`
		NationalID  string `json:"aadhar"`
		Experience  string `json:"experience"`
		Sport       string `json:"sport"`
		TrialID     string `json:"trialId"`
	}
	if !decodeOrReject(w, r, &in) {
		return
	}
	res, err := orchestrators.ExecuteSubmitApplication(r.Context(), snapshot(r), orchestrators.SubmitApplicationInput{
		FullName:    in.FullName,
		DOB:         in.DOB,
		PhoneNumber: in.PhoneNumber,
		NationalID:  in.NationalID,
		Experience:  in.Experience,
		Sport:       in.Sport,
		TrialID:     in.TrialID,
	}, s.deps)
	if err != nil {
		writeError(w, r, err)
		return
	}
	toastResult(r, "Application submitted.", res.Result)
	writeJSON(w, http.StatusCreated, map[string]any{
		"application": projections.Item[application.Application]{ID: res.Application.ID, Value: res.Application},
		"warnings":    res.Warnings,
	})
}

// handleUpdateProfile handles PUT /api/player/profile
func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Name        string `json:"name"`
		PhoneNumber string `json:"phoneNumber"`
	}
	if !decodeOrReject(w, r, &in) {
		return
	}
	p, err := orchestrators.ExecuteUpdateProfileDetails(r.Context(), snapshot(r), orchestrators.UpdateProfileDetailsInput{
		Name:        in.Name,
		PhoneNumber: in.PhoneNumber,
	}, s.deps)
	if err != nil {
		writeError(w, r, err)
		return
	}
	pushToast(r, "Profile updated.", notification.SeveritySuccess)
	writeJSON(w, http.StatusOK, projections.Item[profile.Profile]{ID: p.ID, Value: p})
}

// handleAddAchievement handles POST /api/player/achievements
func (s *Server) handleAddAchievement(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Title string `json:"title"`
		Year  string `json:"year"`
	}
	if !decodeOrReject(w, r, &in) {
		return
	}
	list, err := orchestrators.ExecuteAddAchievement(r.Context(), snapshot(r), orchestrators.AddAchievementInput{
		Title: in.Title,
		Year:  in.Year,
	}, s.deps)
	if err != nil {
		writeError(w, r, err)
		return
	}
	pushToast(r, "Achievement added.", notification.SeveritySuccess)
	writeJSON(w, http.StatusCreated, list)
}
