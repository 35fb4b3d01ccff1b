package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"sportify/internal/adapters/email"
	"sportify/internal/adapters/http/middleware"
	"sportify/internal/adapters/storage/docstore"
	"sportify/internal/adapters/storage/outbox"
	"sportify/internal/application/orchestrators"
	"sportify/internal/application/projections"
	"sportify/internal/application/toast"
	"sportify/internal/domain/fault"
	"sportify/internal/domain/notification"
	domainOutbox "sportify/internal/domain/outbox"
	"sportify/internal/domain/trial"
)

// feedHeartbeat keeps idle event streams open through proxies.
const feedHeartbeat = 25 * time.Second

// handleTrials handles GET /api/trials
func (s *Server) handleTrials(w http.ResponseWriter, r *http.Request) {
	v, err := projections.Get(r.Context(), snapshot(r), s.deps.Store, projections.Trials(s.deps.Paths))
	if err == nil {
		err = v.Err
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]map[string]any, 0, len(v.Items))
	for _, it := range v.Items {
		out = append(out, trialJSON(it))
	}
	writeJSON(w, http.StatusOK, out)
}

// handleSchedules handles GET /api/schedules
func (s *Server) handleSchedules(w http.ResponseWriter, r *http.Request) {
	v, err := projections.Get(r.Context(), snapshot(r), s.deps.Store, projections.Schedules(s.deps.Paths))
	writeView(w, r, v, err)
}

// handleNotifications handles GET /api/notifications
func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	v, err := projections.Get(r.Context(), snapshot(r), s.deps.Store, projections.Notifications(s.deps.Paths))
	writeView(w, r, v, err)
}

// handleResults handles GET /api/results
func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	v, err := projections.Get(r.Context(), snapshot(r), s.deps.Store, projections.TrialResults(s.deps.Paths))
	writeView(w, r, v, err)
}

// handleEvaluations handles GET /api/evaluations
func (s *Server) handleEvaluations(w http.ResponseWriter, r *http.Request) {
	v, err := projections.Get(r.Context(), snapshot(r), s.deps.Store, projections.Evaluations(s.deps.Paths))
	writeView(w, r, v, err)
}

// handleAttendance handles GET /api/attendance
func (s *Server) handleAttendance(w http.ResponseWriter, r *http.Request) {
	v, err := projections.Get(r.Context(), snapshot(r), s.deps.Store, projections.Attendance(s.deps.Paths))
	writeView(w, r, v, err)
}

// handleFeed handles GET /api/feeds/{feed}, streaming every snapshot of
// the named feed as a server-sent event until the client disconnects.
// The "toasts" feed streams the caller's notification bus.
func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	client, ok := middleware.ClientFromContext(r.Context())
	if !ok {
		writeError(w, r, fault.Auth("follow_feed", "please sign in", nil))
		return
	}
	name := r.PathValue("feed")

	updates := make(chan any, 1)
	push := func(v any) {
		// Latest wins: a slow client skips intermediate snapshots.
		select {
		case <-updates:
		default:
		}
		select {
		case updates <- v:
		default:
		}
	}

	var stop func()
	if name == "toasts" {
		stop = client.Toasts.Subscribe(func(list []toast.Toast) { push(toastList(list)) })
	} else {
		follower, err := s.feeds.Follow(r.Context(), name, client.Session, func(u projections.Update) { push(u) })
		if err != nil {
			writeError(w, r, err)
			return
		}
		stop = follower.Close
	}
	defer stop()

	rc := http.NewResponseController(w)
	_ = rc.SetWriteDeadline(time.Time{})
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		slog.Warn("feed_event", "event", "stream_unsupported", "feed", name, "error", err)
		return
	}
	slog.Info("feed_event", "event", "stream_opened", "feed", name, "session_id", client.SessionID)

	heartbeat := time.NewTicker(feedHeartbeat)
	defer heartbeat.Stop()
	for {
		select {
		case <-r.Context().Done():
			slog.Info("feed_event", "event", "stream_closed", "feed", name, "session_id", client.SessionID)
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
		case v := <-updates:
			data, err := json.Marshal(v)
			if err != nil {
				slog.Error("feed_event", "event", "encode_failed", "feed", name, "error", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", data); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

// toastBody is a toast as the client sees it.
type toastBody struct {
	ID         string                `json:"id"`
	Message    string                `json:"message"`
	Type       notification.Severity `json:"type"`
	DurationMs int64                 `json:"duration"`
	CreatedAt  time.Time             `json:"createdAt"`
}

func toastList(list []toast.Toast) []toastBody {
	out := make([]toastBody, 0, len(list))
	for _, t := range list {
		out = append(out, toastBody{ID: t.ID, Message: t.Message, Type: t.Type, DurationMs: t.DurationMs(), CreatedAt: t.CreatedAt})
	}
	return out
}

// handleToasts handles GET /api/toasts
func (s *Server) handleToasts(w http.ResponseWriter, r *http.Request) {
	client, ok := middleware.ClientFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusOK, []toastBody{})
		return
	}
	writeJSON(w, http.StatusOK, toastList(client.Toasts.List()))
}

// handleDismissToast handles DELETE /api/toasts/{id}
func (s *Server) handleDismissToast(w http.ResponseWriter, r *http.Request) {
	if client, ok := middleware.ClientFromContext(r.Context()); ok {
		client.Toasts.Dismiss(r.PathValue("id"))
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleHealth handles GET /healthz
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health(r.Context()); err != nil {
			slog.Error("health_event", "event", "health_check_failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- helpers ---

// toastResult tells the caller how a workflow ended, warning when a
// secondary step is still waiting on repair.
func toastResult(r *http.Request, msg string, res orchestrators.Result) {
	if res.Partial() {
		pushToast(r, msg+" "+strings.Join(res.Warnings, "; ")+".", notification.SeverityWarning)
		return
	}
	pushToast(r, msg, notification.SeveritySuccess)
}

// trialJSON flattens a trial and adds its rendered description.
func trialJSON(it projections.Item[trial.Trial]) map[string]any {
	fields, err := docstore.Encode(it.Value)
	if err != nil || fields == nil {
		fields = map[string]any{}
	}
	fields["id"] = it.ID
	if it.Value.Description != "" {
		fields["descriptionHtml"] = email.RenderMarkdown(it.Value.Description)
	}
	return fields
}

// repairError classifies repair-log failures for the admin routes.
func repairError(err error) error {
	switch {
	case errors.Is(err, outbox.ErrNotFound):
		return fault.NotFound("repair", "no such repair entry", err)
	case errors.Is(err, domainOutbox.ErrNotRetryable):
		return fault.Conflict("repair", "this repair entry can no longer be retried", err)
	default:
		return fault.Remote("repair", err)
	}
}
