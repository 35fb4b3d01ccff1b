package orchestrators

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"sportify/internal/adapters/email"
	"sportify/internal/adapters/storage/docstore"
	domainOutbox "sportify/internal/domain/outbox"
)

// DocumentWrite is the replayable payload of a failed document write.
type DocumentWrite struct {
	Collection string         `json:"collection"`
	ID         string         `json:"id"`
	Fields     map[string]any `json:"fields"`
	Merge      bool           `json:"merge"`  // Update instead of Set
	Upsert     bool           `json:"upsert"` // with Merge, Set when the document is missing
}

// Apply performs the write against store.
func (w DocumentWrite) Apply(ctx context.Context, store docstore.Store) error {
	if !w.Merge {
		return store.Set(ctx, w.Collection, w.ID, w.Fields)
	}
	err := store.Update(ctx, w.Collection, w.ID, w.Fields)
	if w.Upsert && errors.Is(err, docstore.ErrNotFound) {
		return store.Set(ctx, w.Collection, w.ID, w.Fields)
	}
	return err
}

// EmailDelivery is the replayable payload of a failed notification email.
type EmailDelivery struct {
	To      []string `json:"to"`
	From    string   `json:"from,omitempty"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	Text    string   `json:"text,omitempty"`
}

func (e EmailDelivery) request() email.SendRequest {
	return email.SendRequest{To: e.To, From: e.From, Subject: e.Subject, HTML: e.HTML, Text: e.Text}
}

// secondaryWrite applies w and records a repair entry when it fails.
// It reports whether the write landed.
func (d Deps) secondaryWrite(ctx context.Context, workflow, action string, w DocumentWrite, res *Result, warning string) bool {
	err := w.Apply(ctx, d.Store)
	if err == nil {
		return true
	}
	slog.Warn("workflow_event", "event", "secondary_write_failed", "workflow", workflow, "action", action, "subject", w.ID, "error", err)
	res.warn(warning)
	d.recordRepair(ctx, workflow, action, w.ID, w, err)
	return false
}

// recordRepair saves a repair entry for a failed secondary write. A repair
// log failure is only logged; the workflow result is already decided.
func (d Deps) recordRepair(ctx context.Context, workflow, action, subject string, payload any, cause error) {
	if d.Repairs == nil {
		slog.Error("repair_event", "event", "repair_unrecorded", "workflow", workflow, "action", action, "subject", subject, "reason", "no repair log")
		return
	}
	body, err := json.Marshal(payload)
	if err != nil {
		slog.Error("repair_event", "event", "repair_unrecorded", "workflow", workflow, "action", action, "subject", subject, "error", err)
		return
	}
	e := domainOutbox.Entry{
		ID:           d.id(),
		Workflow:     workflow,
		ActionType:   action,
		Subject:      subject,
		Payload:      string(body),
		CreatedAt:    d.now(),
		ErrorMessage: fmt.Sprint(cause),
	}
	if err := e.Validate(); err != nil {
		slog.Error("repair_event", "event", "repair_unrecorded", "workflow", workflow, "action", action, "subject", subject, "error", err)
		return
	}
	if err := d.Repairs.Save(ctx, e); err != nil {
		slog.Error("repair_event", "event", "repair_unrecorded", "workflow", workflow, "action", action, "subject", subject, "error", err)
		return
	}
	slog.Info("repair_event", "event", "repair_recorded", "repair_id", e.ID, "workflow", workflow, "action", action, "subject", subject)
}
