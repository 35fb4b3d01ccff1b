package orchestrators

import (
	"context"
	"log/slog"

	"sportify/internal/adapters/email"
	"sportify/internal/adapters/storage/docstore"
	"sportify/internal/domain/notification"
	domainOutbox "sportify/internal/domain/outbox"
	"sportify/internal/domain/profile"
)

// notify persists n and, when a mailer is configured and n addresses one
// identity, mails it. Both steps are best-effort: failures are logged and a
// failed email leaves a repair entry, but the workflow outcome is unchanged.
// POST: returns the stored notification id, "" if it was not stored
func (d Deps) notify(ctx context.Context, workflow string, n notification.Notification) string {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = d.now()
	}
	if err := n.Validate(); err != nil {
		slog.Warn("notification_event", "event", "notification_invalid", "workflow", workflow, "error", err)
		return ""
	}
	fields, err := docstore.Encode(n)
	if err != nil {
		slog.Warn("notification_event", "event", "notification_encode_failed", "workflow", workflow, "error", err)
		return ""
	}
	id, err := d.Store.Add(ctx, d.Paths.Notifications(), fields)
	if err != nil {
		slog.Warn("notification_event", "event", "notification_failed", "workflow", workflow, "target_user", n.TargetUserID, "error", err)
		return ""
	}
	slog.Info("notification_event", "event", "notification_created", "workflow", workflow, "notification_id", id, "target_role", n.TargetRole, "target_user", n.TargetUserID)

	if d.Mailer != nil && n.TargetUserID != "" {
		d.mail(ctx, workflow, n)
	}
	return id
}

func (d Deps) mail(ctx context.Context, workflow string, n notification.Notification) {
	p, err := getDoc[profile.Profile](ctx, d.Store, d.Paths.Profiles(), n.TargetUserID)
	if err != nil || p.Email == "" {
		slog.Debug("email_event", "event", "email_skipped", "workflow", workflow, "target_user", n.TargetUserID)
		return
	}
	req := email.Compose(email.NotificationMessage{
		To:       p.Email,
		Name:     p.Name,
		Message:  n.Message,
		Related:  n.Related,
		Severity: string(n.Type),
	})
	req.From = d.From
	if _, err := d.Mailer.Send(ctx, req); err != nil {
		slog.Warn("email_event", "event", "email_failed", "workflow", workflow, "target_user", n.TargetUserID, "error", err)
		d.recordRepair(ctx, workflow, domainOutbox.ActionNotificationEmail, n.TargetUserID, EmailDelivery{
			To:      req.To,
			From:    req.From,
			Subject: req.Subject,
			HTML:    req.HTML,
			Text:    req.Text,
		}, err)
	}
}
