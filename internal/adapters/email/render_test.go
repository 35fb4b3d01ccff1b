package email

import (
	"context"
	"strings"
	"testing"
)

// TestRenderMarkdown_EscapesHTML verifies raw HTML never reaches the output.
func TestRenderMarkdown_EscapesHTML(t *testing.T) {
	out := RenderMarkdown("**hello** <script>alert(1)</script>")
	if !strings.Contains(out, "<strong>hello</strong>") {
		t.Errorf("expected bold markup, got %q", out)
	}
	if strings.Contains(out, "<script>") {
		t.Errorf("raw HTML leaked: %q", out)
	}
}

// TestCompose builds a notification email.
func TestCompose(t *testing.T) {
	req := Compose(NotificationMessage{
		To:       "p@example.com",
		Name:     "Asha_K",
		Message:  "Your application for Football has been approved!",
		Related:  "Trial: Football on 2026-04-02",
		Severity: "success",
	})
	if len(req.To) != 1 || req.To[0] != "p@example.com" {
		t.Errorf("unexpected recipients %v", req.To)
	}
	if req.Subject != "Sportify: Trial: Football on 2026-04-02" {
		t.Errorf("unexpected subject %q", req.Subject)
	}
	if !strings.Contains(req.HTML, "Hi Asha_K") {
		t.Errorf("name should be rendered literally, got %q", req.HTML)
	}
	if !strings.Contains(req.HTML, "<em>Trial: Football on 2026-04-02</em>") {
		t.Errorf("related label missing, got %q", req.HTML)
	}
	if req.Text != "Hi Asha_K,\n\nYour application for Football has been approved!\n\nTrial: Football on 2026-04-02\n" {
		t.Errorf("unexpected text body %q", req.Text)
	}
	if req.Tags["severity"] != "success" {
		t.Errorf("severity tag missing: %v", req.Tags)
	}
}

// TestNoopSender_RecordsSends verifies noop sends are kept in order.
func TestNoopSender_RecordsSends(t *testing.T) {
	s := NewNoopSender()
	for _, subject := range []string{"a", "b"} {
		if _, err := s.Send(context.Background(), SendRequest{To: []string{"x@example.com"}, Subject: subject}); err != nil {
			t.Fatalf("Send: %v", err)
		}
	}
	sent := s.Sent()
	if len(sent) != 2 || sent[0].Subject != "a" || sent[1].Subject != "b" {
		t.Errorf("unexpected sent list %+v", sent)
	}
}
