package email

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"
)

// markdown converts user-authored markdown to HTML.
// Raw HTML in the input is escaped (WithUnsafe is NOT set).
var markdown = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// RenderMarkdown converts md to safe HTML, falling back to escaped text.
func RenderMarkdown(md string) string {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(md), &buf); err != nil {
		return "<p>" + html.EscapeString(md) + "</p>"
	}
	return buf.String()
}

// NotificationMessage is the content of one notification email.
type NotificationMessage struct {
	To       string
	Name     string
	Message  string
	Related  string
	Severity string
}

// Subject returns the email subject line.
func (m NotificationMessage) Subject() string {
	if m.Related != "" {
		return "Sportify: " + m.Related
	}
	return "Sportify notification"
}

// Compose renders m into a SendRequest.
// PRE: m.To is non-empty
// POST: HTML body is the rendered markdown message with a greeting
func Compose(m NotificationMessage) SendRequest {
	var body strings.Builder
	name := strings.TrimSpace(m.Name)
	if name == "" {
		name = "there"
	}
	fmt.Fprintf(&body, "Hi %s,\n\n%s\n", escapeMarkdown(name), m.Message)
	if m.Related != "" {
		fmt.Fprintf(&body, "\n_%s_\n", escapeMarkdown(m.Related))
	}
	req := SendRequest{
		To:      []string{m.To},
		Subject: m.Subject(),
		HTML:    RenderMarkdown(body.String()),
		Text:    plainText(name, m),
	}
	if m.Severity != "" {
		req.Tags = map[string]string{"severity": m.Severity}
	}
	return req
}

// plainText is the text alternative of the composed body.
func plainText(name string, m NotificationMessage) string {
	text := fmt.Sprintf("Hi %s,\n\n%s\n", name, m.Message)
	if m.Related != "" {
		text += "\n" + m.Related + "\n"
	}
	return text
}

var markdownEscaper = strings.NewReplacer(`*`, `\*`, `_`, `\_`, "`", "\\`", `[`, `\[`, `]`, `\]`)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
