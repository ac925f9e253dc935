package email

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// DevSender writes outbound notification emails to a local directory instead
// of a gateway: one HTML file with the rendered body and one JSON file with
// the envelope. Developers can inspect exactly what a user would have
// received without a Postmark account or an SMTP relay.
type DevSender struct {
	dir string
}

// NewDevSender creates a sender that captures emails under dir. The
// directory is created on first send.
func NewDevSender(dir string) EmailSender {
	return &DevSender{dir: dir}
}

// envelope is the JSON sidecar written next to each captured body. Tag
// carries the notification type, which is how captures are grepped for.
type envelope struct {
	SentAt  string `json:"sent_at"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Tag     string `json:"tag,omitempty"`
}

// SendEmail captures the email on disk. Files are named
// <timestamp>_<tag>.{html,json}, falling back to the subject when the
// notification type tag is empty.
func (d *DevSender) SendEmail(ctx context.Context, params SendEmailParams) error {
	if err := params.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(d.dir, 0755); err != nil {
		return fmt.Errorf("%w: failed to create directory: %v", ErrFailedToSendEmail, err)
	}

	label := params.Tag
	if label == "" {
		label = params.Subject
	}

	now := time.Now()
	base := fmt.Sprintf("%s_%s", now.Format("20060102_150405"), sanitizeFilename(label))

	htmlPath := filepath.Join(d.dir, base+".html")
	if err := os.WriteFile(htmlPath, []byte(params.BodyHTML), 0644); err != nil {
		return fmt.Errorf("%w: failed to write body: %v", ErrFailedToSendEmail, err)
	}

	meta, err := json.MarshalIndent(envelope{
		SentAt:  now.Format(time.RFC3339),
		To:      params.SendTo,
		Subject: params.Subject,
		Tag:     params.Tag,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: failed to marshal envelope: %v", ErrFailedToSendEmail, err)
	}
	if err := os.WriteFile(filepath.Join(d.dir, base+".json"), meta, 0644); err != nil {
		return fmt.Errorf("%w: failed to write envelope: %v", ErrFailedToSendEmail, err)
	}

	return nil
}

var unsafeFilenameChars = regexp.MustCompile(`[^a-z0-9\-_.]`)

// sanitizeFilename lowercases the label, turns spaces into underscores, and
// strips everything a filesystem might object to. Notification types
// ("mention", "follow_request") pass through unchanged.
func sanitizeFilename(s string) string {
	s = strings.ToLower(strings.ReplaceAll(s, " ", "_"))
	s = unsafeFilenameChars.ReplaceAllString(s, "")

	const maxLen = 80
	if len(s) > maxLen {
		s = s[:maxLen]
	}
	if s == "" {
		return "notification"
	}
	return s
}
