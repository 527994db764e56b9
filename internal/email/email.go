// Package email sends announcement digests and error alerts through a
// pluggable provider.
package email

import (
	"context"
	"fmt"
	"log"

	"elearn-monitor/internal/database"
)

// Provider defines the interface for email sending implementations.
type Provider interface {
	// Send delivers a message with both a plain-text and an HTML part.
	Send(ctx context.Context, to, subject, textBody, htmlBody string) error
}

// Sender composes and sends notification emails using a provider.
type Sender struct {
	provider  Provider
	recipient string
}

// NewSender creates a sender that delivers to the given recipient.
func NewSender(provider Provider, recipient string) *Sender {
	return &Sender{provider: provider, recipient: recipient}
}

// SendDigest emails the announcements for a single course. The caller marks
// them notified only when this returns nil.
func (s *Sender) SendDigest(ctx context.Context, courseName string, announcements []database.Announcement) error {
	if len(announcements) == 0 {
		return nil
	}

	subject := digestSubject(courseName, announcements)
	text := digestText(courseName, announcements)
	html, err := renderHTML(text)
	if err != nil {
		return fmt.Errorf("rendering digest: %w", err)
	}

	log.Printf("sending digest for %s (%d announcement(s)) to %s", courseName, len(announcements), s.recipient)
	if err := s.provider.Send(ctx, s.recipient, subject, text, html); err != nil {
		return fmt.Errorf("sending digest: %w", err)
	}
	return nil
}

// SendErrorAlert emails an operational failure notice.
func (s *Sender) SendErrorAlert(ctx context.Context, message, detail string) error {
	subject := "Monitor alert: " + message
	text := alertText(message, detail)
	html, err := renderHTML(text)
	if err != nil {
		return fmt.Errorf("rendering alert: %w", err)
	}

	log.Printf("sending error alert to %s: %s", s.recipient, message)
	if err := s.provider.Send(ctx, s.recipient, subject, text, html); err != nil {
		return fmt.Errorf("sending alert: %w", err)
	}
	return nil
}
