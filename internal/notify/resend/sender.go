// Package resend delivers certificates through the Resend email API.
package resend

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/resend/resend-go/v3"

	"certmailer/internal/notify"
)

// Config holds Resend settings.
type Config struct {
	APIKey      string
	SenderEmail string
	SenderName  string
	// BaseURL overrides the API endpoint; empty uses Resend's default.
	BaseURL string
}

// Sender implements notify.Notifier using the Resend API.
type Sender struct {
	client *resend.Client
	config Config
}

// New creates a Resend sender.
func New(cfg Config) (*Sender, error) {
	if cfg.APIKey == "" || cfg.SenderEmail == "" {
		return nil, errors.New("resend: api key and sender email are required")
	}
	client := resend.NewClient(cfg.APIKey)
	if cfg.BaseURL != "" {
		u, err := url.Parse(cfg.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("resend: base url: %w", err)
		}
		client.BaseURL = u
	}
	return &Sender{client: client, config: cfg}, nil
}

// Notify implements notify.Notifier.
func (s *Sender) Notify(ctx context.Context, d notify.Delivery) error {
	if err := d.Check(); err != nil {
		return err
	}
	content, err := os.ReadFile(d.Attachment)
	if err != nil {
		return notify.Wrap("resend", err)
	}

	from := s.config.SenderEmail
	if s.config.SenderName != "" {
		from = fmt.Sprintf("%s <%s>", s.config.SenderName, s.config.SenderEmail)
	}
	to := d.To
	if d.Name != "" {
		to = fmt.Sprintf("%s <%s>", d.Name, d.To)
	}

	req := &resend.SendEmailRequest{
		From:    from,
		To:      []string{to},
		Subject: d.Subject,
		Html:    d.HTML,
		Attachments: []*resend.Attachment{{
			Filename:    filepath.Base(d.Attachment),
			Content:     content,
			ContentType: "application/pdf",
		}},
	}
	if _, err := s.client.Emails.SendWithContext(ctx, req); err != nil {
		return notify.Wrap("resend", err)
	}
	return nil
}
