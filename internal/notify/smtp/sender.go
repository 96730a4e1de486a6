// Package smtp delivers certificates over authenticated SMTP.
package smtp

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/wneessen/go-mail"

	"certmailer/internal/notify"
)

// Config holds the SMTP account used to send certificates.
type Config struct {
	Server   string
	Port     int
	Email    string // login and From address
	Password string
	FromName string
	// StartTLS upgrades a plain connection instead of using implicit TLS.
	StartTLS bool
	Timeout  time.Duration
}

// Sender implements notify.Notifier.
type Sender struct {
	cfg Config
}

// New validates cfg and returns a sender.
func New(cfg Config) (*Sender, error) {
	if cfg.Server == "" || cfg.Port == 0 || cfg.Email == "" || cfg.Password == "" {
		return nil, errors.New("smtp: server, port, email and password are required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Sender{cfg: cfg}, nil
}

// Notify sends one message with the artifact attached.
func (s *Sender) Notify(ctx context.Context, d notify.Delivery) error {
	if err := d.Check(); err != nil {
		return err
	}
	msg, err := s.message(d)
	if err != nil {
		return notify.Wrap("smtp", err)
	}
	client, err := mail.NewClient(s.cfg.Server, s.clientOptions()...)
	if err != nil {
		return notify.Wrap("smtp", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return notify.Wrap("smtp", err)
	}
	return nil
}

func (s *Sender) clientOptions() []mail.Option {
	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.cfg.Email),
		mail.WithPassword(s.cfg.Password),
		mail.WithTimeout(s.cfg.Timeout),
	}
	if s.cfg.StartTLS {
		opts = append(opts, mail.WithTLSPortPolicy(mail.TLSMandatory))
	} else {
		opts = append(opts, mail.WithSSL())
	}
	return opts
}

// message builds the multipart message: an HTML body and one attachment
// named after the artifact's base name.
func (s *Sender) message(d notify.Delivery) (*mail.Msg, error) {
	m := mail.NewMsg()
	var err error
	if s.cfg.FromName != "" {
		err = m.FromFormat(s.cfg.FromName, s.cfg.Email)
	} else {
		err = m.From(s.cfg.Email)
	}
	if err != nil {
		return nil, fmt.Errorf("from: %w", err)
	}
	if d.Name != "" {
		err = m.AddToFormat(d.Name, d.To)
	} else {
		err = m.To(d.To)
	}
	if err != nil {
		return nil, fmt.Errorf("to: %w", err)
	}
	m.Subject(d.Subject)
	m.SetBodyString(mail.TypeTextHTML, d.HTML)
	m.AttachFile(d.Attachment, mail.WithFileName(filepath.Base(d.Attachment)))
	return m, nil
}
