package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"certmailer/internal/attempt"
	"certmailer/internal/config"
	"certmailer/internal/convert"
	"certmailer/internal/failure"
	"certmailer/internal/ilovepdf"
	"certmailer/internal/notify"
	"certmailer/internal/notify/printer"
	"certmailer/internal/notify/resend"
	"certmailer/internal/notify/smtp"
)

// credentialFlags registers --public-key and --secret-key on c.
func credentialFlags(c *cobra.Command, creds *convert.Credentials) {
	c.Flags().StringVar(&creds.PublicKey, "public-key", "", "iLovePDF public key (overrides config and "+convert.EnvPublicKey+")")
	c.Flags().StringVar(&creds.SecretKey, "secret-key", "", "iLovePDF secret key (overrides config and "+convert.EnvSecretKey+")")
}

// newConverter resolves credentials once and builds the retrying converter.
func newConverter(cfg config.Config, explicit convert.Credentials, log *slog.Logger) (*convert.Converter, error) {
	creds, err := convert.ResolveCredentials(explicit, convert.Credentials{
		PublicKey: cfg.ILovePDF.PublicKey,
		SecretKey: cfg.ILovePDF.SecretKey,
	}, os.Getenv)
	if err != nil {
		return nil, err
	}
	client := ilovepdf.New(cfg.ILovePDF.BaseURL, cfg.ILovePDF.RequestTimeout()).WithWorkerScheme(cfg.ILovePDF.WorkerScheme)
	return convert.New(client, creds, convert.Options{
		Tool:      cfg.ILovePDF.Tool,
		Policy:    attempt.Policy{MaxAttempts: cfg.ILovePDF.MaxAttempts, Delay: cfg.ILovePDF.Delay()},
		VerifyPDF: cfg.ILovePDF.VerifyPDF,
	}, log), nil
}

// newMailer returns the configured email transport, or nil for "none".
func newMailer(cfg config.Config) (notify.Notifier, error) {
	switch cfg.Email.Transport {
	case config.TransportSMTP:
		s := cfg.Email.SMTP
		return smtp.New(smtp.Config{
			Server:   s.Server,
			Port:     s.Port,
			Email:    s.Email,
			Password: s.Password,
			FromName: s.FromName,
			StartTLS: s.StartTLS,
		})
	case config.TransportResend:
		r := cfg.Email.Resend
		return resend.New(resend.Config{
			APIKey:      r.APIKey,
			SenderEmail: r.FromEmail,
			SenderName:  r.FromName,
			BaseURL:     r.BaseURL,
		})
	default:
		return nil, nil
	}
}

// newNotifier chains email and printing as configured. It returns nil when
// neither is enabled.
func newNotifier(cfg config.Config) (notify.Notifier, error) {
	var chain notify.Chain
	mailer, err := newMailer(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", failure.ErrConfiguration, err)
	}
	if mailer != nil {
		chain = append(chain, mailer)
	}
	if cfg.Print.Enabled {
		chain = append(chain, printer.New(cfg.Print.Command, cfg.Print.Printer, printer.ExecRunner))
	}
	switch len(chain) {
	case 0:
		return nil, nil
	case 1:
		return chain[0], nil
	}
	return chain, nil
}
