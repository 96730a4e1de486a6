package config

import (
	"fmt"
	"strings"
	"time"

	"certmailer/internal/failure"
	"certmailer/internal/logger"
)

// Validate checks that every set value is well formed. It runs right after
// loading, before any command does work.
func (c *Config) Validate() error {
	var problems []string
	if _, err := logger.ParseLevel(c.App.LogLevel); err != nil {
		problems = append(problems, "app.log_level: "+err.Error())
	}
	switch strings.ToLower(c.App.LogFormat) {
	case "text", "json":
	default:
		problems = append(problems, fmt.Sprintf("app.log_format: %q is not text or json", c.App.LogFormat))
	}
	if c.ILovePDF.MaxAttempts < 1 {
		problems = append(problems, "ilovepdf.max_attempts: must be at least 1")
	}
	for key, v := range map[string]string{"ilovepdf.retry_delay": c.ILovePDF.RetryDelay, "ilovepdf.timeout": c.ILovePDF.Timeout} {
		if d, err := time.ParseDuration(v); err != nil || d < 0 {
			problems = append(problems, fmt.Sprintf("%s: invalid duration %q", key, v))
		}
	}
	switch c.ILovePDF.WorkerScheme {
	case "http", "https":
	default:
		problems = append(problems, fmt.Sprintf("ilovepdf.worker_scheme: %q is not http or https", c.ILovePDF.WorkerScheme))
	}
	switch c.Email.Transport {
	case TransportSMTP, TransportResend, TransportNone:
	default:
		problems = append(problems, fmt.Sprintf("email.transport: %q is not smtp, resend or none", c.Email.Transport))
	}
	return problemsError(problems)
}

// CheckBatch reports the settings a batch run needs but does not have.
func (c *Config) CheckBatch() error {
	var missing []string
	if c.Output.Dir == "" {
		missing = append(missing, "output.dir")
	}
	if c.Input.CSVPath == "" {
		missing = append(missing, "input.csv_path")
	}
	if c.Input.TemplatePath == "" {
		missing = append(missing, "input.template_path")
	}
	if err := problemsError(prefix("missing ", missing)); err != nil {
		return err
	}
	return c.CheckDelivery()
}

// CheckDelivery reports missing settings of the selected email transport.
func (c *Config) CheckDelivery() error {
	var missing []string
	switch c.Email.Transport {
	case TransportSMTP:
		s := c.Email.SMTP
		if s.Server == "" {
			missing = append(missing, "email.smtp.server")
		}
		if s.Port == 0 {
			missing = append(missing, "email.smtp.port")
		}
		if s.Email == "" {
			missing = append(missing, "email.smtp.email")
		}
		if s.Password == "" {
			missing = append(missing, "email.smtp.password")
		}
	case TransportResend:
		if c.Email.Resend.APIKey == "" {
			missing = append(missing, "email.resend.api_key")
		}
		if c.Email.Resend.FromEmail == "" {
			missing = append(missing, "email.resend.from_email")
		}
	}
	return problemsError(prefix("missing ", missing))
}

func prefix(p string, items []string) []string {
	out := make([]string, len(items))
	for i, s := range items {
		out[i] = p + s
	}
	return out
}

func problemsError(problems []string) error {
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", failure.ErrConfiguration, strings.Join(problems, "; "))
}
