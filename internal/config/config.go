package config

import "time"

// AppConfig holds application-level settings.
type AppConfig struct {
	LogLevel    string `mapstructure:"log_level"`
	LogFormat   string `mapstructure:"log_format"` // text or json
	LogFile     string `mapstructure:"log_file"`   // appended to when set
	SentryDSN   string `mapstructure:"sentry_dsn"`
	Environment string `mapstructure:"environment"`
	Workers     int    `mapstructure:"workers"` // recipients processed at once
}

// InputConfig points at the recipient table and the certificate template.
type InputConfig struct {
	CSVPath      string `mapstructure:"csv_path"`
	TemplatePath string `mapstructure:"template_path"`
	Placeholder  string `mapstructure:"placeholder"`
}

// OutputConfig controls where artifacts go.
type OutputConfig struct {
	Dir               string `mapstructure:"dir"`
	CleanIntermediate bool   `mapstructure:"clean_intermediate"` // drop the .pptx once the recipient is done
}

// ILovePDFConfig controls the remote conversion.
type ILovePDFConfig struct {
	PublicKey   string `mapstructure:"public_key"`
	SecretKey   string `mapstructure:"secret_key"`
	BaseURL     string `mapstructure:"base_url"`
	Tool        string `mapstructure:"tool"`
	MaxAttempts int    `mapstructure:"max_attempts"`
	RetryDelay  string `mapstructure:"retry_delay"` // duration string, e.g., "3s"
	Timeout     string `mapstructure:"timeout"`     // per HTTP request
	VerifyPDF   bool   `mapstructure:"verify_pdf"`
	// WorkerScheme is the scheme of the per-task worker servers; only test
	// servers need "http".
	WorkerScheme string `mapstructure:"worker_scheme"`
}

// SMTPConfig is the mail account used by the smtp transport.
type SMTPConfig struct {
	Server   string `mapstructure:"server"`
	Port     int    `mapstructure:"port"`
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
	FromName string `mapstructure:"from_name"`
	StartTLS bool   `mapstructure:"starttls"`
}

// ResendConfig is used by the resend transport.
type ResendConfig struct {
	APIKey    string `mapstructure:"api_key"`
	FromEmail string `mapstructure:"from_email"`
	FromName  string `mapstructure:"from_name"`
	BaseURL   string `mapstructure:"base_url"`
}

// EmailConfig controls certificate emails.
type EmailConfig struct {
	Transport    string       `mapstructure:"transport"` // smtp, resend or none
	TemplatePath string       `mapstructure:"template_path"`
	Subject      string       `mapstructure:"subject"`
	Placeholder  string       `mapstructure:"placeholder"`
	SMTP         SMTPConfig   `mapstructure:"smtp"`
	Resend       ResendConfig `mapstructure:"resend"`
}

// PrintConfig controls local printing of each artifact.
type PrintConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Command string `mapstructure:"command"`
	Printer string `mapstructure:"printer"`
}

// Legacy holds the flat keys of the original config.json layout. They are
// folded into the nested sections by FillDefaults.
type Legacy struct {
	OutputDir         string     `mapstructure:"output_dir"`
	CSVPath           string     `mapstructure:"csv_path"`
	PPTTemplatePath   string     `mapstructure:"ppt_template_path"`
	HTMLTemplatePath  string     `mapstructure:"html_template_path"`
	ILovePDFPublicKey string     `mapstructure:"ilovepdf_public_key"`
	ILovePDFSecretKey string     `mapstructure:"ilovepdf_secret_key"`
	EmailSubject      string     `mapstructure:"email_subject"`
	SMTP              SMTPConfig `mapstructure:"smtp"`
}

// Config is the top-level configuration structure.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Input    InputConfig    `mapstructure:"input"`
	Output   OutputConfig   `mapstructure:"output"`
	ILovePDF ILovePDFConfig `mapstructure:"ilovepdf"`
	Email    EmailConfig    `mapstructure:"email"`
	Print    PrintConfig    `mapstructure:"print"`
	Legacy   `mapstructure:",squash"`
}

// Email transports.
const (
	TransportSMTP   = "smtp"
	TransportResend = "resend"
	TransportNone   = "none"
)

// FillDefaults applies default values if not provided.
func (c *Config) FillDefaults() {
	c.foldLegacy()

	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.App.LogFormat == "" {
		c.App.LogFormat = "text"
	}
	if c.App.Environment == "" {
		c.App.Environment = "production"
	}
	if c.App.Workers <= 0 {
		c.App.Workers = 1
	}
	if c.Input.Placeholder == "" {
		c.Input.Placeholder = "NAME_PLACEHOLDER"
	}
	if c.ILovePDF.BaseURL == "" {
		c.ILovePDF.BaseURL = "https://api.ilovepdf.com/v1"
	}
	if c.ILovePDF.Tool == "" {
		c.ILovePDF.Tool = "officepdf"
	}
	if c.ILovePDF.WorkerScheme == "" {
		c.ILovePDF.WorkerScheme = "https"
	}
	if c.ILovePDF.MaxAttempts == 0 {
		c.ILovePDF.MaxAttempts = 3
	}
	if c.ILovePDF.RetryDelay == "" {
		c.ILovePDF.RetryDelay = "3s"
	}
	if c.ILovePDF.Timeout == "" {
		c.ILovePDF.Timeout = "60s"
	}
	if c.Email.Transport == "" {
		c.Email.Transport = TransportSMTP
	}
	if c.Email.Subject == "" {
		c.Email.Subject = "Your Certificate"
	}
	if c.Email.Placeholder == "" {
		c.Email.Placeholder = "NAME_PLACEHOLDER"
	}
	if c.Email.SMTP.Port == 0 {
		c.Email.SMTP.Port = 465
	}
	if c.Print.Command == "" {
		c.Print.Command = "lpr"
	}
}

func (c *Config) foldLegacy() {
	l := c.Legacy
	fill := func(dst *string, v string) {
		if *dst == "" {
			*dst = v
		}
	}
	fill(&c.Output.Dir, l.OutputDir)
	fill(&c.Input.CSVPath, l.CSVPath)
	fill(&c.Input.TemplatePath, l.PPTTemplatePath)
	fill(&c.Email.TemplatePath, l.HTMLTemplatePath)
	fill(&c.ILovePDF.PublicKey, l.ILovePDFPublicKey)
	fill(&c.ILovePDF.SecretKey, l.ILovePDFSecretKey)
	fill(&c.Email.Subject, l.EmailSubject)
	if c.Email.SMTP.Server == "" && l.SMTP.Server != "" {
		c.Email.SMTP = l.SMTP
	}
}

// Delay returns the parsed delay between conversion attempts.
func (c ILovePDFConfig) Delay() time.Duration {
	d, _ := time.ParseDuration(c.RetryDelay)
	return d
}

// RequestTimeout returns the parsed per-request timeout.
func (c ILovePDFConfig) RequestTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}
