package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"certmailer/internal/failure"
)

// EnvPrefix prefixes environment overrides, e.g. CERTMAILER_OUTPUT_DIR.
const EnvPrefix = "CERTMAILER"

// BindEnv makes every known key overridable from the environment.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range keys {
		_ = v.BindEnv(key)
	}
}

// keys lists nested settings so Unmarshal sees environment values even when
// the config file does not mention them.
var keys = []string{
	"app.log_level", "app.log_format", "app.log_file", "app.sentry_dsn", "app.environment", "app.workers",
	"input.csv_path", "input.template_path", "input.placeholder",
	"output.dir", "output.clean_intermediate",
	"ilovepdf.public_key", "ilovepdf.secret_key", "ilovepdf.base_url", "ilovepdf.tool",
	"ilovepdf.max_attempts", "ilovepdf.retry_delay", "ilovepdf.timeout", "ilovepdf.verify_pdf", "ilovepdf.worker_scheme",
	"email.transport", "email.template_path", "email.subject", "email.placeholder",
	"email.smtp.server", "email.smtp.port", "email.smtp.email", "email.smtp.password", "email.smtp.from_name", "email.smtp.starttls",
	"email.resend.api_key", "email.resend.from_email", "email.resend.from_name", "email.resend.base_url",
	"print.enabled", "print.command", "print.printer",
}

// Load decodes v into a Config, applies defaults and validates it.
func Load(v *viper.Viper) (Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("%w: parse config: %w", failure.ErrConfiguration, err)
	}
	c.FillDefaults()
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}
