package config

import (
	"github.com/kelseyhightower/envconfig"
)

// Config holds server configuration loaded from environment variables.
// Reminder timing options are not part of it: the reminder package reads
// those at call time so they can change without a restart.
type Config struct {
	DBURL    string `envconfig:"DB_URL" required:"true"`
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":5000"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"` // debug|info|warn|error
	GinMode  string `envconfig:"GIN_MODE" default:"release"`

	SMTP SMTP
}

// SMTP configures outgoing reminder mail. An empty Host disables sending.
type SMTP struct {
	Host   string `envconfig:"SMTP_HOST"`
	Port   int    `envconfig:"SMTP_PORT" default:"587"`
	User   string `envconfig:"SMTP_USER"`
	Pass   string `envconfig:"SMTP_PASS"`
	Secure bool   `envconfig:"SMTP_SECURE" default:"false"`
	From   string `envconfig:"SMTP_FROM"`
}

// Load reads environment variables into Config.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Sender returns the envelope From address: SMTP_FROM, then SMTP_USER,
// then a fixed no-reply address.
func (s SMTP) Sender() string {
	switch {
	case s.From != "":
		return s.From
	case s.User != "":
		return s.User
	default:
		return "no-reply@gymnet.app"
	}
}

// Configured reports whether enough SMTP settings are present to send mail.
func (s SMTP) Configured() bool {
	return s.Host != "" && s.Port != 0 && s.User != "" && s.Pass != ""
}
