package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

type Config struct {
	Server   ServerConfig
	Session  SessionConfig
	Visitors VisitorConfig
	Admin    AdminConfig
	SMTP     SMTPConfig
}

type ServerConfig struct {
	Port        string   `env:"PORT" envDefault:"8080"`
	GinMode     string   `env:"GIN_MODE" envDefault:"debug"`
	LogLevel    string   `env:"LOG_LEVEL" envDefault:"info"`
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:","`
}

type SessionConfig struct {
	TTL        time.Duration `env:"SESSION_TTL" envDefault:"2h"`
	Sweep      time.Duration `env:"SESSION_SWEEP" envDefault:"5m"`
	DateLayout string        `env:"DATE_LAYOUT" envDefault:"1/2/2006"`
}

type VisitorConfig struct {
	DBPath    string        `env:"VISITOR_DB" envDefault:"data/visitors.db"`
	Retention time.Duration `env:"VISITOR_RETENTION" envDefault:"8760h"`
}

type AdminConfig struct {
	Username string `env:"ADMIN_USERNAME"`
	Password string `env:"ADMIN_PASSWORD"`
}

type SMTPConfig struct {
	Host string `env:"SMTP_HOST" envDefault:"smtp.gmail.com"`
	Port string `env:"SMTP_PORT" envDefault:"587"`
	User string `env:"SMTP_USER"`
	Pass string `env:"SMTP_PASS"`
	To   string `env:"TO_EMAIL"`
}

// Configured reports whether real mail delivery is possible.
func (s SMTPConfig) Configured() bool {
	return s.User != "" && s.Pass != "" && s.To != ""
}

// Load reads a .env file when present and parses the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug("No .env file found, using environment variables")
	}
	return Parse()
}

// Parse builds the config from the current environment only.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	if c.Session.Sweep <= 0 {
		return fmt.Errorf("SESSION_SWEEP must be positive")
	}
	switch c.Server.GinMode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("GIN_MODE must be debug, release or test")
	}
	if _, err := log.ParseLevel(c.Server.LogLevel); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return nil
}
