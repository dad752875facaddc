package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	log "github.com/sirupsen/logrus"
)

const DEVELOPMENT = "development"

// Config holds every runtime setting of the service
type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	Database DBConfig

	Timezone string `envconfig:"TIMEZONE" default:"Local"`

	UseHTTPS      bool          `envconfig:"USE_HTTPS" default:"false"`
	SessionSecret string        `envconfig:"SESSION_SECRET"`
	TokenTTL      time.Duration `envconfig:"TOKEN_TTL" default:"24h"`

	OIDC          OIDCConfig
	AdminEmails   []string `envconfig:"ADMIN_EMAILS"`
	DevAdminEmail string   `envconfig:"DEV_ADMIN_EMAIL"`

	CaptureEnabled    bool   `envconfig:"CAPTURE_ENABLED" default:"true"`
	WebhookSecret     string `envconfig:"WEBHOOK_SECRET"`
	TrustProxyHeaders bool   `envconfig:"TRUST_PROXY_HEADERS" default:"false"`
}

// DBConfig selects the storage dialect and its connection settings
type DBConfig struct {
	Driver   string `envconfig:"DB_DRIVER" default:"sqlite3"`
	Path     string `envconfig:"DB_PATH" default:"form_entries.db"`
	Host     string `envconfig:"DB_HOST" default:"127.0.0.1"`
	Port     int    `envconfig:"DB_PORT" default:"3306"`
	User     string `envconfig:"DB_USER"`
	Password string `envconfig:"DB_PASSWORD"`
	Name     string `envconfig:"DB_NAME"`
}

// OIDCConfig holds the admin login provider settings
type OIDCConfig struct {
	Issuer       string `envconfig:"OIDC_ISSUER"`
	ClientID     string `envconfig:"OIDC_CLIENT_ID"`
	ClientSecret string `envconfig:"OIDC_CLIENT_SECRET"`
	CallbackURL  string `envconfig:"OIDC_CALLBACK_URL"`
}

// Load reads an optional .env file and then the process environment
func Load() (*Config, error) {
	// A missing .env is fine; the environment may already be populated.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks combinations envconfig cannot express
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite3":
		if c.Database.Path == "" {
			return errors.New("DB_PATH is required for sqlite3")
		}
	case "mysql":
		if c.Database.Name == "" || c.Database.User == "" {
			return errors.New("DB_NAME and DB_USER are required for mysql")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}

	if c.TokenTTL <= 0 {
		return errors.New("TOKEN_TTL must be positive")
	}

	if !c.IsDevelopment() {
		if c.SessionSecret == "" {
			return errors.New("SESSION_SECRET must be set outside development")
		}
		if c.DevAdminEmail != "" {
			return errors.New("DEV_ADMIN_EMAIL is only allowed in development")
		}
	}

	if _, err := c.Location(); err != nil {
		return err
	}

	return nil
}

// IsDevelopment reports whether the service runs in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == DEVELOPMENT
}

// Location resolves TIMEZONE to a *time.Location
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// IsAdmin reports whether email is listed in ADMIN_EMAILS (or is the dev admin)
func (c *Config) IsAdmin(email string) bool {
	if email == "" {
		return false
	}
	if c.IsDevelopment() && c.DevAdminEmail != "" && strings.EqualFold(email, c.DevAdminEmail) {
		return true
	}
	for _, admin := range c.AdminEmails {
		if strings.EqualFold(strings.TrimSpace(admin), email) {
			return true
		}
	}
	return false
}

// OIDCConfigured reports whether all OIDC settings are present
func (c *Config) OIDCConfigured() bool {
	return c.OIDC.Issuer != "" && c.OIDC.ClientID != "" && c.OIDC.ClientSecret != "" && c.OIDC.CallbackURL != ""
}

// InitLogging configures the global logrus logger
func InitLogging(cfg *Config) {
	if cfg.IsDevelopment() {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	} else {
		log.SetFormatter(&log.JSONFormatter{})
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithField("log_level", cfg.LogLevel).Warn("Unknown log level, using info.")
		level = log.InfoLevel
	}
	log.SetLevel(level)
	log.SetOutput(os.Stdout)
}
