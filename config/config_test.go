package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets every variable Load reads; t.Setenv restores them afterwards
func clearEnv(t *testing.T) {
	for _, key := range []string{
		"PORT", "ENVIRONMENT", "LOG_LEVEL", "DB_DRIVER", "DB_PATH", "DB_HOST", "DB_PORT",
		"DB_USER", "DB_PASSWORD", "DB_NAME", "TIMEZONE", "USE_HTTPS", "SESSION_SECRET",
		"TOKEN_TTL", "ADMIN_EMAILS", "DEV_ADMIN_EMAIL", "CAPTURE_ENABLED", "WEBHOOK_SECRET",
		"TRUST_PROXY_HEADERS",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, DEVELOPMENT, cfg.Environment)
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, "form_entries.db", cfg.Database.Path)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.True(t, cfg.CaptureEnabled)
	assert.False(t, cfg.TrustProxyHeaders)
}

func TestLoadFromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("SESSION_SECRET", "s3cret")
	t.Setenv("DB_DRIVER", "mysql")
	t.Setenv("DB_NAME", "wordpress")
	t.Setenv("DB_USER", "wp")
	t.Setenv("ADMIN_EMAILS", "a@example.com, b@example.com")
	t.Setenv("TOKEN_TTL", "30m")
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("CAPTURE_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, 3306, cfg.Database.Port)
	assert.Equal(t, 30*time.Minute, cfg.TokenTTL)
	assert.False(t, cfg.CaptureEnabled)
	assert.True(t, cfg.IsAdmin("b@example.com"))
	assert.True(t, cfg.IsAdmin("A@example.com"))
	assert.False(t, cfg.IsAdmin("c@example.com"))

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "UTC", loc.String())
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Environment:   "production",
			Database:      DBConfig{Driver: "sqlite3", Path: "x.db"},
			Timezone:      "UTC",
			TokenTTL:      time.Hour,
			SessionSecret: "s3cret",
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"unsupported driver", func(c *Config) { c.Database.Driver = "postgres" }, `unsupported DB_DRIVER "postgres"`},
		{"sqlite without path", func(c *Config) { c.Database.Path = "" }, "DB_PATH is required for sqlite3"},
		{"mysql without name", func(c *Config) { c.Database.Driver = "mysql" }, "DB_NAME and DB_USER are required for mysql"},
		{"non-positive ttl", func(c *Config) { c.TokenTTL = 0 }, "TOKEN_TTL must be positive"},
		{"production without secret", func(c *Config) { c.SessionSecret = "" }, "SESSION_SECRET must be set outside development"},
		{"dev admin in production", func(c *Config) { c.DevAdminEmail = "dev@example.com" }, "DEV_ADMIN_EMAIL is only allowed in development"},
	}

	require.NoError(t, valid().Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.EqualError(t, cfg.Validate(), tt.errMsg)
		})
	}

	cfg := valid()
	cfg.Timezone = "Nowhere/Invalid"
	assert.Error(t, cfg.Validate())
}

func TestDevAdminOnlyInDevelopment(t *testing.T) {
	cfg := &Config{Environment: DEVELOPMENT, DevAdminEmail: "dev@example.com"}
	assert.True(t, cfg.IsAdmin("dev@example.com"))
	assert.False(t, cfg.IsAdmin(""))

	cfg.Environment = "production"
	assert.False(t, cfg.IsAdmin("dev@example.com"))
}

func TestOIDCConfigured(t *testing.T) {
	cfg := &Config{}
	assert.False(t, cfg.OIDCConfigured())

	cfg.OIDC = OIDCConfig{Issuer: "https://issuer.test/", ClientID: "id", ClientSecret: "secret", CallbackURL: "http://localhost/callback"}
	assert.True(t, cfg.OIDCConfigured())
}
