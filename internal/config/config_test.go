package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helper function to create a temporary config file
func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "test_config.toml")
	err := os.WriteFile(tmpFile, []byte(content), 0644)
	require.NoError(t, err, "Failed to write temp config file")
	return tmpFile
}

// Helper function to set environment variables for a test
func setEnvVars(t *testing.T, vars map[string]string) {
	t.Helper()
	for key, value := range vars {
		t.Setenv(key, value)
	}
}

func TestLoadConfig_Valid(t *testing.T) {
	validToml := `
[service]
env = "production"
log_level = "debug"

[server]
port = 9090
base_url = "https://delicious.example.com/"
read_timeout = "5s"

[database]
path = "/var/lib/dr/app.db"
seed_demo_data = true

[hours]
timezone = "America/Denver"

[password]
bcrypt_cost = 12
history_limit = 5
reset_token_ttl = "30m"

[email]
from = "hello@example.com"
ses_region = "us-east-1"
ses_access_key_id = "AKIA"
ses_secret_access_key = "secret"

[maintenance]
interval = "1h"
`
	configFile := createTempConfigFile(t, validToml)

	cfg, err := Load(configFile)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, EnvProduction, cfg.Service.Env)
	assert.False(t, cfg.Service.IsDevelopment())
	assert.Equal(t, "debug", cfg.Service.LogLevel)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "https://delicious.example.com", cfg.Server.BaseURL, "trailing slash is trimmed")
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "/var/lib/dr/app.db", cfg.Database.Path)
	assert.True(t, cfg.Database.SeedDemoData)
	assert.Equal(t, "America/Denver", cfg.Hours.Timezone)
	assert.Equal(t, 12, cfg.Password.BcryptCost)
	assert.Equal(t, 5, cfg.Password.HistoryLimit)
	assert.Equal(t, 30*time.Minute, cfg.Password.ResetTokenTTL)
	assert.True(t, cfg.Email.SESConfigured())
	assert.Equal(t, time.Hour, cfg.Maintenance.Interval)
	assert.True(t, cfg.Session.Secure, "production derives secure cookies")
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err, "a missing config file is allowed")

	assert.Equal(t, EnvDevelopment, cfg.Service.Env)
	assert.Equal(t, "info", cfg.Service.LogLevel)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "data/delicious-route.db", cfg.Database.Path)
	assert.Equal(t, "America/Chicago", cfg.Hours.Timezone)
	assert.Equal(t, "dr_session", cfg.Session.CookieName)
	assert.Equal(t, 720*time.Hour, cfg.Session.TTL)
	assert.False(t, cfg.Session.Secure)
	assert.Equal(t, 10, cfg.Password.BcryptCost)
	assert.Equal(t, 3, cfg.Password.HistoryLimit)
	assert.Equal(t, 2*time.Hour, cfg.Password.ResetTokenTTL)
	assert.Equal(t, 5, cfg.RateLimit.ForgotPasswordPerMinute)
	assert.True(t, cfg.Geocoding.Enabled)
	assert.Equal(t, "DeliciousRoute/1.0", cfg.Geocoding.UserAgent)
	assert.Equal(t, 24*time.Hour, cfg.Maintenance.ReelTTL)
	assert.False(t, cfg.Email.SESConfigured())
	assert.False(t, cfg.Instagram.Configured())
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	configFile := createTempConfigFile(t, `
[server]
port = 9090

[session]
secure = false
`)
	setEnvVars(t, map[string]string{
		"DR_SERVER__PORT":                           "7070",
		"DR_SERVICE__ENV":                           "production",
		"DR_RATE_LIMIT__FORGOT_PASSWORD_PER_MINUTE": "2",
		"DR_MAINTENANCE__REEL_TTL":                  "12h",
	})

	cfg, err := Load(configFile)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port, "env wins over file")
	assert.Equal(t, 2, cfg.RateLimit.ForgotPasswordPerMinute)
	assert.Equal(t, 12*time.Hour, cfg.Maintenance.ReelTTL)
	assert.False(t, cfg.Session.Secure, "explicit secure flag is kept")
}

func TestLoadConfig_LegacyEnv(t *testing.T) {
	setEnvVars(t, map[string]string{
		"VENDOR_DEFAULT_TIMEZONE":  "America/Los_Angeles",
		"NEXT_PUBLIC_APP_BASE_URL": "https://app.example.com/",
		"INSTAGRAM_IG_USER_ID":     "1789",
		"INSTAGRAM_ACCESS_TOKEN":   "token",
		"EMAIL_FROM":               "Delicious Route <no-reply@example.com>",
	})

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "America/Los_Angeles", cfg.Hours.Timezone)
	assert.Equal(t, "https://app.example.com", cfg.Server.BaseURL)
	assert.True(t, cfg.Instagram.Configured())
	assert.Equal(t, "Delicious Route <no-reply@example.com>", cfg.Email.From)
}

func TestLoadConfig_LegacyEnvLosesToPrefixed(t *testing.T) {
	setEnvVars(t, map[string]string{
		"VENDOR_DEFAULT_TIMEZONE": "America/Los_Angeles",
		"DR_HOURS__TIMEZONE":      "America/New_York",
	})

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "America/New_York", cfg.Hours.Timezone)
}

func TestLoadConfig_InvalidFile(t *testing.T) {
	configFile := createTempConfigFile(t, "[server\nport = ")
	_, err := Load(configFile)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config file")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults are valid", mutate: func(*Config) {}},
		{name: "unknown env", mutate: func(c *Config) { c.Service.Env = "staging" }, wantErr: "invalid service env"},
		{name: "zero port", mutate: func(c *Config) { c.Server.Port = 0 }, wantErr: "server port"},
		{name: "port too large", mutate: func(c *Config) { c.Server.Port = 70000 }, wantErr: "server port"},
		{name: "empty database path", mutate: func(c *Config) { c.Database.Path = "" }, wantErr: "database path"},
		{name: "bcrypt cost too low", mutate: func(c *Config) { c.Password.BcryptCost = 2 }, wantErr: "bcrypt cost"},
		{name: "bcrypt cost too high", mutate: func(c *Config) { c.Password.BcryptCost = 40 }, wantErr: "bcrypt cost"},
		{name: "negative history", mutate: func(c *Config) { c.Password.HistoryLimit = -1 }, wantErr: "history limit"},
		{name: "zero session ttl", mutate: func(c *Config) { c.Session.TTL = 0 }, wantErr: "session.ttl"},
		{name: "zero reset ttl", mutate: func(c *Config) { c.Password.ResetTokenTTL = 0 }, wantErr: "password.reset_token_ttl"},
		{name: "zero rate", mutate: func(c *Config) { c.RateLimit.Burst = 0 }, wantErr: "rate limit"},
		{name: "empty cookie name", mutate: func(c *Config) { c.Session.CookieName = "" }, wantErr: "cookie name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := Validate(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
