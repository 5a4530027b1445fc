package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"golang.org/x/crypto/bcrypt"
)

const (
	// EnvPrefix is the prefix of environment overrides, e.g. DR_SERVER__PORT.
	EnvPrefix = "DR_"
	// DefaultConfigFile is used when CONFIG_FILE is not set.
	DefaultConfigFile = "configs/delicious-route.toml"

	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// legacyEnv maps the environment variables the web app used to read onto config keys.
var legacyEnv = map[string]string{
	"VENDOR_DEFAULT_TIMEZONE":  "hours.timezone",
	"NEXT_PUBLIC_APP_BASE_URL": "server.base_url",
	"INSTAGRAM_IG_USER_ID":     "instagram.user_id",
	"INSTAGRAM_ACCESS_TOKEN":   "instagram.access_token",
	"EMAIL_FROM":               "email.from",
}

// Config holds the application configuration
type Config struct {
	Service     ServiceConfig     `koanf:"service"`
	Server      ServerConfig      `koanf:"server"`
	Database    DatabaseConfig    `koanf:"database"`
	Hours       HoursConfig       `koanf:"hours"`
	Session     SessionConfig     `koanf:"session"`
	Password    PasswordConfig    `koanf:"password"`
	RateLimit   RateLimitConfig   `koanf:"rate_limit"`
	Email       EmailConfig       `koanf:"email"`
	Geocoding   GeocodingConfig   `koanf:"geocoding"`
	Instagram   InstagramConfig   `koanf:"instagram"`
	Maintenance MaintenanceConfig `koanf:"maintenance"`
}

// ServiceConfig holds process-wide settings
type ServiceConfig struct {
	Env      string `koanf:"env"`
	LogLevel string `koanf:"log_level"`
}

// IsDevelopment reports whether the service runs in development mode
func (s ServiceConfig) IsDevelopment() bool {
	return s.Env == EnvDevelopment
}

// ServerConfig holds the HTTP listener settings
type ServerConfig struct {
	Port            int           `koanf:"port"`
	BaseURL         string        `koanf:"base_url"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// DatabaseConfig holds the SQLite settings
type DatabaseConfig struct {
	Path          string `koanf:"path"`
	BusyTimeoutMs int    `koanf:"busy_timeout_ms"`
	SeedDemoData  bool   `koanf:"seed_demo_data"`
}

// HoursConfig holds the reference timezone for open/closed decisions
type HoursConfig struct {
	Timezone string `koanf:"timezone"`
}

// SessionConfig holds the session cookie settings
type SessionConfig struct {
	CookieName string        `koanf:"cookie_name"`
	TTL        time.Duration `koanf:"ttl"`
	Secure     bool          `koanf:"secure"`
}

// PasswordConfig holds the password hashing and reset settings
type PasswordConfig struct {
	BcryptCost    int           `koanf:"bcrypt_cost"`
	HistoryLimit  int           `koanf:"history_limit"`
	ResetTokenTTL time.Duration `koanf:"reset_token_ttl"`
}

// RateLimitConfig limits how often a client may ask for a reset email
type RateLimitConfig struct {
	ForgotPasswordPerMinute int `koanf:"forgot_password_per_minute"`
	Burst                   int `koanf:"burst"`
}

// EmailConfig holds the SES credentials and sender address
type EmailConfig struct {
	From               string `koanf:"from"`
	SESRegion          string `koanf:"ses_region"`
	SESAccessKeyID     string `koanf:"ses_access_key_id"`
	SESSecretAccessKey string `koanf:"ses_secret_access_key"`
}

// SESConfigured reports whether every setting needed for SES is present
func (e EmailConfig) SESConfigured() bool {
	return e.From != "" && e.SESRegion != "" && e.SESAccessKeyID != "" && e.SESSecretAccessKey != ""
}

// GeocodingConfig holds the reverse geocoding client settings
type GeocodingConfig struct {
	Enabled   bool          `koanf:"enabled"`
	BaseURL   string        `koanf:"base_url"`
	UserAgent string        `koanf:"user_agent"`
	Timeout   time.Duration `koanf:"timeout"`
}

// InstagramConfig holds the Graph API credentials
type InstagramConfig struct {
	UserID       string        `koanf:"user_id"`
	AccessToken  string        `koanf:"access_token"`
	GraphBaseURL string        `koanf:"graph_base_url"`
	Timeout      time.Duration `koanf:"timeout"`
}

// Configured reports whether reels can be published
func (i InstagramConfig) Configured() bool {
	return i.UserID != "" && i.AccessToken != ""
}

// MaintenanceConfig holds the cleanup loop settings
type MaintenanceConfig struct {
	Interval time.Duration `koanf:"interval"`
	ReelTTL  time.Duration `koanf:"reel_ttl"`
}

func defaults() map[string]any {
	return map[string]any{
		"service.env":                           EnvDevelopment,
		"service.log_level":                     "info",
		"server.port":                           8080,
		"server.base_url":                       "http://localhost:8080",
		"server.read_timeout":                   15 * time.Second,
		"server.write_timeout":                  30 * time.Second,
		"server.shutdown_timeout":               10 * time.Second,
		"database.path":                         "data/delicious-route.db",
		"database.busy_timeout_ms":              5000,
		"database.seed_demo_data":               false,
		"hours.timezone":                        "America/Chicago",
		"session.cookie_name":                   "dr_session",
		"session.ttl":                           30 * 24 * time.Hour,
		"password.bcrypt_cost":                  bcrypt.DefaultCost,
		"password.history_limit":                3,
		"password.reset_token_ttl":              2 * time.Hour,
		"rate_limit.forgot_password_per_minute": 5,
		"rate_limit.burst":                      3,
		"geocoding.enabled":                     true,
		"geocoding.base_url":                    "https://nominatim.openstreetmap.org",
		"geocoding.user_agent":                  "DeliciousRoute/1.0",
		"geocoding.timeout":                     5 * time.Second,
		"instagram.graph_base_url":              "https://graph.facebook.com/v19.0",
		"instagram.timeout":                     20 * time.Second,
		"maintenance.interval":                  15 * time.Minute,
		"maintenance.reel_ttl":                  24 * time.Hour,
	}
}

// Load builds the configuration from defaults, the TOML file at path (which may
// be absent), the legacy environment variables and finally DR_ prefixed
// environment overrides.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat config file %s: %w", path, err)
		}
	}

	legacy := make(map[string]any)
	for name, key := range legacyEnv {
		if v, ok := os.LookupEnv(name); ok && v != "" {
			legacy[key] = v
		}
	}
	if err := k.Load(confmap.Provider(legacy, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load legacy environment: %w", err)
	}

	if err := k.Load(env.Provider(".", env.Opt{
		Prefix:        EnvPrefix,
		TransformFunc: transformEnv,
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
			Result:           &cfg,
			WeaklyTypedInput: true,
		},
	}); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if !k.Exists("session.secure") {
		cfg.Session.Secure = cfg.Service.Env == EnvProduction
	}
	cfg.Server.BaseURL = strings.TrimRight(cfg.Server.BaseURL, "/")

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// transformEnv turns DR_SERVER__PORT into server.port
func transformEnv(key, value string) (string, any) {
	key = strings.TrimPrefix(key, EnvPrefix)
	key = strings.ToLower(strings.ReplaceAll(key, "__", "."))
	return key, value
}

// Validate checks if the configuration is valid
func Validate(cfg *Config) error {
	switch cfg.Service.Env {
	case EnvDevelopment, EnvProduction:
	default:
		return fmt.Errorf("invalid service env: %q (must be %q or %q)", cfg.Service.Env, EnvDevelopment, EnvProduction)
	}

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", cfg.Server.Port)
	}

	if cfg.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}

	if cfg.Password.BcryptCost < bcrypt.MinCost || cfg.Password.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("bcrypt cost must be between %d and %d, got %d", bcrypt.MinCost, bcrypt.MaxCost, cfg.Password.BcryptCost)
	}

	if cfg.Password.HistoryLimit < 0 {
		return fmt.Errorf("password history limit must not be negative")
	}

	positive := map[string]time.Duration{
		"session.ttl":              cfg.Session.TTL,
		"password.reset_token_ttl": cfg.Password.ResetTokenTTL,
		"maintenance.interval":     cfg.Maintenance.Interval,
		"maintenance.reel_ttl":     cfg.Maintenance.ReelTTL,
	}
	for name, d := range positive {
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}

	if cfg.RateLimit.ForgotPasswordPerMinute <= 0 || cfg.RateLimit.Burst <= 0 {
		return fmt.Errorf("rate limit values must be positive")
	}

	if cfg.Session.CookieName == "" {
		return fmt.Errorf("session cookie name is required")
	}

	return nil
}
