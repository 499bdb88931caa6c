package sensorauth

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/MrEthical07/sensorauth/internal/api"
	"github.com/MrEthical07/sensorauth/session"
)

// Config holds every tunable of a Client. Start from DefaultConfig and
// override fields; Build validates the result.
type Config struct {
	API      APIConfig      `yaml:"api" toml:"api"`
	Session  SessionConfig  `yaml:"session" toml:"session"`
	Timing   TimingConfig   `yaml:"timing" toml:"timing"`
	Cooldown CooldownConfig `yaml:"cooldown" toml:"cooldown"`
	Audit    AuditConfig    `yaml:"audit" toml:"audit"`
	Metrics  MetricsConfig  `yaml:"metrics" toml:"metrics"`
}

// Paths lists backend endpoint paths relative to APIConfig.BaseURL.
type Paths = api.Paths

// DefaultPaths returns the standard endpoint layout.
func DefaultPaths() Paths {
	return api.DefaultPaths()
}

/*
====================================
API CONFIG
====================================
*/

// APIConfig describes how the backend is reached.
type APIConfig struct {
	BaseURL string        `yaml:"base_url" toml:"base_url"`
	Paths   Paths         `yaml:"paths" toml:"paths"`
	Timeout time.Duration `yaml:"timeout" toml:"timeout"`
	// UserAgent is sent on every request and feeds the device fingerprint.
	UserAgent string `yaml:"user_agent" toml:"user_agent"`
}

/*
====================================
SESSION CONFIG
====================================
*/

// Session store backends selectable from configuration.
const (
	SessionBackendMemory = "memory"
	SessionBackendSQLite = "sqlite"
	SessionBackendRedis  = "redis"
)

// SessionConfig selects where the session token is kept. A store passed to
// Builder.WithSessionStore takes precedence over Backend.
type SessionConfig struct {
	StorageKey string `yaml:"storage_key" toml:"storage_key"`
	Backend    string `yaml:"backend" toml:"backend"`
	SQLitePath string `yaml:"sqlite_path" toml:"sqlite_path"`

	RedisAddr   string        `yaml:"redis_addr" toml:"redis_addr"`
	RedisPrefix string        `yaml:"redis_prefix" toml:"redis_prefix"`
	RedisTTL    time.Duration `yaml:"redis_ttl" toml:"redis_ttl"`
}

/*
====================================
TIMING CONFIG
====================================
*/

// TimingConfig holds the delays controllers wait before navigating or
// clearing transient messages.
type TimingConfig struct {
	RedirectDelay       time.Duration `yaml:"redirect_delay" toml:"redirect_delay"`
	SignupFallbackDelay time.Duration `yaml:"signup_fallback_delay" toml:"signup_fallback_delay"`
	ResetBannerDuration time.Duration `yaml:"reset_banner_duration" toml:"reset_banner_duration"`
}

// CooldownConfig controls the resend countdowns. ResendSeconds is counted
// in ticks of Tick.
type CooldownConfig struct {
	ResendSeconds int           `yaml:"resend_seconds" toml:"resend_seconds"`
	Tick          time.Duration `yaml:"tick" toml:"tick"`
}

// AuditConfig controls asynchronous audit event delivery.
type AuditConfig struct {
	Enabled    bool `yaml:"enabled" toml:"enabled"`
	BufferSize int  `yaml:"buffer_size" toml:"buffer_size"`
	DropIfFull bool `yaml:"drop_if_full" toml:"drop_if_full"`
}

// MetricsConfig enables the in-process counters and the per-endpoint
// latency histograms.
type MetricsConfig struct {
	Enabled                 bool `yaml:"enabled" toml:"enabled"`
	EnableLatencyHistograms bool `yaml:"enable_latency_histograms" toml:"enable_latency_histograms"`
}

// DefaultConfig returns the configuration the dashboard ships with.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			BaseURL:   "http://localhost:3000",
			Paths:     api.DefaultPaths(),
			Timeout:   15 * time.Second,
			UserAgent: "sensorauth/1.0",
		},
		Session: SessionConfig{
			StorageKey:  session.DefaultKey,
			Backend:     SessionBackendMemory,
			RedisPrefix: "sensorauth",
		},
		Timing: TimingConfig{
			RedirectDelay:       time.Second,
			SignupFallbackDelay: 2 * time.Second,
			ResetBannerDuration: 5 * time.Second,
		},
		Cooldown: CooldownConfig{
			ResendSeconds: 60,
			Tick:          time.Second,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
	}
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	// API
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("API BaseURL must be an absolute http(s) URL")
	}
	if c.API.Timeout <= 0 {
		return errors.New("API Timeout must be > 0")
	}
	for name, p := range map[string]string{
		"VerifyToken":        c.API.Paths.VerifyToken,
		"Login":              c.API.Paths.Login,
		"Signup":             c.API.Paths.Signup,
		"SignupVerify":       c.API.Paths.SignupVerify,
		"ForgotPassword":     c.API.Paths.ForgotPassword,
		"ResetPassword":      c.API.Paths.ResetPassword,
		"ResendVerification": c.API.Paths.ResendVerification,
		"GoogleAuth":         c.API.Paths.GoogleAuth,
		"UserPreferences":    c.API.Paths.UserPreferences,
	} {
		if !strings.HasPrefix(p, "/") {
			return fmt.Errorf("API Paths.%s must start with /", name)
		}
	}

	// Session
	if strings.TrimSpace(c.Session.StorageKey) == "" {
		return errors.New("Session StorageKey must not be empty")
	}
	switch c.Session.Backend {
	case "", SessionBackendMemory:
	case SessionBackendSQLite:
		if c.Session.SQLitePath == "" {
			return errors.New("Session SQLitePath required for sqlite backend")
		}
	case SessionBackendRedis:
		if c.Session.RedisAddr == "" {
			return errors.New("Session RedisAddr required for redis backend")
		}
		if c.Session.RedisTTL < 0 {
			return errors.New("Session RedisTTL must be >= 0")
		}
	default:
		return fmt.Errorf("unsupported Session Backend %q", c.Session.Backend)
	}

	// Timing
	if c.Timing.RedirectDelay < 0 || c.Timing.SignupFallbackDelay < 0 || c.Timing.ResetBannerDuration < 0 {
		return errors.New("Timing delays must be >= 0")
	}

	// Cooldown
	if c.Cooldown.ResendSeconds <= 0 {
		return errors.New("Cooldown ResendSeconds must be > 0")
	}
	if c.Cooldown.Tick <= 0 {
		return errors.New("Cooldown Tick must be > 0")
	}

	if c.Audit.BufferSize < 0 {
		return errors.New("Audit BufferSize must be >= 0")
	}
	return nil
}

// LoadConfigFile reads path over DefaultConfig and validates the result.
// The format follows the extension: .yaml/.yml or .toml.
func LoadConfigFile(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("decode yaml config: %w", err)
		}
	case ".toml":
		md, err := toml.Decode(string(data), &cfg)
		if err != nil {
			return Config{}, fmt.Errorf("decode toml config: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return Config{}, fmt.Errorf("decode toml config: unknown key %q", undecoded[0].String())
		}
	default:
		return Config{}, fmt.Errorf("unsupported config format %q", ext)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
