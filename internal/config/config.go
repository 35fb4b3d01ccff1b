// Package config loads process configuration.
//
// Values layer in this order (low to high): defaults, the YAML file named
// by SPORTIFY_CONFIG, then SPORTIFY_* environment variables. An optional
// .env file is read into the environment first.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// EnvProduction is the env value that enables production checks.
const EnvProduction = "production"

// minSecretLength matches the identity service's minimum token secret.
const minSecretLength = 32

// Config errors
var (
	ErrEmptyAddr        = errors.New("addr must not be empty")
	ErrEmptyAppID       = errors.New("app_id must not be empty")
	ErrShortJWTSecret   = errors.New("jwt_secret must be at least 32 bytes in production")
	ErrMissingCSRFKey   = errors.New("csrf_key is required in production")
	ErrMalformedCSRFKey = errors.New("csrf_key must be 64 hex characters")
	ErrInvalidLogLevel  = errors.New("log_level must be debug, info, warn or error")
	ErrInvalidRateLimit = errors.New("rate_limit must be positive")
	ErrInvalidTokenTTL  = errors.New("token_ttl must be positive")
)

// Config contains process configuration.
type Config struct {
	// Addr is the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`
	// Env is "development" or "production".
	Env string `koanf:"env"`
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	DBPath   string `koanf:"db_path"`
	// AppID prefixes every document collection path.
	AppID string `koanf:"app_id"`

	JWTSecret string        `koanf:"jwt_secret"`
	JWTIssuer string        `koanf:"jwt_issuer"`
	TokenTTL  time.Duration `koanf:"token_ttl"`

	// CSRFKey is 32 bytes, hex encoded.
	CSRFKey string `koanf:"csrf_key"`
	// CORSOrigins is a comma separated list of front-end origins.
	CORSOrigins string `koanf:"cors_origins"`
	// RateLimit is sustained requests per second per client.
	RateLimit float64 `koanf:"rate_limit"`

	ResendKey string `koanf:"resend_key"`
	EmailFrom string `koanf:"email_from"`
	ReplyTo   string `koanf:"reply_to"`

	// RedisAddr enables the cross-instance change feed when set.
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisChannel  string `koanf:"redis_channel"`

	RepairInterval  time.Duration `koanf:"repair_interval"`
	ToastDurationMS int           `koanf:"toast_duration_ms"`
	SlowRequestMS   int           `koanf:"slow_request_ms"`

	AdminEmail    string `koanf:"admin_email"`
	AdminPassword string `koanf:"admin_password"`
}

// New returns a Config holding the defaults.
func New() *Config {
	return &Config{
		Addr:            ":8080",
		Env:             "development",
		LogLevel:        "info",
		DBPath:          "sportify.db",
		AppID:           "sportify",
		JWTIssuer:       "sportify",
		TokenTTL:        24 * time.Hour,
		RateLimit:       10,
		EmailFrom:       "Sportify <no-reply@sportify.local>",
		RedisChannel:    "sportify:changes",
		RepairInterval:  time.Minute,
		ToastDurationMS: 4000,
		SlowRequestMS:   200,
	}
}

// IsProduction reports whether production checks apply.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, EnvProduction)
}

// Validate checks the configuration is usable.
// POST: Returns nil if valid, the first problem found otherwise
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return ErrEmptyAddr
	}
	if strings.Trim(c.AppID, "/ ") == "" {
		return ErrEmptyAppID
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	if c.RateLimit <= 0 {
		return ErrInvalidRateLimit
	}
	if c.TokenTTL <= 0 {
		return ErrInvalidTokenTTL
	}
	if c.CSRFKey != "" {
		if b, err := hex.DecodeString(c.CSRFKey); err != nil || len(b) != 32 {
			return ErrMalformedCSRFKey
		}
	}
	if c.IsProduction() {
		if len(c.JWTSecret) < minSecretLength {
			return ErrShortJWTSecret
		}
		if c.CSRFKey == "" {
			return ErrMissingCSRFKey
		}
	}
	return nil
}

// SlogLevel parses LogLevel.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, ErrInvalidLogLevel
	}
	return level, nil
}

// Origins splits CORSOrigins.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// CSRFAuthKey decodes CSRFKey. Outside production an empty key yields a
// random one, so form tokens do not survive a restart.
func (c *Config) CSRFAuthKey() ([]byte, error) {
	if c.CSRFKey != "" {
		b, err := hex.DecodeString(c.CSRFKey)
		if err != nil || len(b) != 32 {
			return nil, ErrMalformedCSRFKey
		}
		return b, nil
	}
	if c.IsProduction() {
		return nil, ErrMissingCSRFKey
	}
	slog.Warn("config_event", "event", "csrf_key_generated")
	return randomKey()
}

// TokenSecret returns JWTSecret. Outside production an empty secret yields
// a random one, so sessions do not survive a restart.
func (c *Config) TokenSecret() ([]byte, error) {
	if c.JWTSecret != "" || c.IsProduction() {
		if len(c.JWTSecret) < minSecretLength {
			return nil, ErrShortJWTSecret
		}
		return []byte(c.JWTSecret), nil
	}
	slog.Warn("config_event", "event", "jwt_secret_generated")
	return randomKey()
}

// ToastDuration is ToastDurationMS as a duration.
func (c *Config) ToastDuration() time.Duration {
	return time.Duration(c.ToastDurationMS) * time.Millisecond
}

// SlowRequest is SlowRequestMS as a duration.
func (c *Config) SlowRequest() time.Duration {
	return time.Duration(c.SlowRequestMS) * time.Millisecond
}

func randomKey() ([]byte, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return b, nil
}
