package learnauth

import (
	"errors"
	"strings"
	"time"

	"github.com/communitylearn/learnauth/sidechannel"
)

/*
====================================
ROOT CONFIG
====================================
*/

// Config defines the resolver's tuning. Start from [DefaultConfig] and
// override fields; [Builder.Build] validates the result.
type Config struct {
	// LookupTimeout bounds one profile plus credential lookup. A lookup
	// that times out resolves to UNAUTHENTICATED.
	LookupTimeout time.Duration
	// SignOutTimeout bounds the provider round-trip in Logout.
	SignOutTimeout time.Duration

	Tokens  TokenConfig
	Audit   AuditConfig
	Metrics MetricsConfig
}

// TokenConfig names and scopes the side-channel tokens.
type TokenConfig struct {
	SessionName string
	RoleName    string
	Path        string
	Domain      string
	MaxAge      time.Duration
	Secure      bool
}

// CookieOptions converts the token settings for the sidechannel helpers.
func (t TokenConfig) CookieOptions() sidechannel.CookieOptions {
	return sidechannel.CookieOptions{
		SessionName: t.SessionName,
		RoleName:    t.RoleName,
		Path:        t.Path,
		Domain:      t.Domain,
		MaxAge:      t.MaxAge,
		Secure:      t.Secure,
	}
}

// AuditConfig controls the asynchronous audit dispatcher. Audit is off by
// default.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the in-process counters read by the exporters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULTS
====================================
*/

func defaultConfig() Config {
	return Config{
		LookupTimeout:  10 * time.Second,
		SignOutTimeout: 5 * time.Second,
		Tokens: TokenConfig{
			SessionName: sidechannel.SessionCookie,
			RoleName:    sidechannel.RoleCookie,
			Path:        sidechannel.DefaultPath,
			MaxAge:      sidechannel.DefaultMaxAge,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
	}
}

// DefaultConfig returns the settings CommunityLearn runs with.
func DefaultConfig() Config {
	return defaultConfig()
}

func cloneConfig(cfg Config) Config {
	return cfg
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting in c.
func (c *Config) Validate() error {
	if c.LookupTimeout <= 0 {
		return errors.New("LookupTimeout must be > 0")
	}
	if c.LookupTimeout > 5*time.Minute {
		return errors.New("LookupTimeout must be <= 5m")
	}
	if c.SignOutTimeout <= 0 {
		return errors.New("SignOutTimeout must be > 0")
	}

	// Tokens
	if !validCookieName(c.Tokens.SessionName) {
		return errors.New("Tokens SessionName must be a valid cookie name")
	}
	if !validCookieName(c.Tokens.RoleName) {
		return errors.New("Tokens RoleName must be a valid cookie name")
	}
	if c.Tokens.SessionName == c.Tokens.RoleName {
		return errors.New("Tokens SessionName and RoleName must differ")
	}
	if !strings.HasPrefix(c.Tokens.Path, "/") {
		return errors.New("Tokens Path must start with /")
	}
	if c.Tokens.MaxAge <= 0 {
		return errors.New("Tokens MaxAge must be > 0")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}
	if c.Audit.BufferSize > 1<<20 {
		return errors.New("Audit BufferSize is too large")
	}

	// Metrics
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	return nil
}

func validCookieName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if r <= ' ' || r >= 0x7f || strings.ContainsRune("()<>@,;:\\\"/[]?={}", r) {
			return false
		}
	}
	return true
}
