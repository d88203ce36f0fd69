package learnauth

import (
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{
			name:      "defaults valid",
			mutate:    func(*Config) {},
			wantValid: true,
		},
		{
			name: "lookup timeout zero",
			mutate: func(c *Config) {
				c.LookupTimeout = 0
			},
			wantValid: false,
		},
		{
			name: "lookup timeout too long",
			mutate: func(c *Config) {
				c.LookupTimeout = 10 * time.Minute
			},
			wantValid: false,
		},
		{
			name: "sign out timeout negative",
			mutate: func(c *Config) {
				c.SignOutTimeout = -time.Second
			},
			wantValid: false,
		},
		{
			name: "token names collide",
			mutate: func(c *Config) {
				c.Tokens.RoleName = c.Tokens.SessionName
			},
			wantValid: false,
		},
		{
			name: "token name with separator",
			mutate: func(c *Config) {
				c.Tokens.SessionName = "sess;ion"
			},
			wantValid: false,
		},
		{
			name: "relative token path",
			mutate: func(c *Config) {
				c.Tokens.Path = "dashboard"
			},
			wantValid: false,
		},
		{
			name: "custom token names valid",
			mutate: func(c *Config) {
				c.Tokens.SessionName = "__Host-session"
				c.Tokens.RoleName = "__Host-role"
				c.Tokens.Secure = true
			},
			wantValid: true,
		},
		{
			name: "audit enabled without buffer",
			mutate: func(c *Config) {
				c.Audit.Enabled = true
				c.Audit.BufferSize = 0
			},
			wantValid: false,
		},
		{
			name: "latency without metrics",
			mutate: func(c *Config) {
				c.Metrics.Enabled = false
				c.Metrics.EnableLatencyHistograms = true
			},
			wantValid: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantValid && err != nil {
				t.Fatalf("expected valid, got %v", err)
			}
			if !tc.wantValid && err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestTokenConfigCookieOptions(t *testing.T) {
	cfg := DefaultConfig()
	opts := cfg.Tokens.CookieOptions()

	if opts.SessionName != "session" || opts.RoleName != "user_role" {
		t.Fatalf("unexpected names: %+v", opts)
	}
	if opts.Path != "/" || opts.MaxAge != 30*24*time.Hour {
		t.Fatalf("unexpected scope: %+v", opts)
	}
}
