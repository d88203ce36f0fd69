package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr       string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	RedisPrefix    string
	DatabaseURL    string
	JWTSecret      string
	JWTPrivateKey  string
	JWTPublicKey   string
	JWTIssuer      string
	CredentialTTL  time.Duration
	LookupTimeout  time.Duration
	SignOutTimeout time.Duration
	CookieDomain   string
	CookieSecure   bool
	AuditEnabled   bool
	// AuditStream, when set, also appends audit events to this Redis stream.
	AuditStream       string
	AuditStreamMaxLen int64
	ShutdownTimeout   time.Duration
}

func Load() Config {
	return Config{
		HTTPAddr:          getenv("HTTP_ADDR", ":8080"),
		RedisAddr:         getenv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword:     getenv("REDIS_PASSWORD", ""),
		RedisDB:           getenvInt("REDIS_DB", 0),
		RedisPrefix:       getenv("REDIS_PREFIX", "cl:"),
		DatabaseURL:       getenv("DATABASE_URL", ""),
		JWTSecret:         getenv("JWT_SECRET", ""),
		JWTPrivateKey:     getenvKey("JWT_PRIVATE_KEY", ""),
		JWTPublicKey:      getenvKey("JWT_PUBLIC_KEY", ""),
		JWTIssuer:         getenv("JWT_ISSUER", "communitylearn"),
		CredentialTTL:     getenvDuration("CREDENTIAL_TTL", time.Hour),
		LookupTimeout:     getenvDuration("LOOKUP_TIMEOUT", 10*time.Second),
		SignOutTimeout:    getenvDuration("SIGN_OUT_TIMEOUT", 5*time.Second),
		CookieDomain:      getenv("COOKIE_DOMAIN", ""),
		CookieSecure:      getenvBool("COOKIE_SECURE", false),
		AuditEnabled:      getenvBool("AUDIT_ENABLED", false),
		AuditStream:       getenv("AUDIT_STREAM", ""),
		AuditStreamMaxLen: int64(getenvInt("AUDIT_STREAM_MAXLEN", 10000)),
		ShutdownTimeout:   getenvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getenvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	if val := os.Getenv(key + "_SECONDS"); val != "" {
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}

func getenvKey(key, fallback string) string {
	if file := os.Getenv(key + "_FILE"); file != "" {
		if data, err := os.ReadFile(file); err == nil {
			return normalizePEM(string(data))
		}
	}
	if val := os.Getenv(key); val != "" {
		return normalizePEM(val)
	}
	return fallback
}

func normalizePEM(value string) string {
	value = strings.TrimSpace(value)
	if strings.Contains(value, "\\n") && !strings.Contains(value, "\n") {
		value = strings.ReplaceAll(value, "\\n", "\n")
	}
	return value
}
