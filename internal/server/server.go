package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/communitylearn/learnauth"
	"github.com/communitylearn/learnauth/identity"
	"github.com/communitylearn/learnauth/internal/audit"
	"github.com/communitylearn/learnauth/internal/config"
	"github.com/communitylearn/learnauth/jwt"
	"github.com/communitylearn/learnauth/metrics/export/prometheus"
	"github.com/communitylearn/learnauth/middleware"
	"github.com/communitylearn/learnauth/permission"
	"github.com/communitylearn/learnauth/profile"
	"github.com/communitylearn/learnauth/sidechannel"
)

// Deps are the collaborators a Server does not build itself.
type Deps struct {
	Redis    redis.UniversalClient
	Profiles profile.Directory
	// Identity overrides the account settings. The zero value means
	// identity.DefaultConfig with the configured Redis prefix.
	Identity  identity.Config
	AuditSink learnauth.AuditSink
}

type Server struct {
	cfg         config.Config
	redis       redis.UniversalClient
	profiles    profile.Directory
	tokens      *jwt.Manager
	roles       *permission.RoleManager
	identityCfg identity.Config
	resolverCfg learnauth.Config
	cookies     sidechannel.CookieOptions
	auditSink   learnauth.AuditSink
	// audit carries events the server raises itself, outside any resolver.
	audit *audit.Dispatcher

	metrics *learnauth.Metrics
	dropped atomic.Uint64
}

func NewServer(cfg config.Config, deps Deps) (*Server, error) {
	if deps.Redis == nil {
		return nil, errors.New("redis client is required")
	}
	if deps.Profiles == nil {
		return nil, errors.New("profile directory is required")
	}

	tokens, err := newCredentialManager(cfg)
	if err != nil {
		return nil, err
	}
	roles, err := permission.NewDefaultRoleManager()
	if err != nil {
		return nil, err
	}

	identityCfg := deps.Identity
	if identityCfg == (identity.Config{}) {
		identityCfg = identity.DefaultConfig()
		identityCfg.Prefix = cfg.RedisPrefix
	}

	resolverCfg := learnauth.DefaultConfig()
	resolverCfg.LookupTimeout = cfg.LookupTimeout
	resolverCfg.SignOutTimeout = cfg.SignOutTimeout
	resolverCfg.Tokens.Domain = cfg.CookieDomain
	resolverCfg.Tokens.Secure = cfg.CookieSecure
	resolverCfg.Audit.Enabled = cfg.AuditEnabled && deps.AuditSink != nil
	if err := resolverCfg.Validate(); err != nil {
		return nil, fmt.Errorf("resolver config: %w", err)
	}

	return &Server{
		cfg:         cfg,
		redis:       deps.Redis,
		profiles:    deps.Profiles,
		tokens:      tokens,
		roles:       roles,
		identityCfg: identityCfg,
		resolverCfg: resolverCfg,
		cookies:     resolverCfg.Tokens.CookieOptions(),
		auditSink:   deps.AuditSink,
		audit: audit.NewDispatcher(audit.Config{
			Enabled:    resolverCfg.Audit.Enabled,
			BufferSize: resolverCfg.Audit.BufferSize,
			DropIfFull: resolverCfg.Audit.DropIfFull,
		}, deps.AuditSink),
		metrics: learnauth.NewMetrics(resolverCfg.Metrics),
	}, nil
}

// Close flushes the server's own audit events. Call it after the HTTP
// server has shut down.
func (s *Server) Close() {
	s.audit.Close()
}

func newCredentialManager(cfg config.Config) (*jwt.Manager, error) {
	jcfg := jwt.Config{
		TTL:    cfg.CredentialTTL,
		Issuer: cfg.JWTIssuer,
	}
	switch {
	case cfg.JWTSecret != "":
		jcfg.SigningMethod = jwt.MethodHS256
		jcfg.PrivateKey = []byte(cfg.JWTSecret)
	case cfg.JWTPublicKey != "":
		jcfg.SigningMethod = jwt.MethodEd25519
		jcfg.PublicKey = []byte(cfg.JWTPublicKey)
		jcfg.PrivateKey = []byte(cfg.JWTPrivateKey)
	default:
		return nil, errors.New("JWT_SECRET or JWT_PUBLIC_KEY is required")
	}
	return jwt.NewManager(jcfg)
}

// MetricsSnapshot returns the counters shared by every request session.
func (s *Server) MetricsSnapshot() learnauth.MetricsSnapshot {
	return s.metrics.Snapshot()
}

// AuditDropped returns audit events dropped by finished request sessions
// and by the server itself.
func (s *Server) AuditDropped() uint64 {
	return s.dropped.Load() + s.audit.Dropped()
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	registry := promclient.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		prometheus.NewCollectorFromSource(s),
	)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	pageGate := middleware.GateConfig{Cookies: s.cookies}
	r.Group(func(r chi.Router) {
		r.Use(middleware.Gate(s.tokens, pageGate))
		r.Get("/", s.handlePage)
		r.Get("/auth", s.handlePage)
		r.Get("/dashboard", s.handlePage)
		r.Get("/dashboard/{role}", s.handlePage)
		r.Get("/dashboard/{role}/*", s.handlePage)
	})

	apiGate := middleware.GateConfig{Cookies: s.cookies, RoleLookup: s.lookupRole}
	r.Route("/api", func(r chi.Router) {
		r.Post("/session", s.handleLogin)
		r.Delete("/session", s.handleLogout)
		r.Post("/register", s.handleRegister)
		r.With(middleware.RequireSession(s.tokens, apiGate)).Get("/me", s.handleMe)

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireSession(s.tokens, apiGate))
			r.Use(middleware.RequirePermission(s.roles, permission.UserModerate))
			r.Get("/users", s.handleListUsers)
			r.Patch("/users/{id}", s.handleUpdateUserRole)
			r.Delete("/users/{id}", s.handleDeleteUser)
			r.With(middleware.RequirePermission(s.roles, permission.StatsView)).Get("/stats", s.handleStats)
		})
	})

	return r
}

func (s *Server) lookupRole(ctx context.Context, uid string) (profile.Role, error) {
	p, err := s.profiles.Get(ctx, uid)
	if err != nil {
		return "", err
	}
	return p.Role, nil
}

func decodeJSON(r *http.Request, out interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	return ""
}
