package server

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/communitylearn/learnauth"
	"github.com/communitylearn/learnauth/internal/audit"
	"github.com/communitylearn/learnauth/middleware"
	"github.com/communitylearn/learnauth/profile"
	"github.com/communitylearn/learnauth/route"
	"github.com/communitylearn/learnauth/sidechannel"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

type sessionResponse struct {
	User      *profile.Profile `json:"user"`
	Dashboard string           `json:"dashboard,omitempty"`
	Nav       []route.Link     `json:"nav"`
}

type meResponse struct {
	sessionResponse
	Permissions []string `json:"permissions"`
}

type pageResponse struct {
	Path string       `json:"path"`
	User *userSummary `json:"user,omitempty"`
	Nav  []route.Link `json:"nav,omitempty"`
}

type userSummary struct {
	ID    string       `json:"id"`
	Email string       `json:"email"`
	Role  profile.Role `json:"role"`
}

type roleUpdateRequest struct {
	Role string `json:"role"`
}

func newSessionResponse(p *profile.Profile) sessionResponse {
	dashboard, _ := route.DashboardPath(p.Role)
	return sessionResponse{
		User:      p,
		Dashboard: dashboard,
		Nav:       route.NavLinks(p.Role),
	}
}

func (s *Server) settleTimeout() time.Duration {
	return s.resolverCfg.LookupTimeout + time.Second
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing_credentials")
		return
	}

	ctx := learnauth.WithClientIP(r.Context(), clientIP(r))
	sess, err := s.openSession()
	if err != nil {
		log.Printf("learnauth: server: open session: %v", err)
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	defer s.closeSession(sess)

	if err := sess.resolver.Login(ctx, req.Email, req.Password); err != nil {
		writeAuthError(w, err)
		return
	}

	current := sess.provider.Current()
	if current == nil {
		writeError(w, http.StatusServiceUnavailable, "session_unavailable")
		return
	}
	// an identity without a profile never settles as authenticated
	if _, err := s.profiles.Get(ctx, current.UID); err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			writeError(w, http.StatusForbidden, "profile_missing")
			return
		}
		writeError(w, http.StatusServiceUnavailable, "profile_unavailable")
		return
	}

	user, err := sess.awaitUser(ctx, current.UID, s.settleTimeout())
	if err != nil {
		log.Printf("learnauth: server: login for %s did not settle: %v", current.UID, err)
		writeError(w, http.StatusServiceUnavailable, "session_unavailable")
		return
	}

	s.issueCookies(w, sess)
	writeJSON(w, http.StatusOK, newSessionResponse(user))
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	ctx := learnauth.WithClientIP(r.Context(), clientIP(r))
	sess, err := s.openSession()
	if err != nil {
		log.Printf("learnauth: server: open session: %v", err)
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	defer s.closeSession(sess)

	created, err := sess.resolver.Register(ctx, req.Email, req.Password, req.Name, profile.Role(req.Role))
	if err != nil {
		writeAuthError(w, err)
		return
	}

	user, err := sess.awaitUser(ctx, created.ID, s.settleTimeout())
	if err != nil {
		log.Printf("learnauth: server: registration of %s did not settle: %v", created.ID, err)
		writeError(w, http.StatusServiceUnavailable, "session_unavailable")
		return
	}

	s.issueCookies(w, sess)
	writeJSON(w, http.StatusCreated, newSessionResponse(user))
}

const auditEventLogout = "logout"

// handleLogout clears both side-channel cookies. The server holds no
// session state, so the session credential itself stays valid until it
// expires (CREDENTIAL_TTL); only the browser forgets it.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	event := audit.Event{
		Timestamp: time.Now().UTC(),
		EventType: auditEventLogout,
		IP:        clientIP(r),
		Success:   true,
	}
	if tokens, ok := sidechannel.FromRequest(r, s.cookies); ok {
		if claims, err := s.tokens.ParseCredential(tokens.Session); err == nil {
			event.UserID = claims.UID()
			event.Email = claims.Email
			event.Role = tokens.Role
		}
	}

	s.metrics.Inc(learnauth.MetricLogout)
	sidechannel.ClearCookies(w, s.cookies)
	s.audit.Emit(r.Context(), event)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) issueCookies(w http.ResponseWriter, sess *session) {
	// View takes the resolver lock, so the settle that produced the user has
	// finished writing the projection.
	_ = sess.resolver.View()
	sidechannel.SetCookies(w, sess.projection.Tokens(), s.cookies)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	caller, _ := middleware.SessionFromContext(r.Context())

	p, err := s.profiles.Get(r.Context(), caller.UID)
	if err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			writeError(w, http.StatusNotFound, "profile_not_found")
			return
		}
		writeError(w, http.StatusServiceUnavailable, "profile_unavailable")
		return
	}

	writeJSON(w, http.StatusOK, meResponse{
		sessionResponse: newSessionResponse(p),
		Permissions:     s.roles.Permissions(p.Role.String()),
	})
}

// handlePage serves the routes Gate lets through. Rendering belongs to the
// front end; the response only describes what it should show.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	resp := pageResponse{Path: route.Clean(r.URL.Path)}
	if caller, ok := middleware.SessionFromContext(r.Context()); ok {
		resp.User = &userSummary{ID: caller.UID, Email: caller.Email, Role: caller.Role}
		resp.Nav = route.NavLinks(caller.Role)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	var opts profile.ListOptions
	if raw := r.URL.Query().Get("role"); raw != "" && raw != "all" {
		role, err := profile.ParseRole(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_role")
			return
		}
		opts.Role = role
	}

	users, err := s.profiles.List(r.Context(), opts)
	if err != nil {
		log.Printf("learnauth: server: list profiles: %v", err)
		writeError(w, http.StatusServiceUnavailable, "profile_unavailable")
		return
	}
	if users == nil {
		users = []profile.Profile{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"users": users})
}

func (s *Server) handleUpdateUserRole(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req roleUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	role, err := profile.ParseRole(req.Role)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_role")
		return
	}

	if err := s.profiles.UpdateRole(r.Context(), id, role); err != nil {
		writeProfileError(w, err)
		return
	}

	p, err := s.profiles.Get(r.Context(), id)
	if err != nil {
		writeProfileError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := s.profiles.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeProfileError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	counts, err := s.profiles.CountByRole(r.Context())
	if err != nil {
		log.Printf("learnauth: server: count profiles: %v", err)
		writeError(w, http.StatusServiceUnavailable, "profile_unavailable")
		return
	}

	total := 0
	byRole := make(map[string]int, len(profile.Roles()))
	for _, role := range profile.Roles() {
		byRole[role.String()] = counts[role]
		total += counts[role]
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"total": total, "byRole": byRole})
}

func writeProfileError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, profile.ErrNotFound):
		writeError(w, http.StatusNotFound, "profile_not_found")
	case errors.Is(err, profile.ErrInvalidRole):
		writeError(w, http.StatusBadRequest, "invalid_role")
	default:
		log.Printf("learnauth: server: profile store: %v", err)
		writeError(w, http.StatusServiceUnavailable, "profile_unavailable")
	}
}

func writeAuthError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, learnauth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid_credentials")
	case errors.Is(err, learnauth.ErrEmailInUse):
		writeError(w, http.StatusConflict, "email_in_use")
	case errors.Is(err, learnauth.ErrWeakPassword):
		writeError(w, http.StatusBadRequest, "weak_password")
	case errors.Is(err, learnauth.ErrInvalidEmail):
		writeError(w, http.StatusBadRequest, "invalid_email")
	case errors.Is(err, learnauth.ErrInvalidRole):
		writeError(w, http.StatusBadRequest, "invalid_role")
	case errors.Is(err, learnauth.ErrInvalidName):
		writeError(w, http.StatusBadRequest, "invalid_name")
	case errors.Is(err, learnauth.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "rate_limited")
	case errors.Is(err, learnauth.ErrProfileWriteFailed):
		writeError(w, http.StatusServiceUnavailable, "profile_write_failed")
	default:
		log.Printf("learnauth: server: identity provider: %v", err)
		writeError(w, http.StatusServiceUnavailable, "provider_unavailable")
	}
}
