package middleware

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/communitylearn/learnauth"
	"github.com/communitylearn/learnauth/jwt"
	"github.com/communitylearn/learnauth/profile"
	"github.com/communitylearn/learnauth/route"
	"github.com/communitylearn/learnauth/sidechannel"
)

// Verifier checks a session credential. *jwt.Manager satisfies it.
type Verifier interface {
	ParseCredential(token string) (*jwt.CredentialClaims, error)
}

// RoleLookup returns the stored role for an identity.
type RoleLookup func(ctx context.Context, uid string) (profile.Role, error)

// GateConfig configures Gate and RequireSession.
type GateConfig struct {
	Cookies sidechannel.CookieOptions
	// RoleLookup, when set, replaces the user_role cookie with the stored
	// role. A failed lookup makes the request anonymous.
	RoleLookup RoleLookup
	// RedirectStatus defaults to 302 Found.
	RedirectStatus int
}

// Session is the caller's verified session, available to handlers behind
// Gate or RequireSession.
type Session struct {
	UID    string
	Email  string
	Role   profile.Role
	Claims *jwt.CredentialClaims
}

type sessionContextKey struct{}

// SessionFromContext returns the session stored by Gate or RequireSession.
func SessionFromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(sessionContextKey{}).(*Session)
	return s, ok && s != nil
}

// WithSession stores s in ctx.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, s)
}

// Gate applies the route policy to page requests using the side-channel
// cookies: anonymous users are sent away from dashboards, signed-in users
// away from the landing and auth pages, and a user on another role's
// dashboard to their own.
func Gate(verifier Verifier, cfg GateConfig) func(http.Handler) http.Handler {
	status := cfg.RedirectStatus
	if status == 0 {
		status = http.StatusFound
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := resolveSession(r, verifier, cfg)

			view := learnauth.SessionView{State: learnauth.StateUnauthenticated}
			if sess != nil {
				view = learnauth.SessionView{
					User:  &profile.Profile{ID: sess.UID, Email: sess.Email, Role: sess.Role},
					State: learnauth.StateAuthenticated,
				}
			}

			decision := route.Decide(r.URL.Path, view)
			if !decision.Redirect && sess != nil {
				decision = crossRole(r.URL.Path, sess.Role)
			}
			if decision.Redirect {
				http.Redirect(w, r, decision.Target, status)
				return
			}

			if sess != nil {
				r = r.WithContext(WithSession(r.Context(), sess))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireSession rejects requests without a valid session with 401.
func RequireSession(verifier Verifier, cfg GateConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := resolveSession(r, verifier, cfg)
			if sess == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
		})
	}
}

func crossRole(urlPath string, role profile.Role) route.Decision {
	owner, ok := route.DashboardOwner(urlPath)
	if !ok || owner == role {
		return route.Decision{}
	}
	target, ok := route.DashboardPath(role)
	if !ok {
		target = route.LandingPath
	}
	return route.Decision{Redirect: true, Target: target}
}

func resolveSession(r *http.Request, verifier Verifier, cfg GateConfig) *Session {
	if verifier == nil {
		return nil
	}
	tokens, ok := sidechannel.FromRequest(r, cfg.Cookies)
	if !ok {
		return nil
	}

	claims, err := verifier.ParseCredential(tokens.Session)
	if err != nil {
		return nil
	}

	role := profile.Role(strings.ToLower(strings.TrimSpace(tokens.Role)))
	if cfg.RoleLookup != nil {
		stored, err := cfg.RoleLookup(r.Context(), claims.UID())
		if err != nil {
			if !errors.Is(err, profile.ErrNotFound) {
				log.Printf("learnauth: middleware: role lookup for %s: %v", claims.UID(), err)
			}
			return nil
		}
		role = stored
	}

	return &Session{
		UID:    claims.UID(),
		Email:  claims.Email,
		Role:   role,
		Claims: claims,
	}
}
