package route

import (
	"path"
	"strings"

	"github.com/communitylearn/learnauth"
	"github.com/communitylearn/learnauth/profile"
)

const (
	// LandingPath is the public landing page.
	LandingPath = "/"
	// AuthPath is the sign-in and sign-up page. Every path under it is an
	// auth entry route.
	AuthPath = "/auth"
	// DashboardRoot dispatches to the role dashboards.
	DashboardRoot = "/dashboard"
)

// Decision is the outcome of applying the routing policy to one path.
// The zero Decision means stay.
type Decision struct {
	Redirect bool
	Target   string
}

func redirect(target string) Decision {
	return Decision{Redirect: true, Target: target}
}

// Decide applies the routing policy to a request for urlPath given the
// session view:
//   - while the view is loading nothing is decided;
//   - anonymous users are sent from dashboard routes to the landing page;
//   - authenticated users are sent from the landing page, auth routes and
//     the bare dashboard root to their role's dashboard, or to the landing
//     page when the role has none.
//
// Anything else stays.
func Decide(urlPath string, view learnauth.SessionView) Decision {
	if view.Loading {
		return Decision{}
	}
	p := Clean(urlPath)

	if view.User == nil {
		if IsDashboard(p) {
			return redirect(LandingPath)
		}
		return Decision{}
	}

	if p == LandingPath || IsAuthEntry(p) || p == DashboardRoot {
		target, ok := DashboardPath(view.User.Role)
		if !ok {
			target = LandingPath
		}
		if target == p {
			return Decision{}
		}
		return redirect(target)
	}
	return Decision{}
}

// Clean normalizes urlPath: it drops any query or fragment, resolves dot
// segments and trailing slashes, and roots the result.
func Clean(urlPath string) string {
	if i := strings.IndexAny(urlPath, "?#"); i >= 0 {
		urlPath = urlPath[:i]
	}
	if urlPath == "" {
		return LandingPath
	}
	return path.Clean("/" + urlPath)
}

// IsDashboard reports whether urlPath is the dashboard root or below it.
func IsDashboard(urlPath string) bool {
	p := Clean(urlPath)
	return p == DashboardRoot || strings.HasPrefix(p, DashboardRoot+"/")
}

// IsAuthEntry reports whether urlPath is an auth entry route. Like the
// original client, any path beginning with /auth counts.
func IsAuthEntry(urlPath string) bool {
	return strings.HasPrefix(Clean(urlPath), AuthPath)
}

// DashboardPath returns /dashboard/{role}. ok is false for unknown roles.
func DashboardPath(role profile.Role) (string, bool) {
	if !role.Valid() {
		return "", false
	}
	return DashboardRoot + "/" + role.String(), true
}

// DashboardOwner returns the role whose dashboard contains urlPath.
// ok is false outside role dashboards, including the bare root.
func DashboardOwner(urlPath string) (profile.Role, bool) {
	p := Clean(urlPath)
	rest, found := strings.CutPrefix(p, DashboardRoot+"/")
	if !found {
		return "", false
	}
	segment, _, _ := strings.Cut(rest, "/")
	role := profile.Role(segment)
	if !role.Valid() {
		return "", false
	}
	return role, true
}
