package middleware

import (
	"net/http"

	"github.com/communitylearn/learnauth/permission"
)

// RequirePermission rejects requests whose session role lacks perm. It must
// run behind Gate or RequireSession: a request without a session gets 401,
// one whose role lacks perm gets 403.
func RequirePermission(rm *permission.RoleManager, perm string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, ok := SessionFromContext(r.Context())
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			if rm == nil || !rm.Allows(sess.Role.String(), perm) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
