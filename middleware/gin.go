package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GinSessionKey is the gin context key holding the *Session.
const GinSessionKey = "learnauth.session"

// Gin adapts net/http middleware to gin. When the wrapped middleware writes
// a response (a redirect or a rejection) the gin chain stops.
func Gin(mw func(http.Handler) http.Handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c.Request = r
			if sess, ok := SessionFromContext(r.Context()); ok {
				c.Set(GinSessionKey, sess)
			}
			c.Next()
		})

		mw(next).ServeHTTP(c.Writer, c.Request)

		if c.Writer.Written() && !c.IsAborted() {
			c.Abort()
		}
	}
}

// GinGate bridges Gate to gin.
func GinGate(verifier Verifier, cfg GateConfig) gin.HandlerFunc {
	return Gin(Gate(verifier, cfg))
}

// GinSession returns the session GinGate stored on c.
func GinSession(c *gin.Context) (*Session, bool) {
	v, ok := c.Get(GinSessionKey)
	if !ok {
		return nil, false
	}
	sess, ok := v.(*Session)
	return sess, ok
}
