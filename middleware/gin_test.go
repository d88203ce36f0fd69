package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestGinGate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := newVerifier(t)

	router := gin.New()
	router.Use(GinGate(m, GateConfig{}))
	router.GET("/dashboard/:role", func(c *gin.Context) {
		sess, ok := GinSession(c)
		if !ok {
			c.String(http.StatusInternalServerError, "no session")
			return
		}
		c.String(http.StatusOK, sess.Role.String())
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, request("/dashboard/teacher", credential(t, m, "t1"), "teacher"))
	if rec.Code != http.StatusOK || rec.Body.String() != "teacher" {
		t.Fatalf("got %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, request("/dashboard/teacher", "", ""))
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/" {
		t.Fatalf("got %d %q", rec.Code, rec.Header().Get("Location"))
	}
}
