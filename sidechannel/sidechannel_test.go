package sidechannel

import (
	"context"
	"errors"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
)

func TestSetCookiesDefaults(t *testing.T) {
	rec := httptest.NewRecorder()
	SetCookies(rec, Tokens{Session: "tok", Role: "teacher"}, CookieOptions{})

	cookies := rec.Result().Cookies()
	if len(cookies) != 2 {
		t.Fatalf("expected 2 cookies, got %d", len(cookies))
	}
	byName := map[string]*http.Cookie{}
	for _, c := range cookies {
		byName[c.Name] = c
	}

	s := byName[SessionCookie]
	r := byName[RoleCookie]
	if s == nil || r == nil {
		t.Fatalf("missing cookie, got %v", cookies)
	}
	if s.Value != "tok" || r.Value != "teacher" {
		t.Fatalf("unexpected values %q %q", s.Value, r.Value)
	}
	for _, c := range []*http.Cookie{s, r} {
		if c.Path != "/" {
			t.Fatalf("expected path /, got %q", c.Path)
		}
		if c.MaxAge != 30*24*60*60 {
			t.Fatalf("expected 30 day max age, got %d", c.MaxAge)
		}
	}
}

func TestClearCookiesExpiresBoth(t *testing.T) {
	rec := httptest.NewRecorder()
	ClearCookies(rec, CookieOptions{})

	cookies := rec.Result().Cookies()
	if len(cookies) != 2 {
		t.Fatalf("expected 2 cookies, got %d", len(cookies))
	}
	for _, c := range cookies {
		if c.MaxAge >= 0 || c.Value != "" {
			t.Fatalf("expected expiring cookie, got %+v", c)
		}
	}
}

func TestFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	if _, ok := FromRequest(req, CookieOptions{}); ok {
		t.Fatal("expected no session without cookies")
	}

	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "tok"})
	req.AddCookie(&http.Cookie{Name: RoleCookie, Value: "admin"})
	tokens, ok := FromRequest(req, CookieOptions{})
	if !ok || tokens.Session != "tok" || tokens.Role != "admin" {
		t.Fatalf("unexpected tokens %+v ok=%v", tokens, ok)
	}
}

func TestJarProjectionWriteAndClear(t *testing.T) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}
	p, err := NewJarProjection(jar, "http://learn.example.com", CookieOptions{})
	if err != nil {
		t.Fatalf("NewJarProjection: %v", err)
	}
	ctx := context.Background()

	if err := p.Write(ctx, Tokens{Session: "tok", Role: "student"}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got := p.Tokens(); got.Session != "tok" || got.Role != "student" {
		t.Fatalf("unexpected tokens %+v", got)
	}

	if err := p.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if got := p.Tokens(); !got.Empty() {
		t.Fatalf("expected jar cleared, got %+v", got)
	}
}

func TestNewJarProjectionRejectsRelativeURL(t *testing.T) {
	jar, _ := cookiejar.New(nil)
	if _, err := NewJarProjection(jar, "/relative", CookieOptions{}); err == nil {
		t.Fatal("expected relative URL to be rejected")
	}
	if _, err := NewJarProjection(nil, "http://x", CookieOptions{}); err == nil {
		t.Fatal("expected nil jar to be rejected")
	}
}

func TestMemoryProjectionFailure(t *testing.T) {
	m := NewMemoryProjection()
	boom := errors.New("boom")
	m.FailWith(boom)

	if err := m.Write(context.Background(), Tokens{Session: "x"}); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	m.FailWith(nil)
	if err := m.Write(context.Background(), Tokens{Session: "x", Role: "admin"}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := m.Clear(context.Background()); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if w, c := m.Counts(); w != 1 || c != 1 {
		t.Fatalf("unexpected counts w=%d c=%d", w, c)
	}
}
