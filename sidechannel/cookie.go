package sidechannel

import (
	"net/http"
	"time"
)

// CookieOptions defines how the side-channel cookies are issued.
type CookieOptions struct {
	SessionName string
	RoleName    string
	Path        string
	Domain      string
	MaxAge      time.Duration
	Secure      bool
	SameSite    http.SameSite
}

// normalize applies defaults without breaking callers
func (o CookieOptions) normalize() CookieOptions {
	if o.SessionName == "" {
		o.SessionName = SessionCookie
	}
	if o.RoleName == "" {
		o.RoleName = RoleCookie
	}
	if o.Path == "" {
		o.Path = DefaultPath
	}
	if o.MaxAge <= 0 {
		o.MaxAge = DefaultMaxAge
	}
	if o.SameSite == 0 {
		o.SameSite = http.SameSiteLaxMode
	}
	return o
}

// Cookies builds the two cookies for tokens. An empty Tokens builds
// expiring cookies that delete both.
func (o CookieOptions) Cookies(tokens Tokens) []*http.Cookie {
	o = o.normalize()
	if tokens.Empty() {
		return []*http.Cookie{o.expired(o.SessionName), o.expired(o.RoleName)}
	}

	maxAge := int(o.MaxAge / time.Second)
	return []*http.Cookie{
		{
			Name:     o.SessionName,
			Value:    tokens.Session,
			Path:     o.Path,
			Domain:   o.Domain,
			MaxAge:   maxAge,
			Secure:   o.Secure,
			SameSite: o.SameSite,
		},
		{
			Name:     o.RoleName,
			Value:    tokens.Role,
			Path:     o.Path,
			Domain:   o.Domain,
			MaxAge:   maxAge,
			Secure:   o.Secure,
			SameSite: o.SameSite,
		},
	}
}

func (o CookieOptions) expired(name string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     o.Path,
		Domain:   o.Domain,
		MaxAge:   -1,
		Secure:   o.Secure,
		SameSite: o.SameSite,
	}
}

// SetCookies issues both side-channel cookies to the client.
func SetCookies(w http.ResponseWriter, tokens Tokens, opts CookieOptions) {
	for _, c := range opts.Cookies(tokens) {
		http.SetCookie(w, c)
	}
}

// ClearCookies removes both side-channel cookies from the client.
func ClearCookies(w http.ResponseWriter, opts CookieOptions) {
	SetCookies(w, Tokens{}, opts)
}

// FromRequest reads the side-channel cookies. ok is false when the
// session cookie is absent or empty.
func FromRequest(r *http.Request, opts CookieOptions) (Tokens, bool) {
	opts = opts.normalize()

	var tokens Tokens
	if c, err := r.Cookie(opts.SessionName); err == nil {
		tokens.Session = c.Value
	}
	if c, err := r.Cookie(opts.RoleName); err == nil {
		tokens.Role = c.Value
	}
	return tokens, tokens.Session != ""
}
