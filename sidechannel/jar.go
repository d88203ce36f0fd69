package sidechannel

import (
	"context"
	"errors"
	"net/http"
	"net/url"
)

// JarProjection mirrors the tokens into an http.CookieJar for one site, so
// a Go client's requests to that site carry them.
type JarProjection struct {
	jar  http.CookieJar
	site *url.URL
	opts CookieOptions
}

// NewJarProjection returns a projection writing cookies for siteURL into jar.
func NewJarProjection(jar http.CookieJar, siteURL string, opts CookieOptions) (*JarProjection, error) {
	if jar == nil {
		return nil, errors.New("sidechannel: nil cookie jar")
	}
	u, err := url.Parse(siteURL)
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.New("sidechannel: site URL must be absolute")
	}
	return &JarProjection{jar: jar, site: u, opts: opts.normalize()}, nil
}

func (p *JarProjection) Write(_ context.Context, tokens Tokens) error {
	p.jar.SetCookies(p.site, p.opts.Cookies(tokens))
	return nil
}

func (p *JarProjection) Clear(_ context.Context) error {
	p.jar.SetCookies(p.site, p.opts.Cookies(Tokens{}))
	return nil
}

// Tokens reads the tokens back from the jar.
func (p *JarProjection) Tokens() Tokens {
	var tokens Tokens
	for _, c := range p.jar.Cookies(p.site) {
		switch c.Name {
		case p.opts.SessionName:
			tokens.Session = c.Value
		case p.opts.RoleName:
			tokens.Role = c.Value
		}
	}
	return tokens
}
