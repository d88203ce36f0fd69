package sidechannel

import (
	"context"
	"sync"
	"time"
)

const (
	// SessionCookie carries the bearer credential.
	SessionCookie = "session"
	// RoleCookie carries the cached role string.
	RoleCookie = "user_role"
	// DefaultMaxAge is the lifetime of both tokens.
	DefaultMaxAge = 30 * 24 * time.Hour
	// DefaultPath scopes both tokens to the whole site.
	DefaultPath = "/"
)

// Tokens is the pair mirrored from the latest identity and profile resolution.
type Tokens struct {
	Session string
	Role    string
}

// Empty reports whether neither token is set.
func (t Tokens) Empty() bool {
	return t.Session == "" && t.Role == ""
}

// Projection is the write-through mirror of session state. Write is called
// on every resolution to an authenticated session, Clear on every
// transition to unauthenticated and on logout.
type Projection interface {
	Write(ctx context.Context, tokens Tokens) error
	Clear(ctx context.Context) error
}

// Discard is a Projection that mirrors nothing.
type Discard struct{}

func (Discard) Write(context.Context, Tokens) error { return nil }
func (Discard) Clear(context.Context) error         { return nil }

// MemoryProjection keeps the tokens in memory.
type MemoryProjection struct {
	mu      sync.RWMutex
	tokens  Tokens
	writes  int
	clears  int
	failErr error
}

// NewMemoryProjection returns an empty MemoryProjection.
func NewMemoryProjection() *MemoryProjection {
	return &MemoryProjection{}
}

func (m *MemoryProjection) Write(_ context.Context, tokens Tokens) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return m.failErr
	}
	m.tokens = tokens
	m.writes++
	return nil
}

func (m *MemoryProjection) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return m.failErr
	}
	m.tokens = Tokens{}
	m.clears++
	return nil
}

// Tokens returns the mirrored tokens.
func (m *MemoryProjection) Tokens() Tokens {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tokens
}

// Counts returns how many writes and clears were applied.
func (m *MemoryProjection) Counts() (writes, clears int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes, m.clears
}

// FailWith makes every later Write and Clear return err. A nil err
// restores normal behavior.
func (m *MemoryProjection) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failErr = err
}
