package identity

import (
	"context"
	"time"
)

// Identity is a signed-in account as the provider sees it.
type Identity struct {
	UID           string
	Email         string
	EmailVerified bool
	// Credential is the short-lived bearer token issued at sign-in or refresh.
	Credential string
	ExpiresAt  time.Time
}

func (i *Identity) clone() *Identity {
	if i == nil {
		return nil
	}
	c := *i
	return &c
}

// Listener receives auth-state changes. A nil identity means signed out.
type Listener func(*Identity)

// Provider is the identity provider consumed by the session resolver.
//
// Change notifications are delivered to each listener sequentially and in
// the order the provider emitted them. A new listener first receives the
// provider's current state.
type Provider interface {
	SignIn(ctx context.Context, email, password string) (*Identity, error)
	SignUp(ctx context.Context, email, password string) (*Identity, error)
	SignOut(ctx context.Context) error
	OnChange(fn Listener) (unsubscribe func())
	// Token returns the credential of identity uid, refreshing it when it is
	// close to expiry. It fails with ErrIdentityChanged once uid is no longer
	// the current identity.
	Token(ctx context.Context, uid string) (string, error)
}
