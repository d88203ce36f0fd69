package identity

import "errors"

var (
	// ErrInvalidCredentials covers an unknown email and a wrong password alike.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailInUse is returned by SignUp for an already registered email.
	ErrEmailInUse = errors.New("email already in use")
	// ErrWeakPassword is returned by SignUp for passwords outside the accepted length.
	ErrWeakPassword = errors.New("weak password")
	// ErrInvalidEmail is returned for malformed email addresses.
	ErrInvalidEmail = errors.New("invalid email")
	// ErrRateLimited is returned while an email's attempt budget is spent.
	ErrRateLimited = errors.New("too many attempts")
	// ErrProviderUnavailable wraps backend and network failures.
	ErrProviderUnavailable = errors.New("identity provider unavailable")
	// ErrNoCurrentIdentity is returned by Token when nobody is signed in.
	ErrNoCurrentIdentity = errors.New("no current identity")
	// ErrIdentityChanged is returned by Token when the requested identity is
	// no longer the current one.
	ErrIdentityChanged = errors.New("identity changed")
	// ErrProviderClosed is returned by every operation after Close.
	ErrProviderClosed = errors.New("identity provider closed")
)
