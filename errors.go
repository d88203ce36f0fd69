package learnauth

import (
	"errors"

	"github.com/communitylearn/learnauth/identity"
	"github.com/communitylearn/learnauth/profile"
)

// Credential errors. They describe something the user can correct and are
// shown to them as is.
var (
	// ErrInvalidCredentials is returned by Login for an unknown email or a wrong password.
	ErrInvalidCredentials = identity.ErrInvalidCredentials
	// ErrEmailInUse is returned by Register for an already registered email.
	ErrEmailInUse = identity.ErrEmailInUse
	// ErrWeakPassword is returned by Register for passwords shorter than six bytes.
	ErrWeakPassword = identity.ErrWeakPassword
	// ErrInvalidEmail is returned for malformed email addresses.
	ErrInvalidEmail = identity.ErrInvalidEmail
	// ErrInvalidRole is returned by Register for roles other than student, teacher and admin.
	ErrInvalidRole = profile.ErrInvalidRole
	// ErrInvalidName is returned by Register for a blank display name.
	ErrInvalidName = errors.New("invalid name")
)

// Availability errors.
var (
	// ErrProviderUnavailable wraps identity provider failures on explicit calls.
	ErrProviderUnavailable = identity.ErrProviderUnavailable
	// ErrRateLimited is returned while an email's attempt budget is spent.
	ErrRateLimited = identity.ErrRateLimited
)

var (
	// ErrProfileWriteFailed is returned by Register when the identity was
	// created but its profile could not be stored.
	ErrProfileWriteFailed = errors.New("profile write failed")
	// ErrResolverClosed is returned by operations on a closed Resolver.
	ErrResolverClosed = errors.New("resolver closed")
)

var credentialErrors = []error{
	ErrInvalidCredentials,
	ErrEmailInUse,
	ErrWeakPassword,
	ErrInvalidEmail,
	ErrInvalidRole,
	ErrInvalidName,
}

// IsCredentialError reports whether err is a credential error, as opposed to
// an availability or internal failure.
func IsCredentialError(err error) bool {
	if err == nil {
		return false
	}
	for _, target := range credentialErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
