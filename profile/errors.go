package profile

import "errors"

var (
	// ErrNotFound is returned when no profile exists for an id.
	ErrNotFound = errors.New("profile not found")
	// ErrInvalidRole is returned for roles outside student, teacher and admin.
	ErrInvalidRole = errors.New("invalid role")
	// ErrStoreUnavailable wraps backend failures.
	ErrStoreUnavailable = errors.New("profile store unavailable")
)
