package learnauth

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsCredentialError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{ErrInvalidCredentials, true},
		{fmt.Errorf("sign in: %w", ErrEmailInUse), true},
		{ErrWeakPassword, true},
		{ErrInvalidRole, true},
		{ErrInvalidName, true},
		{ErrProviderUnavailable, false},
		{ErrRateLimited, false},
		{fmt.Errorf("%w: disk full", ErrProfileWriteFailed), false},
		{errors.New("boom"), false},
	}

	for _, tc := range tests {
		if got := IsCredentialError(tc.err); got != tc.want {
			t.Errorf("IsCredentialError(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}
