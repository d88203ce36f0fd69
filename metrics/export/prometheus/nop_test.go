package prometheus

import (
	"context"

	"github.com/communitylearn/learnauth/identity"
	"github.com/communitylearn/learnauth/profile"
)

type nopProvider struct{}

func (nopProvider) SignIn(context.Context, string, string) (*identity.Identity, error) {
	return nil, identity.ErrInvalidCredentials
}

func (nopProvider) SignUp(context.Context, string, string) (*identity.Identity, error) {
	return nil, identity.ErrProviderUnavailable
}

func (nopProvider) SignOut(context.Context) error {
	return nil
}

func (nopProvider) OnChange(fn identity.Listener) func() {
	fn(nil)
	return func() {}
}

func (nopProvider) Token(context.Context, string) (string, error) {
	return "", identity.ErrNoCurrentIdentity
}

type nopStore struct{}

func (nopStore) Get(context.Context, string) (*profile.Profile, error) {
	return nil, profile.ErrNotFound
}

func (nopStore) Put(context.Context, profile.Profile) error {
	return nil
}
