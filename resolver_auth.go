package learnauth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/communitylearn/learnauth/identity"
	"github.com/communitylearn/learnauth/profile"
)

// Login verifies credentials with the identity provider. It does not touch
// the view: the provider's following change notification does. On failure
// the view is left as it was and the error is classified with
// [IsCredentialError], ErrProviderUnavailable or ErrRateLimited.
func (r *Resolver) Login(ctx context.Context, email, password string) error {
	if err := r.checkOpen(); err != nil {
		return err
	}

	id, err := r.provider.SignIn(ctx, email, password)
	if err != nil {
		err = classifyProviderError(err)
		r.metrics.Inc(MetricLoginFailure)
		r.emitAudit(ctx, auditEventLoginFailure, false, "", identity.NormalizeEmail(email), "", err, nil)
		return err
	}

	r.metrics.Inc(MetricLoginSuccess)
	r.emitAudit(ctx, auditEventLoginSuccess, true, id.UID, id.Email, "", nil, nil)
	return nil
}

// Register creates an identity and then its profile. The two steps are not
// atomic. When the profile write fails the identity is left without a
// profile, resolves as signed out, and the write error is returned wrapped
// in ErrProfileWriteFailed.
func (r *Resolver) Register(ctx context.Context, email, password, name string, role profile.Role) (*profile.Profile, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}

	role, err := profile.ParseRole(string(role))
	if err != nil {
		return nil, ErrInvalidRole
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}

	id, err := r.provider.SignUp(ctx, email, password)
	if err != nil {
		err = classifyProviderError(err)
		r.metrics.Inc(MetricRegisterFailure)
		r.emitAudit(ctx, auditEventRegisterFailure, false, "", identity.NormalizeEmail(email), role.String(), err, nil)
		return nil, err
	}

	now := time.Now().UTC()
	p := profile.Profile{
		ID:        id.UID,
		Name:      name,
		Email:     id.Email,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.profiles.Put(ctx, p); err != nil {
		log.Printf("learnauth: identity %s was created without a profile: %v", id.UID, err)
		r.metrics.Inc(MetricRegisterOrphanedIdentity)
		r.emitAudit(ctx, auditEventRegisterOrphaned, false, id.UID, id.Email, role.String(), err, nil)
		return nil, fmt.Errorf("%w: %v", ErrProfileWriteFailed, err)
	}

	r.metrics.Inc(MetricRegisterSuccess)
	r.emitAudit(ctx, auditEventRegisterSuccess, true, id.UID, id.Email, role.String(), nil, nil)

	// the sign-up notification may have been resolved before the profile existed
	r.mu.Lock()
	r.reresolveLocked(id.UID)
	r.unlock()

	return &p, nil
}

// Logout clears the user and both side-channel tokens before it calls the
// provider, so the view is signed out even when the provider is slow or
// down. Pending lookups are superseded. A provider failure is returned
// wrapped in ErrProviderUnavailable.
func (r *Resolver) Logout(ctx context.Context) error {
	if err := r.checkOpen(); err != nil {
		return err
	}

	r.mu.Lock()
	prev := r.user
	r.gen++
	r.last = nil
	r.setStateLocked(StateUnauthenticated, nil)
	r.clearProjectionLocked("")
	r.unlock()

	r.metrics.Inc(MetricLogout)

	signOutCtx, cancel := context.WithTimeout(ctx, r.config.SignOutTimeout)
	defer cancel()
	err := r.provider.SignOut(signOutCtx)

	var uid, email, role string
	if prev != nil {
		uid, email, role = prev.ID, prev.Email, prev.Role.String()
	}
	if err != nil {
		err = classifyProviderError(err)
		log.Printf("learnauth: provider sign-out failed: %v", err)
		r.emitAudit(ctx, auditEventLogout, false, uid, email, role, err, nil)
		return err
	}
	r.emitAudit(ctx, auditEventLogout, true, uid, email, role, nil, nil)
	return nil
}

func (r *Resolver) checkOpen() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrResolverClosed
	}
	return nil
}

// classifyProviderError keeps known provider errors and reports anything
// else as unavailability.
func classifyProviderError(err error) error {
	if IsCredentialError(err) ||
		errors.Is(err, ErrProviderUnavailable) ||
		errors.Is(err, ErrRateLimited) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
}
