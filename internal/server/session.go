package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/communitylearn/learnauth"
	"github.com/communitylearn/learnauth/identity"
	"github.com/communitylearn/learnauth/profile"
	"github.com/communitylearn/learnauth/sidechannel"
)

var errSessionNotSettled = errors.New("session did not settle")

// session replays one browser session for the length of a request: its own
// provider, a resolver subscribed to it, and an in-memory projection that
// collects the tokens to send back as cookies.
type session struct {
	provider   *identity.RedisProvider
	projection *sidechannel.MemoryProjection
	resolver   *learnauth.Resolver
}

func (s *Server) openSession() (*session, error) {
	provider, err := identity.NewRedisProvider(s.redis, s.tokens, s.identityCfg)
	if err != nil {
		return nil, err
	}
	projection := sidechannel.NewMemoryProjection()

	resolver, err := learnauth.New().
		WithConfig(s.resolverCfg).
		WithProvider(provider).
		WithProfileStore(s.profiles).
		WithProjection(projection).
		WithMetrics(s.metrics).
		WithAuditSink(s.auditSink).
		Build()
	if err != nil {
		provider.Close()
		return nil, fmt.Errorf("build resolver: %w", err)
	}
	if err := resolver.Subscribe(); err != nil {
		resolver.Close()
		provider.Close()
		return nil, err
	}

	return &session{provider: provider, projection: projection, resolver: resolver}, nil
}

func (s *Server) closeSession(sess *session) {
	s.dropped.Add(sess.resolver.AuditDropped())
	sess.resolver.Close()
	sess.provider.Close()
}

// awaitUser blocks until the resolver shows uid as the authenticated user.
func (sess *session) awaitUser(ctx context.Context, uid string, timeout time.Duration) (*profile.Profile, error) {
	views, cancel := sess.resolver.Watch()
	defer cancel()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case view, ok := <-views:
			if !ok {
				return nil, learnauth.ErrResolverClosed
			}
			if view.Authenticated() && view.User.ID == uid {
				return view.User, nil
			}
		case <-timer.C:
			return nil, errSessionNotSettled
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
