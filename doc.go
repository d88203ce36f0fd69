// Package learnauth resolves the CommunityLearn session: which identity is
// signed in, which profile and role belong to it, and what the side-channel
// session and user_role tokens must say about it.
//
// A [Resolver] is built once through [Builder.Build], subscribed with
// [Resolver.Subscribe] and disposed with [Resolver.Close]. Readers take
// snapshots with [Resolver.View] or follow changes with [Resolver.Watch].
//
// # Architecture boundaries
//
// learnauth owns the state machine and nothing else. Credentials live behind
// identity.Provider, profiles behind profile.Store, and the token mirror
// behind sidechannel.Projection. Redirect rules live in package route and
// read a [SessionView]; server-side gating lives in package middleware.
//
// # Ordering
//
// Provider notifications are handled one at a time in emission order. Each
// notification, logout and Close advances a generation counter, and a
// profile lookup applies its result only while its generation is still the
// latest. A lookup that lost the race is discarded and counted in
// MetricResolveStaleDiscarded.
//
// # What this package must NOT do
//
//   - Surface a missing profile or a failed passive lookup as an error.
//   - Leave Loading set after a lookup ends, whatever its outcome.
//   - Import route or middleware (both import learnauth).
package learnauth
