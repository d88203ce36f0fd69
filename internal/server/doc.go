// Package server is the CommunityLearn HTTP surface.
//
// Login and registration run a short-lived resolver per request: a
// RedisProvider for the caller, a Resolver subscribed to it and an
// in-memory projection. Once the resolver settles on the user, the
// projected tokens are sent back as the side-channel cookies. Every later
// request is judged from those cookies by the middleware package, with
// the API re-reading the role from the profile store.
//
// # What this package must NOT do
//
//   - Trust the user_role cookie for the admin API.
//   - Keep per-client session state between requests.
package server
