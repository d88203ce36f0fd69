// Package profile defines the CommunityLearn profile document and the
// stores that hold it.
//
// A profile is keyed by identity id and carries the user's name and role.
// The resolver only needs [Store]; the server's admin API uses the wider
// [Directory]. [RedisStore] and [PostgresStore] implement both.
//
// # What this package must NOT do
//
//   - Verify credentials or know about sessions.
//   - Create profiles implicitly on Get. A missing profile is reported as
//     [ErrNotFound] and the caller decides what that means.
package profile
