// Package rate provides the Redis-backed fixed-window limiters used by the
// identity provider.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Key layout
// under the configured prefix:
//   - rl:login:{email}: failed sign-ins
//   - rl:signup:{email}: account creation attempts
//
// # What this package must NOT do
//
//   - Decide what a failed attempt is. The provider calls IncrementLogin.
//   - Be imported outside the learnauth module.
package rate
