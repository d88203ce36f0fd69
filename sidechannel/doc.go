// Package sidechannel mirrors session state into the two tokens server-side
// route gating reads: "session" (the bearer credential) and "user_role"
// (the cached role).
//
// The tokens are never a source of truth. The resolver overwrites them on
// every resolution and clears them on every sign-out, through the
// [Projection] interface, so the mechanism (a client cookie jar, response
// cookies, memory) can be swapped.
package sidechannel
