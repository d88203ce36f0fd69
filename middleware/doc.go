// Package middleware gates HTTP routes with the side-channel cookies that
// the session resolver and the server's auth API keep in sync.
//
// # Guards
//
//   - [Gate] applies the route policy to pages and redirects.
//   - [RequireSession] rejects API calls without a valid session (401).
//   - [RequirePermission] rejects sessions whose role lacks a permission (403).
//   - [GinGate] and [Gin] bridge the net/http middleware to gin.
//
// The session cookie is verified as a signed credential. The role comes from
// the user_role cookie, or from the profile store when GateConfig.RoleLookup
// is set.
//
// # What this package must NOT do
//
//   - Issue or clear cookies (the auth API does).
//   - Decide redirects other than through package route, except the
//     cross-role dashboard rule.
package middleware
