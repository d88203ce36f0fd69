// Package identity defines the identity provider contract consumed by the
// session resolver and ships a Redis-backed email/password implementation.
//
// A provider owns account credentials and the notion of a "current"
// identity. It reports changes to that identity through OnChange listeners,
// one notification at a time and in order. It knows nothing about user
// profiles or roles.
//
// # What this package must NOT do
//
//   - Read or write profile records.
//   - Touch HTTP requests, responses, or cookies.
package identity
