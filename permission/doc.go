// Package permission maps CommunityLearn roles to permission bitmasks.
//
// Permission names are assigned stable bits by [Registry.Register]; a
// [RoleManager] composes them into one [Mask64] per role. Both tables are
// frozen after startup and are read concurrently by the server's
// middleware.
//
// # What this package must NOT do
//
//   - Access Redis, databases, or the network.
//   - Know where a caller's role comes from. The middleware supplies it.
package permission
