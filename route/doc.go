// Package route holds the redirect policy between the landing page, the
// auth pages and the role dashboards. It is pure: it reads a
// learnauth.SessionView and a path and performs no I/O.
package route
