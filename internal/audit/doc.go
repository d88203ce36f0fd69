// Package audit implements async event dispatching for session transitions
// and account operations.
//
// # Components
//
//   - [Sink]: interface for event consumers (channel, JSON writer, no-op).
//   - [Dispatcher]: buffered async relay with drop-if-full / block-if-full semantics.
//   - [Event]: audit record with timestamp, type, user, email, role and metadata.
//
// This package owns buffering and sink delivery. It does not decide which
// events to emit; the resolver does.
package audit
