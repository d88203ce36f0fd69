package learnauth

import (
	"context"
	"io"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/communitylearn/learnauth/internal/audit"
)

// AuditEvent is one audit record.
type AuditEvent = audit.Event

// AuditSink receives audit events from the resolver's dispatcher.
type AuditSink = audit.Sink

// NoOpSink drops audit events.
type NoOpSink = audit.NoOpSink

// ChannelSink delivers audit events on a channel.
type ChannelSink = audit.ChannelSink

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink = audit.JSONWriterSink

// MultiSink hands every event to each of its sinks.
type MultiSink = audit.MultiSink

// StreamSink appends audit events to a Redis stream.
type StreamSink = audit.StreamSink

// NewStreamSink returns a sink appending to stream, trimmed to about maxLen
// entries when maxLen > 0.
func NewStreamSink(client redis.UniversalClient, stream string, maxLen int64) *StreamSink {
	return audit.NewStreamSink(client, stream, maxLen)
}

// NewChannelSink returns a ChannelSink with the given buffer.
func NewChannelSink(buffer int) *ChannelSink {
	return audit.NewChannelSink(buffer)
}

// NewJSONWriterSink returns a sink writing JSON lines to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}

const (
	auditEventSessionAuthenticated = "session_authenticated"
	auditEventSessionSignedOut     = "session_signed_out"
	auditEventProfileMissing       = "profile_missing"
	auditEventResolveFailure       = "resolve_failure"
	auditEventProjectionFailure    = "projection_failure"
	auditEventLoginSuccess         = "login_success"
	auditEventLoginFailure         = "login_failure"
	auditEventRegisterSuccess      = "register_success"
	auditEventRegisterFailure      = "register_failure"
	auditEventRegisterOrphaned     = "register_orphaned_identity"
	auditEventLogout               = "logout"
)

func (r *Resolver) emitAudit(ctx context.Context, eventType string, success bool, userID, email, role string, err error, metadata map[string]string) {
	if r == nil || r.audit == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	r.audit.Emit(ctx, newAuditEvent(ctx, eventType, success, userID, email, role, err, metadata))
}

// queueAuditLocked holds an event until unlock. A dispatcher that blocks on
// a full buffer must not do so under r.mu.
func (r *Resolver) queueAuditLocked(eventType string, success bool, userID, email, role string, err error, metadata map[string]string) {
	if r.audit == nil {
		return
	}
	r.pendingAudit = append(r.pendingAudit, newAuditEvent(context.Background(), eventType, success, userID, email, role, err, metadata))
}

// unlock releases r.mu and then emits the events queued while it was held.
func (r *Resolver) unlock() {
	events := r.pendingAudit
	r.pendingAudit = nil
	r.mu.Unlock()

	for _, event := range events {
		r.audit.Emit(context.Background(), event)
	}
}

func newAuditEvent(ctx context.Context, eventType string, success bool, userID, email, role string, err error, metadata map[string]string) AuditEvent {
	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		UserID:    userID,
		Email:     email,
		Role:      role,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if err != nil {
		event.Error = err.Error()
	}
	return event
}
