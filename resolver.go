package learnauth

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/communitylearn/learnauth/identity"
	"github.com/communitylearn/learnauth/internal/audit"
	"github.com/communitylearn/learnauth/profile"
	"github.com/communitylearn/learnauth/sidechannel"
)

// Resolver keeps the single current view of who is logged in and in what
// role. It reconciles identity provider notifications with profile lookups
// and mirrors the outcome into the side-channel tokens.
//
// Every exported method is safe for concurrent use.
type Resolver struct {
	config     Config
	provider   identity.Provider
	profiles   profile.Store
	projection sidechannel.Projection
	audit      *audit.Dispatcher
	metrics    *Metrics

	mu    sync.Mutex
	state State
	user  *profile.Profile
	// gen advances on every notification, logout, re-resolve and Close.
	// A lookup result is applied only while its generation is current.
	gen uint64
	// last is the identity of the most recent signed-in notification.
	last *identity.Identity

	subscribed  bool
	closed      bool
	unsubscribe func()

	watchers    map[uint64]chan SessionView
	nextWatcher uint64

	// audit events recorded under mu, emitted by unlock
	pendingAudit []AuditEvent
}

// Subscribe starts observing the identity provider. The view enters
// StateInit until the provider delivers its current state. Calling
// Subscribe again while subscribed does nothing.
func (r *Resolver) Subscribe() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrResolverClosed
	}
	if r.subscribed {
		r.mu.Unlock()
		return nil
	}
	r.subscribed = true
	r.gen++
	r.setStateLocked(StateInit, nil)
	r.mu.Unlock()

	// OnChange may deliver synchronously, so it is called without r.mu.
	unsubscribe := r.provider.OnChange(r.handleIdentity)

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		unsubscribe()
		return ErrResolverClosed
	}
	r.unsubscribe = unsubscribe
	r.mu.Unlock()
	return nil
}

// Close releases the provider listener and every watcher. Lookups still in
// flight are left to finish; their results are discarded. Close is
// idempotent and the Resolver cannot be subscribed again.
func (r *Resolver) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.subscribed = false
	r.gen++
	unsubscribe := r.unsubscribe
	r.unsubscribe = nil
	for id, ch := range r.watchers {
		close(ch)
		delete(r.watchers, id)
	}
	r.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	r.audit.Close()
}

// View returns the current session view.
func (r *Resolver) View() SessionView {
	r.mu.Lock()
	defer r.mu.Unlock()
	return viewFor(r.state, r.user)
}

// Watch returns a channel that receives the current view at once and then
// every change. The channel holds one view; a slow reader skips to the
// newest. Call cancel to release the channel. Close closes it as well.
func (r *Resolver) Watch() (<-chan SessionView, func()) {
	ch := make(chan SessionView, 1)

	r.mu.Lock()
	ch <- viewFor(r.state, r.user)
	if r.closed {
		r.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	r.nextWatcher++
	id := r.nextWatcher
	r.watchers[id] = ch
	r.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			if c, ok := r.watchers[id]; ok {
				delete(r.watchers, id)
				close(c)
			}
		})
	}
	return ch, cancel
}

// Metrics returns the resolver's counters.
func (r *Resolver) Metrics() *Metrics {
	return r.metrics
}

// MetricsSnapshot copies the resolver's counters.
func (r *Resolver) MetricsSnapshot() MetricsSnapshot {
	return r.metrics.Snapshot()
}

// AuditDropped returns how many audit events were dropped under backpressure.
func (r *Resolver) AuditDropped() uint64 {
	return r.audit.Dropped()
}

// handleIdentity runs on the provider's dispatch goroutine, once per
// notification and in emission order.
func (r *Resolver) handleIdentity(id *identity.Identity) {
	r.mu.Lock()
	defer r.unlock()

	if !r.subscribed || r.closed {
		return
	}
	r.gen++

	if id == nil {
		prev := r.user
		r.last = nil
		r.metrics.Inc(MetricSignedOut)
		r.setStateLocked(StateUnauthenticated, nil)
		r.clearProjectionLocked("")
		if prev != nil {
			r.queueAuditLocked(auditEventSessionSignedOut, true, prev.ID, prev.Email, prev.Role.String(), nil, nil)
		}
		return
	}

	r.last = id
	r.beginResolveLocked(id)
}

// beginResolveLocked enters RESOLVING for id under the current generation.
// The user survives only when it already belongs to id.
func (r *Resolver) beginResolveLocked(id *identity.Identity) {
	var keep *profile.Profile
	if r.user != nil && r.user.ID == id.UID {
		keep = r.user
	}
	r.setStateLocked(StateResolving, keep)

	go r.lookup(r.gen, id)
}

type lookupResult struct {
	profile *profile.Profile
	token   string
	err     error
}

func (r *Resolver) lookup(gen uint64, id *identity.Identity) {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.LookupTimeout)
	defer cancel()

	start := time.Now()
	var res lookupResult
	res.profile, res.err = r.profiles.Get(ctx, id.UID)
	if res.err == nil {
		res.token, res.err = r.provider.Token(ctx, id.UID)
	}
	r.metrics.Observe(MetricResolveLatency, time.Since(start))

	r.settle(gen, id, res)
}

func (r *Resolver) settle(gen uint64, id *identity.Identity, res lookupResult) {
	r.mu.Lock()
	defer r.unlock()

	if !r.subscribed || r.closed || gen != r.gen {
		r.metrics.Inc(MetricResolveStaleDiscarded)
		return
	}
	// the provider moved past id; its next notification starts a new lookup
	if errors.Is(res.err, identity.ErrIdentityChanged) || errors.Is(res.err, identity.ErrNoCurrentIdentity) {
		r.metrics.Inc(MetricResolveStaleDiscarded)
		return
	}

	switch {
	case res.err == nil && res.profile != nil:
		p := res.profile
		// tokens first, so a watcher that sees the user can read them
		r.writeProjectionLocked(sidechannel.Tokens{Session: res.token, Role: p.Role.String()}, id.UID)
		r.setStateLocked(StateAuthenticated, p)
		r.metrics.Inc(MetricResolveAuthenticated)
		r.queueAuditLocked(auditEventSessionAuthenticated, true, id.UID, p.Email, p.Role.String(), nil, nil)

	case res.err == nil || errors.Is(res.err, profile.ErrNotFound):
		log.Printf("learnauth: identity %s has no profile, treating it as signed out", id.UID)
		r.metrics.Inc(MetricResolveProfileMissing)
		r.setStateLocked(StateUnauthenticated, nil)
		r.clearProjectionLocked(id.UID)
		r.queueAuditLocked(auditEventProfileMissing, false, id.UID, id.Email, "", profile.ErrNotFound, nil)

	default:
		log.Printf("learnauth: resolving identity %s failed: %v", id.UID, res.err)
		r.metrics.Inc(MetricResolveFailure)
		r.setStateLocked(StateUnauthenticated, nil)
		r.clearProjectionLocked(id.UID)
		r.queueAuditLocked(auditEventResolveFailure, false, id.UID, id.Email, "", res.err, nil)
	}
}

// reresolveLocked starts a fresh lookup for the latest identity when it is
// uid and not already settled as that user.
func (r *Resolver) reresolveLocked(uid string) {
	if !r.subscribed || r.closed {
		return
	}
	if r.last == nil || r.last.UID != uid {
		return
	}
	if r.state == StateAuthenticated && r.user != nil && r.user.ID == uid {
		return
	}
	r.gen++
	r.beginResolveLocked(r.last)
}

func (r *Resolver) setStateLocked(state State, user *profile.Profile) {
	r.state = state
	r.user = cloneProfile(user)

	for _, ch := range r.watchers {
		// only this method sends, under r.mu, so the buffer is empty after the drain
		select {
		case <-ch:
		default:
		}
		ch <- viewFor(r.state, r.user)
	}
}

func (r *Resolver) writeProjectionLocked(tokens sidechannel.Tokens, uid string) {
	if err := r.projection.Write(context.Background(), tokens); err != nil {
		r.projectionFailedLocked(uid, "write", err)
	}
}

func (r *Resolver) clearProjectionLocked(uid string) {
	if err := r.projection.Clear(context.Background()); err != nil {
		r.projectionFailedLocked(uid, "clear", err)
	}
}

func (r *Resolver) projectionFailedLocked(uid, op string, err error) {
	log.Printf("learnauth: side-channel %s failed: %v", op, err)
	r.metrics.Inc(MetricProjectionFailure)
	r.queueAuditLocked(auditEventProjectionFailure, false, uid, "", "", err, map[string]string{"op": op})
}
