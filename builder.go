package learnauth

import (
	"errors"

	"github.com/communitylearn/learnauth/identity"
	"github.com/communitylearn/learnauth/internal/audit"
	"github.com/communitylearn/learnauth/profile"
	"github.com/communitylearn/learnauth/sidechannel"
)

// Builder assembles a [Resolver].
//
// Builder instances are intended to be configured during initialization and
// used for a single Build.
type Builder struct {
	config Config

	provider   identity.Provider
	profiles   profile.Store
	projection sidechannel.Projection
	auditSink  AuditSink
	metrics    *Metrics

	built bool
}

// New returns a Builder holding [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithProvider sets the identity provider. Required.
func (b *Builder) WithProvider(p identity.Provider) *Builder {
	b.provider = p
	return b
}

// WithProfileStore sets the profile store. Required.
func (b *Builder) WithProfileStore(s profile.Store) *Builder {
	b.profiles = s
	return b
}

// WithProjection sets where the side-channel tokens are mirrored. Without
// one the tokens are discarded.
func (b *Builder) WithProjection(p sidechannel.Projection) *Builder {
	b.projection = p
	return b
}

// WithAuditSink sets the audit sink. Events reach it only when
// Config.Audit.Enabled is true.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled turns counter collection on or off. Turning it off
// also turns off latency histograms.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	if !enabled {
		b.config.Metrics.EnableLatencyHistograms = false
	}
	return b
}

// WithLatencyHistograms turns resolve latency buckets on or off. Build
// rejects histograms while metrics are disabled.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// WithMetrics makes the Resolver count into m instead of its own Metrics,
// so several short-lived resolvers can share one set of counters. The
// Metrics config of the Builder is then ignored.
func (b *Builder) WithMetrics(m *Metrics) *Builder {
	b.metrics = m
	return b
}

// Build validates the configuration and returns an unsubscribed Resolver
// in StateInit. A Builder can be used once.
func (b *Builder) Build() (*Resolver, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.provider == nil {
		return nil, errors.New("identity provider required")
	}
	if b.profiles == nil {
		return nil, errors.New("profile store required")
	}

	projection := b.projection
	if projection == nil {
		projection = sidechannel.Discard{}
	}

	metrics := b.metrics
	if metrics == nil {
		metrics = NewMetrics(cfg.Metrics)
	}

	r := &Resolver{
		config:     cfg,
		provider:   b.provider,
		profiles:   b.profiles,
		projection: projection,
		metrics:    metrics,
		state:      StateInit,
		watchers:   make(map[uint64]chan SessionView),
	}
	r.audit = audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)

	b.built = true

	return r, nil
}
