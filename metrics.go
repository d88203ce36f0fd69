package learnauth

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one resolver counter or histogram.
type MetricID uint16

const (
	// MetricResolveAuthenticated counts resolutions that settled AUTHENTICATED.
	MetricResolveAuthenticated MetricID = iota
	// MetricResolveProfileMissing counts identities that had no profile.
	MetricResolveProfileMissing
	// MetricResolveFailure counts lookups that failed or timed out.
	MetricResolveFailure
	// MetricResolveStaleDiscarded counts lookup results dropped because a
	// newer notification, a logout or Close superseded them.
	MetricResolveStaleDiscarded
	// MetricSignedOut counts signed-out notifications.
	MetricSignedOut
	// MetricLoginSuccess is incremented when the provider accepts credentials.
	MetricLoginSuccess
	// MetricLoginFailure is incremented for every rejected or failed Login.
	MetricLoginFailure
	// MetricRegisterSuccess counts registrations with both steps completed.
	MetricRegisterSuccess
	// MetricRegisterFailure counts registrations that failed at the provider.
	MetricRegisterFailure
	// MetricRegisterOrphanedIdentity counts identities created without a profile.
	MetricRegisterOrphanedIdentity
	// MetricLogout counts Logout calls.
	MetricLogout
	// MetricProjectionFailure counts side-channel writes or clears that failed.
	MetricProjectionFailure
	// MetricResolveLatency is the histogram of lookup durations.
	MetricResolveLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds lock-free resolver counters. The zero value and a nil
// pointer are both safe and record nothing.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of every counter and histogram.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics returns a zeroed Metrics configured by cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// LatencyEnabled reports whether the latency histogram is recorded.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to the counter id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d in the histogram id. Only MetricResolveLatency has one.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricResolveLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value returns the current value of counter id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter, and the latency histogram when enabled.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricResolveLatency].buckets[i])
		}
		s.Histograms[MetricResolveLatency] = buckets
	}

	return s
}

func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 5:
		return 0
	case ms <= 10:
		return 1
	case ms <= 25:
		return 2
	case ms <= 50:
		return 3
	case ms <= 100:
		return 4
	case ms <= 250:
		return 5
	case ms <= 500:
		return 6
	default:
		return 7
	}
}
