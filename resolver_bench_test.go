package learnauth

import (
	"testing"
	"time"
)

// nextView reads views until one is in state want for uid. An empty uid
// matches any user.
func nextView(b *testing.B, views <-chan SessionView, want State, uid string) {
	for v := range views {
		if v.State != want {
			continue
		}
		if uid == "" || (v.User != nil && v.User.ID == uid) {
			return
		}
	}
	b.Fatal("watch channel closed")
}

func BenchmarkResolveSignInSignOut(b *testing.B) {
	h := newHarness(b, nil, teacherProfile("u1"))
	if err := h.resolver.Subscribe(); err != nil {
		b.Fatalf("Subscribe: %v", err)
	}
	waitState(b, h.resolver, StateUnauthenticated)

	views, cancel := h.resolver.Watch()
	defer cancel()
	u1 := ident("u1")

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		h.provider.emit(u1)
		nextView(b, views, StateAuthenticated, "u1")
		h.provider.emit(nil)
		nextView(b, views, StateUnauthenticated, "")
	}
}

// Two notifications back to back usually leave the first lookup stale.
func BenchmarkResolveSupersededIdentity(b *testing.B) {
	h := newHarness(b, nil, teacherProfile("u1"), teacherProfile("u2"))
	if err := h.resolver.Subscribe(); err != nil {
		b.Fatalf("Subscribe: %v", err)
	}
	waitState(b, h.resolver, StateUnauthenticated)

	views, cancel := h.resolver.Watch()
	defer cancel()
	u1, u2 := ident("u1"), ident("u2")

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		h.provider.emit(u1)
		h.provider.emit(u2)
		nextView(b, views, StateAuthenticated, "u2")
		h.provider.emit(nil)
		nextView(b, views, StateUnauthenticated, "")
	}
	b.StopTimer()

	discarded := h.resolver.Metrics().Value(MetricResolveStaleDiscarded)
	b.ReportMetric(float64(discarded)/float64(b.N), "stale/op")
}

func BenchmarkViewParallel(b *testing.B) {
	h := newHarness(b, nil, teacherProfile("u1"))
	h.provider.current = ident("u1")
	if err := h.resolver.Subscribe(); err != nil {
		b.Fatalf("Subscribe: %v", err)
	}
	waitState(b, h.resolver, StateAuthenticated)

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if v := h.resolver.View(); v.User == nil {
				b.Error("lost the user")
				return
			}
		}
	})
}

func BenchmarkMetricsIncParallel(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			m.Inc(MetricResolveAuthenticated)
		}
	})
}

func BenchmarkMetricsObserveResolveLatencyParallel(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})
	d := 12 * time.Millisecond
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			m.Observe(MetricResolveLatency, d)
		}
	})
}
