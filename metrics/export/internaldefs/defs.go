package internaldefs

import (
	"github.com/communitylearn/learnauth"
)

// CounterDef names one resolver counter for export.
type CounterDef struct {
	ID   learnauth.MetricID
	Name string
	Help string
}

// HistogramDef names one resolver histogram for export.
type HistogramDef struct {
	ID   learnauth.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in output order.
var CounterDefs = []CounterDef{
	{ID: learnauth.MetricResolveAuthenticated, Name: "learnauth_resolve_authenticated_total", Help: "Resolutions that settled authenticated."},
	{ID: learnauth.MetricResolveProfileMissing, Name: "learnauth_resolve_profile_missing_total", Help: "Signed-in identities without a profile."},
	{ID: learnauth.MetricResolveFailure, Name: "learnauth_resolve_failure_total", Help: "Profile or credential lookups that failed or timed out."},
	{ID: learnauth.MetricResolveStaleDiscarded, Name: "learnauth_resolve_stale_discarded_total", Help: "Lookup results discarded because a newer event superseded them."},
	{ID: learnauth.MetricSignedOut, Name: "learnauth_signed_out_total", Help: "Signed-out notifications from the identity provider."},
	{ID: learnauth.MetricLoginSuccess, Name: "learnauth_login_success_total", Help: "Successful login attempts."},
	{ID: learnauth.MetricLoginFailure, Name: "learnauth_login_failure_total", Help: "Failed login attempts."},
	{ID: learnauth.MetricRegisterSuccess, Name: "learnauth_register_success_total", Help: "Registrations with identity and profile created."},
	{ID: learnauth.MetricRegisterFailure, Name: "learnauth_register_failure_total", Help: "Registrations rejected by the identity provider."},
	{ID: learnauth.MetricRegisterOrphanedIdentity, Name: "learnauth_register_orphaned_identity_total", Help: "Identities created whose profile write failed."},
	{ID: learnauth.MetricLogout, Name: "learnauth_logout_total", Help: "Logout operations."},
	{ID: learnauth.MetricProjectionFailure, Name: "learnauth_projection_failure_total", Help: "Failed side-channel token writes or clears."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: learnauth.MetricResolveLatency, Name: "learnauth_resolve_latency_seconds", Help: "Profile and credential lookup latency."},
}

// AuditDroppedName and AuditDroppedHelp describe the audit backpressure counter.
const (
	AuditDroppedName = "learnauth_audit_dropped_total"
	AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."
)

// HistogramBounds are the bucket upper bounds as exposition labels.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramUpperBounds are the finite bucket upper bounds in seconds.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix are the bounds in instrument-name form.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed array, padding with zeros.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
