// Package otel publishes resolver counters and the resolve latency
// histogram as OpenTelemetry observable instruments.
//
// Each counter becomes an Int64ObservableCounter and each histogram bucket an
// Int64ObservableGauge. A single callback reads
// [learnauth.Resolver.MetricsSnapshot] per collection cycle.
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers supply the Meter.
//   - Mutate resolver state.
package otel
