// Package prometheus exposes resolver metrics to Prometheus.
//
// [PrometheusExporter] renders the text exposition format by hand for a
// standalone handler. [Collector] plugs the same series into a
// client_golang registry served by promhttp. Counter names are
// learnauth_*_total; the single histogram is learnauth_resolve_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in the global Prometheus registry. Callers register the Collector.
//   - Mutate resolver state.
package prometheus
