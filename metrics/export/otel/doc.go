// Package otel publishes sensorauth client metrics through an OpenTelemetry
// meter.
//
// [NewOTelExporter] registers an Int64ObservableCounter per counter. Request
// latency becomes three observable counters named after the Prometheus
// histogram series (_bucket, _sum in seconds, _count), each point carrying an
// endpoint attribute; bucket points add le. A single callback reads
// [sensorauth.Client.MetricsSnapshot] on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers supply the Meter.
//   - Mutate client state.
package otel
