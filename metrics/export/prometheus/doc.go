// Package prometheus renders sensorauth client metrics in Prometheus text
// exposition format.
//
// [NewPrometheusExporter] accepts a [sensorauth.Client] and exposes an
// [http.Handler] that renders every counter and the request latency
// histogram. Counter names are prefixed sensorauth_*_total. The histogram
// sensorauth_request_latency_seconds carries one series per backend endpoint
// that has answered at least once, labelled endpoint="login" and so on.
//
// # What this package must NOT do
//
//   - Register metrics in a global registry. Callers mount the Handler.
//   - Mutate client state.
package prometheus
