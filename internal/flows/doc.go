// Package flows contains the pure orchestrators behind every controller
// operation.
//
// Each Run function accepts a typed dependency struct and returns a result
// describing what the user should see: the message to display, the token to
// act on and the error category. Flows validate input, call the backend,
// classify failures, persist tokens and emit audit events and metrics. They do
// not own timers, navigation or controller state; those stay with the
// controllers in the root package.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import sensorauth (to avoid import cycles).
//   - Perform I/O directly. All I/O is mediated through dependency funcs.
package flows
