// Package sensorauth provides the authentication client for the sensor
// dashboard: a session guard for the login and dashboard surfaces, and
// controllers for credential login, OTP signup and password reset.
//
// A [Client] is assembled once with [Builder] and shared by every controller
// it creates. Controllers hold per-surface state, in-flight guards, resend
// cooldowns and delayed navigation; they are safe to call from multiple
// goroutines.
//
// # Architecture boundaries
//
// sensorauth is the public surface. It exposes [Client], [Builder], [Config],
// the controllers and their state snapshots. Request/response classification,
// the HTTP transport, cooldowns and audit dispatch live under internal/ and
// are never exported.
//
// # What this package must NOT do
//
//   - Block a caller on a timer. Redirects, banners and cooldown ticks run on
//     the injected clock.Scheduler.
//   - Navigate after a controller is closed, or navigate while holding a
//     controller lock.
//   - Send an OTP or signup form that failed local validation.
//
// The backend is an external collaborator. internal/mockapi provides an
// in-memory implementation of its endpoints for tests and cmd/authmock.
package sensorauth
