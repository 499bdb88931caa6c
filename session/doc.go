// Package session provides the single persisted slot holding the session
// token shared by every controller.
//
// # Slot semantics
//
// A [Store] holds at most one token under a fixed key. Presence means the user
// is possibly authenticated; validity is always confirmed remotely by the
// session guard. Writes from any successful auth operation overwrite the slot.
// Clear is idempotent.
//
// # Implementations
//
//   - [MemoryStore]: process-local, used by tests and short-lived hosts.
//   - [RedisStore]: Redis-backed slot shared between processes.
//   - [SQLiteStore]: durable local file, used by the terminal client.
//
// # What this package must NOT do
//
//   - Interpret or verify the token contents.
//   - Import sensorauth or any controller package.
package session
