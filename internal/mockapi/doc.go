// Package mockapi is an in-memory authentication backend that speaks the
// same JSON endpoints the client uses. It hashes passwords with bcrypt,
// issues JWT session tokens, emails OTPs through a [Mailer] and counts every
// request per path so tests can assert how many calls a flow made.
//
// It is a test double and a local development aid. State lives only in
// process memory.
package mockapi
