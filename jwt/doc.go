// Package jwt issues and parses the identity tokens exchanged between the
// dashboard client and its authentication backend.
//
// The backend side (and the reference backend in internal/mockapi) signs
// tokens with a [Manager]. The client never holds signing keys; it only uses
// [Peek] to read identity claims for audit metadata. Validity is always
// decided by the remote verify-token endpoint.
package jwt
