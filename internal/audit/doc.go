// Package audit relays auth-surface events to a caller-supplied sink without
// blocking the controller that produced them.
//
// # Components
//
//   - [Event]: one structured record (type, email, request ID, outcome, metadata).
//   - [Sink]: event consumer. [NoOpSink], [ChannelSink] and [JSONWriterSink] ship here.
//     [WithMaskedEmails] keeps full addresses out of a JSON log via [MaskEmail].
//   - [Dispatcher]: buffered async relay that either drops or blocks when full.
//
// The package never decides which events exist. Controllers and flow
// functions choose event types; this package only buffers and delivers them.
package audit
