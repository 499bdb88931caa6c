package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Event is one recorded auth-surface operation. UserID is the email the
// operation acted on; it is empty when the operation never learned one.
// RequestID matches the X-Request-ID sent to the backend, so an event can be
// joined with server logs.
type Event struct {
	Timestamp time.Time         `json:"timestamp"`
	EventType string            `json:"event_type"`
	UserID    string            `json:"user_id,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Sink receives emitted audit events. Emit runs on the dispatcher goroutine.
type Sink interface {
	Emit(ctx context.Context, event Event)
}

type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, Event) {}

// ChannelSink hands events to a reader such as a test or a UI log pane. Emit
// waits for buffer space until ctx ends.
type ChannelSink struct {
	events chan Event
}

func NewChannelSink(buffer int) *ChannelSink {
	return &ChannelSink{events: make(chan Event, max(buffer, 1))}
}

func (s *ChannelSink) Emit(ctx context.Context, event Event) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Events() <-chan Event {
	return s.events
}

// JSONOption configures a JSONWriterSink.
type JSONOption func(*JSONWriterSink)

// WithMaskedEmails writes UserID through MaskEmail. Use it when the log
// file outlives the session, for example on a shared workstation.
func WithMaskedEmails() JSONOption {
	return func(s *JSONWriterSink) { s.maskEmails = true }
}

// JSONWriterSink appends one JSON object per line. Each line reaches the
// writer in a single Write call, so lines from concurrent sinks sharing an
// O_APPEND file do not interleave. Failed writes are counted, not returned.
type JSONWriterSink struct {
	writer     io.Writer
	maskEmails bool

	mu     sync.Mutex
	buf    bytes.Buffer
	enc    *json.Encoder
	failed atomic.Uint64
}

func NewJSONWriterSink(w io.Writer, opts ...JSONOption) *JSONWriterSink {
	s := &JSONWriterSink{writer: w}
	s.enc = json.NewEncoder(&s.buf)
	s.enc.SetEscapeHTML(false)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *JSONWriterSink) Emit(_ context.Context, event Event) {
	if s == nil || s.writer == nil {
		return
	}
	if s.maskEmails {
		event.UserID = MaskEmail(event.UserID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.buf.Reset()
	// Encode terminates the object with a newline.
	if err := s.enc.Encode(event); err != nil {
		s.failed.Add(1)
		return
	}
	if _, err := s.writer.Write(s.buf.Bytes()); err != nil {
		s.failed.Add(1)
	}
}

// Failed reports how many events could not be encoded or written.
func (s *JSONWriterSink) Failed() uint64 {
	if s == nil {
		return 0
	}
	return s.failed.Load()
}

// MaskEmail keeps the first character of the local part and the whole
// domain: "ada@example.com" becomes "a**@example.com". A value without an
// @ keeps only its first character.
func MaskEmail(email string) string {
	if email == "" {
		return ""
	}
	local, domain, ok := strings.Cut(email, "@")
	r := []rune(local)
	if len(r) == 0 {
		return "*@" + domain
	}
	masked := string(r[0]) + strings.Repeat("*", len(r)-1)
	if !ok {
		return masked
	}
	return masked + "@" + domain
}
