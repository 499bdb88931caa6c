package sensorauth

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"
)

type countingSink struct {
	count atomic.Int64
}

func (s *countingSink) Emit(context.Context, AuditEvent) {
	s.count.Add(1)
}

func (s *countingSink) Count() int64 {
	return s.count.Load()
}

type gateSink struct {
	gate chan struct{}
}

func newGateSink() *gateSink {
	return &gateSink{
		gate: make(chan struct{}),
	}
}

func (s *gateSink) Emit(context.Context, AuditEvent) {
	<-s.gate
}

func nextEvent(t *testing.T, sink *ChannelSink) AuditEvent {
	t.Helper()
	select {
	case ev := <-sink.Events():
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for audit event")
		return AuditEvent{}
	}
}

func TestAuditDisabledNoSinkCalls(t *testing.T) {
	sink := &countingSink{}
	h := newHarnessWithSink(t, sink, func(cfg *Config) { cfg.Audit.Enabled = false })

	_ = h.client.NewLoginController().Login(context.Background(), testEmail, "wrong")
	_ = h.client.Close()

	if sink.Count() != 0 {
		t.Fatalf("expected no audit sink calls when disabled, got %d", sink.Count())
	}
}

func TestAuditLoginFailureEvent(t *testing.T) {
	sink := NewChannelSink(8)
	h := newHarnessWithSink(t, sink)
	if err := h.srv.SeedUser("Ada", testEmail, testPassword, true); err != nil {
		t.Fatal(err)
	}

	ctx := WithRequestID(context.Background(), "req-42")
	err := h.client.NewLoginController().Login(ctx, testEmail, "Wrongpass1")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	ev := nextEvent(t, sink)
	if ev.EventType != auditEventLoginAttempt || ev.Success {
		t.Fatalf("unexpected event %+v", ev)
	}
	if ev.UserID != testEmail || ev.RequestID != "req-42" {
		t.Fatalf("unexpected identity fields %+v", ev)
	}
	if ev.Error != string(auditErrInvalidCredentials) {
		t.Fatalf("expected %q, got %q", auditErrInvalidCredentials, ev.Error)
	}
	if ev.Metadata["status"] == "" {
		t.Fatalf("expected backend status in metadata, got %v", ev.Metadata)
	}
}

func TestAuditLoginSuccessCarriesGeneratedRequestID(t *testing.T) {
	sink := NewChannelSink(8)
	h := newHarnessWithSink(t, sink)
	if err := h.srv.SeedUser("Ada", testEmail, testPassword, true); err != nil {
		t.Fatal(err)
	}

	if err := h.client.NewLoginController().Login(context.Background(), testEmail, testPassword); err != nil {
		t.Fatalf("Login: %v", err)
	}
	ev := nextEvent(t, sink)
	if !ev.Success || ev.Error != "" || ev.RequestID == "" {
		t.Fatalf("unexpected event %+v", ev)
	}
	if ev.Timestamp.IsZero() {
		t.Fatal("expected timestamp")
	}
}

func TestAuditLocalValidationEvent(t *testing.T) {
	sink := NewChannelSink(8)
	h := newHarnessWithSink(t, sink)

	_ = h.client.NewLoginController().Login(context.Background(), "", "")
	ev := nextEvent(t, sink)
	if ev.Error != string(auditErrValidation) || ev.Metadata["reason"] != "empty_fields" {
		t.Fatalf("unexpected event %+v", ev)
	}
	if h.srv.TotalCalls() != 0 {
		t.Fatal("local rejection reached the backend")
	}
}

func TestAuditDropIfFullDoesNotBlock(t *testing.T) {
	sink := newGateSink()
	h := newHarnessWithSink(t, sink, func(cfg *Config) {
		cfg.Audit.BufferSize = 1
		cfg.Audit.DropIfFull = true
	})
	t.Cleanup(func() { close(sink.gate) })
	lc := h.client.NewLoginController()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			_ = lc.Login(context.Background(), "", "")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("login blocked on a stalled audit sink")
	}
	if h.client.AuditDropped() == 0 {
		t.Fatal("expected dropped events")
	}
}

func TestAuditBlockingHonorsContext(t *testing.T) {
	sink := newGateSink()
	h := newHarnessWithSink(t, sink, func(cfg *Config) {
		cfg.Audit.BufferSize = 1
		cfg.Audit.DropIfFull = false
	})
	t.Cleanup(func() { close(sink.gate) })
	lc := h.client.NewLoginController()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	for i := 0; i < 3; i++ {
		_ = lc.Login(ctx, "", "")
	}
	if h.client.AuditDropped() == 0 {
		t.Fatal("expected an event dropped when the context expired")
	}
}

func TestAuditErrorCode(t *testing.T) {
	cases := []struct {
		err  error
		want AuditErrorCode
	}{
		{nil, ""},
		{fmt.Errorf("%w: %w", ErrServerRejected, ErrInvalidCredentials), auditErrInvalidCredentials},
		{fmt.Errorf("%w: %w", ErrServerRejected, ErrVerificationRequired), auditErrVerificationRequired},
		{fmt.Errorf("%w: %w", ErrServerRejected, ErrAccountExists), auditErrAccountExists},
		{fmt.Errorf("%w: %w", ErrSessionRejected, ErrMalformedResponse), auditErrSessionRejected},
		{fmt.Errorf("%w: disk full", ErrSessionStore), auditErrSessionStore},
		{ErrNoSession, auditErrNoSession},
		{ErrNetwork, auditErrNetwork},
		{ErrMalformedResponse, auditErrMalformed},
		{ErrServerRejected, auditErrServerRejected},
		{ErrValidation, auditErrValidation},
		{errors.New("boom"), auditErrInternal},
	}
	for _, tc := range cases {
		if got := auditErrorCode(tc.err); got != tc.want {
			t.Errorf("%v: expected %q, got %q", tc.err, tc.want, got)
		}
	}
}
