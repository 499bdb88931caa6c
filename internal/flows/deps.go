package flows

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/sensorauth/internal/api"
)

// Server codes the backend uses to distinguish failures.
const (
	CodeVerificationRequired = "VERIFICATION_REQUIRED"
	CodeDatabaseError        = "DATABASE_ERROR"
)

// Errors carries host-level sentinel errors shared by every flow.
type Errors struct {
	Validation           error
	Network              error
	MalformedResponse    error
	ServerRejected       error
	InvalidCredentials   error
	VerificationRequired error
	AccountExists        error
	NoSession            error
	SessionRejected      error
	SessionStore         error
}

// EmitAuditFunc records one audit event. userID is the email the operation
// acted on, when known.
type EmitAuditFunc func(ctx context.Context, eventType string, success bool, userID string, err error, metadata func() map[string]string)

func normalizeErrors(e *Errors) {
	fill := func(dst *error, text string) {
		if *dst == nil {
			*dst = errors.New(text)
		}
	}
	fill(&e.Validation, "validation failed")
	fill(&e.Network, "network failure")
	fill(&e.MalformedResponse, "malformed response")
	fill(&e.ServerRejected, "server rejected request")
	fill(&e.InvalidCredentials, "invalid credentials")
	fill(&e.VerificationRequired, "email verification required")
	fill(&e.AccountExists, "account already exists")
	fill(&e.NoSession, "no session")
	fill(&e.SessionRejected, "session rejected")
	fill(&e.SessionStore, "session store failure")
}

// MapTransport converts an api error into the host category. Network and parse
// failures keep their cause; server rejections carry the server text.
func MapTransport(err error, errs Errors) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, api.ErrNetwork):
		return fmt.Errorf("%w: %v", errs.Network, err)
	case errors.Is(err, api.ErrMalformedResponse):
		return fmt.Errorf("%w: %v", errs.MalformedResponse, err)
	}
	if se, ok := api.AsServerError(err); ok {
		if text := se.Text(); text != "" {
			return fmt.Errorf("%w: %s", errs.ServerRejected, text)
		}
		return fmt.Errorf("%w: status %d", errs.ServerRejected, se.Status)
	}
	return fmt.Errorf("%w: %v", errs.Network, err)
}

// serverText returns the server's message (or error field) for err, or
// fallback when err is not a server rejection or carries no text.
func serverText(err error, fallback string) string {
	if se, ok := api.AsServerError(err); ok && se.Text() != "" {
		return se.Text()
	}
	return fallback
}

func noopAudit(context.Context, string, bool, string, error, func() map[string]string) {}

func noopMetric(int) {}

func reasonMeta(reason string) func() map[string]string {
	return func() map[string]string {
		return map[string]string{"reason": reason}
	}
}

func transportMeta(err error) func() map[string]string {
	return func() map[string]string {
		m := map[string]string{}
		if se, ok := api.AsServerError(err); ok {
			m["status"] = fmt.Sprint(se.Status)
			if se.Code != "" {
				m["code"] = se.Code
			}
			return m
		}
		if errors.Is(err, api.ErrMalformedResponse) {
			m["reason"] = "malformed_response"
		} else {
			m["reason"] = "network"
		}
		return m
	}
}
