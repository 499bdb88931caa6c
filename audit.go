package sensorauth

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventSessionCheck       = "session_check"
	auditEventLogout             = "logout"
	auditEventLoginAttempt       = "login_attempt"
	auditEventGoogleLogin        = "google_login"
	auditEventVerificationResend = "verification_resend"
	auditEventSignupChallenge    = "signup_challenge"
	auditEventSignupVerify       = "signup_verify"
	auditEventSignupResend       = "signup_resend"
	auditEventResetRequest       = "reset_request"
	auditEventResetResend        = "reset_resend"
	auditEventResetConfirm       = "reset_confirm"
	auditEventPreferencesLoad    = "preferences_load"
)

// AuditErrorCode is the stable failure category written to AuditEvent.Error.
type AuditErrorCode string

const (
	auditErrValidation           AuditErrorCode = "validation"
	auditErrNetwork              AuditErrorCode = "network"
	auditErrMalformed            AuditErrorCode = "malformed_response"
	auditErrInvalidCredentials   AuditErrorCode = "invalid_credentials"
	auditErrVerificationRequired AuditErrorCode = "verification_required"
	auditErrAccountExists        AuditErrorCode = "account_exists"
	auditErrServerRejected       AuditErrorCode = "server_rejected"
	auditErrNoSession            AuditErrorCode = "no_session"
	auditErrSessionRejected      AuditErrorCode = "session_rejected"
	auditErrSessionStore         AuditErrorCode = "session_store"
	auditErrInternal             AuditErrorCode = "internal_error"
)

func (c *Client) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if c == nil || c.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		UserID:    userID,
		RequestID: requestIDFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	c.audit.Emit(ctx, event)
}

// auditErrorCode picks the most specific category. Specific sentinels are
// wrapped together with their category, so they are checked first.
func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrValidation):
		return auditErrValidation
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrVerificationRequired):
		return auditErrVerificationRequired
	case errors.Is(err, ErrAccountExists):
		return auditErrAccountExists
	case errors.Is(err, ErrSessionStore):
		return auditErrSessionStore
	case errors.Is(err, ErrSessionRejected):
		return auditErrSessionRejected
	case errors.Is(err, ErrNoSession):
		return auditErrNoSession
	case errors.Is(err, ErrNetwork):
		return auditErrNetwork
	case errors.Is(err, ErrMalformedResponse):
		return auditErrMalformed
	case errors.Is(err, ErrServerRejected):
		return auditErrServerRejected
	default:
		return auditErrInternal
	}
}
