package sensorauth

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/MrEthical07/sensorauth/clock"
	"github.com/MrEthical07/sensorauth/fingerprint"
	"github.com/MrEthical07/sensorauth/internal/api"
	internalaudit "github.com/MrEthical07/sensorauth/internal/audit"
	"github.com/MrEthical07/sensorauth/internal/flows"
	"github.com/MrEthical07/sensorauth/jwt"
	"github.com/MrEthical07/sensorauth/session"
)

// Client owns the collaborators shared by every controller: the backend
// transport, the session token slot, the scheduler, the navigator, the
// device fingerprint, audit and metrics.
//
// Client instances are configured once by Builder and then treated as
// immutable. Controllers created from one Client share its session slot.
type Client struct {
	config      Config
	api         *api.Client
	store       session.Store
	closeStore  func() error
	navigator   Navigator
	sched       clock.Scheduler
	fingerprint *fingerprint.Fingerprinter
	audit       *internalaudit.Dispatcher
	metrics     *Metrics

	closed atomic.Bool
}

// Close describes the close operation and its observable behavior.
//
// Close flushes pending audit events and releases a session store opened
// from configuration. Controllers created from c return ErrClosed afterwards.
func (c *Client) Close() error {
	if c == nil || !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	if c.audit != nil {
		c.audit.Close()
	}
	if c.closeStore != nil {
		return c.closeStore()
	}
	return nil
}

// Config returns the validated configuration the client was built with.
func (c *Client) Config() Config {
	return c.config
}

// SessionStore returns the shared token slot.
func (c *Client) SessionStore() session.Store {
	return c.store
}

// Fingerprint returns the device fingerprint sent with login requests. It is
// computed on first use and cached.
func (c *Client) Fingerprint() string {
	if c == nil || c.fingerprint == nil {
		return ""
	}
	return c.fingerprint.Value()
}

// AuditDropped describes the auditdropped operation and its observable behavior.
//
// AuditDropped reports how many audit events were discarded because the
// buffer was full or the emitting context ended first.
func (c *Client) AuditDropped() uint64 {
	if c == nil || c.audit == nil {
		return 0
	}
	return c.audit.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
func (c *Client) MetricsSnapshot() MetricsSnapshot {
	if c == nil || c.metrics == nil {
		return emptySnapshot()
	}
	return c.metrics.Snapshot()
}

func (c *Client) ready() error {
	if c == nil || c.api == nil || c.store == nil {
		return ErrClientNotReady
	}
	if c.closed.Load() {
		return ErrClosed
	}
	return nil
}

func (c *Client) metricInc(id MetricID) {
	if c == nil || c.metrics == nil {
		return
	}
	c.metrics.Inc(id)
}

func (c *Client) flowMetricInc(id int) {
	c.metricInc(MetricID(id))
}

// withRequestID makes sure every backend call and audit event of one
// operation carry the same request ID.
func withRequestID(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if requestIDFromContext(ctx) != "" {
		return ctx
	}
	return WithRequestID(ctx, uuid.NewString())
}

func flowErrors() flows.Errors {
	return flows.Errors{
		Validation:           ErrValidation,
		Network:              ErrNetwork,
		MalformedResponse:    ErrMalformedResponse,
		ServerRejected:       ErrServerRejected,
		InvalidCredentials:   ErrInvalidCredentials,
		VerificationRequired: ErrVerificationRequired,
		AccountExists:        ErrAccountExists,
		NoSession:            ErrNoSession,
		SessionRejected:      ErrSessionRejected,
		SessionStore:         ErrSessionStore,
	}
}

func mapTransportError(err error) error {
	return flows.MapTransport(err, flowErrors())
}

func (c *Client) storeToken(ctx context.Context, token string) error {
	return c.store.Set(ctx, token)
}

// tokenEmail reads the email claim without verifying the signature. The
// value is only used to label audit events.
func tokenEmail(token string) string {
	claims, err := jwt.Peek(token)
	if err != nil {
		return ""
	}
	return claims.Email
}

func (c *Client) loginFlowDeps() flows.LoginDeps {
	return flows.LoginDeps{
		Fingerprint:        c.Fingerprint,
		Login:              c.api.Login,
		GoogleAuth:         c.api.GoogleAuth,
		ResendVerification: c.api.ResendVerification,
		StoreToken:         c.storeToken,
		TokenEmail:         tokenEmail,
		MapTransportError:  mapTransportError,
		MetricInc:          c.flowMetricInc,
		EmitAudit:          c.emitAudit,
		Metrics: flows.LoginMetrics{
			LoginSuccess:           int(MetricLoginSuccess),
			LoginFailure:           int(MetricLoginFailure),
			VerificationRequired:   int(MetricVerificationRequired),
			VerificationResent:     int(MetricVerificationResent),
			LocalValidationFailure: int(MetricLocalValidationFailure),
			NetworkFailure:         int(MetricNetworkFailure),
		},
		Events: flows.LoginEvents{
			LoginAttempt:       auditEventLoginAttempt,
			GoogleLogin:        auditEventGoogleLogin,
			VerificationResend: auditEventVerificationResend,
		},
		Errors: flowErrors(),
	}
}

func (c *Client) signupFlowDeps() flows.SignupDeps {
	return flows.SignupDeps{
		Signup:            c.api.Signup,
		VerifySignup:      c.api.VerifySignup,
		StoreToken:        c.storeToken,
		MapTransportError: mapTransportError,
		MetricInc:         c.flowMetricInc,
		EmitAudit:         c.emitAudit,
		Metrics: flows.SignupMetrics{
			SignupChallengeIssued:  int(MetricSignupChallengeIssued),
			SignupVerified:         int(MetricSignupVerified),
			SignupVerifyFailure:    int(MetricSignupVerifyFailure),
			LocalValidationFailure: int(MetricLocalValidationFailure),
			NetworkFailure:         int(MetricNetworkFailure),
		},
		Events: flows.SignupEvents{
			SignupChallenge: auditEventSignupChallenge,
			SignupVerify:    auditEventSignupVerify,
			SignupResend:    auditEventSignupResend,
		},
		Errors: flowErrors(),
	}
}

func (c *Client) passwordResetFlowDeps() flows.PasswordResetDeps {
	return flows.PasswordResetDeps{
		ForgotPassword:    c.api.ForgotPassword,
		ResetPassword:     c.api.ResetPassword,
		MapTransportError: mapTransportError,
		MetricInc:         c.flowMetricInc,
		EmitAudit:         c.emitAudit,
		Metrics: flows.PasswordResetMetrics{
			ResetRequested:         int(MetricResetRequested),
			ResetSuccess:           int(MetricResetSuccess),
			ResetFailure:           int(MetricResetFailure),
			LocalValidationFailure: int(MetricLocalValidationFailure),
			NetworkFailure:         int(MetricNetworkFailure),
		},
		Events: flows.PasswordResetEvents{
			ResetRequest: auditEventResetRequest,
			ResetResend:  auditEventResetResend,
			ResetConfirm: auditEventResetConfirm,
		},
		Errors: flowErrors(),
	}
}

func (c *Client) guardFlowDeps() flows.GuardDeps {
	return flows.GuardDeps{
		LoadToken:         c.store.Get,
		ClearToken:        c.store.Clear,
		VerifyToken:       c.api.VerifyToken,
		UserPreferences:   c.api.UserPreferences,
		MapTransportError: mapTransportError,
		MetricInc:         c.flowMetricInc,
		EmitAudit:         c.emitAudit,
		Metrics: flows.GuardMetrics{
			SessionValid:    int(MetricSessionValid),
			SessionRejected: int(MetricSessionRejected),
			NetworkFailure:  int(MetricNetworkFailure),
			Logout:          int(MetricLogout),
		},
		Events: flows.GuardEvents{
			SessionCheck:    auditEventSessionCheck,
			Logout:          auditEventLogout,
			PreferencesLoad: auditEventPreferencesLoad,
		},
		Errors: flowErrors(),
	}
}
