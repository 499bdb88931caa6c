package flows

import (
	"context"
	"fmt"
	"strings"

	"github.com/MrEthical07/sensorauth/internal/api"
)

// LoginResult is what a login-surface operation leaves for display.
type LoginResult struct {
	Token   string
	Message string
	// ShowResendVerification reports whether the resend-verification action
	// should be visible after this operation.
	ShowResendVerification bool
	// Local reports a rejection made before any network call.
	Local bool
	Err   error
}

// LoginMetrics carries metric IDs needed by login-surface flows.
type LoginMetrics struct {
	LoginSuccess           int
	LoginFailure           int
	VerificationRequired   int
	VerificationResent     int
	LocalValidationFailure int
	NetworkFailure         int
}

// LoginEvents carries audit event names used by login-surface flows.
type LoginEvents struct {
	LoginAttempt       string
	GoogleLogin        string
	VerificationResend string
}

// LoginDeps captures login, Google sign-in and resend-verification
// dependencies.
type LoginDeps struct {
	Fingerprint        func() string
	Login              func(context.Context, api.LoginRequest) (api.TokenResponse, error)
	GoogleAuth         func(context.Context, string) (api.TokenResponse, error)
	ResendVerification func(context.Context, string) error
	StoreToken         func(context.Context, string) error
	// TokenEmail reads the email claim from an issued token. It names the
	// user in audit events when the request itself carried no email.
	TokenEmail        func(string) string
	MapTransportError func(error) error

	MetricInc func(int)
	EmitAudit EmitAuditFunc

	Metrics LoginMetrics
	Events  LoginEvents
	Errors  Errors
}

// RunLogin submits credentials with the device fingerprint and classifies the
// outcome.
func RunLogin(ctx context.Context, email, password string, deps LoginDeps) LoginResult {
	normalizeLoginDeps(&deps)

	if email == "" || password == "" {
		deps.MetricInc(deps.Metrics.LocalValidationFailure)
		deps.EmitAudit(ctx, deps.Events.LoginAttempt, false, email, deps.Errors.Validation, reasonMeta("empty_fields"))
		return LoginResult{Message: MsgCredentialsRequired, Local: true, Err: deps.Errors.Validation}
	}

	fp := deps.Fingerprint()
	resp, err := deps.Login(ctx, api.LoginRequest{Email: email, Password: password, DeviceFingerprint: fp})
	if err != nil {
		res := classifyLoginFailure(err, deps)
		deps.EmitAudit(ctx, deps.Events.LoginAttempt, false, email, res.Err, transportMeta(err))
		return res
	}

	return completeTokenLogin(ctx, deps.Events.LoginAttempt, email, resp.Token, deps)
}

// RunGoogleLogin exchanges a Google ID token credential for a session token.
func RunGoogleLogin(ctx context.Context, credential string, deps LoginDeps) LoginResult {
	normalizeLoginDeps(&deps)

	if strings.TrimSpace(credential) == "" {
		deps.MetricInc(deps.Metrics.LocalValidationFailure)
		deps.EmitAudit(ctx, deps.Events.GoogleLogin, false, "", deps.Errors.Validation, reasonMeta("empty_credential"))
		return LoginResult{Message: MsgGoogleFailedPrefix + "missing credential", Local: true, Err: deps.Errors.Validation}
	}

	resp, err := deps.GoogleAuth(ctx, credential)
	if err != nil {
		mapped := deps.MapTransportError(err)
		deps.MetricInc(deps.Metrics.LoginFailure)
		if api.IsNetwork(err) {
			deps.MetricInc(deps.Metrics.NetworkFailure)
		}
		deps.EmitAudit(ctx, deps.Events.GoogleLogin, false, "", mapped, transportMeta(err))
		msg := MsgGoogleFailedPrefix + serverText(err, fallbackGoogle)
		if api.IsNetwork(err) {
			msg = MsgServerUnreachable
		}
		return LoginResult{Message: msg, Err: mapped}
	}

	return completeTokenLogin(ctx, deps.Events.GoogleLogin, "", resp.Token, deps)
}

// RunResendVerification asks the backend to resend the account verification
// email. On failure the affordance stays visible so the user can retry.
func RunResendVerification(ctx context.Context, email string, deps LoginDeps) LoginResult {
	normalizeLoginDeps(&deps)

	if email == "" {
		deps.MetricInc(deps.Metrics.LocalValidationFailure)
		return LoginResult{Message: MsgEmailFirst, Local: true, Err: deps.Errors.Validation}
	}

	if err := deps.ResendVerification(ctx, email); err != nil {
		mapped := deps.MapTransportError(err)
		if api.IsNetwork(err) {
			deps.MetricInc(deps.Metrics.NetworkFailure)
		}
		deps.EmitAudit(ctx, deps.Events.VerificationResend, false, email, mapped, transportMeta(err))
		return LoginResult{
			Message:                MsgResendFailedPrefix + serverText(err, fallbackResendVerify),
			ShowResendVerification: true,
			Err:                    mapped,
		}
	}

	deps.MetricInc(deps.Metrics.VerificationResent)
	deps.EmitAudit(ctx, deps.Events.VerificationResend, true, email, nil, nil)
	return LoginResult{Message: MsgVerificationSent}
}

func completeTokenLogin(ctx context.Context, event, email, token string, deps LoginDeps) LoginResult {
	if token == "" {
		deps.MetricInc(deps.Metrics.LoginSuccess)
		deps.EmitAudit(ctx, event, true, email, nil, reasonMeta("no_token"))
		return LoginResult{Message: MsgLoginNoToken}
	}
	if email == "" {
		email = deps.TokenEmail(token)
	}
	if err := deps.StoreToken(ctx, token); err != nil {
		wrapped := fmt.Errorf("%w: %v", deps.Errors.SessionStore, err)
		deps.MetricInc(deps.Metrics.LoginFailure)
		deps.EmitAudit(ctx, event, false, email, wrapped, reasonMeta("token_persist_failed"))
		return LoginResult{Message: MsgSessionNotSaved, Err: wrapped}
	}
	deps.MetricInc(deps.Metrics.LoginSuccess)
	deps.EmitAudit(ctx, event, true, email, nil, nil)
	return LoginResult{Token: token, Message: MsgLoggedInRedirect}
}

// classifyLoginFailure applies the login rewrite rules in order. The resend
// affordance is decided independently of the displayed message.
func classifyLoginFailure(err error, deps LoginDeps) LoginResult {
	mapped := deps.MapTransportError(err)
	deps.MetricInc(deps.Metrics.LoginFailure)

	se, isServer := api.AsServerError(err)
	msg, code := fallbackLogin, ""
	if isServer {
		if se.Message != "" {
			msg = se.Message
		}
		code = se.Code
	}

	res := LoginResult{
		ShowResendVerification: isServer && (code == CodeVerificationRequired ||
			strings.Contains(msg, "verify your email") ||
			strings.Contains(msg, "email before logging in")),
		Err: mapped,
	}

	switch {
	case !isServer || code == CodeDatabaseError:
		deps.MetricInc(deps.Metrics.NetworkFailure)
		res.Message = MsgServerUnreachable
	case strings.Contains(msg, "Invalid") || strings.Contains(msg, "credentials"):
		res.Message = MsgInvalidCredentials
		res.Err = fmt.Errorf("%w: %w", deps.Errors.InvalidCredentials, mapped)
	case strings.Contains(msg, "database") || strings.Contains(msg, "server") || strings.Contains(msg, "Can't reach"):
		res.Message = MsgServerConnection
	default:
		res.Message = MsgLoginFailedPrefix + msg
	}

	if res.ShowResendVerification {
		deps.MetricInc(deps.Metrics.VerificationRequired)
		res.Err = fmt.Errorf("%w: %w", deps.Errors.VerificationRequired, res.Err)
	}
	return res
}

func normalizeLoginDeps(deps *LoginDeps) {
	normalizeErrors(&deps.Errors)
	if deps.Fingerprint == nil {
		deps.Fingerprint = func() string { return "" }
	}
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}
	if deps.StoreToken == nil {
		deps.StoreToken = func(context.Context, string) error { return nil }
	}
	if deps.TokenEmail == nil {
		deps.TokenEmail = func(string) string { return "" }
	}
	if deps.MapTransportError == nil {
		errs := deps.Errors
		deps.MapTransportError = func(err error) error { return MapTransport(err, errs) }
	}
	notReady := func() error { return fmt.Errorf("%w: transport not configured", api.ErrNetwork) }
	if deps.Login == nil {
		deps.Login = func(context.Context, api.LoginRequest) (api.TokenResponse, error) { return api.TokenResponse{}, notReady() }
	}
	if deps.GoogleAuth == nil {
		deps.GoogleAuth = func(context.Context, string) (api.TokenResponse, error) { return api.TokenResponse{}, notReady() }
	}
	if deps.ResendVerification == nil {
		deps.ResendVerification = func(context.Context, string) error { return notReady() }
	}
}
