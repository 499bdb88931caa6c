package flows

import (
	"context"
	"fmt"
	"strings"

	"github.com/MrEthical07/sensorauth/internal/api"
)

// SignupForm is the registration data captured in the collecting phase.
type SignupForm struct {
	Name     string
	Email    string
	Password string
	Confirm  string
}

// SignupResult is the outcome of issuing (or re-issuing) a signup challenge.
type SignupResult struct {
	SignupToken string
	Message     string
	Err         error
	// Local reports a rejection that never reached the network.
	Local bool
}

// SignupVerifyResult is the outcome of an OTP verification.
type SignupVerifyResult struct {
	Token   string
	Message string
	Err     error
	Local   bool
}

type SignupMetrics struct {
	SignupChallengeIssued  int
	SignupVerified         int
	SignupVerifyFailure    int
	LocalValidationFailure int
	NetworkFailure         int
}

type SignupEvents struct {
	SignupChallenge string
	SignupVerify    string
	SignupResend    string
}

// SignupDeps captures signup, resend and verify dependencies.
type SignupDeps struct {
	Signup            func(context.Context, api.SignupRequest) (api.SignupResponse, error)
	VerifySignup      func(context.Context, api.SignupVerifyRequest) (api.TokenResponse, error)
	StoreToken        func(context.Context, string) error
	MapTransportError func(error) error

	MetricInc func(int)
	EmitAudit EmitAuditFunc

	Metrics SignupMetrics
	Events  SignupEvents
	Errors  Errors
}

// RunSignup validates form locally and, only when every rule passes, asks the
// backend for a signup challenge.
func RunSignup(ctx context.Context, form SignupForm, deps SignupDeps) SignupResult {
	normalizeSignupDeps(&deps)

	if msg := ValidateSignupForm(form); msg != "" {
		deps.MetricInc(deps.Metrics.LocalValidationFailure)
		deps.EmitAudit(ctx, deps.Events.SignupChallenge, false, form.Email, deps.Errors.Validation, reasonMeta("local_validation"))
		return SignupResult{Message: msg, Err: deps.Errors.Validation, Local: true}
	}

	return requestSignupChallenge(ctx, form, deps.Events.SignupChallenge, MsgSignupFailedPrefix, fallbackSignup, deps)
}

// RunSignupResend re-posts the captured form to obtain a fresh challenge
// token. The form was validated when it was first submitted.
func RunSignupResend(ctx context.Context, form SignupForm, deps SignupDeps) SignupResult {
	normalizeSignupDeps(&deps)

	res := requestSignupChallenge(ctx, form, deps.Events.SignupResend, "", fallbackResendCode, deps)
	if res.Err == nil {
		res.Message = MsgOTPResent
	}
	return res
}

func requestSignupChallenge(ctx context.Context, form SignupForm, event, prefix, fallback string, deps SignupDeps) SignupResult {
	resp, err := deps.Signup(ctx, api.SignupRequest{
		Name:           form.Name,
		Email:          form.Email,
		Password:       form.Password,
		RetypePassword: form.Confirm,
	})
	if err != nil {
		mapped := deps.MapTransportError(err)
		deps.EmitAudit(ctx, event, false, form.Email, mapped, transportMeta(err))

		if api.IsNetwork(err) {
			deps.MetricInc(deps.Metrics.NetworkFailure)
			return SignupResult{Message: MsgAuthServerUnreachable, Err: mapped}
		}
		text := serverText(err, fallback)
		if strings.Contains(text, "already exists") || strings.Contains(text, "User already") {
			return SignupResult{Message: MsgAccountExists, Err: fmt.Errorf("%w: %w", deps.Errors.AccountExists, mapped)}
		}
		return SignupResult{Message: prefix + text, Err: mapped}
	}

	if resp.SignupToken == "" {
		missing := fmt.Errorf("%w: response carried no signup token", deps.Errors.MalformedResponse)
		deps.EmitAudit(ctx, event, false, form.Email, missing, reasonMeta("missing_signup_token"))
		return SignupResult{Message: MsgSignupNoChallenge, Err: missing}
	}

	deps.MetricInc(deps.Metrics.SignupChallengeIssued)
	deps.EmitAudit(ctx, event, true, form.Email, nil, nil)
	return SignupResult{SignupToken: resp.SignupToken}
}

// RunSignupVerify submits the OTP together with the challenge token. The
// backend checks both shape and correctness; locally only the shape is
// checked so obviously bad input never leaves the client.
func RunSignupVerify(ctx context.Context, email, otp, signupToken string, deps SignupDeps) SignupVerifyResult {
	normalizeSignupDeps(&deps)

	if !ValidOTPShape(otp) {
		deps.MetricInc(deps.Metrics.LocalValidationFailure)
		return SignupVerifyResult{Message: MsgInvalidOTP, Err: deps.Errors.Validation, Local: true}
	}

	resp, err := deps.VerifySignup(ctx, api.SignupVerifyRequest{Email: email, OTP: otp, SignupToken: signupToken})
	if err != nil {
		mapped := deps.MapTransportError(err)
		deps.MetricInc(deps.Metrics.SignupVerifyFailure)
		deps.EmitAudit(ctx, deps.Events.SignupVerify, false, email, mapped, transportMeta(err))
		if api.IsNetwork(err) {
			deps.MetricInc(deps.Metrics.NetworkFailure)
			return SignupVerifyResult{Message: MsgAuthServerUnreachable, Err: mapped}
		}
		return SignupVerifyResult{Message: serverText(err, fallbackVerify), Err: mapped}
	}

	deps.MetricInc(deps.Metrics.SignupVerified)
	if resp.Token == "" {
		deps.EmitAudit(ctx, deps.Events.SignupVerify, true, email, nil, reasonMeta("no_token"))
		return SignupVerifyResult{Message: MsgAccountCreatedLogin}
	}
	if err := deps.StoreToken(ctx, resp.Token); err != nil {
		wrapped := fmt.Errorf("%w: %v", deps.Errors.SessionStore, err)
		deps.EmitAudit(ctx, deps.Events.SignupVerify, false, email, wrapped, reasonMeta("token_persist_failed"))
		return SignupVerifyResult{Message: MsgAccountCreatedLogin, Err: wrapped}
	}
	deps.EmitAudit(ctx, deps.Events.SignupVerify, true, email, nil, nil)
	return SignupVerifyResult{Token: resp.Token, Message: MsgAccountCreatedRedirect}
}

func normalizeSignupDeps(deps *SignupDeps) {
	normalizeErrors(&deps.Errors)
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}
	if deps.StoreToken == nil {
		deps.StoreToken = func(context.Context, string) error { return nil }
	}
	if deps.MapTransportError == nil {
		errs := deps.Errors
		deps.MapTransportError = func(err error) error { return MapTransport(err, errs) }
	}
	notReady := fmt.Errorf("%w: transport not configured", api.ErrNetwork)
	if deps.Signup == nil {
		deps.Signup = func(context.Context, api.SignupRequest) (api.SignupResponse, error) {
			return api.SignupResponse{}, notReady
		}
	}
	if deps.VerifySignup == nil {
		deps.VerifySignup = func(context.Context, api.SignupVerifyRequest) (api.TokenResponse, error) {
			return api.TokenResponse{}, notReady
		}
	}
}
