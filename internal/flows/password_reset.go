package flows

import (
	"context"
	"fmt"

	"github.com/MrEthical07/sensorauth/internal/api"
)

// ResetResult is the outcome of a password-reset step.
type ResetResult struct {
	Message string
	Err     error
	Local   bool
}

// ResetConfirmInput is everything the final reset step submits.
type ResetConfirmInput struct {
	Email    string
	OTP      string
	Password string
	Confirm  string
}

type PasswordResetMetrics struct {
	ResetRequested         int
	ResetSuccess           int
	ResetFailure           int
	LocalValidationFailure int
	NetworkFailure         int
}

type PasswordResetEvents struct {
	ResetRequest string
	ResetResend  string
	ResetConfirm string
}

// PasswordResetDeps captures reset request, resend and confirm dependencies.
type PasswordResetDeps struct {
	ForgotPassword    func(context.Context, string) error
	ResetPassword     func(context.Context, api.ResetPasswordRequest) error
	MapTransportError func(error) error

	MetricInc func(int)
	EmitAudit EmitAuditFunc

	Metrics PasswordResetMetrics
	Events  PasswordResetEvents
	Errors  Errors
}

// RunRequestPasswordReset validates the email shape and asks the backend to
// email a reset code.
func RunRequestPasswordReset(ctx context.Context, email string, deps PasswordResetDeps) ResetResult {
	normalizePasswordResetDeps(&deps)

	if !ValidEmail(email) {
		deps.MetricInc(deps.Metrics.LocalValidationFailure)
		deps.EmitAudit(ctx, deps.Events.ResetRequest, false, email, deps.Errors.Validation, reasonMeta("invalid_email"))
		return ResetResult{Message: MsgInvalidResetEmail, Err: deps.Errors.Validation, Local: true}
	}
	return requestResetCode(ctx, email, deps.Events.ResetRequest, fallbackResetRequest, deps)
}

// RunResendPasswordReset asks for a fresh reset code for an email that was
// already accepted by RunRequestPasswordReset.
func RunResendPasswordReset(ctx context.Context, email string, deps PasswordResetDeps) ResetResult {
	normalizePasswordResetDeps(&deps)
	return requestResetCode(ctx, email, deps.Events.ResetResend, fallbackResendCode, deps)
}

func requestResetCode(ctx context.Context, email, event, fallback string, deps PasswordResetDeps) ResetResult {
	if err := deps.ForgotPassword(ctx, email); err != nil {
		mapped := deps.MapTransportError(err)
		deps.EmitAudit(ctx, event, false, email, mapped, transportMeta(err))
		if api.IsNetwork(err) {
			deps.MetricInc(deps.Metrics.NetworkFailure)
			return ResetResult{Message: MsgAuthServerUnreachable, Err: mapped}
		}
		return ResetResult{Message: serverText(err, fallback), Err: mapped}
	}

	deps.MetricInc(deps.Metrics.ResetRequested)
	deps.EmitAudit(ctx, event, true, email, nil, nil)
	return ResetResult{}
}

// RunConfirmPasswordReset validates the new password locally and submits it
// with the OTP. This is the only step where the backend judges the OTP, so a
// wrong code surfaces here as a server rejection.
func RunConfirmPasswordReset(ctx context.Context, in ResetConfirmInput, deps PasswordResetDeps) ResetResult {
	normalizePasswordResetDeps(&deps)

	if msg := ValidateNewPassword(in.Password, in.Confirm); msg != "" {
		deps.MetricInc(deps.Metrics.LocalValidationFailure)
		return ResetResult{Message: msg, Err: deps.Errors.Validation, Local: true}
	}

	err := deps.ResetPassword(ctx, api.ResetPasswordRequest{
		Email:          in.Email,
		OTP:            in.OTP,
		NewPassword:    in.Password,
		RetypePassword: in.Confirm,
	})
	if err != nil {
		mapped := deps.MapTransportError(err)
		deps.MetricInc(deps.Metrics.ResetFailure)
		deps.EmitAudit(ctx, deps.Events.ResetConfirm, false, in.Email, mapped, transportMeta(err))
		if api.IsNetwork(err) {
			deps.MetricInc(deps.Metrics.NetworkFailure)
			return ResetResult{Message: MsgAuthServerUnreachable, Err: mapped}
		}
		return ResetResult{Message: serverText(err, fallbackReset), Err: mapped}
	}

	deps.MetricInc(deps.Metrics.ResetSuccess)
	deps.EmitAudit(ctx, deps.Events.ResetConfirm, true, in.Email, nil, nil)
	return ResetResult{Message: MsgResetSuccess}
}

func normalizePasswordResetDeps(deps *PasswordResetDeps) {
	normalizeErrors(&deps.Errors)
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}
	if deps.MapTransportError == nil {
		errs := deps.Errors
		deps.MapTransportError = func(err error) error { return MapTransport(err, errs) }
	}
	notReady := fmt.Errorf("%w: transport not configured", api.ErrNetwork)
	if deps.ForgotPassword == nil {
		deps.ForgotPassword = func(context.Context, string) error { return notReady }
	}
	if deps.ResetPassword == nil {
		deps.ResetPassword = func(context.Context, api.ResetPasswordRequest) error { return notReady }
	}
}
