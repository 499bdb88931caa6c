package sensorauth

import (
	"context"
	"sync"

	"github.com/MrEthical07/sensorauth/internal/cooldown"
	"github.com/MrEthical07/sensorauth/internal/flows"
	"github.com/MrEthical07/sensorauth/internal/inflight"
)

// ResetPhase is the step of the password-reset flow.
type ResetPhase uint8

const (
	// ResetRequestEmail is the initial step and the closed state.
	ResetRequestEmail ResetPhase = iota
	ResetConfirmOTP
	ResetSetPassword
)

func (p ResetPhase) String() string {
	switch p {
	case ResetRequestEmail:
		return "request-email"
	case ResetConfirmOTP:
		return "confirm-otp"
	case ResetSetPassword:
		return "set-password"
	default:
		return "unknown"
	}
}

// ResetState is what the reset surface renders.
type ResetState struct {
	Phase   ResetPhase
	Email   string
	Message string
	// NewPassword and ConfirmPassword survive a rejected submission so the
	// user can correct them.
	NewPassword     string
	ConfirmPassword string
	Cooldown        int
	Requesting      bool
	Submitting      bool
}

// ResetController drives the three-step password reset. The code is only
// shape-checked by ConfirmOTPShape; the backend judges it when the new
// password is submitted.
type ResetController struct {
	client *Client
	// request is shared by RequestReset and ResendResetOTP.
	request  inflight.Op
	confirm  inflight.Op
	cooldown *cooldown.Countdown

	mu         sync.Mutex
	phase      ResetPhase
	email      string
	otp        string
	password   string
	confirmPw  string
	message    string
	epoch      uint64
	closed     bool
	onComplete func()
}

// NewResetController returns a controller in the request-email step. When
// login is non-nil, a completed reset shows the success banner on it for
// Timing.ResetBannerDuration.
func (c *Client) NewResetController(login *LoginController) *ResetController {
	r := &ResetController{
		client:   c,
		cooldown: cooldown.New(c.sched, c.config.Cooldown.Tick),
	}
	if login != nil {
		d := c.config.Timing.ResetBannerDuration
		r.onComplete = func() { login.ShowBanner(flows.MsgResetSuccess, d) }
	}
	return r
}

// SetOnComplete replaces the hook run after a successful reset.
func (r *ResetController) SetOnComplete(f func()) {
	r.mu.Lock()
	r.onComplete = f
	r.mu.Unlock()
}

// RequestReset validates the email shape and asks the backend to email a
// reset code. On success the flow moves to ResetConfirmOTP and the resend
// cooldown starts.
func (r *ResetController) RequestReset(ctx context.Context, email string) error {
	epoch, err := r.begin(ResetRequestEmail)
	if err != nil {
		return err
	}
	ctx = withRequestID(ctx)

	local := !flows.ValidEmail(email)
	if !local {
		if !r.request.TryBegin() {
			r.client.metricInc(MetricDuplicateSuppressed)
			return ErrDuplicateSubmission
		}
		defer r.request.Finish()
	}

	res := flows.RunRequestPasswordReset(ctx, email, r.client.passwordResetFlowDeps())

	r.mu.Lock()
	defer r.mu.Unlock()
	if stale := r.staleLocked(epoch); stale != nil {
		return stale
	}
	r.message = res.Message
	if res.Err != nil {
		return res.Err
	}
	r.phase = ResetConfirmOTP
	r.email = email
	r.cooldown.Start(r.client.config.Cooldown.ResendSeconds, nil, nil)
	return nil
}

// ConfirmOTPShape accepts a code of exactly six digits and moves to
// ResetSetPassword. It makes no network call. From ResetSetPassword it
// replaces the code entered earlier.
func (r *ResetController) ConfirmOTPShape(code string) error {
	if _, err := r.begin(ResetConfirmOTP, ResetSetPassword); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if !flows.ValidOTPShape(code) {
		r.client.metricInc(MetricLocalValidationFailure)
		r.message = flows.MsgInvalidOTP
		return ErrValidation
	}
	r.otp = code
	r.phase = ResetSetPassword
	r.message = ""
	return nil
}

// SetNewPassword validates the new password and submits it with the email
// and code. A wrong code is reported here. On success the flow returns to
// its initial state and the completion hook runs.
func (r *ResetController) SetNewPassword(ctx context.Context, password, confirm string) error {
	epoch, err := r.begin(ResetSetPassword)
	if err != nil {
		return err
	}
	ctx = withRequestID(ctx)

	r.mu.Lock()
	r.password, r.confirmPw = password, confirm
	in := flows.ResetConfirmInput{Email: r.email, OTP: r.otp, Password: password, Confirm: confirm}
	r.mu.Unlock()

	local := flows.ValidateNewPassword(password, confirm) != ""
	if !local {
		if !r.confirm.TryBegin() {
			r.client.metricInc(MetricDuplicateSuppressed)
			return ErrDuplicateSubmission
		}
		defer r.confirm.Finish()
	}

	res := flows.RunConfirmPasswordReset(ctx, in, r.client.passwordResetFlowDeps())

	r.mu.Lock()
	if stale := r.staleLocked(epoch); stale != nil {
		r.mu.Unlock()
		return stale
	}
	if res.Err != nil {
		r.message = res.Message
		r.mu.Unlock()
		return res.Err
	}
	r.resetLocked()
	hook := r.onComplete
	r.mu.Unlock()

	if hook != nil {
		hook()
	}
	return nil
}

// ResendResetOTP requests a fresh code for the accepted email. It returns
// ErrCooldownActive while the cooldown runs and makes no request.
func (r *ResetController) ResendResetOTP(ctx context.Context) error {
	epoch, err := r.begin(ResetConfirmOTP, ResetSetPassword)
	if err != nil {
		return err
	}
	ctx = withRequestID(ctx)

	if r.cooldown.Active() {
		r.client.metricInc(MetricCooldownRejected)
		return ErrCooldownActive
	}
	if !r.request.TryBegin() {
		r.client.metricInc(MetricDuplicateSuppressed)
		return ErrDuplicateSubmission
	}
	defer r.request.Finish()

	r.mu.Lock()
	email := r.email
	r.mu.Unlock()

	res := flows.RunResendPasswordReset(ctx, email, r.client.passwordResetFlowDeps())

	r.mu.Lock()
	defer r.mu.Unlock()
	if stale := r.staleLocked(epoch); stale != nil {
		return stale
	}
	r.message = res.Message
	if res.Err != nil {
		return res.Err
	}
	r.cooldown.Start(r.client.config.Cooldown.ResendSeconds, nil, nil)
	return nil
}

// Cancel abandons the reset and returns to the initial state.
func (r *ResetController) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resetLocked()
}

func (r *ResetController) State() ResetState {
	r.mu.Lock()
	st := ResetState{
		Phase:           r.phase,
		Email:           r.email,
		Message:         r.message,
		NewPassword:     r.password,
		ConfirmPassword: r.confirmPw,
	}
	r.mu.Unlock()

	st.Cooldown = r.cooldown.Remaining()
	st.Requesting = r.request.Pending()
	st.Submitting = r.confirm.Pending()
	return st
}

// Close cancels the cooldown. Responses that arrive afterwards change
// nothing and the completion hook no longer runs.
func (r *ResetController) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.cooldown.Cancel()
}

func (r *ResetController) begin(accepted ...ResetPhase) (uint64, error) {
	if err := r.client.ready(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return 0, ErrClosed
	}
	for _, p := range accepted {
		if r.phase == p {
			return r.epoch, nil
		}
	}
	return 0, ErrInvalidPhase
}

func (r *ResetController) staleLocked(epoch uint64) error {
	if r.closed {
		return ErrClosed
	}
	if r.epoch != epoch {
		return ErrInvalidPhase
	}
	return nil
}

func (r *ResetController) resetLocked() {
	r.epoch++
	r.phase = ResetRequestEmail
	r.email = ""
	r.otp = ""
	r.password = ""
	r.confirmPw = ""
	r.message = ""
	r.cooldown.Cancel()
}
