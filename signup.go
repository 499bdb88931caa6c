package sensorauth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/MrEthical07/sensorauth/clock"
	"github.com/MrEthical07/sensorauth/internal/cooldown"
	"github.com/MrEthical07/sensorauth/internal/flows"
	"github.com/MrEthical07/sensorauth/internal/inflight"
)

// SignupForm is the registration data collected before the OTP challenge.
type SignupForm = flows.SignupForm

// SignupPhase is the state of the signup flow.
type SignupPhase uint8

const (
	SignupCollecting SignupPhase = iota
	SignupOTPPending
)

func (p SignupPhase) String() string {
	switch p {
	case SignupCollecting:
		return "collecting-info"
	case SignupOTPPending:
		return "otp-pending"
	default:
		return "unknown"
	}
}

// SignupState is what the signup surface renders.
type SignupState struct {
	Phase   SignupPhase
	Email   string
	Message string
	// Code is the OTP as last entered. A rejected code is cleared.
	Code string
	// Cooldown is the number of seconds before ResendOTP is accepted.
	Cooldown   int
	Submitting bool
	Verifying  bool
	Resending  bool
	// Completed is set once the account exists, while the redirect is
	// pending.
	Completed bool
}

// SignupController drives account creation through an emailed OTP. The
// challenge lives only in memory; a new controller starts over.
type SignupController struct {
	client   *Client
	submit   inflight.Op
	verify   inflight.Op
	resend   inflight.Op
	cooldown *cooldown.Countdown

	mu          sync.Mutex
	phase       SignupPhase
	form        SignupForm
	signupToken string
	code        string
	message     string
	completed   bool
	// epoch changes whenever the flow restarts, so responses to requests
	// issued before the restart are dropped.
	epoch  uint64
	closed bool
	timer  clock.Task
}

// NewSignupController returns a controller in the collecting phase.
func (c *Client) NewSignupController() *SignupController {
	return &SignupController{
		client:   c,
		cooldown: cooldown.New(c.sched, c.config.Cooldown.Tick),
	}
}

// Submit validates form locally and requests a signup challenge. Only a
// form that passes every rule reaches the network. On success the flow
// moves to SignupOTPPending and the resend cooldown starts.
func (s *SignupController) Submit(ctx context.Context, form SignupForm) error {
	epoch, err := s.begin(SignupCollecting)
	if err != nil {
		return err
	}
	ctx = withRequestID(ctx)

	local := flows.ValidateSignupForm(form) != ""
	if !local {
		if !s.submit.TryBegin() {
			s.client.metricInc(MetricDuplicateSuppressed)
			return ErrDuplicateSubmission
		}
		defer s.submit.Finish()
	}

	res := flows.RunSignup(ctx, form, s.flowDeps())

	s.mu.Lock()
	if stale := s.staleLocked(epoch); stale != nil {
		s.mu.Unlock()
		return stale
	}
	s.message = res.Message
	if res.Err != nil {
		s.mu.Unlock()
		return res.Err
	}
	s.phase = SignupOTPPending
	s.form = form
	s.signupToken = res.SignupToken
	s.code = ""
	s.cooldown.Start(s.client.config.Cooldown.ResendSeconds, nil, nil)
	s.mu.Unlock()
	return nil
}

// VerifyOTP submits code with the challenge token. The code is checked for
// shape locally and for correctness by the backend in the same step.
func (s *SignupController) VerifyOTP(ctx context.Context, code string) error {
	epoch, err := s.begin(SignupOTPPending)
	if err != nil {
		return err
	}
	ctx = withRequestID(ctx)

	s.mu.Lock()
	s.code = code
	email, token := s.form.Email, s.signupToken
	s.mu.Unlock()

	local := !flows.ValidOTPShape(code)
	if !local {
		if !s.verify.TryBegin() {
			s.client.metricInc(MetricDuplicateSuppressed)
			return ErrDuplicateSubmission
		}
		defer s.verify.Finish()
	}

	res := flows.RunSignupVerify(ctx, email, code, token, s.flowDeps())

	s.mu.Lock()
	defer s.mu.Unlock()
	if stale := s.staleLocked(epoch); stale != nil {
		return stale
	}
	s.message = res.Message

	switch {
	case res.Token != "":
		s.completed = true
		s.cooldown.Cancel()
		s.scheduleLocked(s.client.config.Timing.RedirectDelay, epoch, func() {
			s.client.navigator.Navigate(RouteDashboard)
		})
	case res.Err == nil || errors.Is(res.Err, ErrSessionStore):
		// The account exists but no session was kept; the user logs in
		// manually.
		s.completed = true
		s.cooldown.Cancel()
		s.scheduleLocked(s.client.config.Timing.SignupFallbackDelay, epoch, func() {
			s.Restart()
			s.client.navigator.Navigate(RouteLogin)
		})
	case !res.Local:
		s.code = ""
	}
	return res.Err
}

// ResendOTP re-posts the captured form for a fresh challenge token. It
// returns ErrCooldownActive while the cooldown runs and makes no request.
func (s *SignupController) ResendOTP(ctx context.Context) error {
	epoch, err := s.begin(SignupOTPPending)
	if err != nil {
		return err
	}
	ctx = withRequestID(ctx)

	if s.cooldown.Active() {
		s.client.metricInc(MetricCooldownRejected)
		return ErrCooldownActive
	}
	if !s.resend.TryBegin() {
		s.client.metricInc(MetricDuplicateSuppressed)
		return ErrDuplicateSubmission
	}
	defer s.resend.Finish()

	s.mu.Lock()
	form := s.form
	s.mu.Unlock()

	res := flows.RunSignupResend(ctx, form, s.flowDeps())

	s.mu.Lock()
	if stale := s.staleLocked(epoch); stale != nil {
		s.mu.Unlock()
		return stale
	}
	s.message = res.Message
	if res.Err != nil {
		s.mu.Unlock()
		return res.Err
	}
	s.signupToken = res.SignupToken
	s.cooldown.Start(s.client.config.Cooldown.ResendSeconds, nil, nil)
	s.mu.Unlock()
	return nil
}

// Restart discards the challenge and returns to the collecting phase.
func (s *SignupController) Restart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
}

func (s *SignupController) State() SignupState {
	s.mu.Lock()
	st := SignupState{
		Phase:     s.phase,
		Email:     s.form.Email,
		Message:   s.message,
		Code:      s.code,
		Completed: s.completed,
	}
	s.mu.Unlock()

	st.Cooldown = s.cooldown.Remaining()
	st.Submitting = s.submit.Pending()
	st.Verifying = s.verify.Pending()
	st.Resending = s.resend.Pending()
	return st
}

// Close cancels the cooldown and any scheduled navigation. Responses that
// arrive afterwards change nothing.
func (s *SignupController) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.cooldown.Cancel()
	if s.timer != nil {
		s.timer.Stop()
	}
}

func (s *SignupController) begin(want SignupPhase) (uint64, error) {
	if err := s.client.ready(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}
	if s.phase != want || s.completed {
		return 0, ErrInvalidPhase
	}
	return s.epoch, nil
}

// staleLocked reports why a response for epoch must be dropped, or nil.
func (s *SignupController) staleLocked(epoch uint64) error {
	if s.closed {
		return ErrClosed
	}
	if s.epoch != epoch {
		return ErrInvalidPhase
	}
	return nil
}

func (s *SignupController) resetLocked() {
	s.epoch++
	s.phase = SignupCollecting
	s.form = SignupForm{}
	s.signupToken = ""
	s.code = ""
	s.message = ""
	s.completed = false
	s.cooldown.Cancel()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// scheduleLocked runs f after d unless the controller closed or restarted
// in the meantime. f runs without the lock held.
func (s *SignupController) scheduleLocked(d time.Duration, epoch uint64, f func()) {
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = s.client.sched.AfterFunc(d, func() {
		s.mu.Lock()
		live := !s.closed && s.epoch == epoch
		s.mu.Unlock()
		if live {
			f()
		}
	})
}

func (s *SignupController) storeToken(ctx context.Context, token string) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrClosed
	}
	return s.client.storeToken(ctx, token)
}

func (s *SignupController) flowDeps() flows.SignupDeps {
	deps := s.client.signupFlowDeps()
	deps.StoreToken = s.storeToken
	return deps
}
