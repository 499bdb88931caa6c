package sensorauth

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/MrEthical07/sensorauth/clock"
	"github.com/MrEthical07/sensorauth/internal/flows"
	"github.com/MrEthical07/sensorauth/internal/inflight"
)

// LoginPhase is the state of the credential flow.
type LoginPhase uint8

const (
	LoginIdle LoginPhase = iota
	LoginSubmitting
	LoginErrorShown
	LoginRedirecting
)

func (p LoginPhase) String() string {
	switch p {
	case LoginIdle:
		return "idle"
	case LoginSubmitting:
		return "submitting"
	case LoginErrorShown:
		return "error-shown"
	case LoginRedirecting:
		return "redirecting"
	default:
		return "unknown"
	}
}

// LoginState is what the login surface renders.
type LoginState struct {
	Phase   LoginPhase
	Message string
	// Banner is a time-limited notice shown above the form.
	Banner                 string
	ShowResendVerification bool
	ResendingVerification  bool
}

// LoginController drives the login surface: credential login, Google
// sign-in and the resend-verification affordance.
type LoginController struct {
	client *Client
	// submit is shared by Login and GoogleSignIn; both issue a session token.
	submit inflight.Op
	resend inflight.Op

	mu        sync.Mutex
	state     LoginState
	closed    bool
	redirect  clock.Task
	banner    clock.Task
	bannerGen uint64
}

// NewLoginController returns an idle login controller.
func (c *Client) NewLoginController() *LoginController {
	return &LoginController{client: c}
}

// Login describes the login operation and its observable behavior.
//
// Empty fields fail with ErrValidation before any network call. While a
// submission is pending, that rejection leaves the displayed state alone.
// A second complete call while one is pending returns
// ErrDuplicateSubmission and changes nothing. On success the token is
// persisted and navigation to the dashboard is scheduled after
// Timing.RedirectDelay.
func (l *LoginController) Login(ctx context.Context, email, password string) error {
	if err := l.begin(); err != nil {
		return err
	}
	ctx = withRequestID(ctx)

	local := email == "" || password == ""
	if !local {
		if !l.submit.TryBegin() {
			l.client.metricInc(MetricDuplicateSuppressed)
			return ErrDuplicateSubmission
		}
		defer l.submit.Finish()
		l.setPhase(LoginSubmitting)
	}

	res := flows.RunLogin(ctx, email, password, l.flowDeps())
	if local && l.submit.Pending() {
		return res.Err
	}
	return l.apply(res)
}

// GoogleSignIn exchanges a Google ID token credential for a session token.
// It shares the in-flight guard with Login.
func (l *LoginController) GoogleSignIn(ctx context.Context, credential string) error {
	if err := l.begin(); err != nil {
		return err
	}
	ctx = withRequestID(ctx)

	local := strings.TrimSpace(credential) == ""
	if !local {
		if !l.submit.TryBegin() {
			l.client.metricInc(MetricDuplicateSuppressed)
			return ErrDuplicateSubmission
		}
		defer l.submit.Finish()
		l.setPhase(LoginSubmitting)
	}

	res := flows.RunGoogleLogin(ctx, credential, l.flowDeps())
	if local && l.submit.Pending() {
		return res.Err
	}
	return l.apply(res)
}

// ResendVerification asks the backend to resend the verification email.
// On success the affordance is hidden; on failure it stays for a retry. An
// empty email is rejected locally and leaves the affordance as it was.
func (l *LoginController) ResendVerification(ctx context.Context, email string) error {
	if err := l.begin(); err != nil {
		return err
	}
	ctx = withRequestID(ctx)

	if email != "" {
		if !l.resend.TryBegin() {
			l.client.metricInc(MetricDuplicateSuppressed)
			return ErrDuplicateSubmission
		}
		defer l.resend.Finish()
	}

	res := flows.RunResendVerification(ctx, email, l.flowDeps())

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrClosed
	}
	if !res.Local {
		l.state.ShowResendVerification = res.ShowResendVerification
	}
	// A pending login owns the phase and message.
	if l.submit.Pending() {
		return res.Err
	}
	l.state.Message = res.Message
	if res.Err != nil {
		l.state.Phase = LoginErrorShown
	} else {
		l.state.Phase = LoginIdle
	}
	return res.Err
}

// ShowBanner displays msg until d elapses. A newer banner replaces it and
// restarts the timer.
func (l *LoginController) ShowBanner(msg string, d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	if l.banner != nil {
		l.banner.Stop()
	}
	l.bannerGen++
	gen := l.bannerGen
	l.state.Banner = msg
	l.banner = l.client.sched.AfterFunc(d, func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if !l.closed && l.bannerGen == gen {
			l.state.Banner = ""
		}
	})
}

func (l *LoginController) State() LoginState {
	l.mu.Lock()
	s := l.state
	l.mu.Unlock()
	s.ResendingVerification = l.resend.Pending()
	return s
}

// Close cancels the scheduled redirect and banner. Responses that arrive
// afterwards change nothing.
func (l *LoginController) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	if l.redirect != nil {
		l.redirect.Stop()
	}
	if l.banner != nil {
		l.banner.Stop()
	}
}

func (l *LoginController) begin() error {
	if err := l.client.ready(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrClosed
	}
	return nil
}

func (l *LoginController) setPhase(p LoginPhase) {
	l.mu.Lock()
	l.state.Phase = p
	l.mu.Unlock()
}

func (l *LoginController) apply(res flows.LoginResult) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrClosed
	}

	l.state.Message = res.Message
	if !res.Local {
		l.state.ShowResendVerification = res.ShowResendVerification
	}
	switch {
	case res.Err != nil:
		l.state.Phase = LoginErrorShown
	case res.Token != "":
		l.state.Phase = LoginRedirecting
		l.scheduleRedirectLocked()
	default:
		l.state.Phase = LoginIdle
	}
	return res.Err
}

func (l *LoginController) scheduleRedirectLocked() {
	if l.redirect != nil {
		l.redirect.Stop()
	}
	l.redirect = l.client.sched.AfterFunc(l.client.config.Timing.RedirectDelay, func() {
		l.mu.Lock()
		closed := l.closed
		l.mu.Unlock()
		if !closed {
			l.client.navigator.Navigate(RouteDashboard)
		}
	})
}

// storeToken refuses to persist a token once the controller is closed.
func (l *LoginController) storeToken(ctx context.Context, token string) error {
	l.mu.Lock()
	closed := l.closed
	l.mu.Unlock()
	if closed {
		return ErrClosed
	}
	return l.client.storeToken(ctx, token)
}

func (l *LoginController) flowDeps() flows.LoginDeps {
	deps := l.client.loginFlowDeps()
	deps.StoreToken = l.storeToken
	return deps
}
