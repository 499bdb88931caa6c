package flows

import (
	"context"
	"fmt"

	"github.com/MrEthical07/sensorauth/internal/api"
)

// SessionCheck is the outcome of verifying the stored token.
type SessionCheck struct {
	Token string
	User  api.User
	// Err is nil for a verified session. It wraps NoSession when no token
	// is stored and SessionRejected when verification failed.
	Err error
}

type GuardMetrics struct {
	SessionValid    int
	SessionRejected int
	NetworkFailure  int
	Logout          int
}

type GuardEvents struct {
	SessionCheck    string
	Logout          string
	PreferencesLoad string
}

// GuardDeps captures session check, preferences and logout dependencies.
type GuardDeps struct {
	LoadToken         func(context.Context) (string, bool, error)
	ClearToken        func(context.Context) error
	VerifyToken       func(context.Context, string) (api.User, error)
	UserPreferences   func(context.Context, string) (api.Preferences, error)
	MapTransportError func(error) error

	MetricInc func(int)
	EmitAudit EmitAuditFunc

	Metrics GuardMetrics
	Events  GuardEvents
	Errors  Errors
}

// RunCheckSession reads the stored token and confirms it remotely. A token
// the backend does not confirm (for any reason, including network failure)
// is cleared.
func RunCheckSession(ctx context.Context, deps GuardDeps) SessionCheck {
	normalizeGuardDeps(&deps)

	token, ok, err := deps.LoadToken(ctx)
	if err != nil {
		wrapped := fmt.Errorf("%w: %w: %v", deps.Errors.NoSession, deps.Errors.SessionStore, err)
		deps.EmitAudit(ctx, deps.Events.SessionCheck, false, "", wrapped, reasonMeta("store_unavailable"))
		return SessionCheck{Err: wrapped}
	}
	if !ok || token == "" {
		return SessionCheck{Err: deps.Errors.NoSession}
	}

	user, err := deps.VerifyToken(ctx, token)
	if err != nil {
		mapped := deps.MapTransportError(err)
		deps.MetricInc(deps.Metrics.SessionRejected)
		if api.IsNetwork(err) {
			deps.MetricInc(deps.Metrics.NetworkFailure)
		}
		rejected := fmt.Errorf("%w: %w", deps.Errors.SessionRejected, mapped)
		if clearErr := deps.ClearToken(ctx); clearErr != nil {
			rejected = fmt.Errorf("%w: %w: %v", rejected, deps.Errors.SessionStore, clearErr)
		}
		deps.EmitAudit(ctx, deps.Events.SessionCheck, false, "", rejected, transportMeta(err))
		return SessionCheck{Err: rejected}
	}

	deps.MetricInc(deps.Metrics.SessionValid)
	deps.EmitAudit(ctx, deps.Events.SessionCheck, true, user.Email, nil, nil)
	return SessionCheck{Token: token, User: user}
}

// RunLoadPreferences fetches the user's dashboard preferences with the
// session token. Failures are audited and returned; callers fall back to
// defaults.
func RunLoadPreferences(ctx context.Context, token, email string, deps GuardDeps) (api.Preferences, error) {
	normalizeGuardDeps(&deps)

	prefs, err := deps.UserPreferences(ctx, token)
	if err != nil {
		mapped := deps.MapTransportError(err)
		deps.EmitAudit(ctx, deps.Events.PreferencesLoad, false, email, mapped, transportMeta(err))
		return api.Preferences{}, mapped
	}
	deps.EmitAudit(ctx, deps.Events.PreferencesLoad, true, email, nil, nil)
	return prefs, nil
}

// RunLogout clears the stored token.
func RunLogout(ctx context.Context, deps GuardDeps) error {
	normalizeGuardDeps(&deps)

	if err := deps.ClearToken(ctx); err != nil {
		wrapped := fmt.Errorf("%w: %v", deps.Errors.SessionStore, err)
		deps.EmitAudit(ctx, deps.Events.Logout, false, "", wrapped, nil)
		return wrapped
	}
	deps.MetricInc(deps.Metrics.Logout)
	deps.EmitAudit(ctx, deps.Events.Logout, true, "", nil, nil)
	return nil
}

func normalizeGuardDeps(deps *GuardDeps) {
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
	if deps.LoadToken == nil {
		deps.LoadToken = func(context.Context) (string, bool, error) { return "", false, nil }
	}
	if deps.ClearToken == nil {
		deps.ClearToken = func(context.Context) error { return nil }
	}
	notReady := fmt.Errorf("%w: transport not configured", api.ErrNetwork)
	if deps.VerifyToken == nil {
		deps.VerifyToken = func(context.Context, string) (api.User, error) { return api.User{}, notReady }
	}
	if deps.UserPreferences == nil {
		deps.UserPreferences = func(context.Context, string) (api.Preferences, error) { return api.Preferences{}, notReady }
	}
}
