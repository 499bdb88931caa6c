package sensorauth

import (
	"context"
	"errors"
	"sync"

	"github.com/MrEthical07/sensorauth/internal/flows"
)

// SessionGuard checks the stored session token when a surface loads and
// redirects accordingly.
type SessionGuard struct {
	client *Client

	mu     sync.Mutex
	closed bool
}

// NewSessionGuard returns a guard sharing the client's token slot and
// navigator.
func (c *Client) NewSessionGuard() *SessionGuard {
	return &SessionGuard{client: c}
}

// CheckLoginSurface runs the check for the login surface. A verified token
// navigates to the dashboard. Without a token, or after a rejected one, the
// host stays on login; a rejected token is cleared.
func (g *SessionGuard) CheckLoginSurface(ctx context.Context) (GuardResult, error) {
	return g.check(ctx, SurfaceLogin)
}

// CheckDashboard runs the check for the dashboard surface. A verified token
// populates the identity and its preferences. Anything else navigates to
// login; a token that failed verification is cleared first.
func (g *SessionGuard) CheckDashboard(ctx context.Context) (GuardResult, error) {
	return g.check(ctx, SurfaceDashboard)
}

// Start runs the check for surface in the background and delivers the
// result on the returned channel, which is closed afterwards. It never
// blocks the caller.
func (g *SessionGuard) Start(ctx context.Context, surface Surface) <-chan GuardResult {
	out := make(chan GuardResult, 1)
	go func() {
		defer close(out)
		res, _ := g.check(ctx, surface)
		out <- res
	}()
	return out
}

// Logout clears the stored token and navigates to login.
func (g *SessionGuard) Logout(ctx context.Context) error {
	if err := g.client.ready(); err != nil {
		return err
	}
	ctx = withRequestID(ctx)

	if err := flows.RunLogout(ctx, g.client.guardFlowDeps()); err != nil {
		return err
	}
	g.navigate(RouteLogin)
	return nil
}

// Close makes the guard ignore checks that resolve afterwards.
func (g *SessionGuard) Close() {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()
}

func (g *SessionGuard) check(ctx context.Context, surface Surface) (GuardResult, error) {
	res := GuardResult{Surface: surface}
	if err := g.client.ready(); err != nil {
		res.Err = err
		return res, err
	}
	ctx = withRequestID(ctx)

	deps := g.client.guardFlowDeps()
	check := flows.RunCheckSession(ctx, deps)
	if check.Err != nil {
		res.Err = check.Err
		// The login surface is already where an unauthenticated host belongs.
		if surface == SurfaceDashboard && g.navigate(RouteLogin) {
			res.Navigated = RouteLogin
		}
		return res, check.Err
	}

	res.Authenticated = true
	res.Identity = Identity{
		ID:          check.User.ID,
		Email:       check.User.Email,
		Name:        check.User.Name,
		Preferences: DefaultPreferences(),
	}

	switch surface {
	case SurfaceLogin:
		if g.navigate(RouteDashboard) {
			res.Navigated = RouteDashboard
		}
	case SurfaceDashboard:
		// Preferences are cosmetic. A failed load keeps the defaults.
		if prefs, err := flows.RunLoadPreferences(ctx, check.Token, check.User.Email, deps); err == nil {
			res.Identity.Preferences = normalizePreferences(prefs)
		}
	}
	return res, nil
}

// navigate reports whether the navigation happened. A closed guard never
// navigates.
func (g *SessionGuard) navigate(route Route) bool {
	g.mu.Lock()
	closed := g.closed
	g.mu.Unlock()
	if closed {
		return false
	}
	g.client.navigator.Navigate(route)
	return true
}

// IsUnauthenticated reports whether err from a guard check means the host
// simply has no usable session, as opposed to a client misconfiguration.
func IsUnauthenticated(err error) bool {
	return errors.Is(err, ErrNoSession) || errors.Is(err, ErrSessionRejected)
}
