package sensorauth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/sensorauth/internal/api"
	"github.com/MrEthical07/sensorauth/internal/mockapi"
)

func TestGuardLoginSurface(t *testing.T) {
	t.Run("no token stays", func(t *testing.T) {
		h := newHarness(t)
		res, err := h.client.NewSessionGuard().CheckLoginSurface(context.Background())
		if !errors.Is(err, ErrNoSession) || res.Authenticated || res.Navigated != "" {
			t.Fatalf("unexpected result %+v / %v", res, err)
		}
		if len(h.nav.Routes()) != 0 || h.srv.TotalCalls() != 0 {
			t.Fatal("expected no navigation and no call")
		}
	})

	t.Run("valid token goes to dashboard", func(t *testing.T) {
		h := newHarness(t)
		h.seedToken(t, testEmail, "Ada")
		res, err := h.client.NewSessionGuard().CheckLoginSurface(context.Background())
		if err != nil || !res.Authenticated || res.Navigated != RouteDashboard {
			t.Fatalf("unexpected result %+v / %v", res, err)
		}
		if res.Identity.Email != testEmail {
			t.Fatalf("unexpected identity %+v", res.Identity)
		}
		if !routesEqual(h.nav.Routes(), RouteDashboard) {
			t.Fatalf("unexpected routes %v", h.nav.Routes())
		}
	})

	t.Run("rejected token cleared and stays", func(t *testing.T) {
		h := newHarness(t)
		if err := h.store.Set(context.Background(), "garbage"); err != nil {
			t.Fatal(err)
		}
		_, err := h.client.NewSessionGuard().CheckLoginSurface(context.Background())
		if !errors.Is(err, ErrSessionRejected) {
			t.Fatalf("expected ErrSessionRejected, got %v", err)
		}
		if h.storedToken(t) != "" {
			t.Fatal("expected token cleared")
		}
		if len(h.nav.Routes()) != 0 {
			t.Fatalf("unexpected routes %v", h.nav.Routes())
		}
	})
}

func TestGuardDashboard(t *testing.T) {
	t.Run("no token redirects to login", func(t *testing.T) {
		h := newHarness(t)
		res, err := h.client.NewSessionGuard().CheckDashboard(context.Background())
		if !IsUnauthenticated(err) || res.Navigated != RouteLogin {
			t.Fatalf("unexpected result %+v / %v", res, err)
		}
		if !routesEqual(h.nav.Routes(), RouteLogin) {
			t.Fatalf("unexpected routes %v", h.nav.Routes())
		}
	})

	t.Run("network failure clears and redirects", func(t *testing.T) {
		h := newHarness(t)
		h.seedToken(t, testEmail, "Ada")
		h.srv.Inject(h.paths.VerifyToken, mockapi.Fault{Status: 502, Raw: "upstream down"})
		_, err := h.client.NewSessionGuard().CheckDashboard(context.Background())
		if !errors.Is(err, ErrSessionRejected) || !errors.Is(err, ErrMalformedResponse) {
			t.Fatalf("unexpected error %v", err)
		}
		if h.storedToken(t) != "" || !routesEqual(h.nav.Routes(), RouteLogin) {
			t.Fatal("expected token cleared and redirect to login")
		}
	})

	t.Run("valid token loads preferences", func(t *testing.T) {
		h := newHarness(t)
		h.seedToken(t, testEmail, "Ada")
		if err := h.srv.SetPreferences(testEmail, api.Preferences{
			ShowTemp:          true,
			ShowNotifications: true,
			DarkMode:          true,
			Username:          "ada-l",
		}); err != nil {
			t.Fatal(err)
		}
		res, err := h.client.NewSessionGuard().CheckDashboard(context.Background())
		if err != nil || !res.Authenticated || res.Navigated != "" {
			t.Fatalf("unexpected result %+v / %v", res, err)
		}
		p := res.Identity.Preferences
		if p.TimeZone != DefaultTimeZone || !p.ShowAlerts || p.ShowHumidity || !p.DarkMode {
			t.Fatalf("unexpected preferences %+v", p)
		}
		if res.Identity.DisplayName() != "ada-l" {
			t.Fatalf("unexpected display name %q", res.Identity.DisplayName())
		}
	})

	t.Run("preferences failure keeps defaults", func(t *testing.T) {
		h := newHarness(t)
		h.seedToken(t, testEmail, "Ada")
		h.srv.Inject(h.paths.UserPreferences, mockapi.Fault{Status: 500, Body: map[string]any{"message": "down"}})
		res, err := h.client.NewSessionGuard().CheckDashboard(context.Background())
		if err != nil || !res.Authenticated {
			t.Fatalf("unexpected result %+v / %v", res, err)
		}
		if res.Identity.Preferences != DefaultPreferences() {
			t.Fatalf("expected defaults, got %+v", res.Identity.Preferences)
		}
		if res.Identity.DisplayName() != "user" {
			t.Fatalf("unexpected display name %q", res.Identity.DisplayName())
		}
	})
}

func TestGuardStartDoesNotBlock(t *testing.T) {
	h := newHarness(t)
	h.seedToken(t, testEmail, "Ada")
	g := h.client.NewSessionGuard()

	entered, release := h.hold(h.paths.VerifyToken)
	ch := g.Start(context.Background(), SurfaceLogin)
	waitFor(t, entered)
	if len(h.nav.Routes()) != 0 {
		t.Fatal("navigated before verification resolved")
	}
	release()

	select {
	case res := <-ch:
		if !res.Authenticated || res.Navigated != RouteDashboard {
			t.Fatalf("unexpected result %+v", res)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no result")
	}
	if _, open := <-ch; open {
		t.Fatal("expected channel closed")
	}
}

func TestGuardClosedDoesNotNavigate(t *testing.T) {
	h := newHarness(t)
	h.seedToken(t, testEmail, "Ada")
	g := h.client.NewSessionGuard()

	entered, release := h.hold(h.paths.VerifyToken)
	ch := g.Start(context.Background(), SurfaceLogin)
	waitFor(t, entered)
	g.Close()
	release()

	res := <-ch
	if res.Navigated != "" || len(h.nav.Routes()) != 0 {
		t.Fatalf("closed guard navigated: %+v", res)
	}
}

func TestGuardLogout(t *testing.T) {
	h := newHarness(t)
	h.seedToken(t, testEmail, "Ada")
	g := h.client.NewSessionGuard()

	if err := g.Logout(context.Background()); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if h.storedToken(t) != "" || !routesEqual(h.nav.Routes(), RouteLogin) {
		t.Fatal("expected cleared token and login redirect")
	}
	if got := h.client.MetricsSnapshot().Counters[MetricLogout]; got != 1 {
		t.Fatalf("expected 1 logout, got %d", got)
	}
}

func TestClientClosedRejectsOperations(t *testing.T) {
	h := newHarness(t)
	lc := h.client.NewLoginController()
	if err := h.client.Close(); err != nil {
		t.Fatal(err)
	}
	if err := lc.Login(context.Background(), testEmail, testPassword); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if _, err := h.client.NewSessionGuard().CheckDashboard(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if h.srv.TotalCalls() != 0 {
		t.Fatal("closed client made a call")
	}
}
