package sensorauth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/sensorauth/clock"
	"github.com/MrEthical07/sensorauth/fingerprint"
	"github.com/MrEthical07/sensorauth/internal/mockapi"
	"github.com/MrEthical07/sensorauth/session"
)

const (
	testEmail    = "user@example.com"
	testPassword = "Abcdef12"
)

type recordingNavigator struct {
	mu     sync.Mutex
	routes []Route
}

func (n *recordingNavigator) Navigate(r Route) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.routes = append(n.routes, r)
}

func (n *recordingNavigator) Routes() []Route {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Route, len(n.routes))
	copy(out, n.routes)
	return out
}

// gate holds requests for one path until released. entered receives once per
// held request.
type gate struct {
	path    string
	entered chan struct{}
	release chan struct{}
}

type harness struct {
	srv    *mockapi.Server
	mailer *mockapi.RecordingMailer
	clock  *clock.Fake
	nav    *recordingNavigator
	store  *session.MemoryStore
	client *Client
	paths  Paths

	mu   sync.Mutex
	gate *gate
}

func newHarness(t *testing.T, mutate ...func(*Config)) *harness {
	t.Helper()
	return newHarnessWithSink(t, nil, mutate...)
}

func newHarnessWithSink(t *testing.T, sink AuditSink, mutate ...func(*Config)) *harness {
	t.Helper()

	mailer := &mockapi.RecordingMailer{}
	srv, err := mockapi.New(mockapi.Config{Mailer: mailer})
	if err != nil {
		t.Fatalf("mockapi: %v", err)
	}

	h := &harness{
		srv:    srv,
		mailer: mailer,
		clock:  clock.NewFake(time.Time{}),
		nav:    &recordingNavigator{},
		store:  session.NewMemoryStore(),
		paths:  DefaultPaths(),
	}

	hs := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.mu.Lock()
		g := h.gate
		h.mu.Unlock()
		if g != nil && g.path == r.URL.Path {
			g.entered <- struct{}{}
			<-g.release
		}
		srv.ServeHTTP(w, r)
	}))
	t.Cleanup(hs.Close)

	cfg := DefaultConfig()
	cfg.API.BaseURL = hs.URL
	cfg.API.Timeout = 5 * time.Second
	cfg.Audit.Enabled = true
	for _, m := range mutate {
		m(&cfg)
	}

	b := New().
		WithConfig(cfg).
		WithSessionStore(h.store).
		WithScheduler(h.clock).
		WithNavigator(h.nav).
		WithEnvironment(fingerprint.Static{Agent: "test-agent", Signature: "canvas", Width: 1920, Height: 1080})
	if sink != nil {
		b = b.WithAuditSink(sink)
	}
	client, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	h.client = client
	return h
}

// hold makes requests to path block until the returned release is called.
func (h *harness) hold(path string) (entered <-chan struct{}, release func()) {
	g := &gate{path: path, entered: make(chan struct{}, 4), release: make(chan struct{})}
	h.mu.Lock()
	h.gate = g
	h.mu.Unlock()

	var once sync.Once
	return g.entered, func() {
		once.Do(func() {
			h.mu.Lock()
			h.gate = nil
			h.mu.Unlock()
			close(g.release)
		})
	}
}

func (h *harness) storedToken(t *testing.T) string {
	t.Helper()
	tok, _, err := h.store.Get(context.Background())
	if err != nil {
		t.Fatalf("store get: %v", err)
	}
	return tok
}

func (h *harness) seedToken(t *testing.T, email, name string) string {
	t.Helper()
	if err := h.srv.SeedUser(name, email, testPassword, true); err != nil {
		t.Fatalf("seed: %v", err)
	}
	tok, err := h.srv.Tokens().Issue("user-1", email, name)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := h.store.Set(context.Background(), tok); err != nil {
		t.Fatalf("store set: %v", err)
	}
	return tok
}

func (h *harness) lastCode(t *testing.T, email, purpose string) string {
	t.Helper()
	m, ok := h.mailer.Last(email, purpose)
	if !ok {
		t.Fatalf("no %s mail for %s", purpose, email)
	}
	return m.Code
}

func waitFor(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for request")
	}
}

func routesEqual(got []Route, want ...Route) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range want {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}
