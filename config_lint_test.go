package sensorauth

import (
	"testing"
	"time"
)

func TestLint_DefaultConfigNoHighWarnings(t *testing.T) {
	// Defaults target a local backend with an in-memory session, so only
	// informational findings are expected.
	cfg := DefaultConfig()
	ws := cfg.Lint()

	if high := ws.BySeverity(LintWarn); len(high) != 0 {
		t.Fatalf("unexpected warnings: %v", high.Codes())
	}
	codes := ws.Codes()
	if !containsCode(codes, "session_memory") || !containsCode(codes, "audit_disabled") {
		t.Fatalf("expected informational findings, got %v", codes)
	}
}

func TestLint_PlaintextRemoteBaseURL(t *testing.T) {
	cfg := DefaultConfig()
	cfg.API.BaseURL = "http://sensors.example.com"
	if !containsCode(cfg.Lint().Codes(), "base_url_plaintext") {
		t.Error("expected base_url_plaintext warning")
	}

	for _, base := range []string{"https://sensors.example.com", "http://127.0.0.1:3000", "http://[::1]:3000"} {
		cfg.API.BaseURL = base
		if containsCode(cfg.Lint().Codes(), "base_url_plaintext") {
			t.Errorf("%s: unexpected base_url_plaintext warning", base)
		}
	}
}

func TestLint_ShortCooldown(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Cooldown.ResendSeconds = 10
	if !containsCode(cfg.Lint().Codes(), "resend_cooldown_short") {
		t.Error("expected resend_cooldown_short warning")
	}
}

func TestLint_RedisWithoutTTL(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Session.Backend = SessionBackendRedis
	cfg.Session.RedisAddr = "localhost:6379"
	codes := cfg.Lint().Codes()
	if !containsCode(codes, "redis_ttl_unbounded") {
		t.Error("expected redis_ttl_unbounded warning")
	}
	if containsCode(codes, "session_memory") {
		t.Error("session_memory should not fire for redis")
	}

	cfg.Session.RedisTTL = 24 * time.Hour
	if containsCode(cfg.Lint().Codes(), "redis_ttl_unbounded") {
		t.Error("unexpected redis_ttl_unbounded with a TTL")
	}
}

func TestLint_AuditBlocking(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Audit.Enabled = true
	cfg.Audit.DropIfFull = false
	codes := cfg.Lint().Codes()
	if !containsCode(codes, "audit_blocking") || containsCode(codes, "audit_disabled") {
		t.Errorf("unexpected codes %v", codes)
	}
}

func TestLint_AsError(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Lint().AsError(LintHigh); err != nil {
		t.Errorf("default config should not fail AsError(LintHigh): %v", err)
	}

	cfg.API.BaseURL = "http://10.0.0.8"
	if err := cfg.Lint().AsError(LintHigh); err == nil {
		t.Error("expected AsError(LintHigh) to fail for plaintext remote backend")
	}
}

func TestLint_SeverityString(t *testing.T) {
	for sev, want := range map[LintSeverity]string{LintInfo: "INFO", LintWarn: "WARN", LintHigh: "HIGH", 9: "UNKNOWN"} {
		if got := sev.String(); got != want {
			t.Errorf("%d: expected %s, got %s", sev, want, got)
		}
	}
}

// helpers

func containsCode(codes []string, code string) bool {
	for _, c := range codes {
		if c == code {
			return true
		}
	}
	return false
}
