package sensorauth

import (
	"errors"
	"net"
	"net/url"
	"strings"
	"time"
)

// LintSeverity ranks a configuration warning.
type LintSeverity uint8

const (
	LintInfo LintSeverity = iota
	LintWarn
	LintHigh
)

func (s LintSeverity) String() string {
	switch s {
	case LintInfo:
		return "INFO"
	case LintWarn:
		return "WARN"
	case LintHigh:
		return "HIGH"
	default:
		return "UNKNOWN"
	}
}

// LintWarning is one finding. Code is stable and safe to match on.
type LintWarning struct {
	Code     string
	Severity LintSeverity
	Message  string
}

// LintResult is the ordered list of findings for a Config.
type LintResult []LintWarning

func (ws LintResult) Codes() []string {
	out := make([]string, len(ws))
	for i, w := range ws {
		out[i] = w.Code
	}
	return out
}

// BySeverity returns the warnings at or above min.
func (ws LintResult) BySeverity(min LintSeverity) LintResult {
	var out LintResult
	for _, w := range ws {
		if w.Severity >= min {
			out = append(out, w)
		}
	}
	return out
}

// AsError joins every warning at or above min into one error, or returns nil.
func (ws LintResult) AsError(min LintSeverity) error {
	var errs []error
	for _, w := range ws.BySeverity(min) {
		errs = append(errs, errors.New(w.Severity.String()+" "+w.Code+": "+w.Message))
	}
	return errors.Join(errs...)
}

// Lint reports settings that are valid but likely unintended. It never
// fails; Validate decides what is rejected.
func (c *Config) Lint() LintResult {
	var ws LintResult
	add := func(code string, sev LintSeverity, msg string) {
		ws = append(ws, LintWarning{Code: code, Severity: sev, Message: msg})
	}

	if u, err := url.Parse(c.API.BaseURL); err == nil && u.Scheme == "http" && !isLoopbackHost(u.Hostname()) {
		add("base_url_plaintext", LintHigh, "credentials and OTPs are sent over plain http to a non-loopback host")
	}
	if c.API.Timeout > time.Minute {
		add("api_timeout_long", LintWarn, "requests may hold the in-flight guard for over a minute")
	}

	switch c.Session.Backend {
	case "", SessionBackendMemory:
		add("session_memory", LintInfo, "the session token is lost when the process exits")
	case SessionBackendRedis:
		if c.Session.RedisTTL == 0 {
			add("redis_ttl_unbounded", LintWarn, "stored session tokens never expire from redis")
		}
	}

	if time.Duration(c.Cooldown.ResendSeconds)*c.Cooldown.Tick < 30*time.Second {
		add("resend_cooldown_short", LintWarn, "OTP resend cooldown is under 30 seconds")
	}
	if c.Timing.RedirectDelay == 0 {
		add("redirect_delay_zero", LintInfo, "the success message is replaced by navigation immediately")
	}

	if !c.Audit.Enabled {
		add("audit_disabled", LintInfo, "authentication events are not recorded")
	} else if !c.Audit.DropIfFull {
		add("audit_blocking", LintWarn, "a slow audit sink delays every controller operation")
	}
	return ws
}

func isLoopbackHost(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
