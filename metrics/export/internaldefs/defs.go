package internaldefs

import (
	"strconv"
	"time"

	"github.com/MrEthical07/sensorauth"
)

// CounterDef names one client counter for every exporter.
type CounterDef struct {
	ID   sensorauth.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in rendering order.
var CounterDefs = []CounterDef{
	{ID: sensorauth.MetricSessionValid, Name: "sensorauth_session_valid_total", Help: "Session checks whose stored token verified."},
	{ID: sensorauth.MetricSessionRejected, Name: "sensorauth_session_rejected_total", Help: "Session checks that cleared the stored token."},
	{ID: sensorauth.MetricLoginSuccess, Name: "sensorauth_login_success_total", Help: "Logins that persisted a session token."},
	{ID: sensorauth.MetricLoginFailure, Name: "sensorauth_login_failure_total", Help: "Logins rejected by the backend or the network."},
	{ID: sensorauth.MetricVerificationRequired, Name: "sensorauth_verification_required_total", Help: "Login failures that revealed the resend-verification action."},
	{ID: sensorauth.MetricVerificationResent, Name: "sensorauth_verification_resent_total", Help: "Verification emails resent."},
	{ID: sensorauth.MetricSignupChallengeIssued, Name: "sensorauth_signup_challenge_issued_total", Help: "Signup OTP challenges issued or reissued."},
	{ID: sensorauth.MetricSignupVerified, Name: "sensorauth_signup_verified_total", Help: "Signup OTP confirmations accepted."},
	{ID: sensorauth.MetricSignupVerifyFailure, Name: "sensorauth_signup_verify_failure_total", Help: "Signup OTP confirmations rejected."},
	{ID: sensorauth.MetricResetRequested, Name: "sensorauth_reset_requested_total", Help: "Password reset codes sent."},
	{ID: sensorauth.MetricResetSuccess, Name: "sensorauth_reset_success_total", Help: "Password resets completed."},
	{ID: sensorauth.MetricResetFailure, Name: "sensorauth_reset_failure_total", Help: "Password reset requests or confirmations rejected."},
	{ID: sensorauth.MetricLocalValidationFailure, Name: "sensorauth_local_validation_failure_total", Help: "Submissions rejected before any network call."},
	{ID: sensorauth.MetricDuplicateSuppressed, Name: "sensorauth_duplicate_suppressed_total", Help: "Submissions refused while the same operation was in flight."},
	{ID: sensorauth.MetricCooldownRejected, Name: "sensorauth_cooldown_rejected_total", Help: "OTP resends refused during the cooldown."},
	{ID: sensorauth.MetricNetworkFailure, Name: "sensorauth_network_failure_total", Help: "Backend calls that failed to connect or returned an unreadable body."},
	{ID: sensorauth.MetricLogout, Name: "sensorauth_logout_total", Help: "Logout operations."},
}

// LatencyName is the per-endpoint round-trip histogram.
const (
	LatencyName   = "sensorauth_request_latency_seconds"
	LatencyHelp   = "Backend round-trip latency by endpoint."
	EndpointLabel = "endpoint"
	BucketLabel   = "le"
)

// AuditDroppedName counts events the audit dispatcher discarded.
const (
	AuditDroppedName = "sensorauth_audit_dropped_total"
	AuditDroppedHelp = "Audit events dropped by the dispatcher."
)

// HistogramBounds are the le label values of the latency buckets, derived
// from sensorauth.LatencyBucketBounds.
var HistogramBounds = boundLabels()

func boundLabels() []string {
	bounds := sensorauth.LatencyBucketBounds()
	out := make([]string, len(bounds))
	for i, b := range bounds {
		if b == 0 {
			out[i] = "+Inf"
			continue
		}
		out[i] = FormatSeconds(b)
	}
	return out
}

// FormatSeconds renders d in seconds with no trailing zeros.
func FormatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'g', -1, 64)
}

// CumulativeBuckets turns an endpoint's per-bucket counts into the running
// totals both exposition formats expect. Missing buckets count as zero.
func CumulativeBuckets(ls sensorauth.LatencySnapshot) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(out); i++ {
		if i < len(ls.Buckets) {
			running += ls.Buckets[i]
		}
		out[i] = running
	}
	return out
}
