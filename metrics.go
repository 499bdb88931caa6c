package sensorauth

import (
	"sync/atomic"
	"time"

	"github.com/MrEthical07/sensorauth/internal/api"
)

// MetricID identifies one client counter or histogram.
type MetricID uint16

const (
	MetricSessionValid MetricID = iota
	MetricSessionRejected
	MetricLoginSuccess
	MetricLoginFailure
	// MetricVerificationRequired counts login failures that revealed the
	// resend-verification action.
	MetricVerificationRequired
	MetricVerificationResent
	MetricSignupChallengeIssued
	MetricSignupVerified
	MetricSignupVerifyFailure
	MetricResetRequested
	MetricResetSuccess
	MetricResetFailure
	// MetricLocalValidationFailure counts submissions rejected before any
	// network call.
	MetricLocalValidationFailure
	// MetricDuplicateSuppressed counts calls refused because the same
	// operation was already in flight.
	MetricDuplicateSuppressed
	MetricCooldownRejected
	MetricNetworkFailure
	MetricLogout
	metricIDCount
)

// Endpoint names a backend exchange in latency metrics. Its String form is
// the value of the endpoint label.
type Endpoint = api.Endpoint

const (
	EndpointVerifyToken        = api.EndpointVerifyToken
	EndpointLogin              = api.EndpointLogin
	EndpointSignup             = api.EndpointSignup
	EndpointSignupVerify       = api.EndpointSignupVerify
	EndpointForgotPassword     = api.EndpointForgotPassword
	EndpointResetPassword      = api.EndpointResetPassword
	EndpointResendVerification = api.EndpointResendVerification
	EndpointGoogleAuth         = api.EndpointGoogleAuth
	EndpointUserPreferences    = api.EndpointUserPreferences
)

// Endpoints lists every backend exchange in label order.
func Endpoints() []Endpoint {
	out := make([]Endpoint, 0, api.EndpointCount)
	for e := Endpoint(0); e < api.EndpointCount; e++ {
		out = append(out, e)
	}
	return out
}

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

// latencyHistogram keeps one endpoint's round trips. sumNanos lets exporters
// report a real _sum next to the bucket counts.
type latencyHistogram struct {
	buckets  [histBucketCount]uint64
	sumNanos uint64
	_        [cacheLineSize - 8]byte
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics is a fixed set of lock-free counters plus one latency histogram
// per backend endpoint. A nil *Metrics is valid and records nothing.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	latency       [api.EndpointCount]latencyHistogram
}

// LatencySnapshot is one endpoint's histogram. Buckets are per-bucket counts
// in LatencyBucketBounds order, not cumulative.
type LatencySnapshot struct {
	Buckets []uint64
	Count   uint64
	Sum     time.Duration
}

// MetricsSnapshot is a point-in-time copy of every counter and, when latency
// histograms are enabled, of each endpoint that has seen at least one
// response.
type MetricsSnapshot struct {
	Counters map[MetricID]uint64
	Latency  map[Endpoint]LatencySnapshot
}

func emptySnapshot() MetricsSnapshot {
	return MetricsSnapshot{
		Counters: map[MetricID]uint64{},
		Latency:  map[Endpoint]LatencySnapshot{},
	}
}

func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// ObserveLatency records one round trip to e.
func (m *Metrics) ObserveLatency(e Endpoint, d time.Duration) {
	if m == nil || !m.enableLatency || e >= api.EndpointCount {
		return
	}
	if d < 0 {
		d = 0
	}
	h := &m.latency[e]
	atomic.AddUint64(&h.buckets[bucketIndex(d)], 1)
	atomic.AddUint64(&h.sumNanos, uint64(d))
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return emptySnapshot()
	}

	s := MetricsSnapshot{
		Counters: make(map[MetricID]uint64, int(metricIDCount)),
		Latency:  map[Endpoint]LatencySnapshot{},
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}
	if !m.enableLatency {
		return s
	}

	for e := Endpoint(0); e < api.EndpointCount; e++ {
		h := &m.latency[e]
		ls := LatencySnapshot{Buckets: make([]uint64, histBucketCount)}
		for i := range ls.Buckets {
			ls.Buckets[i] = atomic.LoadUint64(&h.buckets[i])
			ls.Count += ls.Buckets[i]
		}
		if ls.Count == 0 {
			continue
		}
		ls.Sum = time.Duration(atomic.LoadUint64(&h.sumNanos))
		s.Latency[e] = ls
	}
	return s
}

// LatencyBucketBounds returns the inclusive upper bound of each histogram
// bucket. The last bucket is unbounded and reported as 0.
func LatencyBucketBounds() [histBucketCount]time.Duration {
	return [histBucketCount]time.Duration{
		50 * time.Millisecond,
		100 * time.Millisecond,
		250 * time.Millisecond,
		500 * time.Millisecond,
		time.Second,
		2500 * time.Millisecond,
		5 * time.Second,
		0,
	}
}

// Buckets are sized for backend round trips rather than in-process work.
func bucketIndex(d time.Duration) int {
	bounds := LatencyBucketBounds()
	for i, b := range bounds[:histBucketCount-1] {
		if d <= b {
			return i
		}
	}
	return histBucketCount - 1
}
