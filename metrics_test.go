package sensorauth

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestMetricsDisabledNoIncrement(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false})
	m.Inc(MetricLoginSuccess)

	if got := m.Value(MetricLoginSuccess); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
	if snap := m.Snapshot(); len(snap.Counters) != 0 {
		t.Fatalf("expected empty snapshot, got %v", snap.Counters)
	}
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.Inc(MetricLogout)
	m.ObserveLatency(EndpointLogin, time.Second)
	if m.Value(MetricLogout) != 0 || m.Enabled() {
		t.Fatal("expected nil metrics to record nothing")
	}
}

func TestMetricsConcurrentIncrementSafe(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const goroutines = 32
	const perG = 4000

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perG; j++ {
				m.Inc(MetricDuplicateSuppressed)
			}
		}()
	}
	wg.Wait()

	want := uint64(goroutines * perG)
	if got := m.Value(MetricDuplicateSuppressed); got != want {
		t.Fatalf("expected %d, got %d", want, got)
	}
}

func TestMetricsHistogramBucketCorrectness(t *testing.T) {
	m := NewMetrics(MetricsConfig{
		Enabled:                 true,
		EnableLatencyHistograms: true,
	})

	observations := []time.Duration{
		10 * time.Millisecond,   // 0
		50 * time.Millisecond,   // 0
		80 * time.Millisecond,   // 1
		200 * time.Millisecond,  // 2
		400 * time.Millisecond,  // 3
		900 * time.Millisecond,  // 4
		2 * time.Second,         // 5
		4 * time.Second,         // 6
		30 * time.Second,        // 7
		1500 * time.Millisecond, // 5
	}
	var sum time.Duration
	for _, d := range observations {
		m.ObserveLatency(EndpointLogin, d)
		sum += d
	}

	snap := m.Snapshot()
	got, ok := snap.Latency[EndpointLogin]
	if !ok {
		t.Fatal("expected login latency")
	}
	want := []uint64{2, 1, 1, 1, 1, 2, 1, 1}
	if len(got.Buckets) != len(want) {
		t.Fatalf("expected %d buckets, got %d", len(want), len(got.Buckets))
	}
	for i := range want {
		if got.Buckets[i] != want[i] {
			t.Fatalf("bucket %d: expected %d, got %d", i, want[i], got.Buckets[i])
		}
	}
	if got.Count != uint64(len(observations)) || got.Sum != sum {
		t.Fatalf("expected count %d sum %s, got %d %s", len(observations), sum, got.Count, got.Sum)
	}
	if _, ok := snap.Latency[EndpointSignup]; ok {
		t.Fatal("unobserved endpoint should be absent")
	}
}

func TestMetricsLatencyPerEndpoint(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})
	m.ObserveLatency(EndpointVerifyToken, 20*time.Millisecond)
	m.ObserveLatency(EndpointVerifyToken, 300*time.Millisecond)
	m.ObserveLatency(EndpointUserPreferences, 3*time.Second)
	m.ObserveLatency(Endpoint(200), time.Second)

	snap := m.Snapshot()
	if len(snap.Latency) != 2 {
		t.Fatalf("expected two endpoints, got %v", snap.Latency)
	}
	if v := snap.Latency[EndpointVerifyToken]; v.Count != 2 || v.Buckets[0] != 1 || v.Buckets[3] != 1 {
		t.Fatalf("unexpected verify_token histogram %+v", v)
	}
	if v := snap.Latency[EndpointUserPreferences]; v.Count != 1 || v.Buckets[6] != 1 {
		t.Fatalf("unexpected user_preferences histogram %+v", v)
	}
}

func TestMetricsLatencyDisabledByDefault(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	m.ObserveLatency(EndpointLogin, time.Millisecond)
	if len(m.Snapshot().Latency) != 0 {
		t.Fatal("expected no histogram when latency disabled")
	}
}

func TestClientRecordsLatencyByEndpoint(t *testing.T) {
	h := newHarness(t, func(cfg *Config) {
		cfg.Metrics.Enabled = true
		cfg.Metrics.EnableLatencyHistograms = true
	})
	if err := h.srv.SeedUser("Ada", testEmail, testPassword, true); err != nil {
		t.Fatal(err)
	}

	_ = h.client.NewLoginController().Login(context.Background(), testEmail, "Wrongpass1")
	_ = h.client.NewLoginController().Login(context.Background(), testEmail, testPassword)

	snap := h.client.MetricsSnapshot()
	if got := snap.Latency[EndpointLogin].Count; got != 2 {
		t.Fatalf("expected 2 login round trips, got %d", got)
	}
	if _, ok := snap.Latency[EndpointSignup]; ok {
		t.Fatal("signup was never called")
	}
}
