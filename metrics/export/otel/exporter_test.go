package otel

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/MrEthical07/sensorauth"
)

type fakeSource struct {
	mu       sync.RWMutex
	snapshot sensorauth.MetricsSnapshot
	dropped  uint64
}

func (f *fakeSource) MetricsSnapshot() sensorauth.MetricsSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := sensorauth.MetricsSnapshot{
		Counters: make(map[sensorauth.MetricID]uint64, len(f.snapshot.Counters)),
		Latency:  make(map[sensorauth.Endpoint]sensorauth.LatencySnapshot, len(f.snapshot.Latency)),
	}
	for k, v := range f.snapshot.Counters {
		out.Counters[k] = v
	}
	for k, ls := range f.snapshot.Latency {
		ls.Buckets = append([]uint64(nil), ls.Buckets...)
		out.Latency[k] = ls
	}
	return out
}

func (f *fakeSource) AuditDropped() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.dropped
}

func sumFor(rm metricdata.ResourceMetrics, name string) (int64, bool) {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok && len(sum.DataPoints) > 0 {
				return sum.DataPoints[0].Value, true
			}
		}
	}
	return 0, false
}

// pointFor returns the int64 sum point of name whose attributes include
// every key/value in want.
func pointFor(rm metricdata.ResourceMetrics, name string, want map[string]string) (int64, bool) {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				return 0, false
			}
			for _, dp := range sum.DataPoints {
				if hasAttrs(dp.Attributes, want) {
					return dp.Value, true
				}
			}
		}
	}
	return 0, false
}

func floatPointFor(rm metricdata.ResourceMetrics, name string, want map[string]string) (float64, bool) {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[float64])
			if !ok {
				return 0, false
			}
			for _, dp := range sum.DataPoints {
				if hasAttrs(dp.Attributes, want) {
					return dp.Value, true
				}
			}
		}
	}
	return 0, false
}

func hasAttrs(set attribute.Set, want map[string]string) bool {
	for k, v := range want {
		got, ok := set.Value(attribute.Key(k))
		if !ok || got.AsString() != v {
			return false
		}
	}
	return true
}

func TestExporterRegistersAndCollects(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter("sensorauth-test")

	src := &fakeSource{
		snapshot: sensorauth.MetricsSnapshot{
			Counters: map[sensorauth.MetricID]uint64{
				sensorauth.MetricLoginSuccess: 3,
			},
			Latency: map[sensorauth.Endpoint]sensorauth.LatencySnapshot{
				sensorauth.EndpointLogin: {Buckets: []uint64{1, 1, 1, 1, 1, 1, 1, 1}, Count: 8, Sum: 1500 * time.Millisecond},
			},
		},
		dropped: 1,
	}

	exp, err := NewOTelExporterFromSource(meter, src)
	if err != nil {
		t.Fatalf("NewOTelExporterFromSource failed: %v", err)
	}
	defer func() {
		if err := exp.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if v, ok := sumFor(rm, "sensorauth_login_success_total"); !ok || v != 3 {
		t.Fatalf("expected login success 3, got %d (found=%v)", v, ok)
	}
	if v, ok := sumFor(rm, "sensorauth_audit_dropped_total"); !ok || v != 1 {
		t.Fatalf("expected audit dropped 1, got %d (found=%v)", v, ok)
	}

	login := map[string]string{"endpoint": "login"}
	if v, ok := pointFor(rm, "sensorauth_request_latency_seconds_count", login); !ok || v != 8 {
		t.Fatalf("expected login count 8, got %d (found=%v)", v, ok)
	}
	if v, ok := floatPointFor(rm, "sensorauth_request_latency_seconds_sum", login); !ok || v != 1.5 {
		t.Fatalf("expected login sum 1.5, got %v (found=%v)", v, ok)
	}
	if v, ok := pointFor(rm, "sensorauth_request_latency_seconds_bucket", map[string]string{"endpoint": "login", "le": "0.25"}); !ok || v != 3 {
		t.Fatalf("expected cumulative 3 at le=0.25, got %d (found=%v)", v, ok)
	}
	if _, ok := pointFor(rm, "sensorauth_request_latency_seconds_count", map[string]string{"endpoint": "signup"}); ok {
		t.Fatal("unobserved endpoint exported")
	}
}

func TestExporterRejectsNilInputs(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter("sensorauth-test")

	if _, err := NewOTelExporterFromSource(meter, nil); err != ErrNilSource {
		t.Fatalf("expected ErrNilSource, got %v", err)
	}
	if _, err := NewOTelExporter(meter, nil); err != ErrNilSource {
		t.Fatalf("expected ErrNilSource for nil client, got %v", err)
	}
	if _, err := NewOTelExporterFromSource(nil, &fakeSource{}); err != ErrNilMeter {
		t.Fatalf("expected ErrNilMeter, got %v", err)
	}
}

func TestExporterReadsClient(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	client, err := sensorauth.New().Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer client.Close()
	_ = client.NewSignupController().Submit(context.Background(), sensorauth.SignupForm{Name: "A"})

	exp, err := NewOTelExporter(provider.Meter("sensorauth-test"), client)
	if err != nil {
		t.Fatal(err)
	}
	defer exp.Close()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatal(err)
	}
	if v, _ := sumFor(rm, "sensorauth_local_validation_failure_total"); v != 1 {
		t.Fatalf("expected 1 local validation failure, got %d", v)
	}
}

func TestExporterConcurrentCollectNoPanic(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter("sensorauth-test")

	src := &fakeSource{
		snapshot: sensorauth.MetricsSnapshot{
			Counters: map[sensorauth.MetricID]uint64{
				sensorauth.MetricLoginSuccess: 1,
			},
			Latency: map[sensorauth.Endpoint]sensorauth.LatencySnapshot{
				sensorauth.EndpointVerifyToken: {Buckets: []uint64{1}, Count: 1, Sum: 20 * time.Millisecond},
			},
		},
	}

	exp, err := NewOTelExporterFromSource(meter, src)
	if err != nil {
		t.Fatalf("NewOTelExporterFromSource failed: %v", err)
	}
	defer func() {
		if err := exp.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(v uint64) {
			defer wg.Done()
			src.mu.Lock()
			src.snapshot.Counters[sensorauth.MetricLoginSuccess] = v
			src.mu.Unlock()

			var rm metricdata.ResourceMetrics
			_ = reader.Collect(context.Background(), &rm)
		}(uint64(i + 1))
	}
	wg.Wait()
}
