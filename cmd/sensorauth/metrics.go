package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/MrEthical07/sensorauth"
	otelexport "github.com/MrEthical07/sensorauth/metrics/export/otel"
	"github.com/MrEthical07/sensorauth/metrics/export/prometheus"
)

const (
	metricsNone       = ""
	metricsPrometheus = "prometheus"
	metricsOTel       = "otel"
)

func validMetricsFormat(format string) bool {
	switch format {
	case metricsNone, metricsPrometheus, metricsOTel:
		return true
	}
	return false
}

// writeMetrics prints the client's counters and per-endpoint latency in the
// requested format.
func writeMetrics(ctx context.Context, w io.Writer, client *sensorauth.Client, format string) error {
	switch format {
	case metricsNone:
		return nil
	case metricsPrometheus:
		_, err := prometheus.NewPrometheusExporter(client).WriteTo(w)
		return err
	case metricsOTel:
		return writeOTel(ctx, w, client)
	default:
		return fmt.Errorf("unknown metrics format %q", format)
	}
}

// writeOTel runs one manual collection through the OpenTelemetry SDK and
// prints each point as name{attrs} value.
func writeOTel(ctx context.Context, w io.Writer, client *sensorauth.Client) error {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = provider.Shutdown(ctx) }()

	exp, err := otelexport.NewOTelExporter(provider.Meter("sensorauth"), client)
	if err != nil {
		return err
	}
	defer exp.Close()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		return fmt.Errorf("collect metrics: %w", err)
	}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					fmt.Fprintf(w, "%s%s %d\n", m.Name, formatAttrs(dp.Attributes), dp.Value)
				}
			case metricdata.Sum[float64]:
				for _, dp := range data.DataPoints {
					fmt.Fprintf(w, "%s%s %g\n", m.Name, formatAttrs(dp.Attributes), dp.Value)
				}
			}
		}
	}
	return nil
}

func formatAttrs(set attribute.Set) string {
	if set.Len() == 0 {
		return ""
	}
	parts := make([]string, 0, set.Len())
	iter := set.Iter()
	for iter.Next() {
		kv := iter.Attribute()
		parts = append(parts, fmt.Sprintf("%s=%q", kv.Key, kv.Value.Emit()))
	}
	return "{" + strings.Join(parts, ",") + "}"
}

// openAuditLog appends JSON audit lines to path with emails masked. The
// returned close func must run after the client is closed so queued events
// are flushed first.
func openAuditLog(path string) (sensorauth.AuditSink, func() error, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("open audit log: %w", err)
	}
	return sensorauth.NewJSONWriterSink(f, sensorauth.WithMaskedEmails()), f.Close, nil
}

// buildClient wires the client with an optional audit log.
func buildClient(cfg sensorauth.Config, nav sensorauth.Navigator, auditLog string) (*sensorauth.Client, func() error, error) {
	b := sensorauth.New().WithNavigator(nav)
	closeLog := func() error { return nil }
	if auditLog != "" {
		sink, closeFn, err := openAuditLog(auditLog)
		if err != nil {
			return nil, nil, err
		}
		cfg.Audit.Enabled = true
		b.WithAuditSink(sink)
		closeLog = closeFn
	}
	client, err := b.WithConfig(cfg).Build()
	if err != nil {
		_ = closeLog()
		return nil, nil, err
	}
	return client, closeLog, nil
}
