package otel

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/MrEthical07/sensorauth"
	"github.com/MrEthical07/sensorauth/metrics/export/internaldefs"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

type metricsSource interface {
	MetricsSnapshot() sensorauth.MetricsSnapshot
	AuditDropped() uint64
}

type observedCounter struct {
	id         sensorauth.MetricID
	instrument metric.Int64ObservableCounter
}

// endpointSeries holds the precomputed attribute sets for one endpoint so a
// collection allocates nothing per series.
type endpointSeries struct {
	endpoint sensorauth.Endpoint
	series   metric.ObserveOption
	buckets  []metric.ObserveOption
}

// OTelExporter publishes client metrics as observable instruments on a
// caller-supplied meter. Request latency is reported as three cumulative
// instruments (bucket, sum, count) carrying an endpoint attribute; bucket
// points also carry le.
type OTelExporter struct {
	source       metricsSource
	registration metric.Registration

	counters     []observedCounter
	endpoints    []endpointSeries
	latencyBkt   metric.Int64ObservableCounter
	latencySum   metric.Float64ObservableCounter
	latencyCount metric.Int64ObservableCounter
	auditDropped metric.Int64ObservableCounter
}

// NewOTelExporter reads from client on every collection.
func NewOTelExporter(meter metric.Meter, client *sensorauth.Client) (*OTelExporter, error) {
	if client == nil {
		return nil, ErrNilSource
	}
	return NewOTelExporterFromSource(meter, client)
}

// NewOTelExporterFromSource registers one callback that reads a snapshot
// from source on every collection.
func NewOTelExporterFromSource(meter metric.Meter, source metricsSource) (*OTelExporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &OTelExporter{source: source}
	observables := make([]metric.Observable, 0, len(internaldefs.CounterDefs)+4)

	for _, def := range internaldefs.CounterDefs {
		ins, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("create counter %s: %w", def.Name, err)
		}
		e.counters = append(e.counters, observedCounter{id: def.ID, instrument: ins})
		observables = append(observables, ins)
	}

	var err error
	name := internaldefs.LatencyName
	if e.latencyBkt, err = meter.Int64ObservableCounter(name+"_bucket",
		metric.WithDescription(internaldefs.LatencyHelp+" Cumulative count per upper bound.")); err != nil {
		return nil, fmt.Errorf("create %s_bucket: %w", name, err)
	}
	if e.latencySum, err = meter.Float64ObservableCounter(name+"_sum",
		metric.WithDescription(internaldefs.LatencyHelp+" Total seconds."), metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("create %s_sum: %w", name, err)
	}
	if e.latencyCount, err = meter.Int64ObservableCounter(name+"_count",
		metric.WithDescription(internaldefs.LatencyHelp+" Round trips.")); err != nil {
		return nil, fmt.Errorf("create %s_count: %w", name, err)
	}
	if e.auditDropped, err = meter.Int64ObservableCounter(internaldefs.AuditDroppedName,
		metric.WithDescription(internaldefs.AuditDroppedHelp)); err != nil {
		return nil, fmt.Errorf("create %s: %w", internaldefs.AuditDroppedName, err)
	}
	observables = append(observables, e.latencyBkt, e.latencySum, e.latencyCount, e.auditDropped)

	for _, ep := range sensorauth.Endpoints() {
		label := attribute.String(internaldefs.EndpointLabel, ep.String())
		s := endpointSeries{
			endpoint: ep,
			series:   metric.WithAttributeSet(attribute.NewSet(label)),
			buckets:  make([]metric.ObserveOption, len(internaldefs.HistogramBounds)),
		}
		for i, le := range internaldefs.HistogramBounds {
			s.buckets[i] = metric.WithAttributeSet(attribute.NewSet(label, attribute.String(internaldefs.BucketLabel, le)))
		}
		e.endpoints = append(e.endpoints, s)
	}

	e.registration, err = meter.RegisterCallback(e.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	return e, nil
}

func (e *OTelExporter) observe(_ context.Context, o metric.Observer) error {
	snapshot := e.source.MetricsSnapshot()
	for _, c := range e.counters {
		o.ObserveInt64(c.instrument, int64(snapshot.Counters[c.id]))
	}
	for _, s := range e.endpoints {
		ls, ok := snapshot.Latency[s.endpoint]
		if !ok {
			continue
		}
		cumulative := internaldefs.CumulativeBuckets(ls)
		for i, opt := range s.buckets {
			o.ObserveInt64(e.latencyBkt, int64(cumulative[i]), opt)
		}
		o.ObserveFloat64(e.latencySum, ls.Sum.Seconds(), s.series)
		o.ObserveInt64(e.latencyCount, int64(cumulative[len(cumulative)-1]), s.series)
	}
	o.ObserveInt64(e.auditDropped, int64(e.source.AuditDropped()))
	return nil
}

// Close unregisters the collection callback.
func (e *OTelExporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
