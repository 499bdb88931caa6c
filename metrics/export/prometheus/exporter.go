package prometheus

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/MrEthical07/sensorauth"
	"github.com/MrEthical07/sensorauth/metrics/export/internaldefs"
)

const contentType = "text/plain; version=0.0.4; charset=utf-8"

type metricsSource interface {
	MetricsSnapshot() sensorauth.MetricsSnapshot
	AuditDropped() uint64
}

// PrometheusExporter renders client metrics in Prometheus text exposition format.
type PrometheusExporter struct {
	source metricsSource
}

// NewPrometheusExporter creates a Prometheus exporter that reads from client.
func NewPrometheusExporter(client *sensorauth.Client) *PrometheusExporter {
	return &PrometheusExporter{source: client}
}

// NewPrometheusExporterFromSource creates a Prometheus exporter from any
// value exposing a snapshot and the audit drop count.
func NewPrometheusExporterFromSource(source metricsSource) *PrometheusExporter {
	return &PrometheusExporter{source: source}
}

// Handler serves the current exposition on every request.
func (p *PrometheusExporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", contentType)
		_, _ = p.WriteTo(w)
	})
}

// Render returns the exposition as a string, or "" when metrics are
// disabled and nothing was dropped.
func (p *PrometheusExporter) Render() string {
	var b strings.Builder
	_, _ = p.WriteTo(&b)
	return b.String()
}

// WriteTo writes the exposition to w. Counters come first in a fixed order,
// then the latency histogram with one series per observed endpoint, then the
// audit drop counter.
func (p *PrometheusExporter) WriteTo(w io.Writer) (int64, error) {
	if p == nil || p.source == nil {
		return 0, nil
	}
	snapshot := p.source.MetricsSnapshot()
	dropped := p.source.AuditDropped()
	if len(snapshot.Counters) == 0 && len(snapshot.Latency) == 0 && dropped == 0 {
		return 0, nil
	}

	tw := &textWriter{w: w}
	for _, def := range internaldefs.CounterDefs {
		tw.family(def.Name, def.Help, "counter")
		tw.sample(def.Name, nil, strconv.FormatUint(snapshot.Counters[def.ID], 10))
	}

	if len(snapshot.Latency) > 0 {
		tw.family(internaldefs.LatencyName, internaldefs.LatencyHelp, "histogram")
		for _, e := range sensorauth.Endpoints() {
			ls, ok := snapshot.Latency[e]
			if !ok {
				continue
			}
			tw.endpointHistogram(e.String(), ls)
		}
	}

	tw.family(internaldefs.AuditDroppedName, internaldefs.AuditDroppedHelp, "counter")
	tw.sample(internaldefs.AuditDroppedName, nil, strconv.FormatUint(dropped, 10))
	return tw.n, tw.err
}

// textWriter tracks the byte count and keeps the first write error.
type textWriter struct {
	w   io.Writer
	n   int64
	err error
}

func (t *textWriter) write(s string) {
	if t.err != nil {
		return
	}
	n, err := io.WriteString(t.w, s)
	t.n += int64(n)
	t.err = err
}

func (t *textWriter) family(name, help, typ string) {
	t.write("# HELP " + name + " " + escapeHelp(help) + "\n")
	t.write("# TYPE " + name + " " + typ + "\n")
}

// sample writes one line. labels alternate key and value.
func (t *textWriter) sample(name string, labels []string, value string) {
	var b strings.Builder
	b.WriteString(name)
	if len(labels) > 0 {
		b.WriteByte('{')
		for i := 0; i+1 < len(labels); i += 2 {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(labels[i])
			b.WriteString(`="`)
			b.WriteString(escapeLabel(labels[i+1]))
			b.WriteByte('"')
		}
		b.WriteByte('}')
	}
	b.WriteByte(' ')
	b.WriteString(value)
	b.WriteByte('\n')
	t.write(b.String())
}

func (t *textWriter) endpointHistogram(endpoint string, ls sensorauth.LatencySnapshot) {
	name := internaldefs.LatencyName
	cumulative := internaldefs.CumulativeBuckets(ls)
	for i, le := range internaldefs.HistogramBounds {
		t.sample(name+"_bucket",
			[]string{internaldefs.EndpointLabel, endpoint, internaldefs.BucketLabel, le},
			strconv.FormatUint(cumulative[i], 10))
	}
	labels := []string{internaldefs.EndpointLabel, endpoint}
	t.sample(name+"_sum", labels, internaldefs.FormatSeconds(ls.Sum))
	t.sample(name+"_count", labels, strconv.FormatUint(cumulative[len(cumulative)-1], 10))
}

func escapeHelp(help string) string {
	help = strings.ReplaceAll(help, `\`, `\\`)
	return strings.ReplaceAll(help, "\n", `\n`)
}

func escapeLabel(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `"`, `\"`)
	return strings.ReplaceAll(v, "\n", `\n`)
}
