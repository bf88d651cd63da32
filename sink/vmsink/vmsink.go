// Package vmsink exports codec metrics through VictoriaMetrics/metrics.
// Counters and histograms are registered in the default set; expose
// them with metrics.WritePrometheus (transport/httpapi does this on
// GET /metrics).
package vmsink

import (
	"fmt"

	"github.com/VictoriaMetrics/metrics"
	"github.com/unkn0wn-root/bincodec"
)

type Sink struct {
	prefix string
}

var _ bincodec.MetricsSink = (*Sink)(nil)

// New creates a sink whose series are prefixed with the given name,
// e.g. prefix "events" yields bincodec_encodes_total{codec="events",...}.
func New(prefix string) *Sink {
	return &Sink{prefix: prefix}
}

func (s *Sink) Observe(m bincodec.Metrics) {
	labels := fmt.Sprintf(`codec=%q,format=%q,fallback=%q`, s.prefix, m.Format, boolLabel(m.Fallback))

	metrics.GetOrCreateCounter(fmt.Sprintf(`bincodec_encodes_total{%s}`, labels)).Inc()
	metrics.GetOrCreateCounter(fmt.Sprintf(`bincodec_encoded_bytes_total{%s}`, labels)).Add(m.EncodedSize)
	metrics.GetOrCreateCounter(fmt.Sprintf(`bincodec_original_bytes_total{%s}`, labels)).Add(m.OriginalSize)
	metrics.GetOrCreateHistogram(fmt.Sprintf(`bincodec_encode_duration_seconds{%s}`, labels)).Update(m.Elapsed.Seconds())
	if m.ZeroPayload {
		metrics.GetOrCreateCounter(fmt.Sprintf(`bincodec_zero_payloads_total{%s}`, labels)).Inc()
		return
	}
	metrics.GetOrCreateHistogram(fmt.Sprintf(`bincodec_compression_ratio{%s}`, labels)).Update(m.CompressionRatio)
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
