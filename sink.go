package bincodec

// MetricsSink receives one Metrics per encode call for aggregation or
// export. Implementations MUST be cheap and non-blocking; the codec
// calls Observe on the encode hot path. Wrap slow sinks with
// sink/asyncsink. The codec only produces metrics; it never stores or
// aggregates them.
type MetricsSink interface {
	Observe(m Metrics)
}

// NopSink is the default no-op.
type NopSink struct{}

func (NopSink) Observe(Metrics) {}
