// Package logsink is a MetricsSink that writes sampled observations to
// slog. Encode metrics arrive on the hot path, so routine observations
// are sampled; fallback engagements and zero-length payloads are rarer
// and get their own (usually lower) sampling knobs.
package logsink

import (
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/bincodec"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	ObserveEvery  uint64
	FallbackEvery uint64
}

type Sink struct {
	l    *slog.Logger
	opts Options

	observeCtr  atomic.Uint64
	fallbackCtr atomic.Uint64
}

var _ bincodec.MetricsSink = (*Sink)(nil)

func New(l *slog.Logger, opts Options) *Sink {
	return &Sink{l: l, opts: opts}
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (s *Sink) Observe(m bincodec.Metrics) {
	if s.l == nil {
		return
	}

	switch {
	case m.Fallback:
		if !sample(s.opts.FallbackEvery, &s.fallbackCtr) {
			return
		}
		s.l.Info("bincodec.fallback_engaged",
			"format", m.Format,
			"original_size", m.OriginalSize,
			"encoded_size", m.EncodedSize,
			"elapsed", m.Elapsed)
	case m.ZeroPayload:
		s.l.Warn("bincodec.zero_payload",
			"format", m.Format,
			"original_size", m.OriginalSize)
	default:
		if !sample(s.opts.ObserveEvery, &s.observeCtr) {
			return
		}
		s.l.Debug("bincodec.encode",
			"format", m.Format,
			"original_size", m.OriginalSize,
			"encoded_size", m.EncodedSize,
			"ratio", m.CompressionRatio,
			"elapsed", m.Elapsed)
	}
}
