package bincodec

import "time"

// Metrics is the per-call record of one encode. Immutable snapshot;
// the codec only produces it, aggregation belongs to a MetricsSink.
type Metrics struct {
	// OriginalSize is the length of the canonical textual (JSON)
	// serialization of the input, regardless of the active format.
	// A comparison baseline, not the true in-memory size.
	OriginalSize int
	// EncodedSize is the length of the returned wire bytes.
	EncodedSize int
	// CompressionRatio is OriginalSize/EncodedSize. Exactly 1.0 when
	// the sizes match or the fallback path produced the bytes; 0.0 with
	// ZeroPayload set when EncodedSize is 0.
	CompressionRatio float64
	// Elapsed is the wall time of the whole encode call.
	Elapsed time.Duration

	// Format names the representation that actually produced the bytes.
	Format string
	// Fallback is set when the Text fallback produced the bytes.
	Fallback bool
	// ZeroPayload flags an empty encoding of a non-empty value; the
	// ratio is reported as 0.0 instead of dividing by zero.
	ZeroPayload bool
}

func computeMetrics(originalSize, encodedSize int, start, end time.Time, formatName string, fallback bool) Metrics {
	m := Metrics{
		OriginalSize: originalSize,
		EncodedSize:  encodedSize,
		Elapsed:      end.Sub(start),
		Format:       formatName,
		Fallback:     fallback,
	}
	switch {
	case fallback:
		// no compression claimed for the fallback path
		m.CompressionRatio = 1.0
	case encodedSize == 0 && originalSize > 0:
		m.CompressionRatio = 0.0
		m.ZeroPayload = true
	case encodedSize == originalSize:
		m.CompressionRatio = 1.0
	default:
		m.CompressionRatio = float64(originalSize) / float64(encodedSize)
	}
	return m
}
