package bincodec

import (
	"testing"
	"time"
)

func TestComputeMetricsRatio(t *testing.T) {
	start := time.Now()
	end := start.Add(5 * time.Millisecond)

	m := computeMetrics(100, 40, start, end, "messagepack", false)
	if diff := m.CompressionRatio - 2.5; diff < -1e-9 || diff > 1e-9 {
		t.Fatalf("ratio %v, want 2.5", m.CompressionRatio)
	}
	if m.Elapsed != 5*time.Millisecond {
		t.Fatalf("elapsed %v", m.Elapsed)
	}
	if m.ZeroPayload {
		t.Fatalf("zero flag set on nonzero payload")
	}
}

func TestComputeMetricsEqualSizes(t *testing.T) {
	now := time.Now()
	m := computeMetrics(64, 64, now, now, "json", false)
	if m.CompressionRatio != 1.0 {
		t.Fatalf("equal sizes: ratio %v, want exactly 1.0", m.CompressionRatio)
	}
}

// Zero-length encodings get the flagged zero case, never a division.
func TestComputeMetricsZeroPayload(t *testing.T) {
	now := time.Now()
	m := computeMetrics(64, 0, now, now, "messagepack", false)
	if m.CompressionRatio != 0.0 || !m.ZeroPayload {
		t.Fatalf("zero payload: ratio=%v flagged=%v", m.CompressionRatio, m.ZeroPayload)
	}

	// empty original + empty encoding is the plain equal-sizes case
	m = computeMetrics(0, 0, now, now, "messagepack", false)
	if m.CompressionRatio != 1.0 || m.ZeroPayload {
		t.Fatalf("empty/empty: ratio=%v flagged=%v", m.CompressionRatio, m.ZeroPayload)
	}
}

func TestComputeMetricsFallbackPinsRatio(t *testing.T) {
	now := time.Now()
	// even a "larger baseline" claims no compression on the fallback path
	m := computeMetrics(200, 100, now, now, "json", true)
	if m.CompressionRatio != 1.0 || !m.Fallback {
		t.Fatalf("fallback: ratio=%v fallback=%v", m.CompressionRatio, m.Fallback)
	}
}
