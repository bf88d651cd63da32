package bincodec

import (
	"bytes"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/unkn0wn-root/bincodec/format"
	"github.com/unkn0wn-root/bincodec/internal/wire"
)

type event struct {
	A int   `json:"a" msgpack:"a"`
	B []int `json:"b" msgpack:"b"`
}

// failMarshaler stands in for a broken primary format.
type failMarshaler struct{ name string }

func (f failMarshaler) Marshal(any) ([]byte, error) { return nil, errors.New("broken encoder") }
func (f failMarshaler) Unmarshal([]byte, any) error { return errors.New("broken decoder") }
func (f failMarshaler) Name() string                { return f.name }

// padMarshaler produces fixed-size output regardless of input.
type padMarshaler struct{ n int }

func (p padMarshaler) Marshal(any) ([]byte, error) {
	return bytes.Repeat([]byte{0xc0}, p.n), nil
}
func (p padMarshaler) Unmarshal([]byte, any) error { return errors.New("opaque padding") }
func (p padMarshaler) Name() string                { return "pad" }

// recordSink captures every observation.
type recordSink struct{ got []Metrics }

func (s *recordSink) Observe(m Metrics) { s.got = append(s.got, m) }

func mustRegistry(t *testing.T, m map[Format]format.Marshaler) *Registry {
	t.Helper()
	r, err := NewRegistry(m)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return r
}

func newTestCodec(t *testing.T, opts Options) Codec[event] {
	t.Helper()
	c, err := New[event](opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

// ==============================
// Encode path
// ==============================

// TestPrimaryRoundTrip covers the happy path: binary encode beats the
// textual baseline and decodes back to the identical structure.
func TestPrimaryRoundTrip(t *testing.T) {
	c := newTestCodec(t, Options{Format: FormatPrimary, MaxEncodedSize: 1024})

	v := event{A: 1, B: []int{1, 2, 3}}
	res, err := c.Encode(v)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	baseline, _ := json.Marshal(v)
	if res.Metrics.OriginalSize != len(baseline) {
		t.Fatalf("OriginalSize=%d, want textual baseline %d", res.Metrics.OriginalSize, len(baseline))
	}
	if res.Metrics.EncodedSize != len(res.Bytes) {
		t.Fatalf("EncodedSize=%d, len(Bytes)=%d", res.Metrics.EncodedSize, len(res.Bytes))
	}
	if res.Metrics.EncodedSize >= res.Metrics.OriginalSize {
		t.Fatalf("binary not more compact: encoded=%d original=%d",
			res.Metrics.EncodedSize, res.Metrics.OriginalSize)
	}
	if res.Metrics.Fallback || res.Textual() {
		t.Fatalf("unexpected fallback/textual flags: %+v", res.Metrics)
	}
	if res.Metrics.Format != "messagepack" {
		t.Fatalf("Format=%q", res.Metrics.Format)
	}

	got, err := c.Decode(res.Bytes)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !reflect.DeepEqual(got, v) {
		t.Fatalf("round trip: got %+v, want %+v", got, v)
	}
}

// TestRatioSanity checks ratio = original/encoded within 1e-9.
func TestRatioSanity(t *testing.T) {
	c := newTestCodec(t, Options{Format: FormatPrimary})

	v := event{A: 7, B: []int{10, 20, 30, 40}}
	res, err := c.Encode(v)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	want := float64(res.Metrics.OriginalSize) / float64(res.Metrics.EncodedSize)
	diff := res.Metrics.CompressionRatio - want
	if diff < -1e-9 || diff > 1e-9 {
		t.Fatalf("ratio %v, want %v", res.Metrics.CompressionRatio, want)
	}
}

// TestFallbackOnEncodeFailure: a broken primary encoder engages the Text
// fallback, the metrics claim no compression, and the same codec decodes
// its own fallback output.
func TestFallbackOnEncodeFailure(t *testing.T) {
	reg := mustRegistry(t, map[Format]format.Marshaler{
		FormatPrimary: failMarshaler{name: "failing"},
		FormatText:    format.JSON{},
	})
	c := newTestCodec(t, Options{Format: FormatPrimary, Registry: reg})

	v := event{A: 2, B: []int{5}}
	res, err := c.Encode(v)
	if err != nil {
		t.Fatalf("Encode with fallback: %v", err)
	}
	if !res.Metrics.Fallback || !res.Textual() {
		t.Fatalf("fallback not flagged: %+v", res.Metrics)
	}
	if res.Metrics.CompressionRatio != 1.0 {
		t.Fatalf("fallback ratio %v, want exactly 1.0", res.Metrics.CompressionRatio)
	}
	if res.Metrics.Format != "json" {
		t.Fatalf("fallback format %q", res.Metrics.Format)
	}
	if !json.Valid(res.Bytes) {
		t.Fatalf("fallback bytes are not valid text: %q", res.Bytes)
	}

	// symmetric fallback on decode: primary decoder fails, text recovers
	got, err := c.Decode(res.Bytes)
	if err != nil {
		t.Fatalf("Decode fallback output: %v", err)
	}
	if !reflect.DeepEqual(got, v) {
		t.Fatalf("got %+v, want %+v", got, v)
	}
}

// TestFallbackSuppression: with fallback disabled the encoder error
// propagates; no silently substituted payload.
func TestFallbackSuppression(t *testing.T) {
	reg := mustRegistry(t, map[Format]format.Marshaler{
		FormatPrimary: failMarshaler{name: "failing"},
		FormatText:    format.JSON{},
	})
	c := newTestCodec(t, Options{Format: FormatPrimary, Registry: reg, DisableFallback: true})

	_, err := c.Encode(event{A: 1})
	var encErr *EncodeError
	if !errors.As(err, &encErr) {
		t.Fatalf("err=%v, want *EncodeError", err)
	}
	if encErr.Format != "failing" {
		t.Fatalf("EncodeError.Format=%q", encErr.Format)
	}

	_, err = c.Decode([]byte(`{"a":1,"b":null}`))
	var decErr *DecodeError
	if !errors.As(err, &decErr) {
		t.Fatalf("err=%v, want *DecodeError", err)
	}
}

// TestSchemaBinaryUnimplemented: the placeholder format fails outright,
// fallback enabled or not.
func TestSchemaBinaryUnimplemented(t *testing.T) {
	for _, disable := range []bool{false, true} {
		c := newTestCodec(t, Options{Format: FormatSchemaBinary, DisableFallback: disable})

		if _, err := c.Encode(event{A: 1}); !errors.Is(err, ErrUnimplemented) {
			t.Fatalf("Encode(disable=%v): err=%v, want ErrUnimplemented", disable, err)
		}
		if _, err := c.Decode([]byte{0x81}); !errors.Is(err, ErrUnimplemented) {
			t.Fatalf("Decode(disable=%v): err=%v, want ErrUnimplemented", disable, err)
		}
	}
}

// ==============================
// Size enforcement
// ==============================

func TestSizeExceeded(t *testing.T) {
	const limit = 1 << 20 // 1 MB
	cs, err := New[string](Options{Format: FormatPrimary, MaxEncodedSize: limit})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	big := strings.Repeat("x", 2_000_000)
	res, err := cs.Encode(big)
	var sizeErr *SizeExceededError
	if !errors.As(err, &sizeErr) {
		t.Fatalf("err=%v, want *SizeExceededError", err)
	}
	if sizeErr.Limit != limit {
		t.Fatalf("Limit=%d, want %d", sizeErr.Limit, limit)
	}
	if sizeErr.Actual < 2_000_000 {
		t.Fatalf("Actual=%d, want >= 2_000_000", sizeErr.Actual)
	}
	// no partial bytes exposed
	if res.Bytes != nil {
		t.Fatalf("partial bytes leaked on failure")
	}
}

// TestSizeFallbackRescue: primary output over the limit, textual
// re-encode under it. The size guard re-runs on the fallback bytes.
func TestSizeFallbackRescue(t *testing.T) {
	reg := mustRegistry(t, map[Format]format.Marshaler{
		FormatPrimary: padMarshaler{n: 500},
		FormatText:    format.JSON{},
	})
	c := newTestCodec(t, Options{Format: FormatPrimary, Registry: reg, MaxEncodedSize: 100})

	v := event{A: 1, B: []int{2}}
	res, err := c.Encode(v)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !res.Metrics.Fallback || res.Metrics.CompressionRatio != 1.0 {
		t.Fatalf("size-triggered fallback not flagged: %+v", res.Metrics)
	}
	if len(res.Bytes) > 100 {
		t.Fatalf("fallback bytes %d over limit", len(res.Bytes))
	}
}

func TestDecodeSizeGuard(t *testing.T) {
	c := newTestCodec(t, Options{Format: FormatPrimary, MaxEncodedSize: 8})

	_, err := c.Decode(bytes.Repeat([]byte{0xc0}, 64))
	var sizeErr *SizeExceededError
	if !errors.As(err, &sizeErr) {
		t.Fatalf("err=%v, want *SizeExceededError", err)
	}
}

// ==============================
// Decode classification
// ==============================

// TestFormatIsolation: primary bytes fed to a Text-only codec fail with
// a typed error, never wrong data.
func TestFormatIsolation(t *testing.T) {
	producer := newTestCodec(t, Options{Format: FormatPrimary})
	res, err := producer.Encode(event{A: 3, B: []int{1}})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	consumer := newTestCodec(t, Options{Format: FormatText, DisableFallback: true})
	_, err = consumer.Decode(res.Bytes)
	var decErr *DecodeError
	if !errors.As(err, &decErr) {
		t.Fatalf("err=%v, want *DecodeError", err)
	}
	if decErr.Kind != DecodeMalformed && decErr.Kind != DecodeFormatMismatch {
		t.Fatalf("Kind=%v, want malformed or format mismatch", decErr.Kind)
	}
}

// TestTextBytesAsPrimaryMismatch: the reverse direction — JSON bytes
// fed to a Primary-only codec classify as a format mismatch, across
// both of msgpack's code-error message families.
func TestTextBytesAsPrimaryMismatch(t *testing.T) {
	producer := newTestCodec(t, Options{Format: FormatText})
	res, err := producer.Encode(event{A: 3, B: []int{1}})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	consumer := newTestCodec(t, Options{Format: FormatPrimary, DisableFallback: true})
	_, err = consumer.Decode(res.Bytes)
	var decErr *DecodeError
	if !errors.As(err, &decErr) {
		t.Fatalf("err=%v, want *DecodeError", err)
	}
	if decErr.Kind != DecodeFormatMismatch {
		t.Fatalf("Kind=%v (%v), want format mismatch", decErr.Kind, err)
	}
}

func TestDecodeTruncated(t *testing.T) {
	cs, err := New[string](Options{Format: FormatPrimary, DisableFallback: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := cs.Encode("a reasonably long payload string")
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	_, err = cs.Decode(res.Bytes[:len(res.Bytes)/2])
	var decErr *DecodeError
	if !errors.As(err, &decErr) {
		t.Fatalf("err=%v, want *DecodeError", err)
	}
	if decErr.Kind != DecodeTruncated {
		t.Fatalf("Kind=%v, want truncated", decErr.Kind)
	}
}

// DecodeAs is the explicit override for payloads written under another
// configuration.
func TestDecodeAs(t *testing.T) {
	producer := newTestCodec(t, Options{Format: FormatText})
	res, err := producer.Encode(event{A: 9, B: []int{9}})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	consumer := newTestCodec(t, Options{Format: FormatPrimary, DisableFallback: true})
	got, err := consumer.DecodeAs(res.Bytes, FormatText)
	if err != nil {
		t.Fatalf("DecodeAs: %v", err)
	}
	if got.A != 9 {
		t.Fatalf("got %+v", got)
	}

	if _, err := consumer.DecodeAs(res.Bytes, FormatSchemaBinary); !errors.Is(err, ErrUnimplemented) {
		t.Fatalf("DecodeAs schema-binary: err=%v", err)
	}
	if _, err := consumer.DecodeAs(res.Bytes, Format(9)); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("DecodeAs unknown: err=%v", err)
	}
}

// ==============================
// Tagged payloads
// ==============================

// TestTaggedMixedFormats: with the envelope on, a Text-configured
// consumer decodes a Primary-encoded payload via the embedded tag.
func TestTaggedMixedFormats(t *testing.T) {
	producer := newTestCodec(t, Options{Format: FormatPrimary, TagPayloads: true})
	consumer := newTestCodec(t, Options{Format: FormatText, TagPayloads: true, DisableFallback: true})

	v := event{A: 4, B: []int{4, 5}}
	res, err := producer.Encode(v)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	got, err := consumer.Decode(res.Bytes)
	if err != nil {
		t.Fatalf("Decode tagged: %v", err)
	}
	if !reflect.DeepEqual(got, v) {
		t.Fatalf("got %+v, want %+v", got, v)
	}
}

// TestTaggedNeverTextual: the envelope header is raw binary (its
// length field can hold any byte), so tagged output must never be
// flagged textual — a framing transport sending it as a text frame
// would violate the frame's UTF-8 requirement.
func TestTaggedNeverTextual(t *testing.T) {
	c, err := New[string](Options{Format: FormatText, TagPayloads: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	// 200 payload bytes put 0xc8 in the length field.
	res, err := c.Encode(strings.Repeat("x", 198))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if res.Textual() {
		t.Fatal("tagged Text output flagged textual")
	}
	if utf8.Valid(res.Bytes) {
		t.Fatal("expected a non-UTF-8 envelope for this payload length")
	}

	// Fallback under the envelope is binary too.
	reg := mustRegistry(t, map[Format]format.Marshaler{
		FormatPrimary: failMarshaler{name: "flaky"},
		FormatText:    format.JSON{},
	})
	fc := newTestCodec(t, Options{Format: FormatPrimary, TagPayloads: true, Registry: reg})
	fres, err := fc.Encode(event{A: 1})
	if err != nil {
		t.Fatalf("Encode with fallback: %v", err)
	}
	if !fres.Metrics.Fallback {
		t.Fatal("fallback did not engage")
	}
	if fres.Textual() {
		t.Fatal("tagged fallback output flagged textual")
	}
}

// TestTaggedUnknownFormatTag: a structurally sound envelope carrying a
// tag outside the registered range is a format mismatch, not malformed.
func TestTaggedUnknownFormatTag(t *testing.T) {
	c := newTestCodec(t, Options{Format: FormatPrimary, TagPayloads: true})

	_, err := c.Decode(wire.Encode(9, []byte(`{"a":1}`)))
	var decErr *DecodeError
	if !errors.As(err, &decErr) {
		t.Fatalf("err=%v, want *DecodeError", err)
	}
	if decErr.Kind != DecodeFormatMismatch {
		t.Fatalf("Kind=%v, want format mismatch", decErr.Kind)
	}
}

func TestTaggedCorruptEnvelope(t *testing.T) {
	c := newTestCodec(t, Options{Format: FormatPrimary, TagPayloads: true})

	_, err := c.Decode([]byte("not an envelope at all"))
	var decErr *DecodeError
	if !errors.As(err, &decErr) {
		t.Fatalf("err=%v, want *DecodeError", err)
	}
}

// ==============================
// Construction and telemetry
// ==============================

func TestConstructionErrors(t *testing.T) {
	if _, err := New[event](Options{Format: Format(42)}); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("unknown tag: err=%v", err)
	}

	textOnly := mustRegistry(t, map[Format]format.Marshaler{FormatText: format.JSON{}})
	if _, err := New[event](Options{Format: FormatPrimary, Registry: textOnly}); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("missing primary: err=%v", err)
	}
}

func TestSinkReceivesMetrics(t *testing.T) {
	sink := &recordSink{}
	c := newTestCodec(t, Options{Format: FormatPrimary, Sink: sink})

	res, err := c.Encode(event{A: 1, B: []int{1, 2}})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(sink.got) != 1 {
		t.Fatalf("sink observations = %d, want 1", len(sink.got))
	}
	if sink.got[0].EncodedSize != res.Metrics.EncodedSize {
		t.Fatalf("sink saw %+v, result %+v", sink.got[0], res.Metrics)
	}
	if sink.got[0].Elapsed < 0 {
		t.Fatalf("negative elapsed: %v", sink.got[0].Elapsed)
	}
}
