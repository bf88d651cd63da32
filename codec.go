package bincodec

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/unkn0wn-root/bincodec/format"
	"github.com/unkn0wn-root/bincodec/internal/wire"
)

type codec[V any] struct {
	format   Format
	fallback bool
	maxSize  int
	tagged   bool

	reg  *Registry
	log  Logger
	sink MetricsSink

	primary format.Marshaler // nil when the active format is schema-binary
	text    format.Marshaler
}

func newCodec[V any](opts Options) (*codec[V], error) {
	if !opts.Format.valid() {
		return nil, fmt.Errorf("%w: tag %d", ErrUnsupportedFormat, uint8(opts.Format))
	}

	c := &codec[V]{
		format:   opts.Format,
		fallback: !opts.DisableFallback,
		maxSize:  opts.MaxEncodedSize,
		tagged:   opts.TagPayloads,
		reg:      opts.Registry,
	}

	// defaults
	if c.reg == nil {
		c.reg = DefaultRegistry()
	}
	c.log = coalesce[Logger](opts.Logger, NopLogger{})
	c.sink = coalesce[MetricsSink](opts.Sink, NopSink{})

	// Text is mandatory: it is the fallback target and the metrics baseline.
	text, ok := c.reg.Marshaler(FormatText)
	if !ok {
		return nil, fmt.Errorf("%w: registry has no %s marshaler", ErrUnsupportedFormat, FormatText)
	}
	c.text = text

	if c.format != FormatSchemaBinary {
		p, ok := c.reg.Marshaler(c.format)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, c.format)
		}
		c.primary = p
	}
	return c, nil
}

func (c *codec[V]) Format() Format { return c.format }

func (c *codec[V]) Encode(v V) (EncodeResult, error) {
	start := time.Now()

	// Canonical textual form first: the size baseline (whatever the
	// active format) and the ready-made fallback bytes. A value the
	// Text format cannot represent has no fallback either, so this
	// failure propagates untouched.
	baseline, err := c.text.Marshal(v)
	if err != nil {
		return EncodeResult{}, &EncodeError{Format: c.text.Name(), Err: err}
	}

	if c.format == FormatSchemaBinary {
		// placeholder, not a failing format: no fallback attempt
		return EncodeResult{}, ErrUnimplemented
	}

	payload := baseline
	used := c.text
	fellBack := false

	if c.format != FormatText {
		payload, err = c.primary.Marshal(v)
		switch {
		case err == nil:
			used = c.primary
		case c.fallback:
			c.log.Debug("primary encode failed; falling back to text",
				Fields{"format": c.primary.Name(), "err": err})
			payload = baseline
			fellBack = true
		default:
			return EncodeResult{}, &EncodeError{Format: c.primary.Name(), Err: err}
		}
	}

	out := c.frame(payload, fellBack)
	if sErr := checkSize(len(out), c.maxSize); sErr != nil {
		// Size overflow is the second sanctioned fallback trigger. The
		// textual re-encode is rarely smaller, so it gets its own size
		// check; if that fails too, the error references the fallback
		// encoding, which is what the caller would have received.
		if fellBack || !c.fallback || c.format == FormatText {
			c.log.Warn("encoded payload over size limit",
				Fields{"format": used.Name(), "size": len(out), "limit": c.maxSize})
			return EncodeResult{}, sErr
		}
		c.log.Debug("encoded size over limit; retrying with text fallback",
			Fields{"format": used.Name(), "size": len(out), "limit": c.maxSize})
		used = c.text
		fellBack = true
		out = c.frame(baseline, true)
		if sErr := checkSize(len(out), c.maxSize); sErr != nil {
			c.log.Warn("fallback encoding over size limit",
				Fields{"size": len(out), "limit": c.maxSize})
			return EncodeResult{}, sErr
		}
	}

	m := computeMetrics(len(baseline), len(out), start, time.Now(), used.Name(), fellBack)
	c.sink.Observe(m)
	return EncodeResult{
		Bytes:   out,
		Metrics: m,
		// The envelope header is binary whatever it carries, so tagged
		// output never counts as textual.
		textual: !c.tagged && (fellBack || c.format == FormatText),
	}, nil
}

// frame applies the optional tagged envelope around the format bytes.
func (c *codec[V]) frame(payload []byte, fellBack bool) []byte {
	if !c.tagged {
		return payload
	}
	tag := c.format
	if fellBack {
		tag = FormatText
	}
	return wire.Encode(byte(tag), payload)
}

func (c *codec[V]) Decode(b []byte) (V, error) {
	if !c.tagged {
		return c.DecodeAs(b, c.format)
	}

	var zero V
	if err := checkSize(len(b), c.maxSize); err != nil {
		return zero, err
	}
	tag, payload, err := wire.Decode(b)
	if err != nil {
		kind := DecodeMalformed
		if errors.Is(err, wire.ErrTruncated) {
			kind = DecodeTruncated
		}
		return zero, &DecodeError{Kind: kind, Format: c.format.String(), Err: err}
	}
	f := Format(tag)
	if !f.valid() {
		return zero, &DecodeError{
			Kind:   DecodeFormatMismatch,
			Format: c.format.String(),
			Err:    fmt.Errorf("unknown format tag %d", tag),
		}
	}
	return c.decodeAs(f, payload)
}

func (c *codec[V]) DecodeAs(b []byte, f Format) (V, error) {
	var zero V
	if err := checkSize(len(b), c.maxSize); err != nil {
		return zero, err
	}
	return c.decodeAs(f, b)
}

func (c *codec[V]) decodeAs(f Format, b []byte) (V, error) {
	var zero V
	if f == FormatSchemaBinary {
		return zero, ErrUnimplemented
	}
	ms, ok := c.reg.Marshaler(f)
	if !ok {
		return zero, fmt.Errorf("%w: %s", ErrUnsupportedFormat, f)
	}

	var v V
	err := ms.Unmarshal(b, &v)
	if err == nil {
		return v, nil
	}

	// Best-effort recovery: the bytes may be fallback output from the
	// producer side. If the text decode fails too, the primary
	// decoder's error is the one reported.
	if c.fallback && f != FormatText {
		var fv V
		if fErr := c.text.Unmarshal(b, &fv); fErr == nil {
			c.log.Debug("decode recovered via text fallback", Fields{"format": ms.Name()})
			return fv, nil
		}
	}
	return zero, classifyDecode(ms.Name(), err)
}

// classifyDecode tags a decoder failure. The split is best-effort:
// truncation is detected by EOF sentinels, a type-shaped complaint
// means the bytes parse as something else (mismatch), anything
// unrecognized is malformed.
func classifyDecode(formatName string, err error) *DecodeError {
	kind := DecodeMalformed
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, io.EOF):
		kind = DecodeTruncated
	case errors.As(err, &typeErr):
		kind = DecodeFormatMismatch
	case strings.Contains(err.Error(), "invalid code="),
		strings.Contains(err.Error(), "unexpected code="):
		// msgpack's complaints when fed non-msgpack bytes. A string
		// match is the only handle: msgpack/v5 builds the first family
		// with fmt.Errorf and keeps its one typed code error unexported.
		kind = DecodeFormatMismatch
	}
	return &DecodeError{Kind: kind, Format: formatName, Err: err}
}
