package bincodec

// EncodeResult carries the wire bytes of one encode together with the
// call's metrics. The buffer is owned by the caller after return; the
// codec keeps no alias into it.
type EncodeResult struct {
	Bytes   []byte
	Metrics Metrics

	textual bool
}

// Textual reports whether Bytes are the plain Text representation
// (active Text format, or the fallback path engaged). Framing
// transports use this to pick a text vs binary frame without
// inspecting the bytes. Always false under TagPayloads: the envelope
// makes the payload binary regardless of the format it carries.
func (r EncodeResult) Textual() bool { return r.textual }

// Codec converts values V to a compact wire representation and back.
// One immutable configuration per instance; concurrent Encode/Decode
// calls on the same instance are safe without locking.
type Codec[V any] interface {
	// Encode serializes v under the configured format, falling back to
	// Text on the sanctioned failure classes when fallback is enabled.
	Encode(v V) (EncodeResult, error)

	// Decode recovers a value from bytes, assuming the configured
	// format first. There is no format sniffing unless the codec was
	// built with TagPayloads.
	Decode(b []byte) (V, error)

	// DecodeAs decodes under an explicit format, for payloads known to
	// be written under a different configuration (e.g. during a rollout).
	DecodeAs(b []byte, f Format) (V, error)

	// Format returns the active format tag.
	Format() Format
}

// Options tune a Codec instance. Only Format is required; everything
// else has a sensible default. Options are copied at construction and
// never consulted again - reconfiguration means building a new Codec.
type Options struct {
	// Required. The active wire format for this instance.
	Format Format

	// DisableFallback turns off the Text fallback path. Default off
	// (fallback enabled), matching the upstream serializer defaults.
	DisableFallback bool

	// MaxEncodedSize is the payload ceiling in bytes, applied to every
	// successful encode (fallback output included) and to inbound
	// decode payloads. <= 0 disables the ceiling.
	MaxEncodedSize int

	// TagPayloads prepends a small envelope carrying the format tag so
	// consumers can decode payloads written under an older producer
	// format. Default off: raw format bytes, format agreed out-of-band.
	TagPayloads bool

	Registry *Registry   // nil => DefaultRegistry()
	Logger   Logger      // nil => NopLogger
	Sink     MetricsSink // nil => NopSink
}

func New[V any](opts Options) (Codec[V], error) {
	return newCodec[V](opts)
}
