// Package bincodec implements a transport-agnostic binary serialization
// layer: format selection, encode/decode orchestration, a sanctioned
// Text fallback, payload size enforcement, and per-call size/time/ratio
// metrics.
//
// Components:
//   - Registry: format tag -> format.Marshaler, built once, never mutated.
//   - Codec[V]: the orchestrator; one immutable configuration per instance.
//   - MetricsSink: receives one Metrics per encode (sink/logsink,
//     sink/asyncsink, sink/vmsink).
//   - transport/{cache,broker,socket,httpapi}: adapters that move the
//     encoded bytes across a medium; they never inspect the bytes.
//
// Fallback:
//
// When the primary format fails to encode, or its output exceeds the
// size ceiling, the value is re-encoded as Text (JSON) and the metrics
// claim no compression (ratio 1.0). Decode tries the configured format
// first and, with fallback enabled, retries the bytes as Text. Nothing
// else triggers fallback; the schema-binary placeholder fails with
// ErrUnimplemented outright.
//
// usage:
//
//	codec, _ := bincodec.New[Event](bincodec.Options{
//	    Format:         bincodec.FormatPrimary,
//	    MaxEncodedSize: 1 << 20,
//	    Logger:         zaplog.ZapLogger{L: zl},
//	    Sink:           asyncsink.New(vmsink.New("events"), 1, 1024),
//	})
//
//	res, err := codec.Encode(ev)        // res.Bytes -> transport
//	ev2, err := codec.Decode(res.Bytes) // raw bytes back from transport
package bincodec
