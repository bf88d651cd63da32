package bincodec

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedFormat means the requested format tag has no
	// registered marshaler. Construction-time, fatal to Codec creation.
	ErrUnsupportedFormat = errors.New("bincodec: unsupported format")

	// ErrUnimplemented means a placeholder format (schema-binary) was
	// invoked. Fallback is never attempted for it: fallback exists for
	// failures of a working format, not for features that are absent.
	ErrUnimplemented = errors.New("bincodec: format not implemented")
)

// SizeExceededError reports a payload over the configured ceiling.
// Returned from encode (the final wire bytes, fallback output included)
// and from decode (inbound payload length, checked before the decoder runs).
type SizeExceededError struct {
	Actual int
	Limit  int
}

func (e *SizeExceededError) Error() string {
	return fmt.Sprintf("bincodec: payload size %d exceeds limit %d", e.Actual, e.Limit)
}

// EncodeError wraps a format encoder failure that was not recovered by
// the fallback path (fallback disabled, or the Text baseline itself failed).
type EncodeError struct {
	Format string
	Err    error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("bincodec: encode (%s): %v", e.Format, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// DecodeErrorKind tags the failure class of a DecodeError.
type DecodeErrorKind uint8

const (
	// DecodeMalformed: the bytes do not parse under the attempted format.
	DecodeMalformed DecodeErrorKind = iota + 1
	// DecodeTruncated: the bytes end mid-value.
	DecodeTruncated
	// DecodeFormatMismatch: the bytes parse as some other representation
	// or shape than the attempted format/value expects.
	DecodeFormatMismatch
)

func (k DecodeErrorKind) String() string {
	switch k {
	case DecodeMalformed:
		return "malformed"
	case DecodeTruncated:
		return "truncated"
	case DecodeFormatMismatch:
		return "format mismatch"
	default:
		return "unknown"
	}
}

// DecodeError reports why a payload could not be decoded. When the
// fallback path was attempted and also failed, Err is the original
// decoder's error, not the fallback's: the fallback is best-effort
// recovery, not the source of truth for diagnostics.
type DecodeError struct {
	Kind   DecodeErrorKind
	Format string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("bincodec: decode (%s): %s: %v", e.Format, e.Kind, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
