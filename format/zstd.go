package format

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// Zstd wraps another Marshaler and zstd-compresses its output.
// The zero value is NOT ready to use; construct with NewZstd.
//
// Like CBOR this is an extension point, not a default-registry member.
// Worth it only for large, repetitive payloads; for small values the
// frame overhead typically exceeds the savings.
type Zstd struct {
	inner Marshaler
	enc   *zstd.Encoder
	dec   *zstd.Decoder
}

var _ Marshaler = (*Zstd)(nil)

func NewZstd(inner Marshaler) (*Zstd, error) {
	if inner == nil {
		return nil, fmt.Errorf("zstd: inner marshaler is required")
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	return &Zstd{inner: inner, enc: enc, dec: dec}, nil
}

func (z *Zstd) Marshal(v any) ([]byte, error) {
	b, err := z.inner.Marshal(v)
	if err != nil {
		return nil, err
	}
	return z.enc.EncodeAll(b, make([]byte, 0, len(b))), nil
}

func (z *Zstd) Unmarshal(b []byte, v any) error {
	raw, err := z.dec.DecodeAll(b, nil)
	if err != nil {
		return err
	}
	return z.inner.Unmarshal(raw, v)
}

func (z *Zstd) Name() string { return z.inner.Name() + "+zstd" }
