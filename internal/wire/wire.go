// Package wire implements the optional tagged payload envelope. The
// envelope carries the format tag in-band so a consumer can decode
// payloads written under a different producer format during a rollout.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
)

const version byte = 1

// HeaderSize is the fixed envelope overhead in bytes.
const HeaderSize = 2 + 1 + 1 + 4

var (
	ErrCorrupt   = errors.New("bincodec: corrupt envelope")
	ErrTruncated = errors.New("bincodec: truncated envelope")

	magic2 = [...]byte{'B', 'C'}
)

func hasMagic(b []byte) bool {
	return len(b) >= 2 && bytes.Equal(b[:2], magic2[:])
}

// Encode frames payload as: magic(2) | ver(1) | format(1) | vlen(u32 be) | payload.
func Encode(format byte, payload []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(HeaderSize + len(payload))

	buf.Write(magic2[:])
	buf.WriteByte(version)
	buf.WriteByte(format)

	var u4 [4]byte
	binary.BigEndian.PutUint32(u4[:], uint32(len(payload)))
	buf.Write(u4[:])

	buf.Write(payload)
	return buf.Bytes()
}

// Decode validates the envelope and returns the format tag and payload.
// The payload aliases b; callers that outlive b must copy.
func Decode(b []byte) (format byte, payload []byte, err error) {
	if len(b) < HeaderSize {
		if hasMagic(b) {
			return 0, nil, ErrTruncated
		}
		return 0, nil, ErrCorrupt
	}
	if !hasMagic(b) || b[2] != version {
		return 0, nil, ErrCorrupt
	}

	format = b[3]
	vlen := int(binary.BigEndian.Uint32(b[4:8]))
	if vlen < 0 || vlen > len(b)-HeaderSize { // overflow-safe bound check
		return 0, nil, ErrTruncated
	}
	if vlen != len(b)-HeaderSize {
		// trailing garbage past the declared payload
		return 0, nil, ErrCorrupt
	}

	return format, b[HeaderSize : HeaderSize+vlen], nil
}
