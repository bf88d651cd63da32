package bincodec

import "fmt"

// Format selects the wire encoding strategy for a Codec instance.
// Exactly one Format is active per Codec and it never changes for the
// instance's lifetime; reconfiguration means constructing a new Codec.
type Format uint8

const (
	// FormatPrimary is the preferred compact binary encoding (messagepack).
	FormatPrimary Format = iota + 1
	// FormatSchemaBinary is a schema-driven binary encoding. It is a
	// placeholder: every encode/decode under it fails with ErrUnimplemented.
	// See format.Protobuf for the extension point.
	FormatSchemaBinary
	// FormatText is the self-describing textual encoding (JSON). It is
	// both an explicit choice and the universal fallback.
	FormatText
)

func (f Format) valid() bool {
	return f >= FormatPrimary && f <= FormatText
}

func (f Format) String() string {
	switch f {
	case FormatPrimary:
		return "messagepack"
	case FormatSchemaBinary:
		return "protobuf"
	case FormatText:
		return "json"
	default:
		return fmt.Sprintf("format(%d)", uint8(f))
	}
}

// ParseFormat maps a configuration string onto a Format tag.
// Accepted spellings follow the upstream config keys: "messagepack" or
// "msgpack", "protobuf" or "schema", "json" or "text".
func ParseFormat(s string) (Format, error) {
	switch s {
	case "messagepack", "msgpack":
		return FormatPrimary, nil
	case "protobuf", "schema":
		return FormatSchemaBinary, nil
	case "json", "text":
		return FormatText, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}
