// Package format holds the wire marshalers the codec core dispatches to.
// Each marshaler covers exactly one wire representation; the core's
// Registry maps format tags onto them and refuses ambiguous mappings.
package format

// Marshaler turns a value into bytes and back for one wire representation.
// Implementations must be safe for concurrent use.
type Marshaler interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(b []byte, v any) error

	// Name identifies the wire representation (e.g. "messagepack").
	// Two marshalers sharing a Name produce interchangeable bytes.
	Name() string
}
