package bincodec

import (
	"fmt"
	"sort"

	"github.com/unkn0wn-root/bincodec/format"
)

// Registry maps format tags onto marshalers. Built once at process
// start and never mutated afterwards, so sharing one Registry across
// concurrently operating Codec instances needs no synchronization.
type Registry struct {
	m map[Format]format.Marshaler
}

// NewRegistry validates and freezes a tag -> marshaler mapping.
// Unknown tags, nil marshalers and two tags sharing one wire name are
// all configuration errors caught here, not at call time. The Text tag
// is mandatory: it is the metrics baseline and the fallback target.
func NewRegistry(marshalers map[Format]format.Marshaler) (*Registry, error) {
	m := make(map[Format]format.Marshaler, len(marshalers))
	names := make(map[string]Format, len(marshalers))
	for f, ms := range marshalers {
		if !f.valid() {
			return nil, fmt.Errorf("%w: tag %d", ErrUnsupportedFormat, uint8(f))
		}
		if f == FormatSchemaBinary {
			// placeholder tag; it has no marshaler, the codec fails it
			// with ErrUnimplemented before any lookup
			return nil, fmt.Errorf("bincodec: %s is a placeholder and cannot be registered", f)
		}
		if ms == nil {
			return nil, fmt.Errorf("bincodec: nil marshaler for %s", f)
		}
		if prev, dup := names[ms.Name()]; dup {
			// one wire representation under two tags would make decoded
			// sizes ambiguous
			return nil, fmt.Errorf("bincodec: %s and %s share wire name %q", prev, f, ms.Name())
		}
		names[ms.Name()] = f
		m[f] = ms
	}
	if _, ok := m[FormatText]; !ok {
		return nil, fmt.Errorf("bincodec: registry requires the %s format", FormatText)
	}
	return &Registry{m: m}, nil
}

// DefaultRegistry returns the stock mapping: messagepack under the
// primary tag, JSON under the text tag.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(map[Format]format.Marshaler{
		FormatPrimary: format.Msgpack{},
		FormatText:    format.JSON{},
	})
	if err != nil {
		panic(err) // stock mapping is statically valid
	}
	return r
}

// Marshaler returns the marshaler registered under f, if any.
func (r *Registry) Marshaler(f Format) (format.Marshaler, bool) {
	ms, ok := r.m[f]
	return ms, ok
}

// Formats lists the registered tags in ascending order.
func (r *Registry) Formats() []Format {
	out := make([]Format, 0, len(r.m))
	for f := range r.m {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
