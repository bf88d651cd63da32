package format

import (
	"fmt"

	"google.golang.org/protobuf/proto"
)

// Protobuf is a Marshaler for a single generated message type T.
// It is the extension point behind the schema-binary format tag: the
// default registry keeps that tag unimplemented because arbitrary
// values carry no schema, but a caller whose value type IS a generated
// message can register this in a custom Registry.
type Protobuf[T proto.Message] struct {
	new func() T // constructor for a concrete message (e.g. func() *mypb.User { return &mypb.User{} })
}

func NewProtobuf[T proto.Message](ctor func() T) Protobuf[T] {
	return Protobuf[T]{new: ctor}
}

func (c Protobuf[T]) Marshal(v any) ([]byte, error) {
	m, ok := v.(T)
	if !ok {
		return nil, fmt.Errorf("protobuf: value %T is not the registered message type", v)
	}
	return proto.Marshal(m)
}

func (c Protobuf[T]) Unmarshal(b []byte, v any) error {
	m, ok := v.(*T)
	if !ok {
		return fmt.Errorf("protobuf: target %T is not a pointer to the registered message type", v)
	}
	*m = c.new()
	return proto.Unmarshal(b, *m)
}

func (Protobuf[T]) Name() string { return "protobuf" }
