package driver

import "fmt"

// Codec is the single injectable payload capability the driver depends on
// (spec §9 Redesign Flags, "Dynamic JSON dispatch"): the core and the
// driver treat handler payloads as opaque bytes, and a generated or
// hand-written client supplies whatever serialization its handler types
// need. Building a concrete JSON/protobuf codec is explicitly out of scope
// here (spec §1 "OUT OF SCOPE: JSON/other payload codecs") — only the seam
// is owned by this module.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// PassthroughCodec is the default Codec: it only knows how to move raw
// bytes through, the same role NoopLogger/NoopTracer play for telemetry.
// A handler that declares a typed input/output supplies its own Codec.
type PassthroughCodec struct{}

func (PassthroughCodec) Marshal(v any) ([]byte, error) {
	b, ok := v.([]byte)
	if !ok {
		return nil, fmt.Errorf("driver: PassthroughCodec cannot marshal %T, only []byte", v)
	}
	return b, nil
}

func (PassthroughCodec) Unmarshal(data []byte, v any) error {
	dst, ok := v.(*[]byte)
	if !ok {
		return fmt.Errorf("driver: PassthroughCodec cannot unmarshal into %T, only *[]byte", v)
	}
	*dst = data
	return nil
}
