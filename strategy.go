package binobj

import (
	"encoding"
	"reflect"
)

// Strategy is the mechanism chosen, once per type, for turning values of that
// type into envelopes and back. Resolution is a pure function of the type's
// capabilities and registered configuration, so the cached decision never
// changes within a process lifetime.
type Strategy uint8

const (
	// StrategySelfDescribing serializes through the type's own
	// WriteBinary/ReadBinary methods.
	StrategySelfDescribing Strategy = iota + 1
	// StrategyExternal serializes through a Serializer registered for the
	// type in configuration.
	StrategyExternal
	// StrategyNative adapts Go's encoding.BinaryMarshaler/BinaryUnmarshaler
	// machinery, preserving the Before/After lifecycle hooks.
	StrategyNative
	// StrategyReflective serializes through a precompiled field plan built by
	// one-time reflection over the type.
	StrategyReflective
	// StrategyManual marks name-only descriptors created for hand-built
	// envelopes with no local Go type.
	StrategyManual
)

var strategyNames = [...]string{
	StrategySelfDescribing: "self-describing",
	StrategyExternal:       "external",
	StrategyNative:         "native",
	StrategyReflective:     "reflective",
	StrategyManual:         "manual",
}

func (s Strategy) String() string {
	if int(s) < len(strategyNames) && strategyNames[s] != "" {
		return strategyNames[s]
	}
	return "unknown"
}

// Binarizable is the self-describing capability: the type itself drives the
// writer and reader. It takes priority over every other strategy.
type Binarizable interface {
	WriteBinary(w *Writer) error
	ReadBinary(r *Reader) error
}

// Serializer is an externally supplied strategy for a type that cannot or
// should not describe itself. Registered per type via WithSerializer.
type Serializer interface {
	Serialize(w *Writer, v any) error
	Deserialize(r *Reader, v any) error
}

// Lifecycle hooks honored by the native adapter around the standard
// MarshalBinary/UnmarshalBinary calls. All four are optional.
type (
	BeforeMarshalHook   interface{ BeforeMarshalBinary() error }
	AfterMarshalHook    interface{ AfterMarshalBinary() error }
	BeforeUnmarshalHook interface{ BeforeUnmarshalBinary() error }
	AfterUnmarshalHook  interface{ AfterUnmarshalBinary() error }
)

var (
	binarizableType = reflect.TypeOf((*Binarizable)(nil)).Elem()
	marshalerType   = reflect.TypeOf((*encoding.BinaryMarshaler)(nil)).Elem()
	unmarshalerType = reflect.TypeOf((*encoding.BinaryUnmarshaler)(nil)).Elem()
)

func implementsEither(t reflect.Type, iface reflect.Type) bool {
	return t.Implements(iface) || reflect.PointerTo(t).Implements(iface)
}

// resolveStrategy picks the strategy for a type, in fixed priority order.
// A type carrying several capabilities at once is not an error: the highest
// priority wins deterministically (self-describing beats a configured
// external serializer, which beats the native marshaler interface).
func resolveStrategy(t reflect.Type, external Serializer) Strategy {
	if implementsEither(t, binarizableType) {
		return StrategySelfDescribing
	}
	if external != nil {
		return StrategyExternal
	}
	if implementsEither(t, marshalerType) && implementsEither(t, unmarshalerType) {
		return StrategyNative
	}
	return StrategyReflective
}

// asCapability extracts interface capability I from v, taking the address of
// an addressable copy when the method set lives on the pointer receiver.
func asCapability[I any](v reflect.Value) (I, bool) {
	var zero I
	if v.CanInterface() {
		if c, ok := v.Interface().(I); ok {
			return c, true
		}
	}
	if v.CanAddr() {
		if c, ok := v.Addr().Interface().(I); ok {
			return c, true
		}
	}
	// Non-addressable value with pointer-receiver methods: serialize from a copy.
	p := reflect.New(v.Type())
	p.Elem().Set(v)
	if c, ok := p.Interface().(I); ok {
		return c, true
	}
	return zero, false
}

// nativeMarshal drives the four-phase write lifecycle: before hook, marshal,
// raw payload write, after hook.
func nativeMarshal(w *Writer, v reflect.Value) error {
	m, ok := asCapability[encoding.BinaryMarshaler](v)
	if !ok {
		return ErrUnsupportedKind
	}
	if h, ok := asCapability[BeforeMarshalHook](v); ok {
		if err := h.BeforeMarshalBinary(); err != nil {
			return err
		}
	}
	data, err := m.MarshalBinary()
	if err != nil {
		return err
	}
	w.Raw().WriteBytes(data)
	if h, ok := asCapability[AfterMarshalHook](v); ok {
		if err := h.AfterMarshalBinary(); err != nil {
			return err
		}
	}
	return w.Err()
}

// nativeUnmarshal mirrors nativeMarshal on the read side. dst must be an
// addressable value so the hooks and UnmarshalBinary observe the same
// instance the caller receives.
func nativeUnmarshal(r *Reader, dst reflect.Value) error {
	um, ok := asCapability[encoding.BinaryUnmarshaler](dst)
	if !ok {
		return ErrUnsupportedKind
	}
	if h, ok := asCapability[BeforeUnmarshalHook](dst); ok {
		if err := h.BeforeUnmarshalBinary(); err != nil {
			return err
		}
	}
	rr := r.Raw()
	var payload []byte
	rr.ReadBytes(&payload)
	if err := rr.Err(); err != nil {
		return err
	}
	if err := um.UnmarshalBinary(payload); err != nil {
		return err
	}
	if h, ok := asCapability[AfterUnmarshalHook](dst); ok {
		if err := h.AfterUnmarshalBinary(); err != nil {
			return err
		}
	}
	return nil
}
