package binobj

import (
	"fmt"
	"math"
	"math/big"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// EnumValue is the wire representation of an enumeration constant: the logical
// type id of the enum type and the ordinal of the constant. The engine never
// materializes the platform enum type itself.
type EnumValue struct {
	TypeID  int32
	Ordinal int32
}

// The field codec gives every supported kind a fixed, versionless layout:
// a one-byte tag followed by the payload. Variable-size payloads are
// length-prefixed with an int32. Nested objects embed a complete envelope,
// so they stay independently self-describing and independently hashable.
//
// Layouts:
//
//	nil                      tag
//	bool                     tag u8
//	int8/uint8               tag u8
//	int16/uint16             tag u16
//	int32/uint32/float32     tag u32
//	int64/uint64/float64     tag u64
//	time                     tag i64 (unix nanos, decoded as UTC)
//	string/bytes             tag i32(len) payload
//	decimal                  tag i32(exp) u8(sign) i32(len) magnitude
//	enum                     tag i32(type id) i32(ordinal)
//	list                     tag i32(count) element...
//	map                      tag i32(count) {i32(len) key, value}...
//	object                   tag i32(len) envelope
//
// List elements keep exactly the order they were encoded in; the codec never
// re-sorts a collection. Map entries are the one exception: Go map iteration
// is randomized, so entries are encoded in ascending key order to keep
// byte-identical output for structurally equal values.

// encodeValue appends the tagged encoding of v. The supported dynamic types
// are the ones decodeValue produces, plus the native Go integer aliases
// (int encodes as int64, uint as uint64).
func encodeValue(w *buffer, v any) error {
	switch x := v.(type) {
	case nil:
		w.WriteByte(byte(KindNil))
	case bool:
		w.WriteByte(byte(KindBool))
		if x {
			w.WriteByte(1)
		} else {
			w.WriteByte(0)
		}
	case int8:
		w.WriteByte(byte(KindInt8))
		w.WriteByte(byte(x))
	case int16:
		w.WriteByte(byte(KindInt16))
		w.WriteUint16(uint16(x))
	case int32:
		w.WriteByte(byte(KindInt32))
		w.WriteInt32(x)
	case int64:
		w.WriteByte(byte(KindInt64))
		w.WriteInt64(x)
	case int:
		w.WriteByte(byte(KindInt64))
		w.WriteInt64(int64(x))
	case uint8:
		w.WriteByte(byte(KindUint8))
		w.WriteByte(x)
	case uint16:
		w.WriteByte(byte(KindUint16))
		w.WriteUint16(x)
	case uint32:
		w.WriteByte(byte(KindUint32))
		w.WriteUint32(x)
	case uint64:
		w.WriteByte(byte(KindUint64))
		w.WriteUint64(x)
	case uint:
		w.WriteByte(byte(KindUint64))
		w.WriteUint64(uint64(x))
	case float32:
		w.WriteByte(byte(KindFloat32))
		w.WriteUint32(math.Float32bits(x))
	case float64:
		w.WriteByte(byte(KindFloat64))
		w.WriteUint64(math.Float64bits(x))
	case string:
		w.WriteByte(byte(KindString))
		w.WriteInt32(int32(len(x)))
		w.WriteString(x)
	case []byte:
		w.WriteByte(byte(KindBytes))
		w.WriteInt32(int32(len(x)))
		w.Write(x)
	case decimal.Decimal:
		encodeDecimal(w, x)
	case time.Time:
		w.WriteByte(byte(KindTime))
		w.WriteInt64(x.UnixNano())
	case EnumValue:
		w.WriteByte(byte(KindEnum))
		w.WriteInt32(x.TypeID)
		w.WriteInt32(x.Ordinal)
	case []any:
		w.WriteByte(byte(KindList))
		w.WriteInt32(int32(len(x)))
		for _, el := range x {
			if err := encodeValue(w, el); err != nil {
				return err
			}
		}
	case map[string]any:
		if err := encodeMap(w, x); err != nil {
			return err
		}
	case *Object:
		w.WriteByte(byte(KindObject))
		data := x.Bytes()
		w.WriteInt32(int32(len(data)))
		w.Write(data)
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedKind, v)
	}
	return nil
}

func encodeDecimal(w *buffer, d decimal.Decimal) {
	w.WriteByte(byte(KindDecimal))
	w.WriteInt32(d.Exponent())
	coeff := d.Coefficient()
	if coeff.Sign() < 0 {
		w.WriteByte(1)
	} else {
		w.WriteByte(0)
	}
	mag := coeff.Bytes()
	w.WriteInt32(int32(len(mag)))
	w.Write(mag)
}

func encodeMap(w *buffer, m map[string]any) error {
	w.WriteByte(byte(KindMap))
	w.WriteInt32(int32(len(m)))
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		w.WriteInt32(int32(len(k)))
		w.WriteString(k)
		if err := encodeValue(w, m[k]); err != nil {
			return err
		}
	}
	return nil
}

// decodeValue reads one tagged value at the cursor position.
func decodeValue(r *cursor) (any, error) {
	tag, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	k := Kind(tag)
	if !k.valid() {
		return nil, fmt.Errorf("%w: unknown tag 0x%02x", ErrTypeMismatch, tag)
	}
	return decodePayload(r, k)
}

func decodePayload(r *cursor, k Kind) (any, error) {
	switch k {
	case KindNil:
		return nil, nil
	case KindBool:
		c, err := r.ReadByte()
		return c != 0, err
	case KindInt8:
		c, err := r.ReadByte()
		return int8(c), err
	case KindInt16:
		v, err := r.ReadUint16()
		return int16(v), err
	case KindInt32:
		return r.ReadInt32()
	case KindInt64:
		return r.ReadInt64()
	case KindUint8:
		return r.ReadByte()
	case KindUint16:
		return r.ReadUint16()
	case KindUint32:
		return r.ReadUint32()
	case KindUint64:
		return r.ReadUint64()
	case KindFloat32:
		v, err := r.ReadUint32()
		return math.Float32frombits(v), err
	case KindFloat64:
		v, err := r.ReadUint64()
		return math.Float64frombits(v), err
	case KindString:
		b, err := readLenPrefixed(r)
		return string(b), err
	case KindBytes:
		b, err := readLenPrefixed(r)
		if err != nil {
			return nil, err
		}
		out := make([]byte, len(b))
		copy(out, b)
		return out, nil
	case KindDecimal:
		return decodeDecimal(r)
	case KindTime:
		ns, err := r.ReadInt64()
		if err != nil {
			return nil, err
		}
		return time.Unix(0, ns).UTC(), nil
	case KindEnum:
		tid, err := r.ReadInt32()
		if err != nil {
			return nil, err
		}
		ord, err := r.ReadInt32()
		if err != nil {
			return nil, err
		}
		return EnumValue{TypeID: tid, Ordinal: ord}, nil
	case KindList:
		return decodeList(r)
	case KindMap:
		return decodeMap(r)
	case KindObject:
		b, err := readLenPrefixed(r)
		if err != nil {
			return nil, err
		}
		return AsObject(b)
	}
	return nil, fmt.Errorf("%w: tag %s", ErrTypeMismatch, k)
}

func readLenPrefixed(r *cursor) ([]byte, error) {
	n, err := r.ReadInt32()
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, fmt.Errorf("%w: negative length %d", ErrInvalidEnvelope, n)
	}
	return r.ReadSlice(int(n))
}

func decodeDecimal(r *cursor) (any, error) {
	exp, err := r.ReadInt32()
	if err != nil {
		return nil, err
	}
	sign, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	mag, err := readLenPrefixed(r)
	if err != nil {
		return nil, err
	}
	coeff := new(big.Int).SetBytes(mag)
	if sign != 0 {
		coeff.Neg(coeff)
	}
	return decimal.NewFromBigInt(coeff, exp), nil
}

func decodeList(r *cursor) (any, error) {
	n, err := r.ReadInt32()
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, fmt.Errorf("%w: negative count %d", ErrInvalidEnvelope, n)
	}
	out := make([]any, 0, n)
	for i := int32(0); i < n; i++ {
		el, err := decodeValue(r)
		if err != nil {
			return nil, err
		}
		out = append(out, el)
	}
	return out, nil
}

func decodeMap(r *cursor) (any, error) {
	n, err := r.ReadInt32()
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, fmt.Errorf("%w: negative count %d", ErrInvalidEnvelope, n)
	}
	out := make(map[string]any, n)
	for i := int32(0); i < n; i++ {
		kb, err := readLenPrefixed(r)
		if err != nil {
			return nil, err
		}
		v, err := decodeValue(r)
		if err != nil {
			return nil, err
		}
		out[string(kb)] = v
	}
	return out, nil
}

// expectKind consumes a tag and verifies it matches what the caller asked
// for. A nil tag never matches; callers that want "value or default" use the
// any-typed reads instead.
func expectKind(r *cursor, want Kind) error {
	tag, err := r.ReadByte()
	if err != nil {
		return err
	}
	if Kind(tag) != want {
		return fmt.Errorf("%w: have %s, want %s", ErrTypeMismatch, Kind(tag), want)
	}
	return nil
}
