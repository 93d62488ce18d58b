package binobj

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/exp/constraints"
)

// Reader consumes one envelope. Like the Writer it is single-use and
// single-threaded. Structured envelopes support random-access named reads in
// any order; raw envelopes support only sequential reads in exactly the order
// the raw writes occurred.
//
// The access mode is fixed by the envelope flags: named reads on a raw
// envelope and Raw() on a structured envelope both fail with ModeConflict.
// A sequential read of the wrong type against a raw envelope is undefined at
// the wire level; there is no offset table to validate against, so the caller
// owns the ordering and the failure surfaces only as a downstream
// TypeMismatch or TruncatedInput.
type Reader struct {
	obj *Object
	seq *cursor // sequential position for raw reads
	err error
}

// NewReader validates data as an envelope and wraps it for reading.
func NewReader(data []byte) (*Reader, error) {
	obj, err := AsObject(data)
	if err != nil {
		return nil, err
	}
	return &Reader{obj: obj}, nil
}

// Object returns the underlying envelope view.
func (r *Reader) Object() *Object { return r.obj }

// TypeID returns the logical type id from the envelope header.
func (r *Reader) TypeID() int32 { return r.obj.TypeID() }

// seek positions a fresh cursor on the named field.
func (r *Reader) seek(name string) (*cursor, error) {
	if r.obj.Raw() {
		return nil, fmt.Errorf("%w: named read of %q on a raw envelope", ErrModeConflict, name)
	}
	e, ok := r.obj.lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrFieldNotFound, name)
	}
	cur := newCursor(r.obj.body)
	if err := cur.SeekTo(int(e.offset)); err != nil {
		return nil, err
	}
	return cur, nil
}

// readNamed seeks to the field and verifies its wire tag.
func (r *Reader) readNamed(name string, k Kind) (*cursor, error) {
	cur, err := r.seek(name)
	if err != nil {
		return nil, err
	}
	if err := expectKind(cur, k); err != nil {
		return nil, fmt.Errorf("field %q: %w", name, err)
	}
	return cur, nil
}

// ReadAny decodes the named field as whatever kind was written. A missing
// field returns FieldNotFound, which callers may treat as "use my default".
func (r *Reader) ReadAny(name string) (any, error) {
	cur, err := r.seek(name)
	if err != nil {
		return nil, err
	}
	return decodeValue(cur)
}

// --- Named read operations ---

func (r *Reader) ReadBool(name string) (bool, error) {
	cur, err := r.readNamed(name, KindBool)
	if err != nil {
		return false, err
	}
	v, err := decodePayload(cur, KindBool)
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

func (r *Reader) ReadInt8(name string) (int8, error) {
	cur, err := r.readNamed(name, KindInt8)
	if err != nil {
		return 0, err
	}
	v, err := decodePayload(cur, KindInt8)
	if err != nil {
		return 0, err
	}
	return v.(int8), nil
}

func (r *Reader) ReadInt16(name string) (int16, error) {
	cur, err := r.readNamed(name, KindInt16)
	if err != nil {
		return 0, err
	}
	v, err := decodePayload(cur, KindInt16)
	if err != nil {
		return 0, err
	}
	return v.(int16), nil
}

func (r *Reader) ReadInt32(name string) (int32, error) {
	cur, err := r.readNamed(name, KindInt32)
	if err != nil {
		return 0, err
	}
	v, err := decodePayload(cur, KindInt32)
	if err != nil {
		return 0, err
	}
	return v.(int32), nil
}

func (r *Reader) ReadInt64(name string) (int64, error) {
	cur, err := r.readNamed(name, KindInt64)
	if err != nil {
		return 0, err
	}
	v, err := decodePayload(cur, KindInt64)
	if err != nil {
		return 0, err
	}
	return v.(int64), nil
}

func (r *Reader) ReadUint8(name string) (uint8, error) {
	cur, err := r.readNamed(name, KindUint8)
	if err != nil {
		return 0, err
	}
	v, err := decodePayload(cur, KindUint8)
	if err != nil {
		return 0, err
	}
	return v.(uint8), nil
}

func (r *Reader) ReadUint16(name string) (uint16, error) {
	cur, err := r.readNamed(name, KindUint16)
	if err != nil {
		return 0, err
	}
	v, err := decodePayload(cur, KindUint16)
	if err != nil {
		return 0, err
	}
	return v.(uint16), nil
}

func (r *Reader) ReadUint32(name string) (uint32, error) {
	cur, err := r.readNamed(name, KindUint32)
	if err != nil {
		return 0, err
	}
	v, err := decodePayload(cur, KindUint32)
	if err != nil {
		return 0, err
	}
	return v.(uint32), nil
}

func (r *Reader) ReadUint64(name string) (uint64, error) {
	cur, err := r.readNamed(name, KindUint64)
	if err != nil {
		return 0, err
	}
	v, err := decodePayload(cur, KindUint64)
	if err != nil {
		return 0, err
	}
	return v.(uint64), nil
}

func (r *Reader) ReadFloat32(name string) (float32, error) {
	cur, err := r.readNamed(name, KindFloat32)
	if err != nil {
		return 0, err
	}
	v, err := decodePayload(cur, KindFloat32)
	if err != nil {
		return 0, err
	}
	return v.(float32), nil
}

func (r *Reader) ReadFloat64(name string) (float64, error) {
	cur, err := r.readNamed(name, KindFloat64)
	if err != nil {
		return 0, err
	}
	v, err := decodePayload(cur, KindFloat64)
	if err != nil {
		return 0, err
	}
	return v.(float64), nil
}

func (r *Reader) ReadString(name string) (string, error) {
	cur, err := r.readNamed(name, KindString)
	if err != nil {
		return "", err
	}
	v, err := decodePayload(cur, KindString)
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (r *Reader) ReadBytes(name string) ([]byte, error) {
	cur, err := r.readNamed(name, KindBytes)
	if err != nil {
		return nil, err
	}
	v, err := decodePayload(cur, KindBytes)
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (r *Reader) ReadDecimal(name string) (decimal.Decimal, error) {
	cur, err := r.readNamed(name, KindDecimal)
	if err != nil {
		return decimal.Decimal{}, err
	}
	v, err := decodePayload(cur, KindDecimal)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return v.(decimal.Decimal), nil
}

func (r *Reader) ReadTime(name string) (time.Time, error) {
	cur, err := r.readNamed(name, KindTime)
	if err != nil {
		return time.Time{}, err
	}
	v, err := decodePayload(cur, KindTime)
	if err != nil {
		return time.Time{}, err
	}
	return v.(time.Time), nil
}

func (r *Reader) ReadEnum(name string) (EnumValue, error) {
	cur, err := r.readNamed(name, KindEnum)
	if err != nil {
		return EnumValue{}, err
	}
	v, err := decodePayload(cur, KindEnum)
	if err != nil {
		return EnumValue{}, err
	}
	return v.(EnumValue), nil
}

func (r *Reader) ReadList(name string) ([]any, error) {
	cur, err := r.readNamed(name, KindList)
	if err != nil {
		return nil, err
	}
	v, err := decodePayload(cur, KindList)
	if err != nil {
		return nil, err
	}
	return v.([]any), nil
}

func (r *Reader) ReadMap(name string) (map[string]any, error) {
	cur, err := r.readNamed(name, KindMap)
	if err != nil {
		return nil, err
	}
	v, err := decodePayload(cur, KindMap)
	if err != nil {
		return nil, err
	}
	return v.(map[string]any), nil
}

func (r *Reader) ReadObject(name string) (*Object, error) {
	cur, err := r.readNamed(name, KindObject)
	if err != nil {
		return nil, err
	}
	v, err := decodePayload(cur, KindObject)
	if err != nil {
		return nil, err
	}
	return v.(*Object), nil
}

// IntNamed reads the named field as any signed-integer kind and converts it
// to T, failing with TypeMismatch when the stored value does not fit.
func IntNamed[T constraints.Signed](r *Reader, name string) (T, error) {
	v, err := r.ReadAny(name)
	if err != nil {
		return 0, err
	}
	var wide int64
	switch x := v.(type) {
	case int8:
		wide = int64(x)
	case int16:
		wide = int64(x)
	case int32:
		wide = int64(x)
	case int64:
		wide = x
	default:
		return 0, fmt.Errorf("field %q: %w: have %T, want integer", name, ErrTypeMismatch, v)
	}
	out := T(wide)
	if int64(out) != wide {
		return 0, fmt.Errorf("field %q: %w: value %d overflows %T", name, ErrTypeMismatch, wide, out)
	}
	return out, nil
}

// --- Raw mode ---

// RawReader is the sequential-only view of a Reader, in strict write order.
// Reads latch the first error; check Err once at the end.
type RawReader struct {
	r *Reader
}

// Raw returns the sequential view. On a structured envelope the view is
// poisoned with ModeConflict.
func (r *Reader) Raw() *RawReader {
	if r.err == nil && !r.obj.Raw() {
		r.err = fmt.Errorf("%w: raw read on a structured envelope", ErrModeConflict)
	}
	if r.seq == nil {
		r.seq = newCursor(r.obj.body)
	}
	return &RawReader{r: r}
}

func (rr *RawReader) Err() error { return rr.r.err }

func (rr *RawReader) setError(err error) {
	if rr.r.err == nil && err != nil {
		rr.r.err = err
	}
}

// next decodes the next sequential value, checking the wire tag.
func (rr *RawReader) next(k Kind) any {
	if rr.r.err != nil {
		return nil
	}
	if err := expectKind(rr.r.seq, k); err != nil {
		rr.setError(err)
		return nil
	}
	v, err := decodePayload(rr.r.seq, k)
	if err != nil {
		rr.setError(err)
		return nil
	}
	return v
}

func (rr *RawReader) ReadBool(dest *bool) {
	if v := rr.next(KindBool); v != nil {
		*dest = v.(bool)
	}
}

func (rr *RawReader) ReadInt8(dest *int8) {
	if v := rr.next(KindInt8); v != nil {
		*dest = v.(int8)
	}
}

func (rr *RawReader) ReadInt16(dest *int16) {
	if v := rr.next(KindInt16); v != nil {
		*dest = v.(int16)
	}
}

func (rr *RawReader) ReadInt32(dest *int32) {
	if v := rr.next(KindInt32); v != nil {
		*dest = v.(int32)
	}
}

func (rr *RawReader) ReadInt64(dest *int64) {
	if v := rr.next(KindInt64); v != nil {
		*dest = v.(int64)
	}
}

func (rr *RawReader) ReadUint8(dest *uint8) {
	if v := rr.next(KindUint8); v != nil {
		*dest = v.(uint8)
	}
}

func (rr *RawReader) ReadUint16(dest *uint16) {
	if v := rr.next(KindUint16); v != nil {
		*dest = v.(uint16)
	}
}

func (rr *RawReader) ReadUint32(dest *uint32) {
	if v := rr.next(KindUint32); v != nil {
		*dest = v.(uint32)
	}
}

func (rr *RawReader) ReadUint64(dest *uint64) {
	if v := rr.next(KindUint64); v != nil {
		*dest = v.(uint64)
	}
}

func (rr *RawReader) ReadFloat32(dest *float32) {
	if v := rr.next(KindFloat32); v != nil {
		*dest = v.(float32)
	}
}

func (rr *RawReader) ReadFloat64(dest *float64) {
	if v := rr.next(KindFloat64); v != nil {
		*dest = v.(float64)
	}
}

func (rr *RawReader) ReadString(dest *string) {
	if v := rr.next(KindString); v != nil {
		*dest = v.(string)
	}
}

func (rr *RawReader) ReadBytes(dest *[]byte) {
	if v := rr.next(KindBytes); v != nil {
		*dest = v.([]byte)
	}
}

func (rr *RawReader) ReadDecimal(dest *decimal.Decimal) {
	if v := rr.next(KindDecimal); v != nil {
		*dest = v.(decimal.Decimal)
	}
}

func (rr *RawReader) ReadTime(dest *time.Time) {
	if v := rr.next(KindTime); v != nil {
		*dest = v.(time.Time)
	}
}

func (rr *RawReader) ReadEnum(dest *EnumValue) {
	if v := rr.next(KindEnum); v != nil {
		*dest = v.(EnumValue)
	}
}

func (rr *RawReader) ReadList(dest *[]any) {
	if v := rr.next(KindList); v != nil {
		*dest = v.([]any)
	}
}

func (rr *RawReader) ReadMap(dest *map[string]any) {
	if v := rr.next(KindMap); v != nil {
		*dest = v.(map[string]any)
	}
}

func (rr *RawReader) ReadObject(dest **Object) {
	if v := rr.next(KindObject); v != nil {
		*dest = v.(*Object)
	}
}

// ReadAny decodes the next sequential value as whatever kind was written.
func (rr *RawReader) ReadAny() (any, error) {
	if rr.r.err != nil {
		return nil, rr.r.err
	}
	v, err := decodeValue(rr.r.seq)
	if err != nil {
		rr.setError(err)
		return nil, err
	}
	return v, nil
}
