package binobj

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type writeMode uint8

const (
	modeUnset writeMode = iota
	modeNamed
	modeRaw
)

// Writer builds one envelope. It is single-use and single-threaded: bound to
// one buffer and one object graph, discarded after Finish. The first error
// latches and turns every subsequent operation into a no-op, so callers chain
// writes and check once at the end.
//
// Named writes record {field hash, body offset} into the in-progress schema.
// Raw() switches the writer into sequential mode with no schema; the two
// modes are mutually exclusive for the lifetime of the envelope.
//
// Field-name ordering is a caller convention, not an engine rule: any write
// order produces a correct envelope, because structured reads resolve fields
// through the hash table rather than by position.
type Writer struct {
	eng     *Engine
	typeID  int32
	buf     *buffer
	mode    writeMode
	entries []schemaEntry
	names   map[uint32]string
	err     error
	done    bool
}

func newWriter(eng *Engine, typeID int32) *Writer {
	w := &Writer{
		eng:    eng,
		typeID: typeID,
		buf:    newBuffer(256),
		names:  make(map[uint32]string),
	}
	w.buf.Reserve(headerSize)
	return w
}

// TypeID returns the logical type id this writer encodes for.
func (w *Writer) TypeID() int32 { return w.typeID }

// Err returns the first error encountered, if any.
func (w *Writer) Err() error { return w.err }

func (w *Writer) setError(err error) {
	if w.err == nil && err != nil {
		w.err = err
	}
}

// named is the single entry point for structured writes: it fixes the mode,
// checks the schema invariants, records the offset and encodes the value.
func (w *Writer) named(name string, v any) {
	if w.err != nil {
		return
	}
	if w.done {
		w.err = ErrWriterFinished
		return
	}
	if w.mode == modeRaw {
		w.err = fmt.Errorf("%w: named write of %q after raw mode", ErrModeConflict, name)
		return
	}
	w.mode = modeNamed

	h := FieldHash(name)
	if prev, ok := w.names[h]; ok {
		if prev == name {
			w.err = fmt.Errorf("%w: field %q written twice", ErrSchemaCollision, name)
		} else {
			w.err = fmt.Errorf("%w: %q and %q both hash to 0x%08x", ErrSchemaCollision, prev, name, h)
		}
		return
	}
	w.names[h] = name
	w.entries = append(w.entries, schemaEntry{hash: h, offset: uint32(w.buf.Len() - headerSize)})
	w.setError(encodeValue(w.buf, v))
}

// --- Named write operations ---

func (w *Writer) WriteNil(name string)                        { w.named(name, nil) }
func (w *Writer) WriteBool(name string, v bool)               { w.named(name, v) }
func (w *Writer) WriteInt8(name string, v int8)               { w.named(name, v) }
func (w *Writer) WriteInt16(name string, v int16)             { w.named(name, v) }
func (w *Writer) WriteInt32(name string, v int32)             { w.named(name, v) }
func (w *Writer) WriteInt64(name string, v int64)             { w.named(name, v) }
func (w *Writer) WriteUint8(name string, v uint8)             { w.named(name, v) }
func (w *Writer) WriteUint16(name string, v uint16)           { w.named(name, v) }
func (w *Writer) WriteUint32(name string, v uint32)           { w.named(name, v) }
func (w *Writer) WriteUint64(name string, v uint64)           { w.named(name, v) }
func (w *Writer) WriteFloat32(name string, v float32)         { w.named(name, v) }
func (w *Writer) WriteFloat64(name string, v float64)         { w.named(name, v) }
func (w *Writer) WriteString(name string, v string)           { w.named(name, v) }
func (w *Writer) WriteBytes(name string, v []byte)            { w.named(name, v) }
func (w *Writer) WriteDecimal(name string, v decimal.Decimal) { w.named(name, v) }
func (w *Writer) WriteTime(name string, v time.Time)          { w.named(name, v) }
func (w *Writer) WriteEnum(name string, v EnumValue)          { w.named(name, v) }
func (w *Writer) WriteList(name string, v []any)              { w.named(name, v) }
func (w *Writer) WriteMap(name string, v map[string]any)      { w.named(name, v) }

// WriteObject embeds another envelope as a nested field. The nested object
// keeps its own header, schema and hash.
func (w *Writer) WriteObject(name string, v *Object) { w.named(name, v) }

// WriteAny encodes a value of any supported dynamic type. Values the field
// codec does not know (structs, pointers to structs) are serialized through
// the engine into a nested envelope first.
func (w *Writer) WriteAny(name string, v any) {
	if w.err != nil {
		return
	}
	nv, err := w.normalize(v)
	if err != nil {
		w.err = err
		return
	}
	w.named(name, nv)
}

// normalize funnels engine-level values into codec-level values.
func (w *Writer) normalize(v any) (any, error) {
	switch v.(type) {
	case nil, bool, int8, int16, int32, int64, int,
		uint8, uint16, uint32, uint64, uint,
		float32, float64, string, []byte,
		decimal.Decimal, time.Time, EnumValue,
		[]any, map[string]any, *Object:
		return v, nil
	}
	data, err := w.eng.Marshal(v)
	if err != nil {
		return nil, err
	}
	return AsObject(data)
}

// --- Raw mode ---

// RawWriter is the sequential-only view of a Writer. It records no schema;
// values are readable only in exactly this write order.
type RawWriter struct {
	w *Writer
}

// Raw switches the writer into raw mode and returns the sequential view.
// Calling it after a named write latches ModeConflict.
func (w *Writer) Raw() *RawWriter {
	if w.err == nil && !w.done {
		if w.mode == modeNamed {
			w.err = fmt.Errorf("%w: raw mode requested after named writes", ErrModeConflict)
		} else {
			w.mode = modeRaw
		}
	}
	return &RawWriter{w: w}
}

func (rw *RawWriter) sequential(v any) {
	w := rw.w
	if w.err != nil {
		return
	}
	if w.done {
		w.err = ErrWriterFinished
		return
	}
	if w.mode != modeRaw {
		w.err = fmt.Errorf("%w: sequential write outside raw mode", ErrModeConflict)
		return
	}
	w.setError(encodeValue(w.buf, v))
}

func (rw *RawWriter) Err() error { return rw.w.err }

func (rw *RawWriter) WriteNil()                      { rw.sequential(nil) }
func (rw *RawWriter) WriteBool(v bool)               { rw.sequential(v) }
func (rw *RawWriter) WriteInt8(v int8)               { rw.sequential(v) }
func (rw *RawWriter) WriteInt16(v int16)             { rw.sequential(v) }
func (rw *RawWriter) WriteInt32(v int32)             { rw.sequential(v) }
func (rw *RawWriter) WriteInt64(v int64)             { rw.sequential(v) }
func (rw *RawWriter) WriteUint8(v uint8)             { rw.sequential(v) }
func (rw *RawWriter) WriteUint16(v uint16)           { rw.sequential(v) }
func (rw *RawWriter) WriteUint32(v uint32)           { rw.sequential(v) }
func (rw *RawWriter) WriteUint64(v uint64)           { rw.sequential(v) }
func (rw *RawWriter) WriteFloat32(v float32)         { rw.sequential(v) }
func (rw *RawWriter) WriteFloat64(v float64)         { rw.sequential(v) }
func (rw *RawWriter) WriteString(v string)           { rw.sequential(v) }
func (rw *RawWriter) WriteBytes(v []byte)            { rw.sequential(v) }
func (rw *RawWriter) WriteDecimal(v decimal.Decimal) { rw.sequential(v) }
func (rw *RawWriter) WriteTime(v time.Time)          { rw.sequential(v) }
func (rw *RawWriter) WriteEnum(v EnumValue)          { rw.sequential(v) }
func (rw *RawWriter) WriteList(v []any)              { rw.sequential(v) }
func (rw *RawWriter) WriteMap(v map[string]any)      { rw.sequential(v) }
func (rw *RawWriter) WriteObject(v *Object)          { rw.sequential(v) }

// WriteAny mirrors Writer.WriteAny for the sequential view.
func (rw *RawWriter) WriteAny(v any) {
	w := rw.w
	if w.err != nil {
		return
	}
	nv, err := w.normalize(v)
	if err != nil {
		w.err = err
		return
	}
	rw.sequential(nv)
}

// Finish appends the schema footer (structured mode), patches the header and
// returns the complete envelope. The writer is unusable afterwards.
func (w *Writer) Finish() ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}
	if w.done {
		return nil, ErrWriterFinished
	}
	w.done = true

	body := w.buf.Bytes()[headerSize:]
	hash := BodyHash(body)

	var flags byte
	var schemaID int32
	if w.mode == modeRaw {
		flags |= flagRaw
	} else if len(w.entries) > 0 {
		flags |= flagHasSchema
		schemaID = schemaIDOf(w.entries)
		footStart := w.buf.Len()
		for _, e := range w.entries {
			w.buf.WriteUint32(e.hash)
			w.buf.WriteUint32(e.offset)
		}
		w.buf.WriteUint32(uint32(footStart))
	}

	w.buf.PutByteAt(0, Marker)
	w.buf.PutUint32At(1, uint32(w.typeID))
	w.buf.PutUint32At(5, uint32(w.buf.Len()))
	w.buf.PutByteAt(9, flags)
	w.buf.PutUint32At(10, uint32(hash))
	w.buf.PutUint32At(14, uint32(schemaID))
	return w.buf.Bytes(), nil
}
