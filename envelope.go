package binobj

import (
	"bytes"
	"fmt"
	"sort"
)

// Envelope layout. All integers little-endian.
//
//	[0]     marker (0x67)
//	[1:5]   logical type id
//	[5:9]   total length, must equal len(envelope)
//	[9]     flags: bit0 raw, bit1 has-schema
//	[10:14] hash code of the body bytes
//	[14:18] schema id (0 for raw mode)
//	[18:]   body
//	footer  (has-schema only) n x {field hash u32, body offset u32}
//	tail    (has-schema only) u32 offset of the footer start
const (
	// Marker is the first byte of every envelope.
	Marker byte = 0x67

	headerSize = 18

	flagRaw       byte = 1 << 0
	flagHasSchema byte = 1 << 1
)

type header struct {
	typeID   int32
	length   int32
	flags    byte
	hash     int32
	schemaID int32
}

// schemaEntry maps one field-name hash to the byte offset of its encoding
// within the body. The footer stores entries in write order; lookup works on
// a copy sorted by hash.
type schemaEntry struct {
	hash   uint32
	offset uint32
}

func parseHeader(data []byte) (header, error) {
	var h header
	if len(data) < headerSize {
		return h, fmt.Errorf("%w: %d bytes, header needs %d", ErrTruncatedInput, len(data), headerSize)
	}
	if data[0] != Marker {
		return h, fmt.Errorf("%w: bad marker 0x%02x", ErrInvalidEnvelope, data[0])
	}
	h.typeID = int32(Order.Uint32(data[1:5]))
	h.length = int32(Order.Uint32(data[5:9]))
	h.flags = data[9]
	h.hash = int32(Order.Uint32(data[10:14]))
	h.schemaID = int32(Order.Uint32(data[14:18]))
	if int(h.length) != len(data) {
		return h, fmt.Errorf("%w: header declares %d bytes, have %d", ErrInvalidEnvelope, h.length, len(data))
	}
	return h, nil
}

// Object is a read-only view over one serialized envelope. It supports type
// identity, deterministic hashing, equality and random field access without
// ever materializing the original type, so envelopes can key hash maps on
// nodes that do not share the producer's class definitions.
type Object struct {
	data   []byte
	hdr    header
	body   []byte
	schema []schemaEntry // sorted by hash; nil for raw envelopes
}

// AsObject validates an envelope and wraps it. The buffer is retained, not
// copied; callers that reuse buffers must hand over a stable copy.
func AsObject(data []byte) (*Object, error) {
	hdr, err := parseHeader(data)
	if err != nil {
		return nil, err
	}

	bodyEnd := len(data)
	var schema []schemaEntry
	if hdr.flags&flagHasSchema != 0 {
		if len(data) < headerSize+4 {
			return nil, fmt.Errorf("%w: schema flag set but no footer pointer", ErrInvalidEnvelope)
		}
		footStart := int(Order.Uint32(data[len(data)-4:]))
		footEnd := len(data) - 4
		if footStart < headerSize || footStart > footEnd || (footEnd-footStart)%8 != 0 {
			return nil, fmt.Errorf("%w: footer pointer %d out of range", ErrInvalidEnvelope, footStart)
		}
		n := (footEnd - footStart) / 8
		schema = make([]schemaEntry, n)
		for i := 0; i < n; i++ {
			off := footStart + i*8
			schema[i] = schemaEntry{
				hash:   Order.Uint32(data[off : off+4]),
				offset: Order.Uint32(data[off+4 : off+8]),
			}
		}
		sort.Slice(schema, func(i, j int) bool { return schema[i].hash < schema[j].hash })
		bodyEnd = footStart
	}

	body := data[headerSize:bodyEnd]
	if got := BodyHash(body); got != hdr.hash {
		return nil, fmt.Errorf("%w: body hash 0x%08x, header claims 0x%08x", ErrInvalidEnvelope, uint32(got), uint32(hdr.hash))
	}

	return &Object{data: data, hdr: hdr, body: body, schema: schema}, nil
}

// TypeID returns the logical type id from the header.
func (o *Object) TypeID() int32 { return o.hdr.typeID }

// HashCode returns the deterministic hash of the body bytes, as written into
// the header at encode time.
func (o *Object) HashCode() int32 { return o.hdr.hash }

// SchemaID identifies the schema version of this envelope; 0 for raw mode.
func (o *Object) SchemaID() int32 { return o.hdr.schemaID }

// Raw reports whether the envelope was written in raw (schemaless) mode.
func (o *Object) Raw() bool { return o.hdr.flags&flagRaw != 0 }

// Len returns the total envelope length in bytes.
func (o *Object) Len() int { return len(o.data) }

// Bytes returns the complete envelope, including header and footer.
func (o *Object) Bytes() []byte { return o.data }

// FieldCount returns the number of schema entries; 0 for raw envelopes.
func (o *Object) FieldCount() int { return len(o.schema) }

func (o *Object) lookup(name string) (schemaEntry, bool) {
	h := FieldHash(name)
	i := sort.Search(len(o.schema), func(i int) bool { return o.schema[i].hash >= h })
	if i < len(o.schema) && o.schema[i].hash == h {
		return o.schema[i], true
	}
	return schemaEntry{}, false
}

// HasField reports whether the schema contains the named field.
func (o *Object) HasField(name string) bool {
	_, ok := o.lookup(name)
	return ok
}

// Field decodes the named field without touching the rest of the body.
// Raw envelopes have no schema, so named access fails with ModeConflict;
// a missing schema entry fails with FieldNotFound.
func (o *Object) Field(name string) (any, error) {
	if o.Raw() {
		return nil, fmt.Errorf("%w: named access on a raw envelope", ErrModeConflict)
	}
	e, ok := o.lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrFieldNotFound, name)
	}
	cur := newCursor(o.body)
	if err := cur.SeekTo(int(e.offset)); err != nil {
		return nil, err
	}
	return decodeValue(cur)
}

// Equal reports structural equality: same logical type and byte-identical
// body. The strategy that produced either envelope is irrelevant.
func (o *Object) Equal(other *Object) bool {
	if other == nil {
		return false
	}
	return o.hdr.typeID == other.hdr.typeID && bytes.Equal(o.body, other.body)
}
