package binobj

import "encoding/binary"

// Order is the wire byte order. Every fixed-width integer in the envelope and
// the field encodings uses it.
var Order = binary.LittleEndian

// buffer is a growable output buffer with absolute patching support. The
// envelope header carries the total length and body hash, which are only known
// at Finish, so the writer reserves the header up front and patches it in
// place afterwards.
type buffer struct {
	b []byte
}

func newBuffer(capacity int) *buffer {
	if capacity < 64 {
		capacity = 64
	}
	return &buffer{b: make([]byte, 0, capacity)}
}

func (w *buffer) Len() int      { return len(w.b) }
func (w *buffer) Bytes() []byte { return w.b }

func (w *buffer) WriteByte(c byte) error {
	w.b = append(w.b, c)
	return nil
}

func (w *buffer) Write(p []byte) {
	w.b = append(w.b, p...)
}

func (w *buffer) WriteString(s string) {
	w.b = append(w.b, s...)
}

func (w *buffer) WriteUint16(v uint16) {
	w.b = Order.AppendUint16(w.b, v)
}

func (w *buffer) WriteUint32(v uint32) {
	w.b = Order.AppendUint32(w.b, v)
}

func (w *buffer) WriteUint64(v uint64) {
	w.b = Order.AppendUint64(w.b, v)
}

func (w *buffer) WriteInt32(v int32) {
	w.b = Order.AppendUint32(w.b, uint32(v))
}

func (w *buffer) WriteInt64(v int64) {
	w.b = Order.AppendUint64(w.b, uint64(v))
}

// Reserve appends n zero bytes and returns their start offset.
func (w *buffer) Reserve(n int) int {
	off := len(w.b)
	for i := 0; i < n; i++ {
		w.b = append(w.b, 0)
	}
	return off
}

// PutUint32At patches a previously reserved position.
func (w *buffer) PutUint32At(off int, v uint32) {
	Order.PutUint32(w.b[off:off+4], v)
}

func (w *buffer) PutByteAt(off int, c byte) {
	w.b[off] = c
}

// cursor is a bounds-checked read position over a fully materialized byte
// slice. Unlike a stream reader it supports free seeking, which named field
// access depends on. Short reads surface as ErrTruncatedInput.
type cursor struct {
	b []byte
	n int
}

func newCursor(b []byte) *cursor {
	return &cursor{b: b}
}

func (r *cursor) Pos() int       { return r.n }
func (r *cursor) Remaining() int { return len(r.b) - r.n }

// SeekTo moves the cursor to an absolute offset.
func (r *cursor) SeekTo(off int) error {
	if off < 0 || off > len(r.b) {
		return ErrTruncatedInput
	}
	r.n = off
	return nil
}

func (r *cursor) ReadByte() (byte, error) {
	if r.n >= len(r.b) {
		return 0, ErrTruncatedInput
	}
	c := r.b[r.n]
	r.n++
	return c, nil
}

// ReadSlice returns a view of the next n bytes without copying.
func (r *cursor) ReadSlice(n int) ([]byte, error) {
	if n < 0 || r.n+n > len(r.b) {
		return nil, ErrTruncatedInput
	}
	s := r.b[r.n : r.n+n]
	r.n += n
	return s, nil
}

func (r *cursor) ReadUint16() (uint16, error) {
	s, err := r.ReadSlice(2)
	if err != nil {
		return 0, err
	}
	return Order.Uint16(s), nil
}

func (r *cursor) ReadUint32() (uint32, error) {
	s, err := r.ReadSlice(4)
	if err != nil {
		return 0, err
	}
	return Order.Uint32(s), nil
}

func (r *cursor) ReadUint64() (uint64, error) {
	s, err := r.ReadSlice(8)
	if err != nil {
		return 0, err
	}
	return Order.Uint64(s), nil
}

func (r *cursor) ReadInt32() (int32, error) {
	v, err := r.ReadUint32()
	return int32(v), err
}

func (r *cursor) ReadInt64() (int64, error) {
	v, err := r.ReadUint64()
	return int64(v), err
}
