//go:build test

package binobj

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// --- Writer Test Suite ---

type WriterTestSuite struct {
	suite.Suite
	eng *Engine
}

func (s *WriterTestSuite) SetupSuite() {
	SetLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func (s *WriterTestSuite) SetupTest() {
	s.eng = NewEngine()
}

func (s *WriterTestSuite) newWriter(typeName string) *Writer {
	w, err := s.eng.NewWriter(typeName)
	s.Require().NoError(err)
	return w
}

func (s *WriterTestSuite) TestEnvelopeHeader() {
	w := s.newWriter("billing.Invoice")
	w.WriteString("number", "INV-0042")
	w.WriteInt64("total", 129900)
	data, err := w.Finish()
	s.Require().NoError(err)

	s.Assert().Equal(Marker, data[0])
	s.Assert().Equal(int(Order.Uint32(data[5:9])), len(data))

	obj, err := AsObject(data)
	s.Require().NoError(err)
	s.Assert().Equal(TypeIDOf("billing.Invoice"), obj.TypeID())
	s.Assert().False(obj.Raw())
	s.Assert().Equal(2, obj.FieldCount())
	s.Assert().NotZero(obj.SchemaID())
	s.Assert().Equal(len(data), obj.Len())
}

func (s *WriterTestSuite) TestNamedRoundTrip() {
	when := time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)
	price := decimal.New(-1995, -2) // -19.95

	w := s.newWriter("billing.Invoice")
	w.WriteNil("memo")
	w.WriteBool("paid", true)
	w.WriteInt8("tier", -3)
	w.WriteInt16("weeks", -1200)
	w.WriteInt32("units", 70000)
	w.WriteInt64("cents", -9000000000)
	w.WriteUint8("flags", 0xAA)
	w.WriteUint16("port", 47000)
	w.WriteUint32("crc", 0xDEADBEEF)
	w.WriteUint64("serial", 1<<40)
	w.WriteFloat32("rate", 0.0725)
	w.WriteFloat64("weight", 12.5)
	w.WriteString("number", "INV-0042")
	w.WriteBytes("digest", []byte{1, 2, 3, 4})
	w.WriteDecimal("price", price)
	w.WriteTime("issued", when)
	w.WriteEnum("status", EnumValue{TypeID: 7, Ordinal: 2})
	w.WriteList("lines", []any{"widget", int32(3)})
	w.WriteMap("labels", map[string]any{"env": "prod", "dc": "fra1"})
	data, err := w.Finish()
	s.Require().NoError(err)

	r, err := NewReader(data)
	s.Require().NoError(err)

	nv, err := r.ReadAny("memo")
	s.Require().NoError(err)
	s.Assert().Nil(nv)

	b, err := r.ReadBool("paid")
	s.Require().NoError(err)
	s.Assert().True(b)

	i8, err := r.ReadInt8("tier")
	s.Require().NoError(err)
	s.Assert().EqualValues(-3, i8)

	i16, err := r.ReadInt16("weeks")
	s.Require().NoError(err)
	s.Assert().EqualValues(-1200, i16)

	i32v, err := r.ReadInt32("units")
	s.Require().NoError(err)
	s.Assert().EqualValues(70000, i32v)

	i64v, err := r.ReadInt64("cents")
	s.Require().NoError(err)
	s.Assert().EqualValues(-9000000000, i64v)

	u8, err := r.ReadUint8("flags")
	s.Require().NoError(err)
	s.Assert().EqualValues(0xAA, u8)

	u16, err := r.ReadUint16("port")
	s.Require().NoError(err)
	s.Assert().EqualValues(47000, u16)

	u32v, err := r.ReadUint32("crc")
	s.Require().NoError(err)
	s.Assert().EqualValues(0xDEADBEEF, u32v)

	u64v, err := r.ReadUint64("serial")
	s.Require().NoError(err)
	s.Assert().EqualValues(uint64(1)<<40, u64v)

	f32, err := r.ReadFloat32("rate")
	s.Require().NoError(err)
	s.Assert().EqualValues(float32(0.0725), f32)

	f64, err := r.ReadFloat64("weight")
	s.Require().NoError(err)
	s.Assert().EqualValues(12.5, f64)

	str, err := r.ReadString("number")
	s.Require().NoError(err)
	s.Assert().Equal("INV-0042", str)

	raw, err := r.ReadBytes("digest")
	s.Require().NoError(err)
	s.Assert().Equal([]byte{1, 2, 3, 4}, raw)

	dec, err := r.ReadDecimal("price")
	s.Require().NoError(err)
	s.Assert().True(price.Equal(dec), "want %s, got %s", price, dec)

	ts, err := r.ReadTime("issued")
	s.Require().NoError(err)
	s.Assert().True(when.Equal(ts))

	ev, err := r.ReadEnum("status")
	s.Require().NoError(err)
	s.Assert().Equal(EnumValue{TypeID: 7, Ordinal: 2}, ev)

	list, err := r.ReadList("lines")
	s.Require().NoError(err)
	s.Assert().Equal([]any{"widget", int32(3)}, list)

	m, err := r.ReadMap("labels")
	s.Require().NoError(err)
	s.Assert().Equal(map[string]any{"env": "prod", "dc": "fra1"}, m)
}

func (s *WriterTestSuite) TestFieldOrderIsIrrelevantToReads() {
	first := s.newWriter("geo.Address")
	first.WriteString("street", "Main St 1")
	first.WriteInt32("zip", 94107)
	a, err := first.Finish()
	s.Require().NoError(err)

	second := s.newWriter("geo.Address")
	second.WriteInt32("zip", 94107)
	second.WriteString("street", "Main St 1")
	b, err := second.Finish()
	s.Require().NoError(err)

	for _, data := range [][]byte{a, b} {
		r, err := NewReader(data)
		s.Require().NoError(err)
		zip, err := r.ReadInt32("zip")
		s.Require().NoError(err)
		s.Assert().EqualValues(94107, zip)
		street, err := r.ReadString("street")
		s.Require().NoError(err)
		s.Assert().Equal("Main St 1", street)
	}
}

func (s *WriterTestSuite) TestNestedObject() {
	inner := s.newWriter("geo.Address")
	inner.WriteString("city", "Hamburg")
	innerData, err := inner.Finish()
	s.Require().NoError(err)
	innerObj, err := AsObject(innerData)
	s.Require().NoError(err)

	outer := s.newWriter("crm.Customer")
	outer.WriteString("name", "ACME")
	outer.WriteObject("home", innerObj)
	data, err := outer.Finish()
	s.Require().NoError(err)

	r, err := NewReader(data)
	s.Require().NoError(err)
	got, err := r.ReadObject("home")
	s.Require().NoError(err)
	s.Assert().Equal(TypeIDOf("geo.Address"), got.TypeID())
	city, err := got.Field("city")
	s.Require().NoError(err)
	s.Assert().Equal("Hamburg", city)
}

func (s *WriterTestSuite) TestDuplicateFieldIsSchemaCollision() {
	w := s.newWriter("geo.Address")
	w.WriteInt32("zip", 94107)
	w.WriteInt32("zip", 221)
	_, err := w.Finish()
	s.Require().Error(err)
	s.Assert().ErrorIs(err, ErrSchemaCollision)
}

func (s *WriterTestSuite) TestErrorLatching() {
	w := s.newWriter("geo.Address")
	w.WriteInt32("zip", 94107)
	w.WriteAny("bad", struct{ C chan int }{}) // no binary representation
	w.WriteString("street", "never lands")
	_, err := w.Finish()
	s.Require().Error(err)
	first := w.Err()
	s.Assert().Equal(first, w.Err(), "latched error must not change")
}

func (s *WriterTestSuite) TestWriteAfterFinish() {
	w := s.newWriter("geo.Address")
	w.WriteInt32("zip", 94107)
	_, err := w.Finish()
	s.Require().NoError(err)

	w.WriteInt32("zip2", 221)
	s.Assert().ErrorIs(w.Err(), ErrWriterFinished)
	_, err = w.Finish()
	s.Assert().ErrorIs(err, ErrWriterFinished)
}

func (s *WriterTestSuite) TestModeConflicts() {
	s.T().Run("RawAfterNamed", func(t *testing.T) {
		w := s.newWriter("geo.Address")
		w.WriteInt32("zip", 94107)
		rw := w.Raw()
		rw.WriteInt32(221)
		_, err := w.Finish()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrModeConflict)
	})

	s.T().Run("NamedAfterRaw", func(t *testing.T) {
		w := s.newWriter("geo.Address")
		w.Raw().WriteInt32(94107)
		w.WriteInt32("zip", 221)
		_, err := w.Finish()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrModeConflict)
	})

	s.T().Run("NamedReadOnRawEnvelope", func(t *testing.T) {
		w := s.newWriter("geo.Address")
		w.Raw().WriteInt32(94107)
		data, err := w.Finish()
		require.NoError(t, err)

		r, err := NewReader(data)
		require.NoError(t, err)
		_, err = r.ReadInt32("zip")
		assert.ErrorIs(t, err, ErrModeConflict)
	})

	s.T().Run("RawReadOnStructuredEnvelope", func(t *testing.T) {
		w := s.newWriter("geo.Address")
		w.WriteInt32("zip", 94107)
		data, err := w.Finish()
		require.NoError(t, err)

		r, err := NewReader(data)
		require.NoError(t, err)
		rr := r.Raw()
		var zip int32
		rr.ReadInt32(&zip)
		assert.ErrorIs(t, rr.Err(), ErrModeConflict)
		assert.Zero(t, zip)
	})
}

func (s *WriterTestSuite) TestRawRoundTrip() {
	price := decimal.New(4999, -2)
	when := time.Date(2023, 11, 2, 16, 0, 0, 500, time.UTC)

	w := s.newWriter("md.Tick")
	rw := w.Raw()
	rw.WriteUint64(8823001)
	rw.WriteString("EURUSD")
	rw.WriteDecimal(price)
	rw.WriteTime(when)
	rw.WriteBool(false)
	data, err := w.Finish()
	s.Require().NoError(err)

	obj, err := AsObject(data)
	s.Require().NoError(err)
	s.Assert().True(obj.Raw())
	s.Assert().Zero(obj.SchemaID())
	s.Assert().Zero(obj.FieldCount())

	r, err := NewReader(data)
	s.Require().NoError(err)
	rr := r.Raw()
	var (
		seq    uint64
		symbol string
		px     decimal.Decimal
		ts     time.Time
		halted bool
	)
	rr.ReadUint64(&seq)
	rr.ReadString(&symbol)
	rr.ReadDecimal(&px)
	rr.ReadTime(&ts)
	rr.ReadBool(&halted)
	s.Require().NoError(rr.Err())
	s.Assert().EqualValues(8823001, seq)
	s.Assert().Equal("EURUSD", symbol)
	s.Assert().True(price.Equal(px))
	s.Assert().True(when.Equal(ts))
	s.Assert().False(halted)
}

func (s *WriterTestSuite) TestRawReadOutOfOrder() {
	w := s.newWriter("md.Tick")
	rw := w.Raw()
	rw.WriteUint64(1)
	rw.WriteString("EURUSD")
	data, err := w.Finish()
	s.Require().NoError(err)

	r, err := NewReader(data)
	s.Require().NoError(err)
	rr := r.Raw()
	var symbol string
	rr.ReadString(&symbol) // first value is a uint64
	s.Assert().ErrorIs(rr.Err(), ErrTypeMismatch)
}

func TestWriter(t *testing.T) {
	suite.Run(t, new(WriterTestSuite))
}

// --- Reader Test Suite ---

type ReaderTestSuite struct {
	suite.Suite
	eng *Engine
}

func (s *ReaderTestSuite) SetupTest() {
	s.eng = NewEngine()
}

func (s *ReaderTestSuite) envelope(build func(w *Writer)) []byte {
	w, err := s.eng.NewWriter("test.Subject")
	s.Require().NoError(err)
	build(w)
	data, err := w.Finish()
	s.Require().NoError(err)
	return data
}

func (s *ReaderTestSuite) TestFieldNotFound() {
	data := s.envelope(func(w *Writer) {
		w.WriteInt32("zip", 94107)
	})
	r, err := NewReader(data)
	s.Require().NoError(err)
	_, err = r.ReadInt32("city")
	s.Assert().ErrorIs(err, ErrFieldNotFound)
}

func (s *ReaderTestSuite) TestTypeMismatch() {
	data := s.envelope(func(w *Writer) {
		w.WriteString("zip", "94107")
	})
	r, err := NewReader(data)
	s.Require().NoError(err)
	_, err = r.ReadInt32("zip")
	s.Assert().ErrorIs(err, ErrTypeMismatch)
}

func (s *ReaderTestSuite) TestIntNamed() {
	data := s.envelope(func(w *Writer) {
		w.WriteInt16("small", 300)
		w.WriteInt64("big", 1<<40)
	})
	r, err := NewReader(data)
	s.Require().NoError(err)

	v, err := IntNamed[int64](r, "small")
	s.Require().NoError(err)
	s.Assert().EqualValues(300, v)

	_, err = IntNamed[int8](r, "small")
	s.Assert().ErrorIs(err, ErrTypeMismatch, "300 does not fit int8")

	w, err := IntNamed[int](r, "big")
	s.Require().NoError(err)
	s.Assert().EqualValues(1<<40, w)
}

func (s *ReaderTestSuite) TestTruncatedInput() {
	_, err := NewReader([]byte{Marker, 1, 2})
	s.Assert().ErrorIs(err, ErrTruncatedInput)
}

func (s *ReaderTestSuite) TestBadMarker() {
	data := s.envelope(func(w *Writer) {
		w.WriteInt32("zip", 94107)
	})
	data[0] = 0x00
	_, err := NewReader(data)
	s.Assert().ErrorIs(err, ErrInvalidEnvelope)
}

func (s *ReaderTestSuite) TestLengthMismatch() {
	data := s.envelope(func(w *Writer) {
		w.WriteInt32("zip", 94107)
	})
	_, err := NewReader(data[:len(data)-1])
	s.Assert().ErrorIs(err, ErrInvalidEnvelope)
}

func (s *ReaderTestSuite) TestCorruptedBody() {
	data := s.envelope(func(w *Writer) {
		w.WriteInt32("zip", 94107)
	})
	data[headerSize+2] ^= 0xFF
	_, err := NewReader(data)
	s.Assert().ErrorIs(err, ErrInvalidEnvelope, "body hash check must catch the flip")
}

func TestReader(t *testing.T) {
	suite.Run(t, new(ReaderTestSuite))
}

// --- Object Test Suite ---

type ObjectTestSuite struct {
	suite.Suite
	eng *Engine
}

func (s *ObjectTestSuite) SetupTest() {
	s.eng = NewEngine()
}

func (s *ObjectTestSuite) address(zip int32) *Object {
	w, err := s.eng.NewWriter("geo.Address")
	s.Require().NoError(err)
	w.WriteString("street", "Main St 1")
	w.WriteInt32("zip", zip)
	data, err := w.Finish()
	s.Require().NoError(err)
	obj, err := AsObject(data)
	s.Require().NoError(err)
	return obj
}

func (s *ObjectTestSuite) TestHashAndEquality() {
	a := s.address(94107)
	b := s.address(94107)
	c := s.address(221)

	s.Assert().Equal(a.HashCode(), b.HashCode(), "equal bodies, equal hash")
	s.Assert().True(a.Equal(b))
	s.Assert().False(a.Equal(c))
	s.Assert().False(a.Equal(nil))
	s.Assert().Equal(a.SchemaID(), c.SchemaID(), "same field set, same schema id")
}

func (s *ObjectTestSuite) TestFieldAccessWithoutMaterialization() {
	obj := s.address(94107)

	s.Assert().True(obj.HasField("zip"))
	s.Assert().True(obj.HasField("ZIP"), "field lookup is case-insensitive")
	s.Assert().False(obj.HasField("country"))

	v, err := obj.Field("zip")
	s.Require().NoError(err)
	s.Assert().Equal(int32(94107), v)

	_, err = obj.Field("country")
	s.Assert().ErrorIs(err, ErrFieldNotFound)
}

func (s *ObjectTestSuite) TestBytesRoundTrip() {
	obj := s.address(94107)
	again, err := AsObject(obj.Bytes())
	s.Require().NoError(err)
	s.Assert().True(obj.Equal(again))
}

func (s *ObjectTestSuite) TestStructuredScenarioSurvivesByteCopy() {
	w, err := s.eng.NewWriter("geo.Address")
	s.Require().NoError(err)
	w.WriteString("street", "Baker St")
	w.WriteInt32("zip", 221)
	data, err := w.Finish()
	s.Require().NoError(err)

	// Simulate transport: a detached byte copy, original buffer discarded.
	wire := make([]byte, len(data))
	copy(wire, data)

	obj, err := AsObject(wire)
	s.Require().NoError(err)
	s.Assert().Equal(2, obj.FieldCount(), "footer must carry exactly two entries")

	r, err := NewReader(wire)
	s.Require().NoError(err)
	zip, err := r.ReadInt32("zip")
	s.Require().NoError(err)
	s.Assert().EqualValues(221, zip)
	street, err := r.ReadString("street")
	s.Require().NoError(err)
	s.Assert().Equal("Baker St", street)
}

func (s *ObjectTestSuite) TestRawScenarioHasNoSchemaBytes() {
	w, err := s.eng.NewWriter("geo.Address")
	s.Require().NoError(err)
	rw := w.Raw()
	rw.WriteString("Baker St")
	rw.WriteInt32(221)
	data, err := w.Finish()
	s.Require().NoError(err)

	// tag + i32 len + 8 string bytes, then tag + i32 payload.
	bodyLen := (1 + 4 + len("Baker St")) + (1 + 4)
	s.Assert().Equal(headerSize+bodyLen, len(data), "raw envelope is header plus body, nothing else")

	r, err := NewReader(data)
	s.Require().NoError(err)
	rr := r.Raw()
	var street string
	var zip int32
	rr.ReadString(&street)
	rr.ReadInt32(&zip)
	s.Require().NoError(rr.Err())
	s.Assert().Equal("Baker St", street)
	s.Assert().EqualValues(221, zip)
}

func TestObject(t *testing.T) {
	suite.Run(t, new(ObjectTestSuite))
}
