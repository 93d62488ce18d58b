package binobj

// Kind is the one-byte wire tag preceding every encoded field value. The tag
// is part of the value encoding itself, so a named read that seeks into the
// body can verify what it landed on before decoding.
type Kind byte

const (
	KindNil Kind = iota
	KindBool
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindUint8
	KindUint16
	KindUint32
	KindUint64
	KindFloat32
	KindFloat64
	KindString
	KindBytes
	KindDecimal
	KindTime
	KindEnum
	KindList
	KindMap
	KindObject
)

var kindNames = [...]string{
	KindNil:     "nil",
	KindBool:    "bool",
	KindInt8:    "int8",
	KindInt16:   "int16",
	KindInt32:   "int32",
	KindInt64:   "int64",
	KindUint8:   "uint8",
	KindUint16:  "uint16",
	KindUint32:  "uint32",
	KindUint64:  "uint64",
	KindFloat32: "float32",
	KindFloat64: "float64",
	KindString:  "string",
	KindBytes:   "bytes",
	KindDecimal: "decimal",
	KindTime:    "time",
	KindEnum:    "enum",
	KindList:    "list",
	KindMap:     "map",
	KindObject:  "object",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "invalid"
}

func (k Kind) valid() bool { return int(k) < len(kindNames) }
