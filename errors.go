package binobj

import "errors"

var (
	// ErrConfigurationConflict indicates an ambiguous or contradictory type
	// registration: an override applied after the type was already resolved,
	// or two distinct type names mapping to the same logical type id.
	ErrConfigurationConflict = errors.New("binobj: conflicting type registration")

	// ErrSchemaCollision indicates that two distinct field names within one
	// type hash to the same 32-bit value, or that one field name was written
	// twice into the same object.
	ErrSchemaCollision = errors.New("binobj: field name hash collision in schema")

	// ErrModeConflict indicates that raw and structured access were mixed on
	// one envelope. Once a writer or reader is committed to one mode, the
	// other mode is forbidden for the lifetime of that envelope.
	ErrModeConflict = errors.New("binobj: raw and structured access mixed on one envelope")

	// ErrFieldNotFound indicates a named read missed the schema table. This is
	// recoverable: callers distinguish "field missing" from "field null" and
	// may substitute a default.
	ErrFieldNotFound = errors.New("binobj: field not present in schema")

	// ErrTypeMismatch indicates a decoded wire tag does not match the kind the
	// caller asked for.
	ErrTypeMismatch = errors.New("binobj: wire tag does not match expected kind")

	// ErrTruncatedInput indicates fewer bytes remain in the buffer than the
	// wire tag or the envelope header declares.
	ErrTruncatedInput = errors.New("binobj: truncated input")

	// ErrUnresolvedType indicates a logical type id on the wire has no local
	// descriptor and no registry fallback.
	ErrUnresolvedType = errors.New("binobj: no descriptor for logical type id")

	// ErrInvalidEnvelope indicates the buffer does not start with the object
	// marker or its header is internally inconsistent.
	ErrInvalidEnvelope = errors.New("binobj: malformed envelope")

	// ErrNotPointer indicates Unmarshal was called with a nil or non-pointer
	// destination.
	ErrNotPointer = errors.New("binobj: destination must be a non-nil pointer")

	// ErrUnsupportedKind indicates a Go value has no binary representation in
	// the field codec.
	ErrUnsupportedKind = errors.New("binobj: unsupported value kind")

	// ErrWriterFinished indicates a write was attempted after Finish.
	ErrWriterFinished = errors.New("binobj: writer already finished")
)
