package binobj

import (
	"encoding/binary"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// The engine fixes three hash algorithms that must never change: they are part
// of the wire contract and have to agree across processes and versions.
//
//   - field-name hash: 32-bit FNV-1a over the lower-cased name
//   - logical type id: 32-bit FNV-1a over the lower-cased qualified type name
//   - body hash:       xxhash64 over the body bytes, folded to 32 bits
//
// Lower-casing makes field lookup case-insensitive across platforms whose
// naming conventions differ (Street vs street vs STREET).

const (
	fnvOffset32 = 2166136261
	fnvPrime32  = 16777619
)

func fnv1aLower(s string) uint32 {
	h := uint32(fnvOffset32)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if 'A' <= c && c <= 'Z' {
			c += 'a' - 'A'
		}
		h ^= uint32(c)
		h *= fnvPrime32
	}
	return h
}

// FieldHash returns the stable 32-bit identity of a field name within a
// schema. Identical names always hash identically; distinct names may collide,
// which is rejected at registration time (SchemaCollision).
func FieldHash(name string) uint32 {
	return fnv1aLower(name)
}

// TypeIDOf derives the logical type id from a fully-qualified type name.
// Identical name implies identical id across processes and versions.
func TypeIDOf(name string) int32 {
	return int32(fnv1aLower(name))
}

// BodyHash computes the deterministic hash code stored in the envelope header.
// Two envelopes with byte-identical bodies always carry equal hash codes, so
// serialized objects can key hash maps without being materialized.
func BodyHash(body []byte) int32 {
	h := xxhash.Sum64(body)
	return int32(uint32(h>>32) ^ uint32(h))
}

// schemaIDOf folds the ordered field hashes of one schema into a 32-bit
// schema version id. Raw-mode envelopes have no schema and use id 0.
func schemaIDOf(entries []schemaEntry) int32 {
	if len(entries) == 0 {
		return 0
	}
	h := uint32(fnvOffset32)
	var b [4]byte
	for _, e := range entries {
		binary.BigEndian.PutUint32(b[:], e.hash)
		for _, c := range b {
			h ^= uint32(c)
			h *= fnvPrime32
		}
	}
	return int32(h)
}

// qualifiedName builds the canonical cross-process name of a Go type:
// import path and type name joined with a dot, lower-cased by the hash.
func qualifiedName(pkgPath, name string) string {
	if pkgPath == "" {
		return name
	}
	var sb strings.Builder
	sb.Grow(len(pkgPath) + 1 + len(name))
	sb.WriteString(pkgPath)
	sb.WriteByte('.')
	sb.WriteString(name)
	return sb.String()
}
