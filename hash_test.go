//go:build test

package binobj

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFieldHashCaseInsensitive(t *testing.T) {
	assert.Equal(t, FieldHash("street"), FieldHash("Street"))
	assert.Equal(t, FieldHash("street"), FieldHash("STREET"))
	assert.NotEqual(t, FieldHash("street"), FieldHash("city"))
}

func TestFieldHashKnownVectors(t *testing.T) {
	// FNV-1a 32-bit reference values.
	assert.Equal(t, uint32(0x811c9dc5), FieldHash(""))
	assert.Equal(t, uint32(0xe40c292c), FieldHash("a"))
}

func TestTypeIDStability(t *testing.T) {
	id := TypeIDOf("billing.Invoice")
	assert.Equal(t, id, TypeIDOf("billing.Invoice"))
	assert.Equal(t, id, TypeIDOf("Billing.INVOICE"), "type ids are case-insensitive")
	assert.NotEqual(t, id, TypeIDOf("billing.Receipt"))
}

func TestBodyHashDeterminism(t *testing.T) {
	a := []byte("the quick brown fox")
	b := []byte("the quick brown fox")
	assert.Equal(t, BodyHash(a), BodyHash(b))
	assert.NotEqual(t, BodyHash(a), BodyHash([]byte("the quick brown fix")))
}

func TestSchemaIDOrderSensitivity(t *testing.T) {
	ab := []schemaEntry{{hash: 1}, {hash: 2}}
	ba := []schemaEntry{{hash: 2}, {hash: 1}}
	assert.NotEqual(t, schemaIDOf(ab), schemaIDOf(ba), "schema id folds hashes in order")
	assert.Zero(t, schemaIDOf(nil))
}

func TestQualifiedName(t *testing.T) {
	assert.Equal(t, "example.com/pkg.Point", qualifiedName("example.com/pkg", "Point"))
	assert.Equal(t, "Point", qualifiedName("", "Point"))
}
