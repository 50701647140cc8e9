package idgen

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeterministic_Idempotent(t *testing.T) {
	a := Deterministic("annotations", "work-1", "12", "0.1,0.2,0.8,0.9")
	b := Deterministic("annotations", "work-1", "12", "0.1,0.2,0.8,0.9")
	assert.Equal(t, a, b)
}

func TestDeterministic_DistinctInputs(t *testing.T) {
	a := Deterministic("annotations", "work-1", "12")
	b := Deterministic("annotations", "work-1", "13")
	assert.NotEqual(t, a, b)
}

func TestDeterministic_KindSeparatesNamespaces(t *testing.T) {
	a := Deterministic("works", "x")
	b := Deterministic("authors", "x")
	assert.NotEqual(t, a, b)
}

// Concatenation across field boundaries must not produce the same id.
func TestDeterministic_NoBoundaryCollision(t *testing.T) {
	a := Deterministic("works", "ab", "c")
	b := Deterministic("works", "a", "bc")
	assert.NotEqual(t, a, b)
}

func TestDeterministic_HexEncoded(t *testing.T) {
	id := Deterministic("blobs", "payload")
	assert.Len(t, id, 64)
	assert.Regexp(t, "^[0-9a-f]+$", id)
}

func TestRandom_UniqueAndParseable(t *testing.T) {
	a := Random()
	b := Random()
	assert.NotEqual(t, a, b)

	_, err := uuid.Parse(a)
	require.NoError(t, err)
}
