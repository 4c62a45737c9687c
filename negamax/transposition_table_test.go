package negamax

import (
	"testing"

	"github.com/matryer/is"
	"github.com/stretchr/testify/assert"
)

func TestTTableEntry(t *testing.T) {
	is := is.New(t)
	tt := NewTranspositionTable(101)
	tt.Put(9409641586937047728, -12, UpperBound)

	v, b, ok := tt.Get(9409641586937047728)
	is.True(ok)
	is.Equal(v, -12)
	is.Equal(b, UpperBound)

	is.Equal(tt.Stats().T2Collisions, uint64(0))
	// same bucket, different position
	_, _, ok = tt.Get(9409641586937047728 + 101)
	is.True(!ok)
	is.Equal(tt.Stats().T2Collisions, uint64(1))

	// another bucket entirely; empty, so not a collision.
	_, _, ok = tt.Get(9409641586937047728 + 1)
	is.True(!ok)
	is.Equal(tt.Stats().Lookups, uint64(3))
	is.Equal(tt.Stats().Hits, uint64(1))
	is.Equal(tt.Stats().T2Collisions, uint64(1))
}

func TestTTableZeroKey(t *testing.T) {
	is := is.New(t)
	tt := NewTranspositionTable(17)
	// The empty board has key 0; an unused bucket must not look like it.
	_, _, ok := tt.Get(0)
	is.True(!ok)

	tt.Put(0, 3, LowerBound)
	v, b, ok := tt.Get(0)
	is.True(ok)
	is.Equal(v, 3)
	is.Equal(b, LowerBound)
}

func TestTTableOverwrite(t *testing.T) {
	is := is.New(t)
	tt := NewTranspositionTable(17)
	tt.Put(5, 1, LowerBound)
	tt.Put(22, -7, UpperBound) // 22 % 17 == 5

	_, _, ok := tt.Get(5)
	is.True(!ok)
	v, b, ok := tt.Get(22)
	is.True(ok)
	is.Equal(v, -7)
	is.Equal(b, UpperBound)
	is.Equal(tt.Stats().Created, uint64(2))

	tt.Reset()
	_, _, ok = tt.Get(22)
	is.True(!ok)
	is.Equal(tt.Stats(), TableStats{Lookups: 1})
}

func TestTTableSize(t *testing.T) {
	is := is.New(t)
	tt := NewTranspositionTable(1000)
	is.Equal(tt.Size(), 1000)
	is.Equal(tt.MemoryBytes(), 16000)
	assert.Panics(t, func() { NewTranspositionTable(0) })
	is.Equal(LowerBound.String(), "lower")
}
