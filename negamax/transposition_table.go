package negamax

import (
	"fmt"
	"sync/atomic"
)

// Bound says how a stored value relates to the exact score of a position.
// The zero Bound marks an unused slot.
type Bound uint8

const (
	LowerBound Bound = 0x01
	UpperBound Bound = 0x02
)

func (b Bound) String() string {
	switch b {
	case LowerBound:
		return "lower"
	case UpperBound:
		return "upper"
	}
	return "none"
}

// DefaultTableSize is a prime a little below 2^23, so that keys that differ
// only in their high bits still spread over the buckets.
const DefaultTableSize = 8388593

// 16 bytes (entrySize), padding included.
const entrySize = 16

// TableEntry is one bucket of the table. Scores always fit in a byte.
type TableEntry struct {
	key   uint64
	value int8
	flag  Bound
}

func (t TableEntry) valid() bool {
	return t.flag != 0
}

// TranspositionTable caches bounds on position scores. Each key maps to a
// single bucket, key % size, and a store always replaces what was there.
// The full key is kept so a lookup never returns another position's value.
type TranspositionTable struct {
	table []TableEntry

	created atomic.Uint64
	lookups atomic.Uint64
	hits    atomic.Uint64
	// lookups that found the bucket taken by a different position.
	t2collisions atomic.Uint64
}

// NewTranspositionTable allocates a table with size buckets.
func NewTranspositionTable(size int) *TranspositionTable {
	if size <= 0 {
		panic(fmt.Sprintf("transposition table size must be positive, got %d", size))
	}
	return &TranspositionTable{table: make([]TableEntry, size)}
}

func (t *TranspositionTable) index(key uint64) uint64 {
	return key % uint64(len(t.table))
}

// Put stores value for key with the given bound, evicting any previous entry
// in the same bucket.
func (t *TranspositionTable) Put(key uint64, value int, bound Bound) {
	t.table[t.index(key)] = TableEntry{key: key, value: int8(value), flag: bound}
	t.created.Add(1)
}

// Get returns the value stored for key, if any.
func (t *TranspositionTable) Get(key uint64) (value int, bound Bound, ok bool) {
	t.lookups.Add(1)
	e := t.table[t.index(key)]
	if !e.valid() {
		return 0, 0, false
	}
	if e.key != key {
		t.t2collisions.Add(1)
		return 0, 0, false
	}
	t.hits.Add(1)
	return int(e.value), e.flag, true
}

// Reset empties every bucket and zeroes the counters.
func (t *TranspositionTable) Reset() {
	clear(t.table)
	t.created.Store(0)
	t.lookups.Store(0)
	t.hits.Store(0)
	t.t2collisions.Store(0)
}

func (t *TranspositionTable) Size() int {
	return len(t.table)
}

// MemoryBytes estimates the memory held by the buckets.
func (t *TranspositionTable) MemoryBytes() int {
	return TableMemoryBytes(len(t.table))
}

// TableMemoryBytes is the memory a table of size buckets needs.
func TableMemoryBytes(size int) int {
	return size * entrySize
}

// TableStats is a snapshot of the table counters.
type TableStats struct {
	Created      uint64
	Lookups      uint64
	Hits         uint64
	T2Collisions uint64
}

func (t *TranspositionTable) Stats() TableStats {
	return TableStats{
		Created:      t.created.Load(),
		Lookups:      t.lookups.Load(),
		Hits:         t.hits.Load(),
		T2Collisions: t.t2collisions.Load(),
	}
}
