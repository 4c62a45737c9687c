package negamax

import "fmt"

type sortEntry struct {
	move  uint64
	score int
}

// MoveSorter orders the candidate moves of a single node. It holds at most
// one move per column and hands them back best first. Moves with equal
// scores come back in the order they were added.
type MoveSorter struct {
	entries []sortEntry
	size    int
}

func NewMoveSorter(capacity int) *MoveSorter {
	return &MoveSorter{entries: make([]sortEntry, capacity)}
}

// Add inserts a move, keeping entries sorted by ascending score with the
// next move to return at the end.
func (m *MoveSorter) Add(move uint64, score int) {
	if m.size == len(m.entries) {
		panic(fmt.Sprintf("move sorter is full (%d moves)", m.size))
	}
	pos := m.size
	m.size++
	for ; pos > 0 && m.entries[pos-1].score >= score; pos-- {
		m.entries[pos] = m.entries[pos-1]
	}
	m.entries[pos] = sortEntry{move: move, score: score}
}

// GetNext pops the best remaining move, or returns 0 when there is none.
func (m *MoveSorter) GetNext() uint64 {
	if m.size == 0 {
		return 0
	}
	m.size--
	return m.entries[m.size].move
}

func (m *MoveSorter) Reset() {
	m.size = 0
}

func (m *MoveSorter) Len() int {
	return m.size
}
