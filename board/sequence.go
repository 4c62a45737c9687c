package board

import (
	"strings"

	"lukechampine.com/frand"
)

// PlaySequence plays a sequence of 1-indexed column digits, e.g. "4453".
// It stops at the first move that is not a digit, is outside the board, lands
// in a full column or would win the game, and returns how many moves were
// played. Compare the result to len(seq) to detect an early stop.
func (p *Position) PlaySequence(seq string) int {
	for i := 0; i < len(seq); i++ {
		col := int(seq[i]) - '1'
		if col < 0 || col >= p.dims.Width || !p.CanPlay(col) || p.IsWinning(col) {
			return i
		}
		p.Play(col)
	}
	return len(seq)
}

// FromSequence builds a position from a move sequence, returning the position
// reached and the number of moves played.
func FromSequence(d *Dims, seq string) (Position, int) {
	p := NewPosition(d)
	n := p.PlaySequence(seq)
	return p, n
}

// RandomSequence plays up to plies random moves from the empty board, never
// choosing a move that ends the game. It returns early when the side to move
// has nothing but winning moves or the board fills up.
func RandomSequence(d *Dims, plies int) string {
	p := NewPosition(d)
	var sb strings.Builder
	candidates := make([]int, 0, d.Width)
	for i := 0; i < plies; i++ {
		candidates = candidates[:0]
		for col := 0; col < d.Width; col++ {
			if p.CanPlay(col) && !p.IsWinning(col) {
				candidates = append(candidates, col)
			}
		}
		if len(candidates) == 0 {
			break
		}
		col := candidates[frand.Intn(len(candidates))]
		p.Play(col)
		sb.WriteByte(byte('1' + col))
	}
	return sb.String()
}
