package board

import (
	"fmt"
	"math/bits"
)

// Position is a Connect Four position stored as two bitboards. own holds the
// stones of the player whose turn it is; occupied holds every stone. The
// opponent's stones are occupied ^ own.
//
// Bit c*(Height+1)+r is column c, row r (row 0 at the bottom). Row Height of
// every column is never set, which keeps carries inside a column and makes
// Key unique:
//
//	 6 13 20 27 34 41 48
//	 5 12 19 26 33 40 47
//	 4 11 18 25 32 39 46
//	 3 10 17 24 31 38 45
//	 2  9 16 23 30 37 44
//	 1  8 15 22 29 36 43
//	 0  7 14 21 28 35 42
//
// A Position is a small value; copy it to explore a variation.
type Position struct {
	own      uint64
	occupied uint64
	ply      int
	dims     *Dims
}

// NewPosition returns the empty board.
func NewPosition(d *Dims) Position {
	return Position{dims: d}
}

func (p *Position) Dims() *Dims {
	return p.dims
}

// Ply is the number of moves played since the empty board.
func (p *Position) Ply() int {
	return p.ply
}

// Key identifies the position, including the side to move. own is a subset
// of occupied, so the sum adds a single bit just above the stones of each
// column and never carries across columns.
func (p *Position) Key() uint64 {
	return p.own + p.occupied
}

// Equal compares the stones, the move count and the board size.
func (p *Position) Equal(o *Position) bool {
	return p.own == o.own && p.occupied == o.occupied && p.ply == o.ply &&
		p.dims.Width == o.dims.Width && p.dims.Height == o.dims.Height
}

// CanPlay reports whether col still has room.
func (p *Position) CanPlay(col int) bool {
	return p.occupied&p.dims.TopMask(col) == 0
}

// Play drops a stone for the side to move in col. col must be playable.
func (p *Position) Play(col int) {
	if !p.CanPlay(col) {
		panic(fmt.Sprintf("column %d is not playable", col))
	}
	p.PlayBit((p.occupied + p.dims.BottomMask(col)) & p.dims.ColumnMask(col))
}

// PlayBit plays a move given as the single bit of the cell it lands in.
func (p *Position) PlayBit(move uint64) {
	p.own ^= p.occupied
	p.occupied |= move
	p.ply++
}

// IsWinning reports whether playing col right now aligns four stones for the
// side to move. col must be playable.
func (p *Position) IsWinning(col int) bool {
	stones := p.own | ((p.occupied + p.dims.BottomMask(col)) & p.dims.ColumnMask(col))
	return alignment(stones, p.dims.Height)
}

// Possible has one bit per non-full column: the cell a stone would land in.
func (p *Position) Possible() uint64 {
	return (p.occupied + p.dims.bottom) & p.dims.boardMask
}

// WinningPosition marks every empty cell that would complete four for the
// side to move, reachable or not.
func (p *Position) WinningPosition() uint64 {
	return computeWinningPosition(p.own, p.occupied, p.dims)
}

// OpponentWinningPosition is WinningPosition for the other player.
func (p *Position) OpponentWinningPosition() uint64 {
	return computeWinningPosition(p.own^p.occupied, p.occupied, p.dims)
}

// CanWinNext reports whether the side to move has an immediately winning move.
func (p *Position) CanWinNext() bool {
	return p.WinningPosition()&p.Possible() != 0
}

// PossibleNonLosingMoves returns the playable cells that do not let the
// opponent win on the next move. The result is empty when the opponent has
// two playable winning cells. This must only be called when the side to move
// cannot win immediately.
func (p *Position) PossibleNonLosingMoves() uint64 {
	possible := p.Possible()
	opponentWin := p.OpponentWinningPosition()
	forced := possible & opponentWin
	if forced != 0 {
		if forced&(forced-1) != 0 {
			return 0
		}
		possible = forced
	}
	// never play directly below an opponent's winning cell
	return possible &^ (opponentWin >> 1)
}

// ScoreMove counts the winning cells the side to move would have after
// playing move. It is only used to order moves.
func (p *Position) ScoreMove(move uint64) int {
	return bits.OnesCount64(computeWinningPosition(p.own|move, p.occupied, p.dims))
}

// alignment reports whether stones has four in a row in any direction.
// For a direction whose neighbour is d bits away, m = s & (s >> d) marks pairs,
// and m & (m >> 2d) marks runs of four.
func alignment(stones uint64, height int) bool {
	for _, d := range [4]int{1, height + 1, height, height + 2} {
		m := stones & (stones >> d)
		if m&(m>>(2*d)) != 0 {
			return true
		}
	}
	return false
}

// computeWinningPosition marks the empty cells that complete an alignment of
// four for the owner of stones.
func computeWinningPosition(stones, occupied uint64, d *Dims) uint64 {
	h := d.Height
	// vertical
	r := (stones << 1) & (stones << 2) & (stones << 3)

	for _, s := range [3]int{h + 1, h, h + 2} {
		// two stones on one side
		p := (stones << s) & (stones << (2 * s))
		r |= p & (stones << (3 * s))
		r |= p & (stones >> s)
		// two stones on the other side
		p = (stones >> s) & (stones >> (2 * s))
		r |= p & (stones << s)
		r |= p & (stones >> (3 * s))
	}
	return r & (d.boardMask ^ occupied)
}

// Stones returns the bitboards of the first and second player.
func (p *Position) Stones() (first, second uint64) {
	if p.ply%2 == 0 {
		return p.own, p.own ^ p.occupied
	}
	return p.own ^ p.occupied, p.own
}
