package board

import (
	"errors"
	"fmt"
)

const (
	// MaxWidth is the widest board a move sequence can describe, since every
	// move is a single decimal digit.
	MaxWidth = 9
	// wordBits is the size of the bitboard word.
	wordBits = 64
)

var (
	ErrInvalidDims   = errors.New("board dimensions must be positive")
	ErrBoardTooLarge = errors.New("board does not fit in a 64-bit bitboard")
)

// Dims describes the size of a board along with the precomputed masks that
// depend on it. Each column takes Height+1 bits; the extra bit at the top is
// a sentinel that is never occupied.
type Dims struct {
	Width  int
	Height int

	bottom    uint64
	boardMask uint64
	columns   []uint64
}

// Standard is the usual 7 column, 6 row board.
var Standard = MustDims(7, 6)

// NewDims validates and builds a set of board dimensions.
func NewDims(width, height int) (*Dims, error) {
	if width < 1 || height < 1 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDims, width, height)
	}
	if width > MaxWidth {
		return nil, fmt.Errorf("%w: width %d is more than %d", ErrInvalidDims, width, MaxWidth)
	}
	if width*(height+1) > wordBits {
		return nil, fmt.Errorf("%w: %dx%d needs %d bits", ErrBoardTooLarge,
			width, height, width*(height+1))
	}
	d := &Dims{Width: width, Height: height}
	d.columns = make([]uint64, width)
	for col := 0; col < width; col++ {
		d.bottom |= d.BottomMask(col)
		d.columns[col] = ((uint64(1) << height) - 1) << (col * (height + 1))
	}
	d.boardMask = d.bottom * ((uint64(1) << height) - 1)
	return d, nil
}

// MustDims is NewDims for dimensions known to be valid; it panics otherwise.
func MustDims(width, height int) *Dims {
	d, err := NewDims(width, height)
	if err != nil {
		panic(err)
	}
	return d
}

// Cells is the number of playable cells.
func (d *Dims) Cells() int {
	return d.Width * d.Height
}

// TopMask has a single bit set: the top playable cell of col.
func (d *Dims) TopMask(col int) uint64 {
	return (uint64(1) << (d.Height - 1)) << (col * (d.Height + 1))
}

// BottomMask has a single bit set: the bottom cell of col.
func (d *Dims) BottomMask(col int) uint64 {
	return uint64(1) << (col * (d.Height + 1))
}

// ColumnMask has every playable cell of col set.
func (d *Dims) ColumnMask(col int) uint64 {
	return d.columns[col]
}

// BoardMask has every playable cell of the board set.
func (d *Dims) BoardMask() uint64 {
	return d.boardMask
}

// Column returns the column a single-bit move lies in.
func (d *Dims) Column(move uint64) int {
	for col, m := range d.columns {
		if move&m != 0 {
			return col
		}
	}
	return -1
}

func (d *Dims) String() string {
	return fmt.Sprintf("%dx%d", d.Width, d.Height)
}
