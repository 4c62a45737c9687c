package board

import (
	"fmt"
	"strings"
)

const (
	FirstPlayerStone  = 'X'
	SecondPlayerStone = 'O'
	EmptyCell         = '.'
)

// ToDisplayText draws the board, top row first, followed by the column
// numbers and the side to move.
func (p *Position) ToDisplayText() string {
	var sb strings.Builder
	first, second := p.Stones()
	d := p.dims
	for row := d.Height - 1; row >= 0; row-- {
		sb.WriteString("|")
		for col := 0; col < d.Width; col++ {
			bit := uint64(1) << (col*(d.Height+1) + row)
			switch {
			case first&bit != 0:
				sb.WriteRune(FirstPlayerStone)
			case second&bit != 0:
				sb.WriteRune(SecondPlayerStone)
			default:
				sb.WriteRune(EmptyCell)
			}
		}
		sb.WriteString("|\n")
	}
	sb.WriteString(" ")
	for col := 0; col < d.Width; col++ {
		sb.WriteString(fmt.Sprint(col + 1))
	}
	sb.WriteString("\n")
	toMove := FirstPlayerStone
	if p.ply%2 == 1 {
		toMove = SecondPlayerStone
	}
	fmt.Fprintf(&sb, "ply %d, %c to move\n", p.ply, toMove)
	return sb.String()
}
