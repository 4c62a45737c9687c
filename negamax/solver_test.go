package negamax

import (
	"bytes"
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/matryer/is"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"gopkg.in/yaml.v3"

	"github.com/domino14/connect4/board"
)

const testTableSize = 65537

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	os.Exit(m.Run())
}

func position(t *testing.T, d *board.Dims, seq string) board.Position {
	t.Helper()
	p, n := board.FromSequence(d, seq)
	if n != len(seq) {
		t.Fatalf("sequence %q stopped after %d moves", seq, n)
	}
	return p
}

// reference scores p by trying every move to the end of the game.
func reference(p board.Position) int {
	d := p.Dims()
	cells := d.Cells()
	if p.Ply() == cells {
		return 0
	}
	for col := 0; col < d.Width; col++ {
		if p.CanPlay(col) && p.IsWinning(col) {
			return (cells + 1 - p.Ply()) / 2
		}
	}
	best := -cells
	for col := 0; col < d.Width; col++ {
		if !p.CanPlay(col) {
			continue
		}
		child := p
		child.Play(col)
		best = max(best, -reference(child))
	}
	return best
}

func TestColumnOrder(t *testing.T) {
	is := is.New(t)
	is.Equal(NewSolver(board.Standard, 17).ColumnOrder(), []int{3, 2, 4, 1, 5, 0, 6})
	is.Equal(NewSolver(board.MustDims(4, 4), 17).ColumnOrder(), []int{2, 1, 3, 0})
}

func TestImmediateWin(t *testing.T) {
	is := is.New(t)
	s := NewSolver(board.Standard, testTableSize)
	p := position(t, board.Standard, "112233")
	v, err := s.Solve(context.Background(), p)
	is.NoErr(err)
	is.Equal(v, (42+1-6)/2)
	// no search needed
	is.Equal(s.Nodes(), uint64(0))

	v, err = s.Minimax(context.Background(), p, true)
	is.NoErr(err)
	is.Equal(v, 18)
	v, err = s.Minimax(context.Background(), p, false)
	is.NoErr(err)
	is.Equal(v, -18)
}

func TestDoubleThreatLoses(t *testing.T) {
	is := is.New(t)
	s := NewSolver(board.Standard, testTableSize)
	p := position(t, board.Standard, "44553")
	is.Equal(p.PossibleNonLosingMoves(), uint64(0))

	v, err := s.Solve(context.Background(), p)
	is.NoErr(err)
	is.Equal(v, -(42-5)/2)

	v, err = s.negamax(context.Background(), p, -100, 100)
	is.NoErr(err)
	is.Equal(v, -18)
}

func TestDraw(t *testing.T) {
	is := is.New(t)
	// four in a row never fits on a 3x3 board
	d := board.MustDims(3, 3)
	s := NewSolver(d, testTableSize)

	full := position(t, d, "111222333")
	v, err := s.Solve(context.Background(), full)
	is.NoErr(err)
	is.Equal(v, 0)

	v, err = s.Solve(context.Background(), board.NewPosition(d))
	is.NoErr(err)
	is.Equal(v, 0)

	v, err = s.Minimax(context.Background(), board.NewPosition(d), false)
	is.NoErr(err)
	is.Equal(v, 0)
}

func TestAgainstReference(t *testing.T) {
	is := is.New(t)
	d := board.MustDims(4, 4)
	s := NewSolver(d, testTableSize)
	ctx := context.Background()
	tested := 0
	for tested < 30 {
		seq := board.RandomSequence(d, 8)
		if len(seq) < 8 {
			continue
		}
		tested++
		p := position(t, d, seq)
		expected := reference(p)

		v, err := s.Solve(ctx, p)
		is.NoErr(err)
		is.Equal(v, expected) // Solve

		v, err = s.Minimax(ctx, p, true)
		is.NoErr(err)
		is.Equal(v, expected) // Minimax

		scores, err := s.Analyze(ctx, p)
		is.NoErr(err)
		best := InvalidMove
		for _, sc := range scores {
			best = max(best, sc)
		}
		is.Equal(best, expected) // best of Analyze

		_, bestScore, err := s.BestMove(ctx, p)
		is.NoErr(err)
		is.Equal(bestScore, expected)
	}
}

func TestSolveDeterministic(t *testing.T) {
	is := is.New(t)
	seq := "662222576343651642712157"
	p := position(t, board.Standard, seq)
	s := NewSolver(board.Standard, testTableSize)

	v1, err := s.Solve(context.Background(), p)
	is.NoErr(err)
	is.True(v1 != 0)
	n1 := s.Nodes()
	is.True(n1 > 0)

	s.Reset()
	is.Equal(s.Nodes(), uint64(0))
	v2, err := s.Solve(context.Background(), p)
	is.NoErr(err)
	is.Equal(v1, v2)
	is.Equal(n1, s.Nodes())

	// a fresh solver searches the same tree
	other := NewSolver(board.Standard, testTableSize)
	v3, err := other.Solve(context.Background(), p)
	is.NoErr(err)
	is.Equal(v1, v3)
	is.Equal(n1, other.Nodes())
}

func TestOptimalMoveNegatesScore(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	p := position(t, board.Standard, "662222576343651642712157")
	s := NewSolver(board.Standard, testTableSize)

	v, err := s.Solve(ctx, p)
	is.NoErr(err)
	col, score, err := s.BestMove(ctx, p)
	is.NoErr(err)
	is.Equal(score, v)
	if p.IsWinning(col) {
		return
	}
	child := p
	child.Play(col)
	cv, err := s.Solve(ctx, child)
	is.NoErr(err)
	is.Equal(cv, -v)
}

func TestAnalyzeFullColumn(t *testing.T) {
	is := is.New(t)
	d := board.MustDims(4, 4)
	s := NewSolver(d, testTableSize)
	p := position(t, d, "1111")
	scores, err := s.Analyze(context.Background(), p)
	is.NoErr(err)
	is.Equal(len(scores), 4)
	is.Equal(scores[0], InvalidMove)
	for _, sc := range scores[1:] {
		is.True(sc != InvalidMove)
	}

	full := position(t, board.MustDims(3, 3), "111222333")
	_, _, err = NewSolver(board.MustDims(3, 3), 17).BestMove(context.Background(), full)
	is.True(errors.Is(err, ErrNoMoves))
}

func TestCancelled(t *testing.T) {
	is := is.New(t)
	s := NewSolver(board.Standard, testTableSize)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	v, err := s.Solve(ctx, board.NewPosition(board.Standard))
	is.True(errors.Is(err, context.Canceled))
	is.Equal(v, 0)

	_, err = s.Analyze(ctx, board.NewPosition(board.Standard))
	is.True(errors.Is(err, context.Canceled))
}

func TestDeadline(t *testing.T) {
	is := is.New(t)
	// far too little time for the empty board
	s := NewSolver(board.Standard, testTableSize)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	_, err := s.Solve(ctx, board.NewPosition(board.Standard))
	is.True(errors.Is(err, context.DeadlineExceeded))
}

func TestLogStream(t *testing.T) {
	is := is.New(t)
	s := NewSolver(board.Standard, testTableSize)
	var buf bytes.Buffer
	s.SetLogStream(&buf)
	_, err := s.Solve(context.Background(), position(t, board.Standard, "44553"))
	is.NoErr(err)

	var probes []LogProbe
	is.NoErr(yaml.Unmarshal(buf.Bytes(), &probes))
	is.Equal(len(probes), 1)
	is.Equal(probes[0].Med, -9)
	is.Equal(probes[0].Result, -18)
	is.Equal(probes[0].Min, -18)
	is.Equal(probes[0].Max, 19)
}

func TestPreconditions(t *testing.T) {
	s := NewSolver(board.Standard, testTableSize)
	ctx := context.Background()
	assert.Panics(t, func() {
		s.negamax(ctx, board.NewPosition(board.Standard), 1, 1)
	})
	assert.Panics(t, func() {
		s.negamax(ctx, position(t, board.Standard, "112233"), -1, 1)
	})
	assert.Panics(t, func() {
		s.Solve(ctx, board.NewPosition(board.MustDims(4, 4)))
	})
}

func TestSolveEmptyBoard(t *testing.T) {
	if os.Getenv("CONNECT4_SLOW_TESTS") == "" {
		t.Skip("set CONNECT4_SLOW_TESTS to solve the empty board")
	}
	is := is.New(t)
	s := NewSolver(board.Standard, DefaultTableSize)
	v, err := s.Solve(context.Background(), board.NewPosition(board.Standard))
	is.NoErr(err)
	is.Equal(v, 1)
}
