package negamax

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/domino14/connect4/board"
)

/*
Scores are from the point of view of the side to move. 0 is a draw. A win
with the side's k-th stone (counting from the start of the game) is worth
W*H/2 + 1 - k, so quicker wins score higher; a loss is the negation of the
opponent's win.

negamax(p, α, β) returns the exact score when it lies strictly inside
(α, β), an upper bound ≤ α when it fails low, and a lower bound ≥ β when it
fails high. Solve narrows the score range with null windows (β = α+1).
*/

// InvalidMove is what Analyze reports for a column that cannot be played.
const InvalidMove = -1000

// cancelCheckMask sets how often the search polls its context: every 4096
// nodes.
const cancelCheckMask = (1 << 12) - 1

var (
	ErrNoMoves = errors.New("no playable column")
)

// Solver computes exact scores of positions on one board size. It is not
// safe for concurrent use; give every goroutine its own Solver.
type Solver struct {
	dims        *board.Dims
	columnOrder []int
	// one sorter per ply so a node never clobbers its ancestors' orderings.
	sorters []*MoveSorter

	ttable *TranspositionTable
	nodes  atomic.Uint64

	logStream io.Writer
	probe     int
}

// LogProbe is written to the log stream after every null-window search.
type LogProbe struct {
	Probe  int    `json:"probe" yaml:"probe"`
	Ply    int    `json:"ply" yaml:"ply"`
	Min    int    `json:"min" yaml:"min"`
	Max    int    `json:"max" yaml:"max"`
	Med    int    `json:"med" yaml:"med"`
	Result int    `json:"result" yaml:"result"`
	Nodes  uint64 `json:"nodes" yaml:"nodes"`
}

// NewSolver creates a solver for boards of size d, with a transposition
// table of ttSize buckets.
func NewSolver(d *board.Dims, ttSize int) *Solver {
	s := &Solver{
		dims:        d,
		columnOrder: make([]int, d.Width),
		sorters:     make([]*MoveSorter, d.Cells()+1),
		ttable:      NewTranspositionTable(ttSize),
	}
	// center first, then alternating outwards
	for i := 0; i < d.Width; i++ {
		s.columnOrder[i] = d.Width/2 + (1-2*(i%2))*((i+1)/2)
	}
	for i := range s.sorters {
		s.sorters[i] = NewMoveSorter(d.Width)
	}
	log.Debug().Str("dims", d.String()).Int("ttable-size", ttSize).
		Int("ttable-memory-bytes", s.ttable.MemoryBytes()).
		Msg("created-solver")
	return s
}

func (s *Solver) Dims() *board.Dims {
	return s.dims
}

// ColumnOrder is the order in which columns are explored.
func (s *Solver) ColumnOrder() []int {
	return s.columnOrder
}

// Nodes returns the number of positions searched since the last Reset.
func (s *Solver) Nodes() uint64 {
	return s.nodes.Load()
}

// Reset zeroes the node count and clears the transposition table.
func (s *Solver) Reset() {
	s.nodes.Store(0)
	s.ttable.Reset()
}

func (s *Solver) TableStats() TableStats {
	return s.ttable.Stats()
}

// SetLogStream makes the solver append a YAML entry to w for every
// null-window probe. Pass nil to turn it off.
func (s *Solver) SetLogStream(w io.Writer) {
	s.logStream = w
}

func (s *Solver) checkDims(p *board.Position) {
	d := p.Dims()
	if d.Width != s.dims.Width || d.Height != s.dims.Height {
		panic(fmt.Sprintf("solver for %v got a %v position", s.dims, d))
	}
}

func (s *Solver) negamax(ctx context.Context, p board.Position, α, β int) (int, error) {
	if α >= β {
		panic(fmt.Sprintf("negamax called with empty window (%d, %d)", α, β))
	}
	if p.CanWinNext() {
		panic("negamax called on a position with an immediate win")
	}
	if s.nodes.Add(1)&cancelCheckMask == 0 {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
	}
	cells := s.dims.Cells()
	ply := p.Ply()

	next := p.PossibleNonLosingMoves()
	if next == 0 {
		// every move lets the opponent win right away
		return -(cells - ply) / 2, nil
	}
	if ply >= cells-2 {
		return 0, nil
	}

	minScore := -(cells - 2 - ply) / 2
	maxScore := (cells - 1 - ply) / 2
	key := p.Key()
	if v, bound, ok := s.ttable.Get(key); ok {
		switch bound {
		case LowerBound:
			minScore = max(minScore, v)
		case UpperBound:
			maxScore = min(maxScore, v)
		}
	}
	if α < minScore {
		α = minScore
		if α >= β {
			return α, nil
		}
	}
	if β > maxScore {
		β = maxScore
		if α >= β {
			return β, nil
		}
	}

	sorter := s.sorters[ply]
	sorter.Reset()
	for _, col := range s.columnOrder {
		if move := next & s.dims.ColumnMask(col); move != 0 {
			sorter.Add(move, p.ScoreMove(move))
		}
	}

	for move := sorter.GetNext(); move != 0; move = sorter.GetNext() {
		child := p
		child.PlayBit(move)
		score, err := s.negamax(ctx, child, -β, -α)
		if err != nil {
			return 0, err
		}
		score = -score
		if score >= β {
			s.ttable.Put(key, score, LowerBound)
			return score, nil
		}
		if score > α {
			α = score
		}
	}
	s.ttable.Put(key, α, UpperBound)
	return α, nil
}

// solve runs the null-window search loop.
func (s *Solver) solve(ctx context.Context, p board.Position) (int, error) {
	cells := s.dims.Cells()
	ply := p.Ply()
	if p.CanWinNext() {
		return (cells + 1 - ply) / 2, nil
	}
	minScore := -(cells - ply) / 2
	maxScore := (cells + 1 - ply) / 2

	for minScore < maxScore {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		med := minScore + (maxScore-minScore)/2
		if med <= 0 && minScore/2 < med {
			med = minScore / 2
		} else if med >= 0 && maxScore/2 > med {
			med = maxScore / 2
		}
		r, err := s.negamax(ctx, p, med, med+1)
		if err != nil {
			return 0, err
		}
		if err := s.logProbe(LogProbe{Ply: ply, Min: minScore, Max: maxScore, Med: med, Result: r}); err != nil {
			return 0, err
		}
		if r <= med {
			maxScore = r
		} else {
			minScore = r
		}
	}
	return minScore, nil
}

func (s *Solver) logProbe(lp LogProbe) error {
	if s.logStream == nil {
		return nil
	}
	s.probe++
	lp.Probe = s.probe
	lp.Nodes = s.nodes.Load()
	out, err := yaml.Marshal([]LogProbe{lp})
	if err != nil {
		return err
	}
	_, err = s.logStream.Write(out)
	return err
}

// run calls f, and while it is running logs the search speed every second
// if debug logging is on.
func (s *Solver) run(f func() error) error {
	if zerolog.GlobalLevel() > zerolog.DebugLevel {
		return f()
	}
	g := &errgroup.Group{}
	done := make(chan struct{})

	g.Go(func() error {
		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()
		lastNodes := s.nodes.Load()
		for {
			select {
			case <-done:
				return nil
			case <-ticker.C:
				nodes := s.nodes.Load()
				log.Debug().Uint64("nps", nodes-lastNodes).Msg("nodes-per-second")
				lastNodes = nodes
			}
		}
	})

	g.Go(func() error {
		defer close(done)
		return f()
	})

	return g.Wait()
}

// Solve returns the exact score of p for the side to move. If ctx is
// cancelled first it returns 0 and the context's error.
func (s *Solver) Solve(ctx context.Context, p board.Position) (int, error) {
	s.checkDims(&p)
	tstart := time.Now()
	startNodes := s.nodes.Load()
	var score int
	err := s.run(func() error {
		var err error
		score, err = s.solve(ctx, p)
		return err
	})
	if err != nil {
		return 0, err
	}
	st := s.ttable.Stats()
	log.Debug().
		Int("ply", p.Ply()).
		Int("score", score).
		Uint64("nodes", s.nodes.Load()-startNodes).
		Uint64("ttable-created", st.Created).
		Uint64("ttable-lookups", st.Lookups).
		Uint64("ttable-hits", st.Hits).
		Uint64("ttable-t2collisions", st.T2Collisions).
		Float64("time-elapsed-sec", time.Since(tstart).Seconds()).
		Msg("solve-returning")
	return score, nil
}

// Minimax scores p with a single full-window search instead of the
// null-window loop. The result is from the point of view of the side to
// move when maximize is true, and of its opponent otherwise.
func (s *Solver) Minimax(ctx context.Context, p board.Position, maximize bool) (int, error) {
	s.checkDims(&p)
	cells := s.dims.Cells()
	var score int
	err := s.run(func() error {
		if p.CanWinNext() {
			score = (cells + 1 - p.Ply()) / 2
			return nil
		}
		var err error
		// one point wider than any reachable score, so the result is exact
		score, err = s.negamax(ctx, p, -cells/2-1, cells/2+1)
		return err
	})
	if err != nil {
		return 0, err
	}
	if !maximize {
		score = -score
	}
	return score, nil
}

// Analyze scores every column for the side to move: the score the side
// gets by playing there, or InvalidMove if the column is full.
func (s *Solver) Analyze(ctx context.Context, p board.Position) ([]int, error) {
	s.checkDims(&p)
	cells := s.dims.Cells()
	scores := make([]int, s.dims.Width)
	for col := 0; col < s.dims.Width; col++ {
		switch {
		case !p.CanPlay(col):
			scores[col] = InvalidMove
		case p.IsWinning(col):
			scores[col] = (cells + 1 - p.Ply()) / 2
		default:
			child := p
			child.Play(col)
			v, err := s.Solve(ctx, child)
			if err != nil {
				return nil, err
			}
			scores[col] = -v
		}
	}
	log.Debug().Ints("scores", scores).Msg("analyze-returning")
	return scores, nil
}

// BestMove returns the best column for the side to move and its score.
// Among equally good columns the most central one wins.
func (s *Solver) BestMove(ctx context.Context, p board.Position) (int, int, error) {
	scores, err := s.Analyze(ctx, p)
	if err != nil {
		return 0, 0, err
	}
	best := -1
	for _, col := range s.columnOrder {
		if scores[col] == InvalidMove {
			continue
		}
		if best == -1 || scores[col] > scores[best] {
			best = col
		}
	}
	if best == -1 {
		return 0, 0, ErrNoMoves
	}
	return best, scores[best], nil
}
