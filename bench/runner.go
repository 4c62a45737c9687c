package bench

import (
	"context"
	"runtime"
	"time"

	"github.com/pbnjay/memory"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/domino14/connect4/board"
	"github.com/domino14/connect4/book"
	"github.com/domino14/connect4/negamax"
)

// Result is the outcome of one case.
type Result struct {
	Case     `yaml:",inline"`
	Played   int           `yaml:"played"`
	Invalid  bool          `yaml:"invalid,omitempty"`
	Score    int           `yaml:"score"`
	Nodes    uint64        `yaml:"nodes"`
	Duration time.Duration `yaml:"duration"`
	Cached   bool          `yaml:"cached,omitempty"`
	Mismatch bool          `yaml:"mismatch,omitempty"`
}

// Runner solves test cases on a fixed number of goroutines. Each goroutine
// owns a Solver and with it a transposition table.
type Runner struct {
	workers int
	ttSize  int
	book    *book.Book
}

type Option func(*Runner)

// WithWorkers sets the number of solving goroutines.
func WithWorkers(n int) Option {
	return func(r *Runner) {
		if n >= 1 {
			r.workers = n
		}
	}
}

// WithTableSize sets the transposition table size of every solver.
func WithTableSize(size int) Option {
	return func(r *Runner) {
		if size >= 1 {
			r.ttSize = size
		}
	}
}

// WithBook makes the runner look positions up in b before solving them,
// and store what it solves.
func WithBook(b *book.Book) Option {
	return func(r *Runner) {
		r.book = b
	}
}

// NewRunner returns a runner with one worker and the default table size,
// changed by opts.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		workers: 1,
		ttSize:  negamax.DefaultTableSize,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Runner) Workers() int {
	return r.workers
}

// MaxWorkers is the number of solvers whose tables fit in the given
// fraction of system memory, capped at the number of CPUs and at least 1.
func MaxWorkers(fraction float64, ttSize int) int {
	total := memory.TotalMemory()
	n := int(fraction * float64(total) / float64(negamax.TableMemoryBytes(ttSize)))
	n = min(n, runtime.NumCPU())
	log.Debug().Uint64("total-system-memory-bytes", total).
		Int("ttable-memory-bytes", negamax.TableMemoryBytes(ttSize)).
		Int("workers", max(n, 1)).Msg("max-workers")
	return max(n, 1)
}

// Run solves every case. The table of each solver is reset before every
// case, so node counts do not depend on which worker ran what.
func (r *Runner) Run(ctx context.Context, d *board.Dims, cases []Case) (*Report, error) {
	tstart := time.Now()
	results := make([]Result, len(cases))
	jobs := make(chan int)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(jobs)
		for i := range cases {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	workers := min(r.workers, max(len(cases), 1))
	for t := 0; t < workers; t++ {
		t := t
		g.Go(func() error {
			s := negamax.NewSolver(d, r.ttSize)
			for i := range jobs {
				res, err := r.solveCase(ctx, s, d, cases[i])
				if err != nil {
					return err
				}
				results[i] = res
				log.Debug().Int("thread", t).Str("sequence", res.Sequence).
					Int("score", res.Score).Uint64("nodes", res.Nodes).
					Dur("duration", res.Duration).Msg("case-solved")
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return NewReport(results, workers, time.Since(tstart)), nil
}

func (r *Runner) solveCase(ctx context.Context, s *negamax.Solver, d *board.Dims, c Case) (Result, error) {
	res := Result{Case: c}
	p, n := board.FromSequence(d, c.Sequence)
	res.Played = n
	if n != len(c.Sequence) {
		res.Invalid = true
		log.Warn().Int("line", c.Line).Str("sequence", c.Sequence).Int("played", n).
			Msg("sequence-stopped-early")
		return res, nil
	}

	s.Reset()
	tstart := time.Now()
	if r.book != nil {
		e, cached, err := r.book.Solve(ctx, s, p, c.Sequence)
		if err != nil {
			return res, err
		}
		res.Score, res.Nodes, res.Cached = e.Score, s.Nodes(), cached
	} else {
		score, err := s.Solve(ctx, p)
		if err != nil {
			return res, err
		}
		res.Score, res.Nodes = score, s.Nodes()
	}
	res.Duration = time.Since(tstart)
	res.Mismatch = c.HasExpected && c.Expected != res.Score
	return res, nil
}
