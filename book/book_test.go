package book

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/matryer/is"

	"github.com/domino14/connect4/board"
)

type fakeSolver struct {
	score int
	calls int
	nodes uint64
}

func (f *fakeSolver) Solve(ctx context.Context, p board.Position) (int, error) {
	f.calls++
	f.nodes += 100
	return f.score, nil
}

func (f *fakeSolver) Nodes() uint64 {
	return f.nodes
}

func openTestBook(t *testing.T) *Book {
	t.Helper()
	b, err := Open(context.Background(), filepath.Join(t.TempDir(), "sub", "book.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { b.Close() })
	return b
}

func TestStoreLookup(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	b := openTestBook(t)

	p, _ := board.FromSequence(board.Standard, "4455")
	_, ok, err := b.Lookup(ctx, board.Standard, p.Key())
	is.NoErr(err)
	is.True(!ok)

	solved := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	e := Entry{Width: 7, Height: 6, Key: p.Key(), Ply: 4, Sequence: "4455", Score: 2, Nodes: 1234, SolvedAt: solved}
	is.NoErr(b.Store(ctx, e))

	got, ok, err := b.Lookup(ctx, board.Standard, p.Key())
	is.NoErr(err)
	is.True(ok)
	is.Equal(got, e)

	// same key on another board size is another position
	_, ok, err = b.Lookup(ctx, board.MustDims(6, 7), p.Key())
	is.NoErr(err)
	is.True(!ok)

	// upsert
	e.Score = -3
	is.NoErr(b.Store(ctx, e))
	got, _, err = b.Lookup(ctx, board.Standard, p.Key())
	is.NoErr(err)
	is.Equal(got.Score, -3)
	n, err := b.Count(ctx)
	is.NoErr(err)
	is.Equal(n, 1)
}

func TestHighBitKey(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	b := openTestBook(t)
	// keys above 2^63 are stored as negative integers
	key := uint64(1)<<63 | 12345
	is.NoErr(b.Store(ctx, Entry{Width: 9, Height: 6, Key: key, Score: 1}))
	got, ok, err := b.Lookup(ctx, board.MustDims(9, 6), key)
	is.NoErr(err)
	is.True(ok)
	is.Equal(got.Key, key)
}

func TestBookSolve(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	b := openTestBook(t)
	s := &fakeSolver{score: 5}
	p, _ := board.FromSequence(board.Standard, "44")

	e, cached, err := b.Solve(ctx, s, p, "44")
	is.NoErr(err)
	is.True(!cached)
	is.Equal(e.Score, 5)
	is.Equal(e.Nodes, uint64(100))
	is.Equal(e.Sequence, "44")

	e, cached, err = b.Solve(ctx, s, p, "44")
	is.NoErr(err)
	is.True(cached)
	is.Equal(e.Score, 5)
	is.Equal(s.calls, 1)
}

func TestReopen(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "book.db")
	b, err := Open(ctx, path)
	is.NoErr(err)
	is.NoErr(b.Store(ctx, Entry{Width: 7, Height: 6, Key: 42, Ply: 1, Sequence: "4", Score: 0}))
	is.NoErr(b.Close())

	_, err = b.Count(ctx)
	is.True(errors.Is(err, ErrClosed))

	b, err = Open(ctx, path)
	is.NoErr(err)
	defer b.Close()
	n, err := b.Count(ctx)
	is.NoErr(err)
	is.Equal(n, 1)
}
