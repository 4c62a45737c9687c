// Package book stores exact scores of solved positions in a sqlite file so
// that they survive between runs.
package book

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog/log"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/domino14/connect4/board"
)

const schema = `
CREATE TABLE IF NOT EXISTS positions (
	width     INTEGER NOT NULL,
	height    INTEGER NOT NULL,
	key       INTEGER NOT NULL,
	ply       INTEGER NOT NULL,
	sequence  TEXT NOT NULL,
	score     INTEGER NOT NULL,
	nodes     INTEGER NOT NULL,
	solved_at INTEGER NOT NULL,
	PRIMARY KEY (width, height, key)
);
`

const storeAttempts = 8

var ErrClosed = errors.New("book is closed")

// Entry is one solved position.
type Entry struct {
	Width    int       `yaml:"width"`
	Height   int       `yaml:"height"`
	Key      uint64    `yaml:"key"`
	Ply      int       `yaml:"ply"`
	Sequence string    `yaml:"sequence"`
	Score    int       `yaml:"score"`
	Nodes    uint64    `yaml:"nodes"`
	SolvedAt time.Time `yaml:"solved_at"`
}

type Book struct {
	db   *sql.DB
	path string
}

// Open opens the book at path, creating the file and its table if needed.
func Open(ctx context.Context, path string) (*Book, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating book directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening book %s: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating positions table: %w", err)
	}
	log.Debug().Str("path", path).Msg("opened-book")
	return &Book{db: db, path: path}, nil
}

func (b *Book) Path() string {
	return b.path
}

// Lookup finds the entry for key on a board of size d.
func (b *Book) Lookup(ctx context.Context, d *board.Dims, key uint64) (Entry, bool, error) {
	if b.db == nil {
		return Entry{}, false, ErrClosed
	}
	row := b.db.QueryRowContext(ctx, `
		SELECT ply, sequence, score, nodes, solved_at FROM positions
		WHERE width = ? AND height = ? AND key = ?`,
		d.Width, d.Height, int64(key))

	e := Entry{Width: d.Width, Height: d.Height, Key: key}
	var nodes, solvedAt int64
	err := row.Scan(&e.Ply, &e.Sequence, &e.Score, &nodes, &solvedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("looking up position: %w", err)
	}
	e.Nodes = uint64(nodes)
	e.SolvedAt = time.Unix(solvedAt, 0).UTC()
	return e, true, nil
}

func isBusy(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		code := se.Code() & 0xff
		return code == sqlite3.SQLITE_BUSY || code == sqlite3.SQLITE_LOCKED
	}
	return false
}

// Store inserts e, replacing any entry for the same position. It retries
// while another writer holds the database.
func (b *Book) Store(ctx context.Context, e Entry) error {
	if b.db == nil {
		return ErrClosed
	}
	if e.SolvedAt.IsZero() {
		e.SolvedAt = time.Now()
	}
	return retry.Do(
		func() error {
			_, err := b.db.ExecContext(ctx, `
				INSERT INTO positions (width, height, key, ply, sequence, score, nodes, solved_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT (width, height, key) DO UPDATE SET
					ply = excluded.ply,
					sequence = excluded.sequence,
					score = excluded.score,
					nodes = excluded.nodes,
					solved_at = excluded.solved_at`,
				e.Width, e.Height, int64(e.Key), e.Ply, e.Sequence, e.Score,
				int64(e.Nodes), e.SolvedAt.Unix())
			return err
		},
		retry.Context(ctx),
		retry.Attempts(storeAttempts),
		retry.LastErrorOnly(true),
		retry.RetryIf(isBusy),
		retry.DelayType(func(n uint, err error, config *retry.Config) time.Duration {
			log.Debug().Err(err).Uint("n", n).Msg("book-busy-try-again")
			return retry.BackOffDelay(n, err, config)
		}),
	)
}

// Count returns the number of stored positions.
func (b *Book) Count(ctx context.Context) (int, error) {
	if b.db == nil {
		return 0, ErrClosed
	}
	var n int
	if err := b.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM positions").Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (b *Book) Close() error {
	if b.db == nil {
		return nil
	}
	err := b.db.Close()
	b.db = nil
	return err
}

// Solver is what Solve needs from a search engine.
type Solver interface {
	Solve(ctx context.Context, p board.Position) (int, error)
	Nodes() uint64
}

// Solve returns the book's score for p if it has one. Otherwise it solves p
// with s and stores the result. cached reports whether the book had it.
func (b *Book) Solve(ctx context.Context, s Solver, p board.Position, seq string) (e Entry, cached bool, err error) {
	d := p.Dims()
	e, ok, err := b.Lookup(ctx, d, p.Key())
	if err != nil {
		return Entry{}, false, err
	}
	if ok {
		return e, true, nil
	}
	before := s.Nodes()
	score, err := s.Solve(ctx, p)
	if err != nil {
		return Entry{}, false, err
	}
	e = Entry{
		Width:    d.Width,
		Height:   d.Height,
		Key:      p.Key(),
		Ply:      p.Ply(),
		Sequence: seq,
		Score:    score,
		Nodes:    s.Nodes() - before,
		SolvedAt: time.Now().UTC().Truncate(time.Second),
	}
	if err := b.Store(ctx, e); err != nil {
		return Entry{}, false, err
	}
	return e, false, nil
}
