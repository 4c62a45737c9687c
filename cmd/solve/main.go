// Command solve reads move sequences from standard input, one per line, and
// prints the sequence, its score, the number of nodes searched and the time
// taken in microseconds.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/domino14/connect4/board"
	"github.com/domino14/connect4/book"
	"github.com/domino14/connect4/config"
	"github.com/domino14/connect4/negamax"
)

func main() {
	cfg := &config.Config{}
	fs := config.FlagSet("solve")
	analyze := fs.Bool("analyze", false, "score every column instead of the position")
	firstPlayer := fs.Bool("first-player", false, "report scores for the first player rather than the side to move")
	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}
	if err := cfg.LoadFlags(fs); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if cfg.GetBool(config.ConfigDebug) {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *analyze, *firstPlayer); err != nil {
		log.Fatal().Err(err).Msg("solve-failed")
	}
}

func run(ctx context.Context, cfg *config.Config, analyze, firstPlayer bool) error {
	d, err := cfg.Dims()
	if err != nil {
		return err
	}
	solver := negamax.NewSolver(d, cfg.GetInt(config.ConfigTTableSize))

	if path := cfg.GetString(config.ConfigSolverLogPath); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		solver.SetLogStream(f)
	}

	var bk *book.Book
	if path := cfg.GetString(config.ConfigBookPath); path != "" {
		bk, err = book.Open(ctx, path)
		if err != nil {
			return err
		}
		defer bk.Close()
	}

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	scanner := bufio.NewScanner(os.Stdin)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		seq := fields[0]
		p, n := board.FromSequence(d, seq)
		if n != len(seq) {
			log.Error().Int("line", lineNo).Int("move", n+1).Str("sequence", seq).Msg("invalid-move")
			continue
		}

		tstart := time.Now()
		before := solver.Nodes()
		var result string
		switch {
		case analyze:
			scores, err := solver.Analyze(ctx, p)
			if err != nil {
				return err
			}
			result = strings.Trim(fmt.Sprint(scores), "[]")
		case firstPlayer:
			// score for whoever moved first, as a plain minimax would
			score, err := solver.Minimax(ctx, p, p.Ply()%2 == 0)
			if err != nil {
				return err
			}
			result = fmt.Sprint(score)
		case bk != nil:
			e, _, err := bk.Solve(ctx, solver, p, seq)
			if err != nil {
				return err
			}
			result = fmt.Sprint(e.Score)
		default:
			score, err := solver.Solve(ctx, p)
			if err != nil {
				return err
			}
			result = fmt.Sprint(score)
		}
		fmt.Fprintf(out, "%s %s %d %d\n", seq, result, solver.Nodes()-before,
			time.Since(tstart).Microseconds())
	}
	return scanner.Err()
}
