// Command bench solves every position of a test set and reports how long
// the solver took. A test set has one position per line: a move sequence,
// optionally followed by its expected score.
//
//	bench [flags] Test_L3_R1
//	bench -generate 1000 -plies 20 > my_set
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/pprof"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/domino14/connect4/bench"
	"github.com/domino14/connect4/board"
	"github.com/domino14/connect4/book"
	"github.com/domino14/connect4/config"
)

func main() {
	cfg := &config.Config{}
	fs := config.FlagSet("bench")
	generate := fs.Int("generate", 0, "write this many random positions as a test set instead of benchmarking")
	plies := fs.Int("plies", 16, "moves in each generated position")
	yamlOut := fs.String("yaml", "", "also write the full report as YAML to this file")
	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}
	if err := cfg.LoadFlags(fs); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if cfg.GetBool(config.ConfigDebug) {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	d, err := cfg.Dims()
	if err != nil {
		log.Fatal().Err(err).Msg("bad-board-size")
	}

	if *generate > 0 {
		if err := generateSet(os.Stdout, d, *generate, *plies); err != nil {
			log.Fatal().Err(err).Msg("generate-failed")
		}
		return
	}

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: bench [flags] <test set file>")
		os.Exit(2)
	}

	if path := cfg.GetString(config.ConfigCPUProfile); path != "" {
		f, err := os.Create(path)
		if err != nil {
			log.Fatal().Err(err).Msg("could-not-create-cpu-profile")
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal().Err(err).Msg("could-not-start-cpu-profile")
		}
		defer pprof.StopCPUProfile()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	report, err := runSet(ctx, cfg, d, fs.Arg(0))
	if err != nil {
		log.Error().Err(err).Msg("bench-failed")
		os.Exit(1)
	}

	fmt.Print(report.Summary())
	if err := report.WriteHistogram(os.Stdout); err != nil {
		log.Error().Err(err).Msg("histogram-failed")
	}
	if *yamlOut != "" {
		if err := writeYAML(report, *yamlOut); err != nil {
			log.Error().Err(err).Msg("yaml-report-failed")
		}
	}
	for _, res := range report.Invalid() {
		fmt.Fprintf(os.Stderr, "Line %d: Invalid move %d %q\n", res.Line, res.Played+1, res.Sequence)
	}
	if m := report.Mismatches(); len(m) > 0 {
		for _, res := range m {
			fmt.Fprintf(os.Stderr, "Line %d: %s scored %d, expected %d\n",
				res.Line, res.Sequence, res.Score, res.Expected)
		}
		os.Exit(1)
	}
}

func runSet(ctx context.Context, cfg *config.Config, d *board.Dims, path string) (*bench.Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	cases, err := bench.ParseTestSet(f)
	if err != nil {
		return nil, err
	}

	ttSize := cfg.GetInt(config.ConfigTTableSize)
	workers := cfg.GetInt(config.ConfigBenchWorkers)
	if workers < 1 {
		workers = bench.MaxWorkers(cfg.GetFloat64(config.ConfigTTableMemFraction), ttSize)
	}
	opts := []bench.Option{bench.WithWorkers(workers), bench.WithTableSize(ttSize)}

	if bookPath := cfg.GetString(config.ConfigBookPath); bookPath != "" {
		b, err := book.Open(ctx, bookPath)
		if err != nil {
			return nil, err
		}
		defer b.Close()
		opts = append(opts, bench.WithBook(b))
	}

	log.Info().Int("cases", len(cases)).Int("workers", workers).Str("board", d.String()).
		Msg("bench-starting")
	return bench.NewRunner(opts...).Run(ctx, d, cases)
}

// generateSet writes n random positions.
func generateSet(w io.Writer, d *board.Dims, n, plies int) error {
	cases := make([]bench.Case, n)
	for i := range cases {
		cases[i] = bench.Case{Line: i + 1, Sequence: board.RandomSequence(d, plies)}
	}
	bw := bufio.NewWriter(w)
	if err := bench.WriteTestSet(bw, cases); err != nil {
		return err
	}
	return bw.Flush()
}

func writeYAML(r *bench.Report, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return r.WriteYAML(f)
}
