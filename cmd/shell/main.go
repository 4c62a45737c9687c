package main

import (
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/pprof"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/domino14/connect4/config"
	"github.com/domino14/connect4/shell"
)

var (
	GitVersion string
)

func setupLogging(debug bool) {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	output.FormatLevel = func(i any) string {
		return strings.ToUpper(fmt.Sprintf("| %-6s|", i))
	}
	output.FormatFieldName = func(i any) string {
		return fmt.Sprintf("%s:", i)
	}
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	logger := zerolog.New(output).Level(level).With().Timestamp().Logger()
	zerolog.DefaultContextLogger = &logger
	log.Logger = logger
}

func startCPUProfile(path string) (stop func(), err error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		return nil, err
	}
	return func() {
		pprof.StopCPUProfile()
		f.Close()
	}, nil
}

func writeMemProfile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	log.Debug().Uint64("heap-alloc", ms.HeapAlloc).Uint32("num-gc", ms.NumGC).Msg("memory-stats")
	return pprof.WriteHeapProfile(f)
}

// Usage: shell [flags] [-- command]
// With a command, runs it once and exits; otherwise starts the interactive
// shell.
func main() {
	fmt.Println("connect4 solver", GitVersion)

	cfg := &config.Config{}
	fs := config.FlagSet("shell")
	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}
	if err := cfg.LoadFlags(fs); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	setupLogging(cfg.GetBool(config.ConfigDebug))
	log.Debug().Interface("config", cfg.SanitizedSettings()).Msg("config-loaded")

	if path := cfg.GetString(config.ConfigCPUProfile); path != "" {
		stop, err := startCPUProfile(path)
		if err != nil {
			log.Fatal().Err(err).Msg("cpu-profile")
		}
		defer stop()
	}

	sc, err := shell.NewShellController(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("could-not-start-shell")
	}
	defer sc.Cleanup()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	if line := strings.TrimSpace(strings.Join(fs.Args(), " ")); line != "" {
		sc.Execute(sig, line)
	} else {
		go sc.Loop(sig)
		<-sig
	}

	if path := cfg.GetString(config.ConfigMemProfile); path != "" {
		if err := writeMemProfile(path); err != nil {
			log.Error().Err(err).Msg("mem-profile")
		}
	}
	log.Info().Msg("shell-shutting-down")
}
