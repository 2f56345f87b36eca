package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/varbox/internal/config"
	"github.com/okian/varbox/internal/domain/bout"
	"github.com/okian/varbox/internal/replay"
	"github.com/okian/varbox/pkg/logger"
)

func main() {
	var (
		input        = flag.String("in", "", "JSON Lines detection file (required)")
		output       = flag.String("out", "", "Scorecard output file (default: stdout)")
		sqlitePath   = flag.String("sqlite", "", "Also persist the scorecard to this SQLite database")
		boutID       = flag.String("bout-id", "", "Bout identifier (default: random UUID)")
		fps          = flag.Int("fps", 0, "Frames per second of the recording (default from config)")
		roundSeconds = flag.Int("round-seconds", 0, "Round length in seconds (default from config)")
		restSeconds  = flag.Int("rest-seconds", 0, "Rest length in seconds (default from config)")
		rounds       = flag.Int("rounds", 0, "Number of rounds (default from config)")
		stoppage     = flag.Bool("stoppage", true, "Judge a round still running when the recording ends")
		verbose      = flag.Bool("verbose", false, "Enable debug logging")
	)
	flag.Parse()

	if err := run(replay.Config{
		Input:      *input,
		Output:     *output,
		SQLitePath: *sqlitePath,
		BoutID:     *boutID,
		Stoppage:   *stoppage,
	}, bout.Settings{
		FPS:          *fps,
		RoundSeconds: *roundSeconds,
		RestSeconds:  *restSeconds,
		TotalRounds:  *rounds,
	}, *verbose); err != nil {
		os.Stderr.WriteString("replay failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}

// run loads configuration, initialises logging and scores one recording.
func run(rc replay.Config, settings bout.Settings, verbose bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// stdout carries the scorecard; logs go to stderr.
	if err := logger.Init(logger.WithFormat(cfg.LogFormat), logger.WithOutput(os.Stderr)); err != nil {
		return fmt.Errorf("initialize logging: %w", err)
	}
	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	if err := logger.SetLevelString(level); err != nil {
		_ = logger.SetLevelString("info")
	}

	rc.Bout = settings.Apply(cfg.BoutConfig())
	_, err = replay.New(rc, replay.WithLogger(logger.Named("replay"))).Run(ctx)
	return err
}
