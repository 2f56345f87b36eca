package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/varbox/internal/domain/bout"
	"github.com/okian/varbox/internal/loadtest"
	"github.com/okian/varbox/pkg/logger"
)

// Default configuration constants.
const (
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTestTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL   = flag.String("url", "http://localhost:9080", "Base URL of the service")
		bouts     = flag.Int("bouts", loadtest.DefaultBouts, "Number of synthetic bouts to play")
		frames    = flag.Int("frames", loadtest.DefaultFrames, "Frames per bout")
		batch     = flag.Int("batch", loadtest.DefaultBatchSize, "Frames per request")
		workers   = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of bouts played concurrently")
		timeout   = flag.Duration("timeout", loadtest.DefaultTimeout, "HTTP request timeout")
		fps       = flag.Int("fps", loadtest.DefaultClock.FPS, "Frames per second sent with each bout")
		roundSecs = flag.Int("round-seconds", loadtest.DefaultClock.RoundSeconds, "Round length in seconds")
		restSecs  = flag.Int("rest-seconds", loadtest.DefaultClock.RestSeconds, "Rest length in seconds")
		rounds    = flag.Int("rounds", loadtest.DefaultClock.TotalRounds, "Number of rounds")
		verbose   = flag.Bool("verbose", false, "Log every verified bout")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()

	cfg := &loadtest.Config{
		BaseURL:   *baseURL,
		Bouts:     *bouts,
		Frames:    *frames,
		BatchSize: *batch,
		Workers:   *workers,
		Timeout:   *timeout,
		Clock: bout.Settings{
			FPS:          *fps,
			RoundSeconds: *roundSecs,
			RestSeconds:  *restSecs,
			TotalRounds:  *rounds,
		},
		Verbose: *verbose,
	}

	if _, err := loadtest.Run(ctx, cfg); err != nil {
		os.Stderr.WriteString("Load test failed: " + err.Error() + "\n")
		cancel()
		os.Exit(1) //nolint:gocritic // cancel is called explicitly above
	}
}
