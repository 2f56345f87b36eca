package loadtest

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/varbox/internal/domain/bout"
	"github.com/okian/varbox/pkg/logger"
)

// withDefaults fills zero fields of cfg.
func withDefaults(cfg *Config) {
	if cfg.Bouts <= 0 {
		cfg.Bouts = DefaultBouts
	}
	if cfg.Frames <= 0 {
		cfg.Frames = DefaultFrames
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Clock == (bout.Settings{}) {
		cfg.Clock = DefaultClock
	}
}

// Run executes the complete load test. It fails when any bout could not be
// played or was scored differently from the local engine.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	withDefaults(cfg)
	stats := &Stats{StartTime: time.Now()}

	logger.Get().Info(ctx, "starting varbox load test",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("bouts", cfg.Bouts),
		logger.Int("frames", cfg.Frames),
		logger.Int("batch", cfg.BatchSize),
		logger.Int("workers", cfg.Workers),
		logger.Duration("timeout", cfg.Timeout))

	client := newHTTPClient(cfg.BaseURL, cfg.Timeout)

	// Step 1: Check service health
	if err := client.Health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Generate bouts and their expected scorecards
	plans, err := generatePlans(ctx, cfg, stats)
	if err != nil {
		return stats, fmt.Errorf("bout generation failed: %w", err)
	}

	// Step 3: Play bouts concurrently
	playBouts(ctx, cfg, client, plans, stats)

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)

	if stats.BoutsFailed > 0 {
		return stats, fmt.Errorf("%d of %d bouts failed", stats.BoutsFailed, stats.BoutsPlanned)
	}
	logger.Get().Info(ctx, "load test completed successfully")
	return stats, nil
}

func isMismatch(err error) bool {
	return errors.Is(err, ErrMismatch)
}

// playBouts runs every plan through the service using cfg.Workers workers.
func playBouts(ctx context.Context, cfg *Config, client *HTTPClient, plans []Plan, stats *Stats) {
	var (
		finished, matched, sent, retries int64
		wg                               sync.WaitGroup
	)
	planChan := make(chan Plan, cfg.Workers)

	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for plan := range planChan {
				n, r, err := playBout(ctx, cfg, client, plan)
				atomic.AddInt64(&sent, int64(n))
				atomic.AddInt64(&retries, int64(r))
				switch {
				case err == nil:
					atomic.AddInt64(&finished, 1)
					atomic.AddInt64(&matched, 1)
				case isMismatch(err):
					atomic.AddInt64(&finished, 1)
				}
				if err != nil {
					logger.Get().Error(ctx, "bout failed", logger.String("bout", plan.Name), logger.Error(err))
				} else if cfg.Verbose {
					logger.Get().Info(ctx, "bout verified",
						logger.String("bout", plan.Name),
						logger.Int("red", plan.Expected.Totals.Red),
						logger.Int("blue", plan.Expected.Totals.Blue))
				}
			}
		}()
	}

	go func() {
		defer close(planChan)
		for _, p := range plans {
			select {
			case <-ctx.Done():
				return
			case planChan <- p:
			}
		}
	}()

	wg.Wait()

	stats.BoutsFinished = int(finished)
	stats.BoutsMatched = int(matched)
	stats.BoutsFailed = len(plans) - int(matched)
	stats.FramesSent = int(sent)
	stats.Retries = int(retries)
}

// playBout creates a bout, streams its frames in batches, finishes it and
// checks both the returned and the stored scorecard.
func playBout(ctx context.Context, cfg *Config, client *HTTPClient, plan Plan) (sent, retries int, err error) {
	id, err := client.CreateBout(ctx, cfg.Clock)
	if err != nil {
		return 0, 0, fmt.Errorf("create: %w", err)
	}
	for start := 0; start < len(plan.Frames); start += cfg.BatchSize {
		batch := plan.Frames[start:min(start+cfg.BatchSize, len(plan.Frames))]
		r, err := client.SendFrames(ctx, id, batch)
		retries += r
		if err != nil {
			return sent, retries, fmt.Errorf("frames %d..: %w", batch[0].Index, err)
		}
		sent += len(batch)
	}

	card, err := client.Finish(ctx, id)
	if err != nil {
		return sent, retries, fmt.Errorf("finish: %w", err)
	}
	if err := verifyScorecard(plan.Expected, card); err != nil {
		return sent, retries, err
	}
	saved, err := client.Saved(ctx, id)
	if err != nil {
		return sent, retries, fmt.Errorf("stored scorecard: %w", err)
	}
	if saved.BoutID != id {
		return sent, retries, fmt.Errorf("%w: stored bout %q, want %q", ErrMismatch, saved.BoutID, id)
	}
	return sent, retries, verifyScorecard(plan.Expected, saved)
}

// displayFinalStats logs the final test statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var framesPerSecond float64
	if stats.Duration > 0 {
		framesPerSecond = float64(stats.FramesSent) / stats.Duration.Seconds()
	}
	logger.Get().Info(ctx, "final statistics",
		logger.Int("boutsPlanned", stats.BoutsPlanned),
		logger.Int("boutsFinished", stats.BoutsFinished),
		logger.Int("boutsMatched", stats.BoutsMatched),
		logger.Int("boutsFailed", stats.BoutsFailed),
		logger.Int("framesSent", stats.FramesSent),
		logger.Int("retries", stats.Retries),
		logger.Duration("duration", stats.Duration),
		logger.Float64("framesPerSecond", framesPerSecond))
}
