package loadtest

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/okian/varbox/internal/domain/bout"
	"github.com/okian/varbox/internal/domain/bout/bouttest"
	"github.com/okian/varbox/pkg/logger"
)

// getRandomInt returns a random int in [lo, hi] using crypto/rand.
func getRandomInt(lo, hi int) int {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(hi-lo+1)))
	if err != nil {
		return lo
	}
	return lo + int(n.Int64())
}

// punchEvery returns a pattern throwing a punch every n frames from offset on.
func punchEvery(n, offset int) func(int) bool {
	return func(i int) bool { return i >= offset && (i-offset)%n == 0 }
}

// generatePlans renders cfg.Bouts synthetic bouts with random punch rates and
// scores each one locally.
func generatePlans(ctx context.Context, cfg *Config, stats *Stats) ([]Plan, error) {
	logger.Get().Info(ctx, "generating bouts",
		logger.Int("bouts", cfg.Bouts),
		logger.Int("frames", cfg.Frames))

	scene := bouttest.NewScene()
	engineCfg := cfg.Clock.Apply(bout.DefaultConfig())
	plans := make([]Plan, 0, cfg.Bouts)

	for i := 0; i < cfg.Bouts; i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("generation cancelled: %w", err)
		}
		red := punchEvery(getRandomInt(minPunchEvery, maxPunchEvery), getRandomInt(1, minPunchEvery))
		blue := punchEvery(getRandomInt(minPunchEvery, maxPunchEvery), getRandomInt(1, minPunchEvery))
		frames := scene.Script(cfg.Frames, red, blue)

		engine := bout.New(engineCfg)
		if err := engine.Run(ctx, bouttest.NewSliceSource(frames)); err != nil {
			return nil, fmt.Errorf("score bout %d locally: %w", i, err)
		}
		engine.Finish(ctx)

		plans = append(plans, Plan{
			Name:     fmt.Sprintf("bout-%03d", i+1),
			Frames:   frames,
			Expected: engine.Scorecard(),
		})
	}
	stats.BoutsPlanned = len(plans)
	return plans, nil
}
