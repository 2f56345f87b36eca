package loadtest

import (
	"time"

	"github.com/okian/varbox/internal/domain/bout"
)

// Defaults used when Config leaves a field zero.
const (
	DefaultBouts     = 8
	DefaultFrames    = 480
	DefaultBatchSize = 60
	DefaultTimeout   = 30 * time.Second
)

// DefaultClock is a single 15 second round at 30 fps, which DefaultFrames covers.
var DefaultClock = bout.Settings{FPS: 30, RoundSeconds: 15, RestSeconds: 1, TotalRounds: 1}

// Backpressure retry constants.
const (
	maxRetries   = 20
	retryBackoff = 50 * time.Millisecond
)

const ndjsonType = "application/x-ndjson"

// Punch interval bounds for generated boxers, in frames.
const (
	minPunchEvery = 15
	maxPunchEvery = 90
)
