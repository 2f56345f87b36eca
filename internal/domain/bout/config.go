package bout

import (
	"github.com/okian/varbox/internal/domain/bootstrap"
	"github.com/okian/varbox/internal/domain/identity"
	"github.com/okian/varbox/internal/domain/model"
	"github.com/okian/varbox/internal/domain/participant"
	"github.com/okian/varbox/internal/domain/rounds"
	"github.com/okian/varbox/internal/domain/scoring"
	"github.com/okian/varbox/internal/domain/strike"
)

// DefaultFPS is assumed when a bout does not state its frame rate.
const DefaultFPS = 30

// Config carries every tunable of one bout engine.
type Config struct {
	FPS int

	// Identity
	Required       []model.Keypoint
	MatchThreshold float64
	// MaxAge is the identity eviction age in frames; 0 means 4 × Cooldown.
	MaxAge int

	// Bootstrap
	BootstrapWindow     int
	BootstrapMinSamples int
	BootstrapAlpha      float64

	// Participants
	MinCoverage      float64
	MinSimilarity    float64
	AnchorSmoothing  float64
	MaxMissingFrames int
	FreezeAfterSeed  bool

	// Strikes
	Cooldown       int
	StrikeDistance float64
	// StrikeMinSpeed enables the speed fallback when positive.
	StrikeMinSpeed    float64
	StrikeReachFactor float64

	// Rounds
	RoundSeconds int
	RestSeconds  int
	TotalRounds  int
}

// DefaultConfig returns the standard professional bout settings.
func DefaultConfig() Config {
	return Config{
		FPS:                 DefaultFPS,
		Required:            append([]model.Keypoint(nil), model.ReIDKeypoints...),
		MatchThreshold:      identity.DefaultMatchThreshold,
		BootstrapWindow:     bootstrap.DefaultWindowFrames,
		BootstrapMinSamples: bootstrap.DefaultMinSamples,
		BootstrapAlpha:      bootstrap.DefaultAlpha,
		MinCoverage:         participant.DefaultMinCoverage,
		MinSimilarity:       participant.DefaultMinSimilarity,
		AnchorSmoothing:     participant.DefaultSmoothing,
		MaxMissingFrames:    participant.DefaultMaxMissingFrames,
		FreezeAfterSeed:     true,
		Cooldown:            scoring.DefaultCooldownFrames,
		StrikeDistance:      strike.DefaultDistanceThreshold,
		StrikeReachFactor:   1.5,
		RoundSeconds:        rounds.DefaultRoundSeconds,
		RestSeconds:         rounds.DefaultRestSeconds,
		TotalRounds:         rounds.DefaultTotalRounds,
	}
}

func (c Config) maxAge() int {
	if c.MaxAge > 0 {
		return c.MaxAge
	}
	return 4 * c.Cooldown
}

func (c Config) fps() int {
	return max(c.FPS, 1)
}

// Settings overrides the round clock of a single bout. Zero fields keep the
// base configuration.
type Settings struct {
	FPS          int `json:"fps,omitempty"`
	RoundSeconds int `json:"round_seconds,omitempty"`
	RestSeconds  int `json:"rest_seconds,omitempty"`
	TotalRounds  int `json:"total_rounds,omitempty"`
}

// Apply returns base with the non-zero settings applied.
func (s Settings) Apply(base Config) Config {
	if s.FPS > 0 {
		base.FPS = s.FPS
	}
	if s.RoundSeconds > 0 {
		base.RoundSeconds = s.RoundSeconds
	}
	if s.RestSeconds > 0 {
		base.RestSeconds = s.RestSeconds
	}
	if s.TotalRounds > 0 {
		base.TotalRounds = s.TotalRounds
	}
	return base
}
