// Package config defines service configuration structures and loading hooks.
package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/okian/varbox/internal/domain/bout"
	"github.com/okian/varbox/pkg/logger"
	"github.com/okian/varbox/pkg/metrics"
)

// Storage drivers.
const (
	StorageMemory = "memory"
	StorageSQLite = "sqlite"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects the handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`
	// ShutdownTimeoutSec bounds graceful shutdown.
	ShutdownTimeoutSec int `koanf:"shutdown_timeout_sec"`
	// MaxBodyBytes caps a frame request body.
	MaxBodyBytes int64 `koanf:"max_body_bytes"`

	// Metric naming. MetricsInstance, when set, is attached to every series
	// as the constant label "instance".
	MetricsNamespace string    `koanf:"metrics_namespace"`
	MetricsSubsystem string    `koanf:"metrics_subsystem"`
	MetricsInstance  string    `koanf:"metrics_instance"`
	MetricsBuckets   []float64 `koanf:"metrics_latency_buckets"`

	// QueueSize bounds each worker shard's frame queue.
	QueueSize int `koanf:"queue_size"`
	// WorkerCount sets the number of worker shards.
	WorkerCount int `koanf:"worker_count"`
	// SequencerSize caps how many bouts have their frame order tracked.
	SequencerSize int `koanf:"sequencer_size"`

	// StorageDriver is memory or sqlite.
	StorageDriver string `koanf:"storage_driver"`
	SQLitePath    string `koanf:"sqlite_path"`

	// Round clock.
	FPS          int `koanf:"fps"`
	RoundSeconds int `koanf:"round_seconds"`
	RestSeconds  int `koanf:"rest_seconds"`
	TotalRounds  int `koanf:"total_rounds"`

	// Tracking and scoring.
	MatchThreshold   float64 `koanf:"match_threshold"`
	BootstrapWindow  int     `koanf:"bootstrap_window"`
	MinCoverage      float64 `koanf:"min_coverage"`
	MinSimilarity    float64 `koanf:"min_similarity"`
	AnchorSmoothing  float64 `koanf:"anchor_smoothing"`
	MaxMissingFrames int     `koanf:"max_missing_frames"`
	FreezeAfterSeed  bool    `koanf:"freeze_after_seed"`
	CooldownFrames   int     `koanf:"cooldown_frames"`
	StrikeDistance   float64 `koanf:"strike_distance"`
	StrikeMinSpeed   float64 `koanf:"strike_min_speed"`
}

// New creates a Config populated with defaults.
func New() *Config {
	b := bout.DefaultConfig()
	return &Config{
		LogLevel:           "info",
		LogFormat:          logger.FormatText,
		Addr:               ":9080",
		ShutdownTimeoutSec: 10,
		MaxBodyBytes:       32 << 20,
		MetricsNamespace:   "varbox",
		MetricsSubsystem:   "scoring",
		MetricsBuckets:     append([]float64(nil), metrics.DefaultLatencyBuckets...),
		QueueSize:          1024,
		WorkerCount:        runtime.NumCPU(),
		SequencerSize:      10_000,
		StorageDriver:      StorageMemory,
		SQLitePath:         "varbox.sqlite3",
		FPS:                b.FPS,
		RoundSeconds:       b.RoundSeconds,
		RestSeconds:        b.RestSeconds,
		TotalRounds:        b.TotalRounds,
		MatchThreshold:     b.MatchThreshold,
		BootstrapWindow:    b.BootstrapWindow,
		MinCoverage:        b.MinCoverage,
		MinSimilarity:      b.MinSimilarity,
		AnchorSmoothing:    b.AnchorSmoothing,
		MaxMissingFrames:   b.MaxMissingFrames,
		FreezeAfterSeed:    b.FreezeAfterSeed,
		CooldownFrames:     b.Cooldown,
		StrikeDistance:     b.StrikeDistance,
		StrikeMinSpeed:     b.StrikeMinSpeed,
	}
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.MaxBodyBytes < 1:
		return fmt.Errorf("%w: max_body_bytes must be positive", ErrInvalidConfig)
	case strings.TrimSpace(c.MetricsNamespace) == "":
		return fmt.Errorf("%w: metrics_namespace must not be empty", ErrInvalidConfig)
	case !increasing(c.MetricsBuckets):
		return fmt.Errorf("%w: metrics_latency_buckets must be strictly increasing", ErrInvalidConfig)
	case c.LogFormat != logger.FormatText && c.LogFormat != logger.FormatJSON:
		return fmt.Errorf("%w: log_format must be text or json", ErrInvalidConfig)
	case c.StorageDriver != StorageMemory && c.StorageDriver != StorageSQLite:
		return fmt.Errorf("%w: storage_driver must be memory or sqlite", ErrInvalidConfig)
	case c.StorageDriver == StorageSQLite && strings.TrimSpace(c.SQLitePath) == "":
		return fmt.Errorf("%w: sqlite_path is required for the sqlite driver", ErrInvalidConfig)
	case c.QueueSize < 1 || c.WorkerCount < 1 || c.SequencerSize < 1:
		return fmt.Errorf("%w: queue_size, worker_count and sequencer_size must be positive", ErrInvalidConfig)
	case c.FPS < 1:
		return fmt.Errorf("%w: fps must be positive", ErrInvalidConfig)
	case c.RoundSeconds < 1 || c.RestSeconds < 0 || c.TotalRounds < 1:
		return fmt.Errorf("%w: invalid round clock", ErrInvalidConfig)
	case c.MatchThreshold <= 0 || c.MatchThreshold > 2:
		return fmt.Errorf("%w: match_threshold must be in (0, 2]", ErrInvalidConfig)
	case c.MinSimilarity < 0 || c.MinSimilarity > 1 || c.MinCoverage < 0 || c.MinCoverage > 1:
		return fmt.Errorf("%w: min_similarity and min_coverage must be in [0, 1]", ErrInvalidConfig)
	case c.AnchorSmoothing < 0 || c.AnchorSmoothing > 1:
		return fmt.Errorf("%w: anchor_smoothing must be in [0, 1]", ErrInvalidConfig)
	case c.CooldownFrames < 0 || c.MaxMissingFrames < 0 || c.BootstrapWindow < 0:
		return fmt.Errorf("%w: frame counts must not be negative", ErrInvalidConfig)
	case c.StrikeDistance <= 0:
		return fmt.Errorf("%w: strike_distance must be positive", ErrInvalidConfig)
	}
	return nil
}

func increasing(v []float64) bool {
	for i := 1; i < len(v); i++ {
		if v[i] <= v[i-1] {
			return false
		}
	}
	return true
}

// MetricsOptions maps the metric settings onto metrics options.
func (c *Config) MetricsOptions() []metrics.Option {
	opts := []metrics.Option{
		metrics.WithNamespace(c.MetricsNamespace),
		metrics.WithSubsystem(c.MetricsSubsystem),
		metrics.WithHistogramBuckets(c.MetricsBuckets),
	}
	if c.MetricsInstance != "" {
		opts = append(opts, metrics.WithCustomLabels(map[string]string{"instance": c.MetricsInstance}))
	}
	return opts
}

// BoutConfig maps the tunables onto a bout engine configuration.
func (c *Config) BoutConfig() bout.Config {
	b := bout.DefaultConfig()
	b.FPS = c.FPS
	b.RoundSeconds = c.RoundSeconds
	b.RestSeconds = c.RestSeconds
	b.TotalRounds = c.TotalRounds
	b.MatchThreshold = c.MatchThreshold
	b.BootstrapWindow = c.BootstrapWindow
	b.MinCoverage = c.MinCoverage
	b.MinSimilarity = c.MinSimilarity
	b.AnchorSmoothing = c.AnchorSmoothing
	b.MaxMissingFrames = c.MaxMissingFrames
	b.FreezeAfterSeed = c.FreezeAfterSeed
	b.Cooldown = c.CooldownFrames
	b.StrikeDistance = c.StrikeDistance
	b.StrikeMinSpeed = c.StrikeMinSpeed
	return b
}

// ShutdownTimeout returns the graceful shutdown bound.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(max(c.ShutdownTimeoutSec, 1)) * time.Second
}
