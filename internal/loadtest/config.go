// Package loadtest drives a running varbox service with synthetic bouts and
// checks its scorecards against a local engine fed the same frames.
package loadtest

import (
	"time"

	"github.com/okian/varbox/internal/domain/bout"
	"github.com/okian/varbox/internal/domain/model"
)

// Config holds configuration for a load test.
type Config struct {
	BaseURL   string        // Base URL of the service
	Bouts     int           // Number of bouts to run
	Frames    int           // Frames per bout
	BatchSize int           // Frames per request
	Workers   int           // Number of concurrent bouts
	Timeout   time.Duration // HTTP request timeout
	Clock     bout.Settings // Round clock sent with every bout
	Verbose   bool          // Log every bout
}

// Plan is one synthetic bout and the scorecard a local engine produced for it.
type Plan struct {
	Name     string
	Frames   []*model.Frame
	Expected model.Scorecard
}

// Stats holds load test statistics.
type Stats struct {
	BoutsPlanned  int
	BoutsFinished int
	BoutsMatched  int
	BoutsFailed   int
	FramesSent    int
	Retries       int
	StartTime     time.Time
	EndTime       time.Time
	Duration      time.Duration
}
