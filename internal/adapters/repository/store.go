// Package repository persists finished and in-progress scorecards.
package repository

import (
	"context"
	"time"

	"github.com/okian/varbox/internal/domain/model"
)

// Summary is one row of the scorecard listing.
type Summary struct {
	BoutID    string      `json:"bout_id"`
	Totals    model.Tally `json:"totals"`
	Winner    model.Role  `json:"winner,omitempty"`
	Rounds    int         `json:"rounds_judged"`
	BoutOver  bool        `json:"bout_over"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Store provides read/write access to saved scorecards.
type Store interface {
	// SaveScorecard inserts or replaces the scorecard for sc.BoutID.
	SaveScorecard(ctx context.Context, sc model.Scorecard) error

	// Scorecard returns the saved scorecard for boutID.
	// Returns ErrNotFound if the bout is unknown.
	Scorecard(ctx context.Context, boutID string) (model.Scorecard, error)

	// List returns up to limit summaries, most recently updated first.
	// A limit of zero lists everything.
	List(ctx context.Context, limit int) ([]Summary, error)

	// Count returns the number of saved bouts.
	Count(ctx context.Context) int

	Close() error
}

func summarize(sc model.Scorecard) Summary {
	return Summary{
		BoutID:    sc.BoutID,
		Totals:    sc.Totals,
		Winner:    sc.Leader(),
		Rounds:    len(sc.Decisions),
		BoutOver:  sc.BoutOver,
		UpdatedAt: sc.UpdatedAt,
	}
}

func validate(sc model.Scorecard) error {
	if sc.BoutID == "" {
		return ErrMissingBoutID
	}
	return nil
}
