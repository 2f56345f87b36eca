package loadtest

import (
	"errors"
	"fmt"

	"github.com/okian/varbox/internal/domain/model"
)

// ErrMismatch is returned when the service scored a bout differently from
// the local engine.
var ErrMismatch = errors.New("scorecard mismatch")

// verifyScorecard compares what the service returned against the local run.
func verifyScorecard(expected, actual model.Scorecard) error {
	if actual.Frames != expected.Frames {
		return fmt.Errorf("%w: frames %d, want %d", ErrMismatch, actual.Frames, expected.Frames)
	}
	if actual.Scores != expected.Scores {
		return fmt.Errorf("%w: scores %s, want %s", ErrMismatch, tally(actual.Scores), tally(expected.Scores))
	}
	if actual.Totals != expected.Totals {
		return fmt.Errorf("%w: totals %s, want %s", ErrMismatch, tally(actual.Totals), tally(expected.Totals))
	}
	if len(actual.Decisions) != len(expected.Decisions) {
		return fmt.Errorf("%w: %d decisions, want %d", ErrMismatch, len(actual.Decisions), len(expected.Decisions))
	}
	for i, d := range expected.Decisions {
		if actual.Decisions[i] != d {
			return fmt.Errorf("%w: round %d judged %d-%d, want %d-%d", ErrMismatch,
				d.Round, actual.Decisions[i].RedPoints, actual.Decisions[i].BluePoints, d.RedPoints, d.BluePoints)
		}
	}
	if !actual.BoutOver {
		return fmt.Errorf("%w: bout not over", ErrMismatch)
	}
	return nil
}

func tally(t model.Tally) string {
	return fmt.Sprintf("%d-%d", t.Red, t.Blue)
}
