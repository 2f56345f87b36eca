// Package rounds implements the frame-counted round/rest clock of a bout.
package rounds

// Default bout timing.
const (
	DefaultRoundSeconds = 180
	DefaultRestSeconds  = 60
	DefaultTotalRounds  = 12
)

// Tick is the timer state after one step.
type Tick struct {
	// Round is the current round, clamped to the total once the bout is over.
	Round          int
	InRound        bool
	JustEndedRound bool
	BoutOver       bool
}

// Timer alternates active rounds and rest periods. Initial state is round 1,
// in round.
type Timer struct {
	roundFrames int
	restFrames  int
	total       int

	frame   int
	round   int
	inRound bool
}

// NewTimer sizes the phases from seconds at fps (clamped to at least 1).
func NewTimer(fps, roundSecs, restSecs, totalRounds int) *Timer {
	fps = max(fps, 1)
	return &Timer{
		roundFrames: roundSecs * fps,
		restFrames:  restSecs * fps,
		total:       totalRounds,
		round:       1,
		inRound:     true,
	}
}

// Step advances one frame. Once the bout is over the timer stops advancing
// and every further step reports the same terminal tick.
func (t *Timer) Step() Tick {
	if t.over() {
		return t.terminal()
	}

	var justEnded bool
	t.frame++
	if t.inRound {
		if t.frame >= t.roundFrames {
			t.inRound = false
			justEnded = true
			t.frame = 0
		}
	} else if t.frame >= t.restFrames {
		t.frame = 0
		t.inRound = true
		t.round++
	}

	if t.over() {
		tick := t.terminal()
		tick.JustEndedRound = justEnded
		return tick
	}
	return Tick{Round: t.round, InRound: t.inRound, JustEndedRound: justEnded}
}

func (t *Timer) over() bool {
	return t.round > t.total
}

func (t *Timer) terminal() Tick {
	return Tick{Round: t.total, BoutOver: true}
}

// Round returns the current round, clamped to the total.
func (t *Timer) Round() int {
	return min(t.round, t.total)
}

// InRound reports whether a round is active.
func (t *Timer) InRound() bool {
	return t.inRound && !t.over()
}

// Over reports whether every round has been fought.
func (t *Timer) Over() bool {
	return t.over()
}

// TimeInPhase returns the frames elapsed in the current phase.
func (t *Timer) TimeInPhase() int {
	return t.frame
}
