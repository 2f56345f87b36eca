// Package scoring tracks landed strikes per corner with a per-hand cooldown
// and accumulates judged round points.
package scoring

import (
	"github.com/okian/varbox/internal/domain/model"
)

// DefaultCooldownFrames is the minimum frame gap between two accepted
// strikes of the same corner and hand.
const DefaultCooldownFrames = 15

// Option applies a configuration option to the Tracker.
type Option func(*Tracker)

// WithCooldown sets the cooldown window in frames.
func WithCooldown(frames int) Option {
	return func(t *Tracker) {
		if frames >= 0 {
			t.cooldown = frames
		}
	}
}

// Tracker keeps running scores, the strike log and round decisions.
// It is not safe for concurrent use.
type Tracker struct {
	cooldown int

	scores    model.Tally
	last      map[model.Role]map[model.Hand]int
	events    []model.StrikeEvent
	decisions []model.RoundDecision
	totals    model.Tally
}

// NewTracker creates a tracker with the default cooldown.
func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{
		cooldown: DefaultCooldownFrames,
		last:     make(map[model.Role]map[model.Hand]int, len(model.ScoredRoles)),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Cooldown returns the configured cooldown in frames.
func (t *Tracker) Cooldown() int {
	return t.cooldown
}

// Update records a landed strike if the corner's cooldown for that hand has
// elapsed. Unknown roles are rejected; unknown hands count as unspecified.
// A rejected strike leaves the tracker untouched.
func (t *Tracker) Update(frame int, role model.Role, timestamp string, hand model.Hand) bool {
	r, ok := model.ParseRole(string(role))
	if !ok {
		return false
	}
	h := model.ParseHand(string(hand))

	byHand := t.last[r]
	if last, seen := byHand[h]; seen && frame-last <= t.cooldown {
		return false
	}
	if byHand == nil {
		byHand = make(map[model.Hand]int, 3)
		t.last[r] = byHand
	}

	t.scores.Add(r, 1)
	t.events = append(t.events, model.StrikeEvent{
		Frame:     frame,
		Timestamp: timestamp,
		Role:      r,
		Hand:      h,
		Score:     t.scores.Get(r),
	})
	byHand[h] = frame
	if h != model.HandUnspecified {
		byHand[model.HandUnspecified] = frame
	}
	return true
}

// AddRoundPoints records a judged round and adds its points to the totals.
// Calling it twice for the same round counts the round twice.
func (t *Tracker) AddRoundPoints(round, red, blue int, rationale string) {
	t.decisions = append(t.decisions, model.RoundDecision{
		Round:      round,
		RedPoints:  red,
		BluePoints: blue,
		Rationale:  rationale,
	})
	t.totals.Red += red
	t.totals.Blue += blue
}

// Score returns the current landed-strike score of role.
func (t *Tracker) Score(role model.Role) int {
	return t.scores.Get(role)
}

// Scores returns both corners' scores.
func (t *Tracker) Scores() model.Tally {
	return t.scores
}

// Events returns a copy of the strike log.
func (t *Tracker) Events() []model.StrikeEvent {
	out := make([]model.StrikeEvent, len(t.events))
	copy(out, t.events)
	return out
}

// Decisions returns a copy of the judged rounds.
func (t *Tracker) Decisions() []model.RoundDecision {
	out := make([]model.RoundDecision, len(t.decisions))
	copy(out, t.decisions)
	return out
}

// Totals returns the cumulative 10-point totals.
func (t *Tracker) Totals() model.Tally {
	return t.totals
}
