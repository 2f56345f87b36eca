// Package judge aggregates per-round statistics and applies the 10-point
// must system.
package judge

import (
	"fmt"
	"strings"

	"github.com/okian/varbox/internal/domain/model"
)

const (
	maxPoints = 10
	minPoints = 6
)

// Stats accumulates landed strikes, knockdowns and deductions per round.
// Rounds outside [1, total] are ignored.
type Stats struct {
	rounds []model.RoundStats
}

// NewStats prepares zeroed statistics for totalRounds rounds.
func NewStats(totalRounds int) *Stats {
	s := &Stats{rounds: make([]model.RoundStats, max(totalRounds, 0))}
	for i := range s.rounds {
		s.rounds[i].Round = i + 1
	}
	return s
}

func (s *Stats) at(round int) *model.RoundStats {
	if round < 1 || round > len(s.rounds) {
		return nil
	}
	return &s.rounds[round-1]
}

// AddStrike counts one landed strike for role.
func (s *Stats) AddStrike(role model.Role, round int) {
	if rs := s.at(round); rs != nil {
		rs.Landed.Add(role, 1)
	}
}

// AddKnockdown records that role was knocked down count times (at least once).
func (s *Stats) AddKnockdown(role model.Role, round, count int) {
	if rs := s.at(round); rs != nil {
		rs.Knockdowns.Add(role, max(count, 1))
	}
}

// AddDeduction deducts points (at least one) from role.
func (s *Stats) AddDeduction(role model.Role, round, points int) {
	if rs := s.at(round); rs != nil {
		rs.Deductions.Add(role, max(points, 1))
	}
}

// Round returns the statistics of round; unknown rounds are zero.
func (s *Stats) Round(round int) model.RoundStats {
	if rs := s.at(round); rs != nil {
		return *rs
	}
	return model.RoundStats{Round: round}
}

// Rounds returns a copy of every round's statistics.
func (s *Stats) Rounds() []model.RoundStats {
	out := make([]model.RoundStats, len(s.rounds))
	copy(out, s.rounds)
	return out
}

// Judge scores one round.
func Judge(rs model.RoundStats) model.RoundDecision {
	red, blue, why := JudgeRound(rs.Landed, rs.Knockdowns, rs.Deductions)
	return model.RoundDecision{Round: rs.Round, RedPoints: red, BluePoints: blue, Rationale: why}
}

// JudgeRound awards points from landed counts, knockdowns and deductions.
// Dominance only applies when nobody was knocked down; deductions come last
// and both awards are clamped to [6, 10].
func JudgeRound(landed, knockdowns, deductions model.Tally) (red, blue int, rationale string) {
	var notes []string
	r, b := landed.Red, landed.Blue

	switch {
	case r == b:
		red, blue = maxPoints, maxPoints
		notes = append(notes, "even 10-10")
	case r > b:
		red, blue = maxPoints, maxPoints-1
		notes = append(notes, "RED 10-9 (more effective)")
	default:
		red, blue = maxPoints-1, maxPoints
		notes = append(notes, "BLUE 10-9 (more effective)")
	}

	if knockdowns.Red > 0 {
		red -= knockdowns.Red
		notes = append(notes, fmt.Sprintf("RED knocked down x%d", knockdowns.Red))
	}
	if knockdowns.Blue > 0 {
		blue -= knockdowns.Blue
		notes = append(notes, fmt.Sprintf("BLUE knocked down x%d", knockdowns.Blue))
	}

	if knockdowns.Red == 0 && knockdowns.Blue == 0 {
		winner := model.RoleRed
		if b > r {
			winner = model.RoleBlue
		}
		extra := dominance(r, b)
		switch extra {
		case 1:
			notes = append(notes, fmt.Sprintf("10-8 dominance (%s)", winner))
		case 2:
			notes = append(notes, fmt.Sprintf("10-7 extreme dominance (%s)", winner))
		}
		if winner == model.RoleRed {
			blue -= extra
		} else {
			red -= extra
		}
	}

	if deductions.Red > 0 {
		red -= deductions.Red
		notes = append(notes, fmt.Sprintf("RED deduction -%d", deductions.Red))
	}
	if deductions.Blue > 0 {
		blue -= deductions.Blue
		notes = append(notes, fmt.Sprintf("BLUE deduction -%d", deductions.Blue))
	}

	return clamp(red), clamp(blue), strings.Join(notes, " | ")
}

// dominance returns the extra points taken from the loser of a one-sided round.
func dominance(r, b int) int {
	w, l := r, b
	if b > r {
		w, l = b, r
	}
	ratio := float64(w) / float64(max(l, 1))
	switch {
	case ratio >= 4.0 && w-l >= 18:
		return 2
	case ratio >= 2.5 && w-l >= 10:
		return 1
	default:
		return 0
	}
}

func clamp(v int) int {
	return max(minPoints, min(maxPoints, v))
}
