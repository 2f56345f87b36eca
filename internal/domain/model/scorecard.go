package model

import "time"

// Scorecard is a snapshot of a bout's scoring state.
type Scorecard struct {
	BoutID       string          `json:"bout_id,omitempty"`
	Scores       Tally           `json:"scores"`
	Events       []StrikeEvent   `json:"events"`
	Decisions    []RoundDecision `json:"decisions"`
	Totals       Tally           `json:"totals"`
	Rounds       []RoundStats    `json:"rounds"`
	CurrentRound int             `json:"current_round"`
	InRound      bool            `json:"in_round"`
	BoutOver     bool            `json:"bout_over"`
	Frames       int             `json:"frames"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Leader returns the corner ahead on judged points, or "" when level.
func (s Scorecard) Leader() Role {
	switch {
	case s.Totals.Red > s.Totals.Blue:
		return RoleRed
	case s.Totals.Blue > s.Totals.Red:
		return RoleBlue
	default:
		return ""
	}
}
