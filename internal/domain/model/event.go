package model

import "fmt"

// StrikeEvent is an accepted strike. Immutable once logged.
type StrikeEvent struct {
	Frame     int    `json:"frame"`
	Timestamp string `json:"timestamp"`
	Role      Role   `json:"role"`
	Hand      Hand   `json:"hand"`
	Score     int    `json:"score"`
}

// RoundStats is the raw per-round audit data.
type RoundStats struct {
	Round      int   `json:"round"`
	Landed     Tally `json:"landed"`
	Knockdowns Tally `json:"knockdowns"`
	Deductions Tally `json:"deductions"`
}

// RoundDecision is a judged round.
type RoundDecision struct {
	Round      int    `json:"round"`
	RedPoints  int    `json:"red_points"`
	BluePoints int    `json:"blue_points"`
	Rationale  string `json:"rationale"`
}

// FormatTimestamp renders the video position of frame as mm:ss.
func FormatTimestamp(frame, fps int) string {
	if fps < 1 {
		fps = 1
	}
	if frame < 0 {
		frame = 0
	}
	secs := frame / fps
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}
