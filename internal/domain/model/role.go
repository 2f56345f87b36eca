package model

import "strings"

// Role is a canonical corner label.
type Role string

// Roles. Only RED and BLUE are scored; REFEREE may come out of bootstrap.
const (
	RoleRed     Role = "RED"
	RoleBlue    Role = "BLUE"
	RoleReferee Role = "REFEREE"
)

// ScoredRoles lists the two scored corners in canonical order.
var ScoredRoles = [2]Role{RoleRed, RoleBlue}

// ParseRole normalizes s to a scored role. It reports false for anything
// other than RED or BLUE.
func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToUpper(strings.TrimSpace(s))) {
	case RoleRed:
		return RoleRed, true
	case RoleBlue:
		return RoleBlue, true
	default:
		return "", false
	}
}

// Opponent returns the other scored corner.
func (r Role) Opponent() Role {
	if r == RoleRed {
		return RoleBlue
	}
	return RoleRed
}

// Hand identifies the striking hand.
type Hand string

// Hands.
const (
	HandLeft        Hand = "LEFT"
	HandRight       Hand = "RIGHT"
	HandUnspecified Hand = "UNSPECIFIED"
)

// ParseHand normalizes s; anything unrecognized is HandUnspecified.
func ParseHand(s string) Hand {
	switch Hand(strings.ToUpper(strings.TrimSpace(s))) {
	case HandLeft:
		return HandLeft
	case HandRight:
		return HandRight
	default:
		return HandUnspecified
	}
}

// Tally holds one integer per scored corner.
type Tally struct {
	Red  int `json:"red"`
	Blue int `json:"blue"`
}

// Get returns the value for role; non-scored roles read as zero.
func (t Tally) Get(role Role) int {
	switch role {
	case RoleRed:
		return t.Red
	case RoleBlue:
		return t.Blue
	default:
		return 0
	}
}

// Add increments role's value by n. Non-scored roles are ignored.
func (t *Tally) Add(role Role, n int) {
	switch role {
	case RoleRed:
		t.Red += n
	case RoleBlue:
		t.Blue += n
	}
}
