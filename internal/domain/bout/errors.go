package bout

import "errors"

// Sentinel errors for the bout engine.
var (
	ErrOutOfOrder  = errors.New("frame index not after the previous frame")
	ErrUnknownRole = errors.New("role must be RED or BLUE")
	ErrNotInRound  = errors.New("no round in progress")
)
