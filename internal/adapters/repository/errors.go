package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrNotFound      = errors.New("scorecard not found")
	ErrInvalidLimit  = errors.New("invalid listing limit")
	ErrMissingBoutID = errors.New("scorecard has no bout id")
)
