package replay

import "errors"

var (
	// ErrMissingInput is returned before any frame is read when the input file is absent.
	ErrMissingInput = errors.New("replay input file is required")
	// ErrOutput is returned when the scorecard cannot be written.
	ErrOutput = errors.New("write scorecard")
)
