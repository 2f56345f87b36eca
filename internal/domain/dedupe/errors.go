package dedupe

import "errors"

// Sentinel errors for frame admission.
var (
	ErrDuplicate  = errors.New("frame already admitted")
	ErrOutOfOrder = errors.New("frame index behind the last admitted frame")
)
