package framecodec

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidImage    = errors.New("invalid frame image")
	ErrInvalidKeypoint = errors.New("invalid keypoint")
	ErrInvalidRecord   = errors.New("invalid frame record")

	// ErrInvalidIndex is an ErrInvalidRecord whose JSON parsed but whose
	// frame index is not positive.
	ErrInvalidIndex = fmt.Errorf("%w: index must be positive", ErrInvalidRecord)
)
