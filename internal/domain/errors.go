package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrInvalidPlayer   = fmt.Errorf("%w: player must be 1 or 2", ErrInvalidArgument)
	ErrInvalidAction   = fmt.Errorf("%w: action must be increment or decrement", ErrInvalidArgument)

	ErrNotConfirmed     = errors.New("reset not confirmed")
	ErrMatchNotFound    = errors.New("match not found")
	ErrEmptyDocument    = errors.New("empty match document")
	ErrRevisionConflict = errors.New("match was modified concurrently")
)
