package safe

import "errors"

var (
	// ErrInvalidInput reports a Mat with degenerate dimensions or a
	// channel layout the operation does not support.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDimensionMismatch reports two Mats taking part in one operation
	// with different width or height.
	ErrDimensionMismatch = errors.New("dimension mismatch")
)
