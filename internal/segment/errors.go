package segment

import "errors"

var (
	// ErrInsufficientData is returned when statistics cannot support a
	// Gaussian weight: fewer than two valid pixels, or a channel whose
	// standard deviation is zero (or not finite).
	ErrInsufficientData = errors.New("insufficient data")

	// ErrDimensionMismatch is returned when two images used jointly differ
	// in width or height.
	ErrDimensionMismatch = errors.New("image dimensions do not match")

	// ErrInvalidWindow is returned for a structuring window with a
	// non-positive width or height.
	ErrInvalidWindow = errors.New("invalid structuring window")
)
