package simtime

import "errors"

var (
	// ErrZeroFrequency is returned when a clock is configured without a frequency.
	ErrZeroFrequency = errors.New("frequency must be positive")

	// ErrTimeOverflow is returned when advancing a Time would exceed the
	// largest representable simulated instant (about 5.1 hours).
	ErrTimeOverflow = errors.New("simulated time overflow")
)
