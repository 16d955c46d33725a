package perfmodel

import "errors"

var (
	ErrEmptyGroup              = errors.New("empty micro-op group")
	ErrInvalidTimingResult     = errors.New("timer returned more non-idle cycles than elapsed cycles")
	ErrUnclassifiedInstruction = errors.New("instruction kind has no micro-op expansion")
	ErrSquashOutOfRange        = errors.New("squash index out of range")
	ErrInvalidLineSize         = errors.New("cache line size must be a power of two")
	ErrNilTimer                = errors.New("nil timer")
)
