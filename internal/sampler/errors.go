package sampler

import "errors"

var (
	ErrUnknownOperation = errors.New("unknown trace operation")
	ErrInvalidConfig    = errors.New("invalid sampler configuration")
	ErrWriterClosed     = errors.New("window writer closed")
)
