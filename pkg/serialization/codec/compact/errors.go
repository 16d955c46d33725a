package compact

import "errors"

var (
	ErrInvalidPointer  = errors.New("invalid pointer")
	ErrDecodingBool    = errors.New("error decoding boolean")
	ErrLengthTooLarge  = errors.New("length prefix exceeds limit")
	ErrNegativeCompact = errors.New("negative value cannot be compact encoded")
)

const (
	ErrUnsupportedType     = "unsupported type: %v"
	ErrReadingBytes        = "error reading bytes: %w"
	ErrEncodingStructField = "encoding struct field '%s': %w"
	ErrDecodingStructField = "decoding struct field '%s': %w"
	ErrCompactOnNonInteger = "compact tag on non-integer field '%s'"
)
