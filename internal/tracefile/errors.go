package tracefile

import "errors"

var (
	ErrBadMagic           = errors.New("not a trace file")
	ErrUnsupportedVersion = errors.New("unsupported trace file version")
	ErrUnknownCodec       = errors.New("unknown trace codec")
	ErrDigestMismatch     = errors.New("window digest mismatch")
	ErrClosed             = errors.New("trace file closed")
)
