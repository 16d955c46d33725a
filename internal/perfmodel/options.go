package perfmodel

import (
	"fmt"
	"math/bits"

	"github.com/rs/zerolog"

	"github.com/eigerco/uopsim/internal/cpi"
	"github.com/eigerco/uopsim/internal/sampler"
	"github.com/eigerco/uopsim/internal/simtime"
)

const (
	DefaultFrequency     simtime.Frequency = 2660
	DefaultCacheLineSize uint64            = 64
)

// ValidateCacheLineSize reports ErrInvalidLineSize unless size is a power of two.
func ValidateCacheLineSize(size uint64) error {
	if size == 0 || bits.OnesCount64(size) != 1 {
		return fmt.Errorf("%w: %d", ErrInvalidLineSize, size)
	}
	return nil
}

type Option func(*Model)

func WithFrequency(f simtime.Frequency) Option {
	return func(m *Model) {
		m.frequency = f
	}
}

func WithCacheLineSize(size uint64) Option {
	return func(m *Model) {
		m.lineSize = size
	}
}

// WithSampler attaches a trace sampler fed with every handled instruction.
func WithSampler(s *sampler.Sampler) Option {
	return func(m *Model) {
		m.sampler = s
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(m *Model) {
		m.logger = l
	}
}

// WithSnapshot publishes the counters to s after every instruction so other
// goroutines can read them.
func WithSnapshot(s *cpi.Snapshot) Option {
	return func(m *Model) {
		m.snapshot = s
	}
}
