package simtime

import (
	"fmt"

	"github.com/eigerco/uopsim/internal/safemath"
)

// Frequency is a core clock frequency in MHz.
type Frequency uint64

// Period returns the length of one clock cycle, rounded to the nearest femtosecond.
func (f Frequency) Period() (Duration, error) {
	if f == 0 {
		return 0, ErrZeroFrequency
	}
	// 1 MHz = 1e9 fs per cycle
	const fsPerMHzCycle = uint64(Microsecond)
	return Duration((fsPerMHzCycle + uint64(f)/2) / uint64(f)), nil
}

func (f Frequency) String() string {
	return fmt.Sprintf("%dMHz", uint64(f))
}

// Cycles is a count of clock cycles of one core.
type Cycles uint64

// Duration converts c to simulated time using the given period, panicking
// with safemath.ErrOverflow if the product does not fit.
func (c Cycles) Duration(period Duration) Duration {
	return Duration(safemath.MustMul64(uint64(c), uint64(period)))
}

// CyclesIn returns how many whole cycles of the given period fit in d.
func CyclesIn(d Duration, period Duration) Cycles {
	if period == 0 {
		return 0
	}
	return Cycles(d / period)
}
