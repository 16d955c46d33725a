package simtime

import (
	"fmt"
	"math"

	"github.com/eigerco/uopsim/internal/safemath"
)

// Duration is a span of simulated time in femtoseconds.
type Duration uint64

const (
	Femtosecond Duration = 1
	Picosecond           = 1000 * Femtosecond
	Nanosecond           = 1000 * Picosecond
	Microsecond          = 1000 * Nanosecond
	Millisecond          = 1000 * Microsecond
)

// MaxTime is the latest representable simulated instant.
const MaxTime = Time(math.MaxUint64)

// Time is a simulated instant, femtoseconds since the start of the simulation.
// It is a logical clock owned by one core, unrelated to wall-clock time.
type Time uint64

// Add returns t+d
func (t Time) Add(d Duration) (Time, error) {
	v, ok := safemath.Add64(uint64(t), uint64(d))
	if !ok {
		return 0, ErrTimeOverflow
	}
	return Time(v), nil
}

// Sub returns the duration t-u, zero if u is after t
func (t Time) Sub(u Time) Duration {
	if u >= t {
		return 0
	}
	return Duration(t - u)
}

// Before reports whether t is before u
func (t Time) Before(u Time) bool {
	return t < u
}

// After reports whether t is after u
func (t Time) After(u Time) bool {
	return t > u
}

func (t Time) String() string {
	return Duration(t).String()
}

// Nanoseconds returns d as a floating point number of nanoseconds
func (d Duration) Nanoseconds() float64 {
	return float64(d) / float64(Nanosecond)
}

// Seconds returns d as a floating point number of seconds
func (d Duration) Seconds() float64 {
	return float64(d) / float64(1000*Millisecond)
}

func (d Duration) String() string {
	return fmt.Sprintf("%.6fns", d.Nanoseconds())
}

// Add returns d+o and panics on overflow; durations here are cumulative
// statistics and a wrapped value would be silently wrong.
func (d Duration) Add(o Duration) Duration {
	return Duration(safemath.MustAdd64(uint64(d), uint64(o)))
}
