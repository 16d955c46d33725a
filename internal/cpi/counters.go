package cpi

import (
	"errors"
	"fmt"

	"github.com/eigerco/uopsim/internal/safemath"
	"github.com/eigerco/uopsim/internal/simtime"
)

var ErrUnknownCause = errors.New("unknown stall cause")

// Counters are the cumulative CPI statistics of one core. They only grow;
// nothing in the model ever resets them.
type Counters struct {
	ITLBMiss  simtime.Duration
	DTLBMiss  simtime.Duration
	Unknown   simtime.Duration
	MemAccess simtime.Duration

	// Instructions is the number of timed groups.
	Instructions uint64
	// Cost is the total number of cycles charged.
	Cost uint64
	// ZeroCost counts groups that were charged zero cycles.
	ZeroCost uint64
}

// Add charges cycles of the given period to exactly one cause bucket.
func (c *Counters) Add(cause StallCause, cycles uint64, period simtime.Duration) {
	d := simtime.Cycles(cycles).Duration(period)
	switch cause {
	case ITLBMiss:
		c.ITLBMiss = c.ITLBMiss.Add(d)
	case DTLBMiss:
		c.DTLBMiss = c.DTLBMiss.Add(d)
	case MemAccess:
		c.MemAccess = c.MemAccess.Add(d)
	case Unknown:
		c.Unknown = c.Unknown.Add(d)
	default:
		panic(fmt.Errorf("%w: %d", ErrUnknownCause, uint8(cause)))
	}

	c.Instructions = safemath.MustAdd64(c.Instructions, 1)
	c.Cost = safemath.MustAdd64(c.Cost, cycles)
	if cycles == 0 {
		c.ZeroCost = safemath.MustAdd64(c.ZeroCost, 1)
	}
}

// Get returns the time charged to cause.
func (c Counters) Get(cause StallCause) simtime.Duration {
	switch cause {
	case ITLBMiss:
		return c.ITLBMiss
	case DTLBMiss:
		return c.DTLBMiss
	case MemAccess:
		return c.MemAccess
	case Unknown:
		return c.Unknown
	}
	return 0
}

// Total is the sum of all cause buckets.
func (c Counters) Total() simtime.Duration {
	return c.ITLBMiss.Add(c.DTLBMiss).Add(c.Unknown).Add(c.MemAccess)
}

// CPI returns cycles per instruction over everything charged so far.
func (c Counters) CPI() float64 {
	if c.Instructions == 0 {
		return 0
	}
	return float64(c.Cost) / float64(c.Instructions)
}
