package safemath

import (
	"errors"
	"fmt"
	"math/bits"
)

var ErrOverflow = errors.New("number overflow")

func Add64(a, b uint64) (uint64, bool) {
	v, carry := bits.Add64(a, b, 0)
	return v, carry == 0
}

func Sub64(a, b uint64) (uint64, bool) {
	v, borrow := bits.Sub64(a, b, 0)
	return v, borrow == 0
}

func Mul64(a, b uint64) (uint64, bool) {
	hi, lo := bits.Mul64(a, b)
	return lo, hi == 0
}

// MustAdd64 is Add64 for cumulative statistics where wrapping around would
// silently corrupt results; it panics with ErrOverflow instead.
func MustAdd64(a, b uint64) uint64 {
	v, ok := Add64(a, b)
	if !ok {
		panic(fmt.Errorf("%w: %d + %d", ErrOverflow, a, b))
	}
	return v
}

// MustMul64 panics with ErrOverflow when a*b does not fit in 64 bits.
func MustMul64(a, b uint64) uint64 {
	v, ok := Mul64(a, b)
	if !ok {
		panic(fmt.Errorf("%w: %d * %d", ErrOverflow, a, b))
	}
	return v
}
