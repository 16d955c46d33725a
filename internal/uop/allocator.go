package uop

import (
	"errors"
	"fmt"
)

var (
	ErrDoubleRelease  = errors.New("dynamic micro-op released twice")
	ErrForeignRelease = errors.New("dynamic micro-op released to an allocator that did not create it")
)

const slabSize = 64

// Allocator hands out DynamicMicroOps for a single core. It is not safe for
// concurrent use; every core owns one. Released micro-ops are recycled
// through a free list so steady-state simulation does not allocate.
type Allocator struct {
	free []*DynamicMicroOp
	live int
}

func NewAllocator() *Allocator {
	return &Allocator{}
}

// Alloc returns a zeroed micro-op owned by the caller until Release.
func (a *Allocator) Alloc(template *MicroOp) *DynamicMicroOp {
	if len(a.free) == 0 {
		a.grow()
	}
	n := len(a.free) - 1
	op := a.free[n]
	a.free = a.free[:n]

	src, dst := op.SrcRegs[:0], op.DstRegs[:0]
	*op = DynamicMicroOp{
		Template: template,
		Latency:  uint64(template.Latency),
		SrcRegs:  src,
		DstRegs:  dst,
		owner:    a,
		live:     true,
	}
	a.live++
	return op
}

func (a *Allocator) grow() {
	slab := make([]DynamicMicroOp, slabSize)
	for i := range slab {
		slab[i].owner = a
		a.free = append(a.free, &slab[i])
	}
}

// Release returns micro-ops to the free list. Releasing one twice, or one
// from another allocator, is a contract violation and panics.
func (a *Allocator) Release(ops ...*DynamicMicroOp) {
	for _, op := range ops {
		if op.owner != a {
			panic(ErrForeignRelease)
		}
		if !op.live {
			panic(fmt.Errorf("%w: eip=0x%x", ErrDoubleRelease, op.EIP))
		}
		op.live = false
		op.Template = nil
		a.free = append(a.free, op)
		a.live--
	}
}

// Live returns how many micro-ops are currently allocated.
func (a *Allocator) Live() int {
	return a.live
}
