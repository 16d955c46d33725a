// Package instruction defines the dynamic instructions pushed into a core
// model by the front-end. Operand addresses are already resolved and the
// miss indicators come from the cache hierarchy and TLBs upstream.
package instruction

import (
	"fmt"
)

// Kind is the front-end classification of an instruction.
type Kind uint8

const (
	Execute Kind = iota
	Branch
	Load
	Store
	Fence
)

func (k Kind) String() string {
	switch k {
	case Execute:
		return "execute"
	case Branch:
		return "branch"
	case Load:
		return "load"
	case Store:
		return "store"
	case Fence:
		return "fence"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	return k <= Fence
}

// MemoryAccess is one resolved memory operand.
type MemoryAccess struct {
	Address uint64
	Size    uint32
	Write   bool

	// Latency is the access latency in cycles reported by the cache hierarchy.
	Latency uint64
	// CacheMiss is set when the access missed the first-level data cache.
	CacheMiss bool
	// DTLBMissLatency is the extra page walk latency in cycles, zero on a hit.
	DTLBMissLatency uint64
}

// DynamicInstruction is one completed instruction occurrence.
type DynamicInstruction struct {
	EIP  uint64
	Size uint32
	Kind Kind

	// Serializing instructions require all older work to drain first.
	Serializing bool

	// Branch outcome, only meaningful for Kind == Branch.
	Taken        bool
	Mispredicted bool

	Memory []MemoryAccess

	// ITLBMissLatency is the page walk latency paid fetching this instruction.
	ITLBMissLatency uint64

	SrcRegs []uint8
	DstRegs []uint8
}

// IsMemory reports whether the instruction is a plain load or store.
func (d *DynamicInstruction) IsMemory() bool {
	return d.Kind == Load || d.Kind == Store
}

// FirstAccess returns the first memory operand, used as the trace address
// of loads and stores.
func (d *DynamicInstruction) FirstAccess() (MemoryAccess, bool) {
	if len(d.Memory) == 0 {
		return MemoryAccess{}, false
	}
	return d.Memory[0], true
}

// MaxDTLBMissLatency returns the largest page walk latency over all operands.
func (d *DynamicInstruction) MaxDTLBMissLatency() uint64 {
	var m uint64
	for _, a := range d.Memory {
		m = max(m, a.DTLBMissLatency)
	}
	return m
}

// MaxMissLatency returns the largest latency of operands that missed the cache.
func (d *DynamicInstruction) MaxMissLatency() uint64 {
	var m uint64
	for _, a := range d.Memory {
		if a.CacheMiss {
			m = max(m, a.Latency)
		}
	}
	return m
}

// AppendLines appends the cache-line aligned addresses touched by a to dst,
// in ascending order, and returns the extended slice. An access that crosses
// a line boundary touches two or more lines.
func (a MemoryAccess) AppendLines(dst []uint64, lineSize uint64) []uint64 {
	first := a.Address &^ (lineSize - 1)
	if a.Size <= 1 {
		return append(dst, first)
	}
	last := (a.Address + uint64(a.Size) - 1) &^ (lineSize - 1)
	for l := first; ; l += lineSize {
		dst = append(dst, l)
		if l >= last {
			return dst
		}
	}
}
