package uop

import "fmt"

// DynamicMicroOp is one micro-op instance of one dynamic instruction.
type DynamicMicroOp struct {
	Template *MicroOp

	EIP        uint64
	Address    uint64
	HasAddress bool
	Size       uint32
	Write      bool

	Taken        bool
	Mispredicted bool

	// Latency in cycles, the template default unless the instruction
	// carried a measured one (memory accesses).
	Latency uint64

	SrcRegs []uint8
	DstRegs []uint8

	// Index is the position inside the current group.
	Index int

	owner *Allocator
	live  bool
}

// Live reports whether the micro-op is currently owned by a group.
func (d *DynamicMicroOp) Live() bool {
	return d.live
}

func (d *DynamicMicroOp) String() string {
	if d.HasAddress {
		return fmt.Sprintf("%s eip=0x%x addr=0x%x size=%d lat=%d", d.Template.Name, d.EIP, d.Address, d.Size, d.Latency)
	}
	return fmt.Sprintf("%s eip=0x%x lat=%d", d.Template.Name, d.EIP, d.Latency)
}
