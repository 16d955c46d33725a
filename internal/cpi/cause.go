package cpi

import (
	"fmt"

	"github.com/eigerco/uopsim/internal/instruction"
)

// StallCause is the category a group's cycles are charged to.
type StallCause uint8

const (
	Unknown StallCause = iota
	ITLBMiss
	DTLBMiss
	MemAccess
)

var causeNames = [...]string{
	Unknown:   "unknown",
	ITLBMiss:  "itlb_miss",
	DTLBMiss:  "dtlb_miss",
	MemAccess: "mem_access",
}

// Causes lists every cause in reporting order.
func Causes() []StallCause {
	return []StallCause{ITLBMiss, DTLBMiss, Unknown, MemAccess}
}

func (c StallCause) String() string {
	if int(c) < len(causeNames) {
		return causeNames[c]
	}
	return fmt.Sprintf("cause(%d)", uint8(c))
}

// Classify attributes an instruction to the cause of its longest-latency
// event: an instruction TLB miss, a data TLB miss, or a data cache miss.
// Ties go to the earlier stage of the pipeline (ITLB, then DTLB, then memory).
// An instruction without any of these events is Unknown.
func Classify(ins *instruction.DynamicInstruction) StallCause {
	cause, worst := Unknown, uint64(0)
	if ins.ITLBMissLatency > worst {
		cause, worst = ITLBMiss, ins.ITLBMissLatency
	}
	if l := ins.MaxDTLBMissLatency(); l > worst {
		cause, worst = DTLBMiss, l
	}
	if l := ins.MaxMissLatency(); l > worst {
		cause = MemAccess
	}
	return cause
}
