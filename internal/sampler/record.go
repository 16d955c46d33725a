package sampler

import (
	"fmt"

	"github.com/eigerco/uopsim/internal/instruction"
)

// Operation is the trace class of one record.
type Operation uint8

const (
	OpExecute Operation = iota
	OpBranch
	OpLoad
	OpStore
)

var operationNames = [...]string{
	OpExecute: "Exe",
	OpBranch:  "Branch",
	OpLoad:    "Load",
	OpStore:   "Store",
}

func (o Operation) String() string {
	if int(o) < len(operationNames) {
		return operationNames[o]
	}
	return fmt.Sprintf("op(%d)", uint8(o))
}

func (o Operation) MarshalText() ([]byte, error) {
	if int(o) >= len(operationNames) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownOperation, uint8(o))
	}
	return []byte(operationNames[o]), nil
}

func (o *Operation) UnmarshalText(text []byte) error {
	for i, name := range operationNames {
		if name == string(text) {
			*o = Operation(i)
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownOperation, text)
}

// Record is the lightweight trace entry for one instruction. Only loads and
// stores carry an address and size, only branches carry an outcome.
type Record struct {
	EIP     uint64    `json:"eip" codec:"compact"`
	Op      Operation `json:"op"`
	Address uint64    `json:"address,omitempty" codec:"compact"`
	Size    uint32    `json:"size,omitempty"`
	Taken   bool      `json:"taken,omitempty"`
}

// NewRecord converts an instruction into its trace record. Fences and any
// other non-memory, non-branch instruction are traced as plain execution.
func NewRecord(ins *instruction.DynamicInstruction) Record {
	r := Record{EIP: ins.EIP}
	switch ins.Kind {
	case instruction.Branch:
		r.Op = OpBranch
		r.Taken = ins.Taken
	case instruction.Load, instruction.Store:
		r.Op = OpLoad
		if ins.Kind == instruction.Store {
			r.Op = OpStore
		}
		if a, ok := ins.FirstAccess(); ok {
			r.Address = a.Address
			r.Size = a.Size
		}
	default:
		r.Op = OpExecute
	}
	return r
}

// String renders the record as one line of a text dump.
func (r Record) String() string {
	switch r.Op {
	case OpExecute:
		return fmt.Sprintf("%s %d", r.Op, r.EIP)
	case OpBranch:
		taken := 0
		if r.Taken {
			taken = 1
		}
		return fmt.Sprintf("%s %d %d", r.Op, r.EIP, taken)
	default:
		return fmt.Sprintf("%s %d %d %d", r.Op, r.EIP, r.Address, r.Size)
	}
}

// Window is one flushed batch of records.
type Window struct {
	Core  uint32 `json:"core"`
	Index uint32 `json:"index"`
	// FirstInstruction is the 1-based position of the first record in the
	// core's instruction stream.
	FirstInstruction uint64   `json:"first_instruction"`
	Records          []Record `json:"records"`
}
