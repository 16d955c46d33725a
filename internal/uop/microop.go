package uop

import "fmt"

// Class is the execution class of a micro-op template.
type Class uint8

const (
	ClassExecute Class = iota
	ClassBranch
	ClassLoad
	ClassStore
	ClassMemAccess
	ClassSerialize
	ClassFence
)

func (c Class) String() string {
	switch c {
	case ClassExecute:
		return "execute"
	case ClassBranch:
		return "branch"
	case ClassLoad:
		return "load"
	case ClassStore:
		return "store"
	case ClassMemAccess:
		return "memaccess"
	case ClassSerialize:
		return "serialize"
	case ClassFence:
		return "mfence"
	}
	return fmt.Sprintf("class(%d)", uint8(c))
}

// MicroOp is an immutable micro-op template. There is exactly one instance
// per kind and dynamic micro-ops point at it; it is never copied or mutated.
type MicroOp struct {
	Name  string
	Class Class
	// Latency is the default execution latency in cycles when the
	// instruction does not supply one.
	Latency uint8
}

// IsMemory reports whether micro-ops of this template access memory.
func (m *MicroOp) IsMemory() bool {
	return m.Class == ClassLoad || m.Class == ClassStore || m.Class == ClassMemAccess
}

// IsBarrier reports whether the template orders all older micro-ops.
func (m *MicroOp) IsBarrier() bool {
	return m.Class == ClassSerialize || m.Class == ClassFence
}

// Process-wide templates, initialised once and shared read-only by every core.
var (
	Execute   = &MicroOp{Name: "execute", Class: ClassExecute, Latency: 1}
	Branch    = &MicroOp{Name: "branch", Class: ClassBranch, Latency: 1}
	Load      = &MicroOp{Name: "load", Class: ClassLoad, Latency: 4}
	Store     = &MicroOp{Name: "store", Class: ClassStore, Latency: 1}
	MemAccess = &MicroOp{Name: "memaccess", Class: ClassMemAccess, Latency: 4}
	Serialize = &MicroOp{Name: "serialize", Class: ClassSerialize, Latency: 1}
	MFence    = &MicroOp{Name: "mfence", Class: ClassFence, Latency: 1}
)

var templates = []*MicroOp{Execute, Branch, Load, Store, MemAccess, Serialize, MFence}

// Templates returns the registry of static micro-op templates.
func Templates() []*MicroOp {
	out := make([]*MicroOp, len(templates))
	copy(out, templates)
	return out
}
