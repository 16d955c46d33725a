package interval

import "github.com/eigerco/uopsim/internal/uop"

// ExecUnits counts execution units per kind.
type ExecUnits struct {
	ALU    uint8 `json:"alu"`
	Load   uint8 `json:"load"`
	Store  uint8 `json:"store"`
	Branch uint8 `json:"branch"`
}

func (e ExecUnits) add(another ExecUnits) ExecUnits {
	return ExecUnits{
		ALU:    e.ALU + another.ALU,
		Load:   e.Load + another.Load,
		Store:  e.Store + another.Store,
		Branch: e.Branch + another.Branch,
	}
}

func (e ExecUnits) sub(another ExecUnits) ExecUnits {
	return ExecUnits{
		ALU:    e.ALU - another.ALU,
		Load:   e.Load - another.Load,
		Store:  e.Store - another.Store,
		Branch: e.Branch - another.Branch,
	}
}

// fits reports whether every unit needed is available in e.
func (e ExecUnits) fits(need ExecUnits) bool {
	return need.ALU <= e.ALU &&
		need.Load <= e.Load &&
		need.Store <= e.Store &&
		need.Branch <= e.Branch
}

func (e ExecUnits) anyZero() bool {
	return e.ALU == 0 || e.Load == 0 || e.Store == 0 || e.Branch == 0
}

// unitsFor is the execution unit a micro-op class occupies while executing.
func unitsFor(c uop.Class) ExecUnits {
	switch c {
	case uop.ClassLoad, uop.ClassMemAccess:
		return ExecUnits{Load: 1}
	case uop.ClassStore:
		return ExecUnits{Store: 1}
	case uop.ClassBranch:
		return ExecUnits{Branch: 1}
	default:
		return ExecUnits{ALU: 1}
	}
}
