package perfmodel

import (
	"github.com/eigerco/uopsim/internal/instruction"
	"github.com/eigerco/uopsim/internal/simtime"
	"github.com/eigerco/uopsim/internal/uop"
)

// Group is the timer's view of the micro-ops of the instruction being
// handled. It is only valid during Timer.Simulate; timers must not keep it
// or any micro-op it returns.
type Group struct {
	m *Model
}

func (g *Group) Len() int {
	return len(g.m.ops)
}

func (g *Group) At(i int) *uop.DynamicMicroOp {
	return g.m.ops[i]
}

// Instruction returns the instruction the group was expanded from.
func (g *Group) Instruction() *instruction.DynamicInstruction {
	return g.m.current
}

// LinesRead is the number of distinct cache lines read by the group.
func (g *Group) LinesRead() int {
	return g.m.linesRead.Len()
}

// LinesWritten is the number of distinct cache lines written by the group.
func (g *Group) LinesWritten() int {
	return g.m.linesWritten.Len()
}

// ElapsedTime is the core's simulated time before the group.
func (g *Group) ElapsedTime() simtime.Time {
	return g.m.elapsed
}

// Period is the length of one core cycle.
func (g *Group) Period() simtime.Duration {
	return g.m.period
}

// Squash discards the micro-ops from index first onwards.
func (g *Group) Squash(first int) {
	g.m.DoSquashing(first)
}
