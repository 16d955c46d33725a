// Package perfmodel is the per-core micro-op performance model. It expands
// each instruction into micro-ops, lets a pluggable Timer decide how many
// cycles the group costs, charges those cycles to a stall cause and advances
// the core's simulated time.
package perfmodel

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/eigerco/uopsim/internal/cpi"
	"github.com/eigerco/uopsim/internal/instruction"
	"github.com/eigerco/uopsim/internal/lineset"
	"github.com/eigerco/uopsim/internal/safemath"
	"github.com/eigerco/uopsim/internal/sampler"
	"github.com/eigerco/uopsim/internal/simtime"
	"github.com/eigerco/uopsim/internal/uop"
	"github.com/eigerco/uopsim/pkg/log"
)

// Timer is an interval-timing algorithm. Simulate returns how many cycles
// the group took and how many of those did useful work; nonIdleCycles must
// not exceed cyclesElapsed. NotifyElapsedTimeUpdate is called after the
// core's time was moved forward from outside.
type Timer interface {
	Simulate(g *Group) (cyclesElapsed, nonIdleCycles uint64)
	NotifyElapsedTimeUpdate()
}

// Model is owned by one core goroutine and is not safe for concurrent use.
type Model struct {
	core        uint32
	issueMemops bool
	timer       Timer
	frequency   simtime.Frequency
	period      simtime.Duration
	lineSize    uint64
	logger      zerolog.Logger

	alloc        *uop.Allocator
	ops          []*uop.DynamicMicroOp
	lineBuf      []uint64
	linesRead    *lineset.Set
	linesWritten *lineset.Set
	current      *instruction.DynamicInstruction
	group        Group

	sampler  *sampler.Sampler
	snapshot *cpi.Snapshot

	counters cpi.Counters
	elapsed  simtime.Time
	nonIdle  uint64
	squashed uint64
}

// New creates the model of one core. With issueMemops false no memory
// micro-ops are generated, no cache lines are tracked and memory is treated
// as completing instantly.
func New(coreID uint32, issueMemops bool, timer Timer, opts ...Option) (*Model, error) {
	if timer == nil {
		return nil, ErrNilTimer
	}
	m := &Model{
		core:         coreID,
		issueMemops:  issueMemops,
		timer:        timer,
		frequency:    DefaultFrequency,
		lineSize:     DefaultCacheLineSize,
		logger:       log.Core,
		alloc:        uop.NewAllocator(),
		ops:          make([]*uop.DynamicMicroOp, 0, 8),
		lineBuf:      make([]uint64, 0, 4),
		linesRead:    lineset.New(4),
		linesWritten: lineset.New(4),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.group.m = m

	period, err := m.frequency.Period()
	if err != nil {
		return nil, err
	}
	m.period = period
	if err := ValidateCacheLineSize(m.lineSize); err != nil {
		return nil, err
	}
	return m, nil
}

// HandleInstruction times one instruction: check its kind, feed the
// sampler, expand to micro-ops, simulate, account and advance time. The
// micro-op buffer is empty again when it returns.
func (m *Model) HandleInstruction(ins *instruction.DynamicInstruction) {
	if !ins.Kind.Valid() {
		panic(fmt.Errorf("%w: %s at eip 0x%x", ErrUnclassifiedInstruction, ins.Kind, ins.EIP))
	}
	if m.sampler != nil {
		m.sampler.Observe(ins)
	}

	m.linesRead.Reset()
	m.linesWritten.Reset()
	m.current = ins
	m.expand(ins)
	if len(m.ops) == 0 {
		panic(fmt.Errorf("%w: eip 0x%x", ErrEmptyGroup, ins.EIP))
	}
	uops := len(m.ops)

	cycles, nonIdle := m.timer.Simulate(&m.group)
	if nonIdle > cycles {
		panic(fmt.Errorf("%w: %d > %d at eip 0x%x", ErrInvalidTimingResult, nonIdle, cycles, ins.EIP))
	}

	cause := cpi.Classify(ins)
	m.counters.Add(cause, cycles, m.period)
	m.nonIdle = safemath.MustAdd64(m.nonIdle, nonIdle)

	elapsed, err := m.elapsed.Add(simtime.Cycles(cycles).Duration(m.period))
	if err != nil {
		panic(err)
	}
	m.elapsed = elapsed

	if e := m.logger.Debug(); e.Enabled() {
		e.Uint32("core", m.core).
			Str("eip", fmt.Sprintf("0x%x", ins.EIP)).
			Stringer("kind", ins.Kind).
			Int("uops", uops).
			Uint64("cycles", cycles).
			Uint64("non_idle", nonIdle).
			Stringer("cause", cause).
			Msg("instruction timed")
	}

	m.alloc.Release(m.ops...)
	clear(m.ops)
	m.ops = m.ops[:0]
	m.current = nil
	if m.snapshot != nil {
		m.snapshot.Publish(m.counters)
	}
}

func (m *Model) expand(ins *instruction.DynamicInstruction) {
	if ins.Serializing {
		m.push(uop.Serialize, ins)
	}

	memUops := 0
	if m.issueMemops {
		for _, access := range ins.Memory {
			template := uop.MemAccess
			if ins.IsMemory() {
				template = uop.Load
				if access.Write {
					template = uop.Store
				}
			}
			m.lineBuf = access.AppendLines(m.lineBuf[:0], m.lineSize)
			lines := m.lineBuf
			end := access.Address + uint64(access.Size)
			for _, line := range lines {
				op := m.push(template, ins)
				op.HasAddress = true
				op.Address = max(line, access.Address)
				op.Size = access.Size
				if len(lines) > 1 {
					// split at the line boundary
					op.Size = uint32(min(line+m.lineSize, end) - op.Address)
				}
				op.Write = access.Write
				if access.Latency > 0 {
					op.Latency = access.Latency
				}
				if access.Write {
					m.linesWritten.Add(line)
				} else {
					m.linesRead.Add(line)
				}
				memUops++
			}
		}
	}

	switch ins.Kind {
	case instruction.Execute:
		m.push(uop.Execute, ins)
	case instruction.Branch:
		op := m.push(uop.Branch, ins)
		op.Taken = ins.Taken
		op.Mispredicted = ins.Mispredicted
	case instruction.Fence:
		m.push(uop.MFence, ins)
	case instruction.Load, instruction.Store:
		// without memory micro-ops the access completes instantly
		if memUops == 0 {
			m.push(uop.Execute, ins)
		}
	}
}

func (m *Model) push(template *uop.MicroOp, ins *instruction.DynamicInstruction) *uop.DynamicMicroOp {
	op := m.alloc.Alloc(template)
	op.EIP = ins.EIP
	op.SrcRegs = append(op.SrcRegs, ins.SrcRegs...)
	op.DstRegs = append(op.DstRegs, ins.DstRegs...)
	op.Index = len(m.ops)
	m.ops = append(m.ops, op)
	return op
}

// DoSquashing releases the micro-ops from index first to the end of the
// group. Cache lines and trace records they contributed stay accounted.
func (m *Model) DoSquashing(first int) {
	if first < 0 || first > len(m.ops) {
		panic(fmt.Errorf("%w: %d not in [0, %d]", ErrSquashOutOfRange, first, len(m.ops)))
	}
	tail := m.ops[first:]
	if len(tail) == 0 {
		return
	}
	m.squashed += uint64(len(tail))
	m.alloc.Release(tail...)
	clear(tail)
	m.ops = m.ops[:first]
}

// RecordLineRead adds the line containing addr to the read set of the
// current group and reports whether it was new.
func (m *Model) RecordLineRead(addr uint64) bool {
	return m.linesRead.Add(addr &^ (m.lineSize - 1))
}

// RecordLineWritten adds the line containing addr to the written set of the
// current group and reports whether it was new.
func (m *Model) RecordLineWritten(addr uint64) bool {
	return m.linesWritten.Add(addr &^ (m.lineSize - 1))
}

// NotifyElapsedTimeUpdate moves the core's time forward to now, if now is
// later, and lets the timer re-anchor. Counters and the micro-op buffer are
// not touched.
func (m *Model) NotifyElapsedTimeUpdate(now simtime.Time) {
	if now.After(m.elapsed) {
		m.elapsed = now
	}
	m.timer.NotifyElapsedTimeUpdate()
}

func (m *Model) CoreID() uint32 {
	return m.core
}

func (m *Model) IssueMemops() bool {
	return m.issueMemops
}

// Counters returns a copy of the cumulative CPI counters.
func (m *Model) Counters() cpi.Counters {
	return m.counters
}

func (m *Model) ElapsedTime() simtime.Time {
	return m.elapsed
}

// NonIdleCycles is the total of non-idle cycles reported by the timer.
func (m *Model) NonIdleCycles() uint64 {
	return m.nonIdle
}

// Squashed is the number of micro-ops discarded by DoSquashing.
func (m *Model) Squashed() uint64 {
	return m.squashed
}

func (m *Model) Frequency() simtime.Frequency {
	return m.frequency
}

func (m *Model) Period() simtime.Duration {
	return m.period
}

func (m *Model) CacheLineSize() uint64 {
	return m.lineSize
}

// Pending is the number of micro-ops in the group buffer, zero between
// instructions.
func (m *Model) Pending() int {
	return len(m.ops)
}

// LiveMicroOps is the number of micro-ops allocated and not yet released.
func (m *Model) LiveMicroOps() int {
	return m.alloc.Live()
}

func (m *Model) LinesRead() []uint64 {
	return m.linesRead.Lines()
}

func (m *Model) LinesWritten() []uint64 {
	return m.linesWritten.Lines()
}

func (m *Model) Sampler() *sampler.Sampler {
	return m.sampler
}
