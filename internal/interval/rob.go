// Package interval holds interval-timing algorithms for perfmodel.
package interval

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/eigerco/uopsim/internal/perfmodel"
	"github.com/eigerco/uopsim/internal/uop"
	"github.com/eigerco/uopsim/pkg/log"
)

var ErrInvalidROBConfig = errors.New("invalid reorder buffer configuration")

// ROBConfig describes the out-of-order window. Widths are per cycle.
type ROBConfig struct {
	DecodeWidth       uint64    `json:"decode_width"`
	IssueWidth        uint64    `json:"issue_width"`
	Size              int       `json:"size"`
	Units             ExecUnits `json:"units"`
	MispredictPenalty uint64    `json:"mispredict_penalty"`
}

func DefaultROBConfig() ROBConfig {
	return ROBConfig{
		DecodeWidth: 4,
		IssueWidth:  5,
		Size:        32,
		Units: ExecUnits{
			ALU:    4,
			Load:   4,
			Store:  4,
			Branch: 1,
		},
		MispredictPenalty: 15,
	}
}

func (c ROBConfig) Validate() error {
	if c.DecodeWidth == 0 || c.IssueWidth == 0 || c.Size <= 0 {
		return fmt.Errorf("%w: widths and size must be positive", ErrInvalidROBConfig)
	}
	if c.Units.anyZero() {
		return fmt.Errorf("%w: every execution unit kind needs at least one unit", ErrInvalidROBConfig)
	}
	return nil
}

type entryStatus byte

const (
	DEC entryStatus = iota + 1
	WAIT
	EXE
	FIN
)

type reorderBufferEntry struct {
	seq          uint64
	status       entryStatus
	cyclesLeft   uint64
	dependencies []uint64
	units        ExecUnits
}

// ROB is an out-of-order window model. Micro-ops are decoded into a reorder
// buffer, DEC -> WAIT -> EXE -> FIN, issue once their producers finished and
// an execution unit is free, and retire in order. The window persists across
// groups so independent work overlaps; a group that decodes into the current
// cycle costs zero cycles.
type ROB struct {
	cfg    ROBConfig
	logger zerolog.Logger

	cycle       uint64
	decodeSlots uint64
	remaining   ExecUnits
	entries     []reorderBufferEntry
	nextSeq     uint64
	// lastWriter holds seq+1 of the youngest producer of each register.
	lastWriter [256]uint64

	mispredicts uint64
	resyncs     uint64
}

type ROBOption func(*ROB)

// WithROBLogger replaces the default log.Timing logger.
func WithROBLogger(l zerolog.Logger) ROBOption {
	return func(r *ROB) {
		r.logger = l
	}
}

func NewROB(cfg ROBConfig, opts ...ROBOption) (*ROB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	r := &ROB{
		cfg:         cfg,
		logger:      log.Timing,
		decodeSlots: cfg.DecodeWidth,
		remaining:   cfg.Units,
		entries:     make([]reorderBufferEntry, 0, cfg.Size),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Simulate decodes the group into the window, advancing cycles whenever
// decode bandwidth or window space runs out. Barriers drain the window
// first. A mispredicted branch squashes the rest of the group, waits for the
// branch to resolve and pays the refill penalty as idle cycles.
func (r *ROB) Simulate(g *perfmodel.Group) (uint64, uint64) {
	start := r.cycle
	var nonIdle uint64

	for i := 0; i < g.Len(); i++ {
		op := g.At(i)

		if op.Template.IsBarrier() {
			nonIdle += r.drain()
		}
		for r.decodeSlots == 0 || len(r.entries) >= r.cfg.Size {
			nonIdle += r.step()
		}
		seq := r.decode(op)

		if op.Mispredicted {
			squashed := g.Len() - (i + 1)
			g.Squash(i + 1)
			resolve := r.resolve(seq)
			nonIdle += resolve
			r.cycle += r.cfg.MispredictPenalty
			r.decodeSlots = r.cfg.DecodeWidth
			r.mispredicts++
			if e := r.logger.Debug(); e.Enabled() {
				e.Str("eip", fmt.Sprintf("0x%x", op.EIP)).
					Int("squashed", squashed).
					Uint64("resolve_cycles", resolve).
					Uint64("penalty", r.cfg.MispredictPenalty).
					Uint64("cycle", r.cycle).
					Msg("branch mispredicted")
			}
			break
		}
	}

	return r.cycle - start, nonIdle
}

func (r *ROB) decode(op *uop.DynamicMicroOp) uint64 {
	seq := r.nextSeq
	r.nextSeq++
	r.decodeSlots--

	var dependencies []uint64
	for _, reg := range op.SrcRegs {
		if w := r.lastWriter[reg]; w != 0 && !r.finished(w-1) {
			dependencies = append(dependencies, w-1)
		}
	}
	for _, reg := range op.DstRegs {
		r.lastWriter[reg] = seq + 1
	}

	r.entries = append(r.entries, reorderBufferEntry{
		seq:          seq,
		status:       DEC,
		cyclesLeft:   max(op.Latency, 1),
		dependencies: dependencies,
		units:        unitsFor(op.Template.Class),
	})
	return seq
}

// finished reports whether the entry with the given seq completed.
func (r *ROB) finished(seq uint64) bool {
	if len(r.entries) == 0 || seq < r.entries[0].seq {
		return true
	}
	return r.entries[seq-r.entries[0].seq].status == FIN
}

// readyForExecution returns the oldest waiting entry whose producers
// finished and whose execution unit is free.
func (r *ROB) readyForExecution() (int, bool) {
	for j := range r.entries {
		e := &r.entries[j]
		if e.status != WAIT {
			continue
		}
		if !r.remaining.fits(e.units) {
			continue
		}
		ready := true
		for _, dep := range e.dependencies {
			if !r.finished(dep) {
				ready = false
				break
			}
		}
		if ready {
			return j, true
		}
	}
	return 0, false
}

// step issues what it can and advances one cycle. It reports 1 when any
// entry was executing during the cycle.
func (r *ROB) step() uint64 {
	for issued := uint64(0); issued < r.cfg.IssueWidth; issued++ {
		j, ok := r.readyForExecution()
		if !ok {
			break
		}
		r.entries[j].status = EXE
		r.remaining = r.remaining.sub(r.entries[j].units)
	}

	r.cycle++
	r.decodeSlots = r.cfg.DecodeWidth

	var busy uint64
	for j := range r.entries {
		e := &r.entries[j]
		switch e.status {
		case DEC:
			e.status = WAIT
		case EXE:
			busy = 1
			e.cyclesLeft--
			if e.cyclesLeft == 0 {
				e.status = FIN
				r.remaining = r.remaining.add(e.units)
			}
		}
	}

	retired := 0
	for retired < len(r.entries) && r.entries[retired].status == FIN {
		retired++
	}
	if retired > 0 {
		n := copy(r.entries, r.entries[retired:])
		r.entries = r.entries[:n]
	}
	return busy
}

// drain runs the window until it is empty.
func (r *ROB) drain() uint64 {
	var nonIdle uint64
	for len(r.entries) > 0 {
		nonIdle += r.step()
	}
	return nonIdle
}

// resolve runs the window until entry seq finished.
func (r *ROB) resolve(seq uint64) uint64 {
	var nonIdle uint64
	for !r.finished(seq) {
		nonIdle += r.step()
	}
	return nonIdle
}

// NotifyElapsedTimeUpdate starts a fresh decode cycle; the window itself
// keeps running.
func (r *ROB) NotifyElapsedTimeUpdate() {
	r.decodeSlots = r.cfg.DecodeWidth
	r.resyncs++
	r.logger.Trace().Uint64("resyncs", r.resyncs).Uint64("cycle", r.cycle).
		Int("occupancy", len(r.entries)).Msg("time synchronised")
}

// Occupancy is the number of micro-ops in the window.
func (r *ROB) Occupancy() int {
	return len(r.entries)
}

func (r *ROB) Cycle() uint64 {
	return r.cycle
}

func (r *ROB) Mispredicts() uint64 {
	return r.mispredicts
}
