package interval

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/uopsim/internal/instruction"
	"github.com/eigerco/uopsim/internal/perfmodel"
)

// recording wraps a timer and keeps every result it returned.
type recording struct {
	perfmodel.Timer
	cycles  []uint64
	nonIdle []uint64
}

func (r *recording) Simulate(g *perfmodel.Group) (uint64, uint64) {
	c, n := r.Timer.Simulate(g)
	r.cycles = append(r.cycles, c)
	r.nonIdle = append(r.nonIdle, n)
	return c, n
}

func newROB(t *testing.T) *ROB {
	rob, err := NewROB(DefaultROBConfig())
	require.NoError(t, err)
	return rob
}

func run(t *testing.T, timer perfmodel.Timer, stream []instruction.DynamicInstruction) (*recording, *perfmodel.Model) {
	rec := &recording{Timer: timer}
	m, err := perfmodel.New(0, true, rec)
	require.NoError(t, err)
	for i := range stream {
		m.HandleInstruction(&stream[i])
	}
	return rec, m
}

func exec(dst, src uint8) instruction.DynamicInstruction {
	return instruction.DynamicInstruction{Kind: instruction.Execute, DstRegs: []uint8{dst}, SrcRegs: []uint8{src}}
}

func load(addr, latency uint64, dst, src uint8) instruction.DynamicInstruction {
	return instruction.DynamicInstruction{
		Kind:    instruction.Load,
		Memory:  []instruction.MemoryAccess{{Address: addr, Size: 8, Latency: latency}},
		DstRegs: []uint8{dst},
		SrcRegs: []uint8{src},
	}
}

func TestROBDecodeWidthMakesFirstGroupsFree(t *testing.T) {
	rob := newROB(t)
	stream := make([]instruction.DynamicInstruction, 5)
	for i := range stream {
		stream[i] = exec(uint8(i+1), 0)
	}
	rec, _ := run(t, rob, stream)

	assert.Equal(t, []uint64{0, 0, 0, 0, 1}, rec.cycles)
	assert.Equal(t, 5, rob.Occupancy())
}

func TestROBDependencyChainIsSlower(t *testing.T) {
	chain := make([]instruction.DynamicInstruction, 0, 16)
	independent := make([]instruction.DynamicInstruction, 0, 16)
	for i := 0; i < 16; i++ {
		chain = append(chain, load(uint64(i)*64, 20, 1, 1))
		independent = append(independent, load(uint64(i)*64, 20, uint8(i+2), 0))
	}
	// a fence drains the window so the whole latency is charged
	fence := instruction.DynamicInstruction{Kind: instruction.Fence}
	chain = append(chain, fence)
	independent = append(independent, fence)

	_, chained := run(t, newROB(t), chain)
	_, parallel := run(t, newROB(t), independent)

	assert.Greater(t, chained.Counters().Cost, parallel.Counters().Cost)
	assert.GreaterOrEqual(t, chained.Counters().Cost, uint64(16*20))
}

func TestROBBarrierDrainsWindow(t *testing.T) {
	rob := newROB(t)
	rec, _ := run(t, rob, []instruction.DynamicInstruction{
		load(0x1000, 100, 1, 0),
		{Kind: instruction.Fence},
	})

	assert.Equal(t, uint64(0), rec.cycles[0])
	assert.GreaterOrEqual(t, rec.cycles[1], uint64(100))
	assert.LessOrEqual(t, rob.Occupancy(), 1)
}

func TestROBMispredictPenalty(t *testing.T) {
	rob := newROB(t)
	rec, m := run(t, rob, []instruction.DynamicInstruction{
		{Kind: instruction.Branch, Taken: true, Mispredicted: true},
		{Kind: instruction.Branch, Taken: true},
	})

	cfg := DefaultROBConfig()
	assert.GreaterOrEqual(t, rec.cycles[0], cfg.MispredictPenalty)
	assert.Less(t, rec.nonIdle[0], rec.cycles[0])
	assert.Equal(t, uint64(1), rob.Mispredicts())
	assert.Zero(t, m.LiveMicroOps())
}

func TestROBLogsMispredict(t *testing.T) {
	buf := &bytes.Buffer{}
	rob, err := NewROB(DefaultROBConfig(), WithROBLogger(zerolog.New(buf).Level(zerolog.DebugLevel)))
	require.NoError(t, err)

	run(t, rob, []instruction.DynamicInstruction{
		{EIP: 0x400, Kind: instruction.Branch, Mispredicted: true},
	})

	out := buf.String()
	assert.Contains(t, out, `"message":"branch mispredicted"`)
	assert.Contains(t, out, `"eip":"0x400"`)
	assert.Contains(t, out, `"penalty":15`)
}

func TestROBSquashesAfterMispredictedBranch(t *testing.T) {
	rob := newROB(t)
	// the branch reads memory, so its micro-ops are [memaccess, branch]
	_, m := run(t, rob, []instruction.DynamicInstruction{{
		Kind:         instruction.Branch,
		Mispredicted: true,
		Memory:       []instruction.MemoryAccess{{Address: 0x40, Size: 8}},
	}})
	assert.Zero(t, m.Squashed())
	assert.Zero(t, m.LiveMicroOps())
}

func TestROBNonIdleNeverExceedsCycles(t *testing.T) {
	rob := newROB(t)
	var stream []instruction.DynamicInstruction
	for i := 0; i < 500; i++ {
		switch i % 5 {
		case 0:
			stream = append(stream, load(uint64(i)*8, uint64(4+i%30), uint8(i%8), uint8((i+3)%8)))
		case 1:
			stream = append(stream, exec(uint8(i%8), uint8((i+1)%8)))
		case 2:
			stream = append(stream, instruction.DynamicInstruction{Kind: instruction.Branch, Mispredicted: i%7 == 0})
		case 3:
			stream = append(stream, instruction.DynamicInstruction{Kind: instruction.Store,
				Memory: []instruction.MemoryAccess{{Address: uint64(i) * 60, Size: 16, Write: true}}})
		default:
			stream = append(stream, instruction.DynamicInstruction{Kind: instruction.Execute, Serializing: i%50 == 4})
		}
	}
	rec, m := run(t, rob, stream)

	var total uint64
	for i := range rec.cycles {
		require.LessOrEqual(t, rec.nonIdle[i], rec.cycles[i])
		total += rec.cycles[i]
	}
	assert.Equal(t, total, m.Counters().Cost)
	assert.Equal(t, total, rob.Cycle())
	assert.LessOrEqual(t, rob.Occupancy(), DefaultROBConfig().Size)
}

func TestROBConfigValidation(t *testing.T) {
	cfg := DefaultROBConfig()
	cfg.Units.Branch = 0
	_, err := NewROB(cfg)
	assert.ErrorIs(t, err, ErrInvalidROBConfig)

	cfg = DefaultROBConfig()
	cfg.Size = 0
	_, err = NewROB(cfg)
	assert.ErrorIs(t, err, ErrInvalidROBConfig)
}

func TestAnalytic(t *testing.T) {
	a, err := NewAnalytic(DefaultAnalyticConfig())
	require.NoError(t, err)

	rec, _ := run(t, a, []instruction.DynamicInstruction{
		exec(1, 0), exec(2, 0), exec(3, 0), exec(4, 0),
		load(0x1000, 104, 5, 0),
		{Kind: instruction.Branch, Mispredicted: true},
		{Kind: instruction.Load, Memory: []instruction.MemoryAccess{
			{Address: 0x2000, Size: 8, Latency: 44},
			{Address: 0x3000, Size: 8, Latency: 44},
		}},
	})

	assert.Equal(t, []uint64{0, 0, 0, 1, 100, 15, 1 + 40}, rec.cycles)
	assert.Equal(t, []uint64{0, 0, 0, 1, 0, 0, 1}, rec.nonIdle)
}

func TestAnalyticResync(t *testing.T) {
	a, err := NewAnalytic(AnalyticConfig{DispatchWidth: 2})
	require.NoError(t, err)

	rec := &recording{Timer: a}
	m, err := perfmodel.New(0, false, rec)
	require.NoError(t, err)

	ins := exec(1, 0)
	m.HandleInstruction(&ins)
	m.NotifyElapsedTimeUpdate(0)
	m.HandleInstruction(&ins)
	assert.Equal(t, []uint64{0, 0}, rec.cycles)

	_, err = NewAnalytic(AnalyticConfig{})
	assert.ErrorIs(t, err, ErrInvalidAnalyticConfig)
}
