// Package workload generates a deterministic synthetic instruction stream
// for a core. It stands in for a real front-end: instruction mix, branch
// outcomes and cache and TLB misses are drawn from a seeded generator, so
// a run is reproducible from its configuration alone.
package workload

import (
	"errors"
	"fmt"

	"golang.org/x/exp/rand"

	"github.com/eigerco/uopsim/internal/instruction"
)

var ErrInvalidConfig = errors.New("invalid workload configuration")

type Config struct {
	Seed uint64 `json:"seed"`

	// Instruction mix, the remainder are plain execute instructions.
	LoadFraction   float64 `json:"load_fraction"`
	StoreFraction  float64 `json:"store_fraction"`
	BranchFraction float64 `json:"branch_fraction"`
	FenceFraction  float64 `json:"fence_fraction"`
	// SerializingRate is the probability any instruction is serializing.
	SerializingRate float64 `json:"serializing_rate"`

	TakenRate      float64 `json:"taken_rate"`
	MispredictRate float64 `json:"mispredict_rate"`

	// Memory operands fall in a working set of WorkingSet bytes.
	WorkingSet     uint64  `json:"working_set"`
	AccessSize     uint32  `json:"access_size"`
	HitLatency     uint64  `json:"hit_latency"`
	MissRate       float64 `json:"miss_rate"`
	MissLatency    uint64  `json:"miss_latency"`
	ITLBMissRate   float64 `json:"itlb_miss_rate"`
	DTLBMissRate   float64 `json:"dtlb_miss_rate"`
	TLBMissLatency uint64  `json:"tlb_miss_latency"`

	Registers uint8 `json:"registers"`
}

func DefaultConfig() Config {
	return Config{
		Seed:            1,
		LoadFraction:    0.25,
		StoreFraction:   0.10,
		BranchFraction:  0.15,
		FenceFraction:   0.005,
		SerializingRate: 0.001,
		TakenRate:       0.6,
		MispredictRate:  0.05,
		WorkingSet:      1 << 20,
		AccessSize:      8,
		HitLatency:      4,
		MissRate:        0.03,
		MissLatency:     200,
		ITLBMissRate:    0.001,
		DTLBMissRate:    0.005,
		TLBMissLatency:  30,
		Registers:       16,
	}
}

func (c Config) Validate() error {
	mix := c.LoadFraction + c.StoreFraction + c.BranchFraction + c.FenceFraction
	if mix > 1 {
		return fmt.Errorf("%w: instruction mix adds up to %.3f", ErrInvalidConfig, mix)
	}
	for name, p := range map[string]float64{
		"load_fraction":    c.LoadFraction,
		"store_fraction":   c.StoreFraction,
		"branch_fraction":  c.BranchFraction,
		"fence_fraction":   c.FenceFraction,
		"serializing_rate": c.SerializingRate,
		"taken_rate":       c.TakenRate,
		"mispredict_rate":  c.MispredictRate,
		"miss_rate":        c.MissRate,
		"itlb_miss_rate":   c.ITLBMissRate,
		"dtlb_miss_rate":   c.DTLBMissRate,
	} {
		if p < 0 || p > 1 {
			return fmt.Errorf("%w: %s %.3f not in [0, 1]", ErrInvalidConfig, name, p)
		}
	}
	if c.WorkingSet == 0 || c.AccessSize == 0 {
		return fmt.Errorf("%w: working set and access size must be positive", ErrInvalidConfig)
	}
	if c.Registers == 0 {
		return fmt.Errorf("%w: at least one register is required", ErrInvalidConfig)
	}
	return nil
}

const codeBase = 0x400000

// Generator is not safe for concurrent use; each core owns one.
type Generator struct {
	cfg  Config
	rng  *rand.Rand
	eip  uint64
	base uint64
}

// New seeds the generator from cfg.Seed and the core id, so cores of one
// run see different but reproducible streams.
func New(core uint32, cfg Config) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Generator{
		cfg:  cfg,
		rng:  rand.New(rand.NewSource(cfg.Seed ^ (uint64(core)+1)*0x9e3779b97f4a7c15)),
		eip:  codeBase,
		base: uint64(core+1) << 32,
	}, nil
}

// Next returns the next instruction of the stream.
func (g *Generator) Next() instruction.DynamicInstruction {
	ins := instruction.DynamicInstruction{
		EIP:  g.eip,
		Size: uint32(1 + g.rng.Intn(8)),
	}

	r := g.rng.Float64()
	switch {
	case r < g.cfg.LoadFraction:
		ins.Kind = instruction.Load
		ins.Memory = []instruction.MemoryAccess{g.access(false)}
	case r < g.cfg.LoadFraction+g.cfg.StoreFraction:
		ins.Kind = instruction.Store
		ins.Memory = []instruction.MemoryAccess{g.access(true)}
	case r < g.cfg.LoadFraction+g.cfg.StoreFraction+g.cfg.BranchFraction:
		ins.Kind = instruction.Branch
		ins.Taken = g.chance(g.cfg.TakenRate)
		ins.Mispredicted = g.chance(g.cfg.MispredictRate)
	case r < g.cfg.LoadFraction+g.cfg.StoreFraction+g.cfg.BranchFraction+g.cfg.FenceFraction:
		ins.Kind = instruction.Fence
	default:
		ins.Kind = instruction.Execute
	}

	ins.Serializing = g.chance(g.cfg.SerializingRate)
	if g.chance(g.cfg.ITLBMissRate) {
		ins.ITLBMissLatency = g.cfg.TLBMissLatency
	}
	ins.SrcRegs = []uint8{g.reg(), g.reg()}
	if ins.Kind != instruction.Store && ins.Kind != instruction.Branch && ins.Kind != instruction.Fence {
		ins.DstRegs = []uint8{g.reg()}
	}

	if ins.Kind == instruction.Branch && ins.Taken {
		// jump somewhere else in a 64KiB code region
		g.eip = codeBase + uint64(g.rng.Intn(1<<16))
	} else {
		g.eip += uint64(ins.Size)
	}
	return ins
}

func (g *Generator) access(write bool) instruction.MemoryAccess {
	a := instruction.MemoryAccess{
		Address: g.base + g.rng.Uint64n(g.cfg.WorkingSet),
		Size:    g.cfg.AccessSize,
		Write:   write,
		Latency: g.cfg.HitLatency,
	}
	if g.chance(g.cfg.MissRate) {
		a.CacheMiss = true
		a.Latency = g.cfg.MissLatency
	}
	if g.chance(g.cfg.DTLBMissRate) {
		a.DTLBMissLatency = g.cfg.TLBMissLatency
	}
	return a
}

func (g *Generator) chance(p float64) bool {
	return p > 0 && g.rng.Float64() < p
}

func (g *Generator) reg() uint8 {
	return uint8(g.rng.Intn(int(g.cfg.Registers)))
}
