package instruction

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemoryAccessLines(t *testing.T) {
	tests := []struct {
		name string
		acc  MemoryAccess
		want []uint64
	}{
		{"aligned word", MemoryAccess{Address: 0x1000, Size: 8}, []uint64{0x1000}},
		{"inside line", MemoryAccess{Address: 0x1038, Size: 8}, []uint64{0x1000}},
		{"crosses boundary", MemoryAccess{Address: 0x103c, Size: 8}, []uint64{0x1000, 0x1040}},
		{"zero size", MemoryAccess{Address: 0x1041, Size: 0}, []uint64{0x1040}},
		{"wide vector", MemoryAccess{Address: 0x1020, Size: 128}, []uint64{0x1000, 0x1040, 0x1080}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.acc.AppendLines(nil, 64))
		})
	}
}

func TestAppendLinesReusesBuffer(t *testing.T) {
	buf := make([]uint64, 0, 4)
	buf = MemoryAccess{Address: 0x103c, Size: 8}.AppendLines(buf[:0], 64)
	assert.Equal(t, []uint64{0x1000, 0x1040}, buf)

	allocs := testing.AllocsPerRun(100, func() {
		buf = MemoryAccess{Address: 0x2010, Size: 4}.AppendLines(buf[:0], 64)
	})
	assert.Zero(t, allocs)
	assert.Equal(t, []uint64{0x2000}, buf)
}

func TestLatencyHelpers(t *testing.T) {
	ins := DynamicInstruction{
		Kind: Load,
		Memory: []MemoryAccess{
			{Latency: 4, DTLBMissLatency: 30},
			{Latency: 200, CacheMiss: true},
			{Latency: 90, CacheMiss: true, DTLBMissLatency: 10},
		},
	}

	assert.True(t, ins.IsMemory())
	assert.Equal(t, uint64(30), ins.MaxDTLBMissLatency())
	assert.Equal(t, uint64(200), ins.MaxMissLatency())

	first, ok := ins.FirstAccess()
	assert.True(t, ok)
	assert.Equal(t, uint64(4), first.Latency)

	_, ok = (&DynamicInstruction{}).FirstAccess()
	assert.False(t, ok)
}

func TestKind(t *testing.T) {
	assert.Equal(t, "branch", Branch.String())
	assert.True(t, Fence.Valid())
	assert.False(t, Kind(9).Valid())
	assert.Equal(t, "kind(9)", Kind(9).String())
}
