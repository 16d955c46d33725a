package lineset

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddDeduplicates(t *testing.T) {
	s := New(2)

	assert.True(t, s.Add(0x1000))
	assert.True(t, s.Add(0x1040))
	assert.False(t, s.Add(0x1000))
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []uint64{0x1000, 0x1040}, s.Lines())
	assert.True(t, s.Contains(0x1040))
	assert.False(t, s.Contains(0x1080))
}

func TestResetKeepsCapacity(t *testing.T) {
	s := New(1)
	for i := uint64(0); i < 8; i++ {
		s.Add(i * 64)
	}
	capBefore := cap(s.lines)

	s.Reset()
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, capBefore, cap(s.lines))

	s.Add(0x40)
	assert.Equal(t, []uint64{0x40}, s.Lines())
}

func TestNoDuplicatesUnderRepeatedAdds(t *testing.T) {
	s := New(2)
	addrs := []uint64{0, 64, 0, 64, 128, 0, 128}
	for _, a := range addrs {
		s.Add(a)
	}

	seen := map[uint64]int{}
	for _, l := range s.Lines() {
		seen[l]++
	}
	for l, n := range seen {
		assert.Equal(t, 1, n, "line 0x%x", l)
	}
	assert.Equal(t, 3, s.Len())
}
