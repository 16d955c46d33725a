package safemath

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdd64(t *testing.T) {
	tests := []struct {
		name   string
		a, b   uint64
		want   uint64
		wantOk bool
	}{
		{"zero plus zero", 0, 0, 0, true},
		{"small", 3, 4, 7, true},
		{"at boundary", math.MaxUint64 - 1, 1, math.MaxUint64, true},
		{"overflow", math.MaxUint64, 1, 0, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Add64(tc.a, tc.b)
			assert.Equal(t, tc.wantOk, ok)
			if tc.wantOk {
				assert.Equal(t, tc.want, got)
			}
		})
	}
}

func TestSub64(t *testing.T) {
	got, ok := Sub64(10, 3)
	assert.True(t, ok)
	assert.Equal(t, uint64(7), got)

	_, ok = Sub64(3, 10)
	assert.False(t, ok)
}

func TestMul64(t *testing.T) {
	got, ok := Mul64(1<<32, 1<<31)
	assert.True(t, ok)
	assert.Equal(t, uint64(1<<63), got)

	_, ok = Mul64(1<<32, 1<<32)
	assert.False(t, ok)
}

func TestMustPanicsOnOverflow(t *testing.T) {
	assert.Equal(t, uint64(5), MustAdd64(2, 3))
	assert.Equal(t, uint64(6), MustMul64(2, 3))

	defer func() {
		r := recover()
		require.NotNil(t, r)
		err, ok := r.(error)
		require.True(t, ok)
		assert.ErrorIs(t, err, ErrOverflow)
	}()
	MustAdd64(math.MaxUint64, 1)
}
