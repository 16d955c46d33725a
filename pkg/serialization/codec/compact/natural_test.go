package compact

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeUint64(t *testing.T) {
	testCases := []struct {
		input    uint64
		expected []byte
	}{
		// l = 0
		{0, []byte{0}},
		{math.MaxInt8, []byte{127}},
		// l = 1
		{1 << 7, []byte{128, 128}},
		{math.MaxUint8, []byte{128, 255}},
		{(1 << 14) - 1, []byte{191, 255}},
		// l = 2
		{1 << 14, []byte{192, 0, 64}},
		{(1 << 21) - 1, []byte{223, 255, 255}},
		// l = 3
		{1 << 21, []byte{224, 0, 0, 32}},
		// l = 7
		{1 << 49, []byte{254, 0, 0, 0, 0, 0, 0, 2}},
		{(1 << 56) - 1, []byte{254, 255, 255, 255, 255, 255, 255, 255}},
		// l = 8
		{1 << 56, []byte{255, 0, 0, 0, 0, 0, 0, 0, 1}},
		{math.MaxUint64, []byte{255, 255, 255, 255, 255, 255, 255, 255, 255}},
	}

	for _, tc := range testCases {
		t.Run(fmt.Sprintf("uint64(%d)", tc.input), func(t *testing.T) {
			serialized := SerializeUint64(tc.input)
			assert.Equal(t, tc.expected, serialized)

			v, n, err := DeserializeUint64(serialized)
			require.NoError(t, err)
			assert.Equal(t, tc.input, v)
			assert.Equal(t, len(serialized), n)

			v, err = ReadUint64(bytes.NewReader(serialized))
			require.NoError(t, err)
			assert.Equal(t, tc.input, v)
		})
	}
}

func TestDeserializeUint64Truncated(t *testing.T) {
	_, _, err := DeserializeUint64(nil)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	_, _, err = DeserializeUint64([]byte{192, 0})
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	_, err = ReadUint64(bytes.NewReader([]byte{224, 1}))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	_, err = ReadUint64(bytes.NewReader(nil))
	assert.ErrorIs(t, err, io.EOF)
}
