package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	EIP     uint64 `json:"eip"`
	Op      string `json:"op"`
	Address uint64 `json:"address,omitempty"`
}

func TestCodecsRoundTrip(t *testing.T) {
	for _, name := range []string{CompactName, JSONName} {
		t.Run(name, func(t *testing.T) {
			c := ByName(name)
			require.NotNil(t, c)
			assert.Equal(t, name, c.Name())

			in := sample{EIP: 0x401000, Op: "LOAD", Address: 0x7fff0040}
			data, err := c.Marshal(in)
			require.NoError(t, err)

			var out sample
			require.NoError(t, c.Unmarshal(data, &out))
			assert.Equal(t, in, out)
		})
	}
}

func TestCompactEncodeSlice(t *testing.T) {
	c := &CompactCodec{}

	serialized, err := c.Marshal([]byte{1, 2, 3, 4})
	require.NoError(t, err)
	assert.Equal(t, []byte{4, 1, 2, 3, 4}, serialized)

	serialized, err = c.Marshal([4]byte{1, 2, 3, 4})
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, serialized)
}

func TestByNameUnknown(t *testing.T) {
	assert.Nil(t, ByName("pebble"))
}
