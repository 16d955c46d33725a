package serialization_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/uopsim/pkg/serialization"
	"github.com/eigerco/uopsim/pkg/serialization/codec"
)

type PayloadExample struct {
	ID   int    `json:"id"`
	Data []byte `json:"data"`
}

func TestJSONSerializer(t *testing.T) {
	serializer := serialization.NewSerializer(&codec.JSONCodec{})

	example := PayloadExample{ID: 1, Data: []byte{1, 2, 3}}

	encoded, err := serializer.Encode(&example)
	require.NoError(t, err)
	require.NotNil(t, encoded)

	var decoded PayloadExample
	err = serializer.Decode(encoded, &decoded)
	require.NoError(t, err)
	assert.Equal(t, example, decoded)
}

func TestCompactSerializer(t *testing.T) {
	serializer := serialization.NewSerializer(&codec.CompactCodec{})

	example := PayloadExample{ID: 2, Data: []byte{1, 2, 3}}

	encoded, err := serializer.Encode(example)
	require.NoError(t, err)
	assert.Equal(t, []byte{2, 3, 1, 2, 3}, encoded)

	var decoded PayloadExample
	err = serializer.Decode(encoded, &decoded)
	require.NoError(t, err)
	assert.Equal(t, example, decoded)
}

func TestFrames(t *testing.T) {
	for _, c := range []codec.Codec{&codec.CompactCodec{}, &codec.JSONCodec{}} {
		t.Run(c.Name(), func(t *testing.T) {
			serializer := serialization.NewSerializer(c)
			buf := &bytes.Buffer{}

			for i := 0; i < 3; i++ {
				payload, err := serializer.Encode(PayloadExample{ID: i, Data: []byte{byte(i)}})
				require.NoError(t, err)
				require.NoError(t, serialization.WriteRawFrame(buf, payload))
			}

			for i := 0; i < 3; i++ {
				payload, err := serialization.ReadRawFrame(buf)
				require.NoError(t, err)
				var p PayloadExample
				require.NoError(t, serializer.Decode(payload, &p))
				assert.Equal(t, i, p.ID)
			}

			_, err := serialization.ReadRawFrame(buf)
			assert.ErrorIs(t, err, io.EOF)
		})
	}
}

func TestWriteRawFrameLimit(t *testing.T) {
	buf := &bytes.Buffer{}
	err := serialization.WriteRawFrame(buf, make([]byte, serialization.MaxFrameSize+1))
	assert.ErrorIs(t, err, serialization.ErrFrameTooLarge)
	assert.Zero(t, buf.Len())
}

func TestReadRawFrameTruncated(t *testing.T) {
	_, err := serialization.ReadRawFrame(bytes.NewReader([]byte{5, 1, 2}))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	_, err = serialization.ReadRawFrame(bytes.NewReader([]byte{255, 255, 255, 255, 255, 255, 255, 255, 255}))
	assert.ErrorIs(t, err, serialization.ErrFrameTooLarge)
}
