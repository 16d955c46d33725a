package serialization

import (
	"errors"
	"fmt"
	"io"

	"github.com/eigerco/uopsim/pkg/serialization/codec"
	"github.com/eigerco/uopsim/pkg/serialization/codec/compact"
)

// MaxFrameSize bounds a single frame read from a stream.
const MaxFrameSize = 64 << 20

var ErrFrameTooLarge = errors.New("frame exceeds maximum size")

// Serializer provides methods to encode and decode using a specified codec.
type Serializer struct {
	codec codec.Codec
}

// NewSerializer initializes a new Serializer with the given codec.
func NewSerializer(c codec.Codec) *Serializer {
	return &Serializer{codec: c}
}

func (s *Serializer) Codec() codec.Codec {
	return s.codec
}

// Encode serializes the given value using the codec.
func (s *Serializer) Encode(v interface{}) ([]byte, error) {
	return s.codec.Marshal(v)
}

// Decode deserializes the given data into the specified value using the codec.
func (s *Serializer) Decode(data []byte, v interface{}) error {
	return s.codec.Unmarshal(data, v)
}

// WriteRawFrame writes payload prefixed with its length as a general natural.
func WriteRawFrame(w io.Writer, payload []byte) error {
	if len(payload) > MaxFrameSize {
		return fmt.Errorf("%w: %d", ErrFrameTooLarge, len(payload))
	}
	frame := compact.AppendUint64(make([]byte, 0, len(payload)+9), uint64(len(payload)))
	frame = append(frame, payload...)
	_, err := w.Write(frame)
	return err
}

// ReadRawFrame reads one frame written by WriteRawFrame. It returns io.EOF
// when r is exhausted at a frame boundary.
func ReadRawFrame(r io.Reader) ([]byte, error) {
	n, err := compact.ReadUint64(r)
	if err != nil {
		return nil, err
	}
	if n > MaxFrameSize {
		return nil, fmt.Errorf("%w: %d", ErrFrameTooLarge, n)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return payload, nil
}
