package codec

import (
	"github.com/eigerco/uopsim/pkg/serialization/codec/compact"
)

const CompactName = "binary"

// CompactCodec implements the Codec interface with the compact binary encoding.
type CompactCodec struct{}

func (c *CompactCodec) Name() string {
	return CompactName
}

func (c *CompactCodec) Marshal(v interface{}) ([]byte, error) {
	return compact.Marshal(v)
}

func (c *CompactCodec) Unmarshal(data []byte, v interface{}) error {
	return compact.Unmarshal(data, v)
}
