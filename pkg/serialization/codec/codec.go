package codec

// Codec encodes and decodes values for trace output and storage.
type Codec interface {
	Name() string
	Marshal(v interface{}) ([]byte, error)
	Unmarshal(data []byte, v interface{}) error
}

// ByName returns the codec registered under name, or nil.
func ByName(name string) Codec {
	switch name {
	case CompactName:
		return &CompactCodec{}
	case JSONName:
		return &JSONCodec{}
	}
	return nil
}
