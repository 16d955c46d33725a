package compact

import (
	"encoding/binary"
	"io"
	"math"
	"math/bits"
)

// SerializeUint64 encodes x with the general natural number formula: the
// number of leading one bits in the first byte gives how many little-endian
// bytes follow, so values below 128 take a single byte and any uint64 fits
// in at most nine.
func SerializeUint64(x uint64) []byte {
	return AppendUint64(make([]byte, 0, 9), x)
}

// AppendUint64 appends the encoding of x to b.
func AppendUint64(b []byte, x uint64) []byte {
	var l uint8
	for l = 0; l < 8; l++ {
		if x < 1<<(7*(l+1)) {
			break
		}
	}
	if l == 8 {
		b = append(b, math.MaxUint8)
		return binary.LittleEndian.AppendUint64(b, x)
	}

	prefix := uint8(uint64(256) - uint64(1)<<(8-l) + x>>(8*l))
	b = append(b, prefix)
	for i := uint8(0); i < l; i++ {
		b = append(b, uint8(x>>(8*i)))
	}
	return b
}

// DeserializeUint64 decodes one general natural from the front of data and
// returns the number of bytes consumed.
func DeserializeUint64(data []byte) (uint64, int, error) {
	if len(data) == 0 {
		return 0, 0, io.ErrUnexpectedEOF
	}
	l := bits.LeadingZeros8(^data[0])
	if len(data) < 1+l {
		return 0, 0, io.ErrUnexpectedEOF
	}
	return decodeNatural(data[0], data[1:1+l]), 1 + l, nil
}

// ReadUint64 decodes one general natural from r.
func ReadUint64(r io.Reader) (uint64, error) {
	var buf [9]byte
	if _, err := io.ReadFull(r, buf[:1]); err != nil {
		return 0, err
	}
	l := bits.LeadingZeros8(^buf[0])
	if l > 0 {
		if _, err := io.ReadFull(r, buf[1:1+l]); err != nil {
			return 0, unexpected(err)
		}
	}
	return decodeNatural(buf[0], buf[1:1+l]), nil
}

func decodeNatural(prefix byte, rest []byte) uint64 {
	l := len(rest)
	if l == 8 {
		return binary.LittleEndian.Uint64(rest)
	}
	var u uint64
	for i := 0; i < l; i++ {
		u |= uint64(rest[i]) << (8 * i)
	}
	u |= uint64(prefix&(math.MaxUint8>>(l+1))) << (8 * l)
	return u
}

func unexpected(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
