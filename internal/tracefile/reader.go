package tracefile

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/eigerco/uopsim/internal/sampler"
	"github.com/eigerco/uopsim/pkg/serialization"
	"github.com/eigerco/uopsim/pkg/serialization/codec"
	"github.com/eigerco/uopsim/pkg/serialization/codec/compact"
)

// Entry is one window read back together with its stored digest.
type Entry struct {
	Window sampler.Window
	Digest Digest
}

type Reader struct {
	in     *bufio.Reader
	file   *os.File
	ser    *serialization.Serializer
	header Header
}

func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}
	r, err := NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	r.file = f
	return r, nil
}

// NewReader reads and checks the header of in.
func NewReader(in io.Reader) (*Reader, error) {
	r := &Reader{in: bufio.NewReader(in)}
	if err := compact.NewDecoder(r.in).Decode(&r.header); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("read trace header: %w", err)
	}
	if r.header.Magic != magic {
		return nil, ErrBadMagic
	}
	if r.header.Version != Version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, r.header.Version)
	}
	c := codec.ByName(r.header.Codec)
	if c == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, r.header.Codec)
	}
	r.ser = serialization.NewSerializer(c)
	return r, nil
}

func (r *Reader) Header() Header {
	return r.header
}

// Next returns the next window. It returns io.EOF after the last one and
// ErrDigestMismatch when a window does not match its stored digest.
func (r *Reader) Next() (Entry, error) {
	payload, err := serialization.ReadRawFrame(r.in)
	if err != nil {
		return Entry{}, err
	}
	var e Entry
	if _, err := io.ReadFull(r.in, e.Digest[:]); err != nil {
		return Entry{}, fmt.Errorf("read window digest: %w", io.ErrUnexpectedEOF)
	}
	if digestOf(payload) != e.Digest {
		return Entry{}, ErrDigestMismatch
	}
	if err := r.ser.Decode(payload, &e.Window); err != nil {
		return Entry{}, fmt.Errorf("decode window: %w", err)
	}
	return e, nil
}

// ReadAll returns every remaining window.
func (r *Reader) ReadAll() ([]Entry, error) {
	var entries []Entry
	for {
		e, err := r.Next()
		if err == io.EOF {
			return entries, nil
		}
		if err != nil {
			return entries, err
		}
		entries = append(entries, e)
	}
}

func (r *Reader) Close() error {
	if r.file == nil {
		return nil
	}
	return r.file.Close()
}
