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

// Writer appends windows to a trace stream. It implements
// sampler.WindowWriter and is not safe for concurrent use.
type Writer struct {
	out     *bufio.Writer
	file    *os.File
	ser     *serialization.Serializer
	header  Header
	windows uint32
	closed  bool
}

// Create opens path for writing, truncating it, and writes the header.
// Failing to open the destination is reported here, before any window.
func Create(path string, core uint32, c codec.Codec) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create trace file: %w", err)
	}
	w, err := NewWriter(f, core, c)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	w.file = f
	return w, nil
}

// NewWriter writes the header to out and returns a writer for its windows.
func NewWriter(out io.Writer, core uint32, c codec.Codec) (*Writer, error) {
	w := &Writer{
		out: bufio.NewWriter(out),
		ser: serialization.NewSerializer(c),
		header: Header{
			Magic:   magic,
			Version: Version,
			Codec:   c.Name(),
			Core:    core,
		},
	}
	if err := compact.NewEncoder(w.out).Encode(w.header); err != nil {
		return nil, fmt.Errorf("write trace header: %w", err)
	}
	return w, nil
}

func (w *Writer) WriteWindow(win sampler.Window) error {
	if w.closed {
		return ErrClosed
	}
	payload, err := w.ser.Encode(win)
	if err != nil {
		return fmt.Errorf("encode window %d: %w", win.Index, err)
	}
	if err := serialization.WriteRawFrame(w.out, payload); err != nil {
		return fmt.Errorf("write window %d: %w", win.Index, err)
	}
	digest := digestOf(payload)
	if _, err := w.out.Write(digest[:]); err != nil {
		return err
	}
	w.windows++
	// windows are rare, flush so a crash loses at most the current one
	return w.out.Flush()
}

// Windows returns how many windows were written.
func (w *Writer) Windows() uint32 {
	return w.windows
}

func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	err := w.out.Flush()
	if w.file != nil {
		if cerr := w.file.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
