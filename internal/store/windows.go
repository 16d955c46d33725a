package store

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/blake2b"

	"github.com/eigerco/uopsim/internal/sampler"
	"github.com/eigerco/uopsim/pkg/db"
	"github.com/eigerco/uopsim/pkg/db/pebble"
	"github.com/eigerco/uopsim/pkg/serialization/codec/compact"
)

var (
	ErrWindowNotFound = errors.New("trace window not found")
	ErrCorruptWindow  = errors.New("trace window digest mismatch")
)

// TraceWindows stores sampled trace windows of every core in one key-value
// store, keyed by (core, window index).
type TraceWindows struct {
	db.KVStore
}

// NewTraceWindows creates a new trace window store using KVStore
func NewTraceWindows(db db.KVStore) *TraceWindows {
	return &TraceWindows{KVStore: db}
}

// PutWindow stores a window as its blake2b-256 digest followed by the
// compact encoding.
func (s *TraceWindows) PutWindow(w sampler.Window) error {
	b, err := compact.Marshal(w)
	if err != nil {
		return fmt.Errorf("marshal trace window: %w", err)
	}
	digest := blake2b.Sum256(b)
	value := make([]byte, 0, len(digest)+len(b))
	value = append(value, digest[:]...)
	value = append(value, b...)
	return s.Put(makeKey(prefixTraceWindow, w.Core, w.Index), value)
}

// GetWindow fetches one window of a core.
func (s *TraceWindows) GetWindow(core, index uint32) (sampler.Window, error) {
	b, err := s.Get(makeKey(prefixTraceWindow, core, index))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return sampler.Window{}, ErrWindowNotFound
		}
		return sampler.Window{}, err
	}
	return decodeWindow(b)
}

// Windows returns every stored window of core in index order.
func (s *TraceWindows) Windows(core uint32) ([]sampler.Window, error) {
	prefix := makeKey(prefixTraceWindow, core)
	it, err := s.NewIterator(prefix, db.PrefixEnd(prefix))
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var windows []sampler.Window
	for it.Next() {
		b, err := it.Value()
		if err != nil {
			return nil, err
		}
		w, err := decodeWindow(b)
		if err != nil {
			return nil, err
		}
		windows = append(windows, w)
	}
	return windows, nil
}

// DeleteCore removes every window of core in one batch.
func (s *TraceWindows) DeleteCore(core uint32) error {
	prefix := makeKey(prefixTraceWindow, core)
	batch := s.NewBatch()
	if err := batch.DeleteRange(prefix, db.PrefixEnd(prefix)); err != nil {
		_ = batch.Close()
		return err
	}
	if err := batch.Commit(); err != nil {
		return fmt.Errorf(ErrFailedBatchCommit, err)
	}
	return nil
}

// ForCore returns a sampler.WindowWriter storing into s. Windows carry their
// own core id, the argument only guards against mixing cores up.
func (s *TraceWindows) ForCore(core uint32) sampler.WindowWriter {
	return &coreWriter{store: s, core: core}
}

type coreWriter struct {
	store *TraceWindows
	core  uint32
}

func (c *coreWriter) WriteWindow(w sampler.Window) error {
	if w.Core != c.core {
		return fmt.Errorf("window of core %d written through core %d", w.Core, c.core)
	}
	return c.store.PutWindow(w)
}

func decodeWindow(b []byte) (sampler.Window, error) {
	if len(b) < blake2b.Size256 {
		return sampler.Window{}, ErrCorruptWindow
	}
	payload := b[blake2b.Size256:]
	if blake2b.Sum256(payload) != [blake2b.Size256]byte(b[:blake2b.Size256]) {
		return sampler.Window{}, ErrCorruptWindow
	}
	var w sampler.Window
	if err := compact.Unmarshal(payload, &w); err != nil {
		return sampler.Window{}, fmt.Errorf("unmarshal trace window: %w", err)
	}
	return w, nil
}
