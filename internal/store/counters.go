package store

import (
	"errors"
	"fmt"

	"github.com/eigerco/uopsim/internal/cpi"
	"github.com/eigerco/uopsim/pkg/db"
	"github.com/eigerco/uopsim/pkg/db/pebble"
	"github.com/eigerco/uopsim/pkg/serialization/codec/compact"
)

var ErrCountersNotFound = errors.New("core counters not found")

// CoreCounters keeps the final CPI counters of each core of a run next to
// its trace windows.
type CoreCounters struct {
	db.KVStore
}

func NewCoreCounters(db db.KVStore) *CoreCounters {
	return &CoreCounters{KVStore: db}
}

func (s *CoreCounters) PutCounters(core uint32, c cpi.Counters) error {
	b, err := compact.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal counters: %w", err)
	}
	return s.Put(makeKey(prefixCoreCounters, core), b)
}

func (s *CoreCounters) GetCounters(core uint32) (cpi.Counters, error) {
	b, err := s.Get(makeKey(prefixCoreCounters, core))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return cpi.Counters{}, ErrCountersNotFound
		}
		return cpi.Counters{}, err
	}
	var c cpi.Counters
	if err := compact.Unmarshal(b, &c); err != nil {
		return cpi.Counters{}, fmt.Errorf("unmarshal counters: %w", err)
	}
	return c, nil
}
