// Package sampler implements the windowed trace sampler: after a warm-up of
// FireDuration instructions it records InstructionsPerWindow instructions,
// hands them to a WindowWriter as one window and goes idle again, until
// NumberOfWindows windows have been written.
package sampler

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/eigerco/uopsim/internal/instruction"
	"github.com/eigerco/uopsim/pkg/log"
)

type State uint8

const (
	Idle State = iota
	Collecting
	Done
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Collecting:
		return "collecting"
	case Done:
		return "done"
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

// Config is expressed in instruction counts. FireDuration zero collects from
// the first instruction and back to back; NumberOfWindows zero never stops.
type Config struct {
	FireDuration          uint64 `json:"fire_duration"`
	InstructionsPerWindow uint64 `json:"instructions_per_window"`
	NumberOfWindows       uint32 `json:"number_of_windows"`
}

func (c Config) Validate() error {
	if c.InstructionsPerWindow == 0 {
		return fmt.Errorf("%w: instructions per window must be positive", ErrInvalidConfig)
	}
	return nil
}

// Stats are the sampler counters.
type Stats struct {
	Total     uint64
	Passed    uint64
	Collected uint64
	FiresDone uint32
}

// WindowWriter receives completed windows. The sampler gives up ownership of
// the window's records.
type WindowWriter interface {
	WriteWindow(w Window) error
}

type Option func(*Sampler)

func WithLogger(l zerolog.Logger) Option {
	return func(s *Sampler) {
		s.logger = l
	}
}

// Sampler is owned by a single core and is not safe for concurrent use.
type Sampler struct {
	core   uint32
	cfg    Config
	writer WindowWriter
	logger zerolog.Logger

	state State
	stats Stats
	batch []Record
	first uint64
	err   error
}

func New(core uint32, cfg Config, w WindowWriter, opts ...Option) (*Sampler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if w == nil {
		return nil, fmt.Errorf("%w: nil window writer", ErrInvalidConfig)
	}
	s := &Sampler{
		core:   core,
		cfg:    cfg,
		writer: w,
		logger: log.Trace,
		state:  Idle,
	}
	for _, opt := range opts {
		opt(s)
	}
	if cfg.FireDuration == 0 {
		s.startWindow()
	}
	return s, nil
}

// Observe advances the state machine by one instruction.
func (s *Sampler) Observe(ins *instruction.DynamicInstruction) {
	s.stats.Total++
	switch s.state {
	case Idle:
		s.stats.Passed++
		if s.stats.Passed >= s.cfg.FireDuration {
			s.startWindow()
		}
	case Collecting:
		if len(s.batch) == 0 {
			s.first = s.stats.Total
		}
		s.batch = append(s.batch, NewRecord(ins))
		s.stats.Collected++
		if s.stats.Collected >= s.cfg.InstructionsPerWindow {
			s.flush()
		}
	case Done:
	}
}

func (s *Sampler) startWindow() {
	s.state = Collecting
	s.stats.Passed = 0
	s.stats.Collected = 0
	if s.batch == nil {
		s.batch = make([]Record, 0, s.cfg.InstructionsPerWindow)
	}
}

func (s *Sampler) flush() {
	w := Window{
		Core:             s.core,
		Index:            s.stats.FiresDone,
		FirstInstruction: s.first,
		Records:          s.batch,
	}
	s.batch = nil
	s.stats.FiresDone++

	if err := s.writer.WriteWindow(w); err != nil {
		s.err = err
		s.state = Done
		s.logger.Error().Err(err).Uint32("core", s.core).Uint32("window", w.Index).
			Msg("trace window write failed, tracing disabled")
		return
	}
	s.logger.Debug().Uint32("core", s.core).Uint32("window", w.Index).
		Int("records", len(w.Records)).Msg("trace window flushed")

	switch {
	case s.cfg.NumberOfWindows != 0 && s.stats.FiresDone >= s.cfg.NumberOfWindows:
		s.state = Done
	case s.cfg.FireDuration == 0:
		s.startWindow()
	default:
		s.state = Idle
		s.stats.Passed = 0
		s.stats.Collected = 0
	}
}

func (s *Sampler) State() State {
	return s.state
}

func (s *Sampler) Stats() Stats {
	return s.stats
}

// Err returns the write error that disabled tracing, if any.
func (s *Sampler) Err() error {
	return s.err
}

// Pending returns the records of the window being collected.
func (s *Sampler) Pending() []Record {
	return s.batch
}
