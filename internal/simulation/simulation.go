// Package simulation runs one performance model per core in parallel over
// synthetic workloads and wires up trace output and statistics.
package simulation

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/eigerco/uopsim/internal/config"
	"github.com/eigerco/uopsim/internal/cpi"
	"github.com/eigerco/uopsim/internal/interval"
	"github.com/eigerco/uopsim/internal/perfmodel"
	"github.com/eigerco/uopsim/internal/sampler"
	"github.com/eigerco/uopsim/internal/simtime"
	"github.com/eigerco/uopsim/internal/store"
	"github.com/eigerco/uopsim/internal/tracefile"
	"github.com/eigerco/uopsim/internal/workload"
	"github.com/eigerco/uopsim/pkg/db/pebble"
	"github.com/eigerco/uopsim/pkg/log"
	"github.com/eigerco/uopsim/pkg/serialization/codec"
)

// StoreFile is the pebble directory inside the trace output directory.
const StoreFile = "traces.db"

// Result is the final state of one core.
type Result struct {
	Core          uint32
	Counters      cpi.Counters
	ElapsedTime   simtime.Time
	NonIdleCycles uint64
	Squashed      uint64
	Trace         sampler.Stats
	TraceErr      error
}

type Simulation struct {
	cfg       config.Config
	collector *cpi.Collector
	snapshots []*cpi.Snapshot
	// clock is the latest simulated time any core reached at a sync point.
	clock atomic.Uint64
}

func New(cfg config.Config) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Simulation{
		cfg:       cfg,
		collector: cpi.NewCollector(),
		snapshots: make([]*cpi.Snapshot, cfg.Cores),
	}
	for i := range s.snapshots {
		s.snapshots[i] = &cpi.Snapshot{}
		s.collector.Track(uint32(i), s.snapshots[i])
	}
	return s, nil
}

// Collector exposes the live CPI counters of every core.
func (s *Simulation) Collector() *cpi.Collector {
	return s.collector
}

type core struct {
	id     uint32
	model  *perfmodel.Model
	gen    *workload.Generator
	writer *sampler.AsyncWriter
}

// Run simulates every core to completion or until ctx is cancelled. Trace
// destinations are opened before any core starts, so a bad output
// directory fails the run up front.
func (s *Simulation) Run(ctx context.Context) ([]Result, error) {
	var (
		kv      *pebble.KVStore
		windows *store.TraceWindows
	)
	if s.cfg.TracingEnabled() {
		if err := os.MkdirAll(s.cfg.Trace.OutputDirectory, 0o755); err != nil {
			return nil, fmt.Errorf("create trace directory: %w", err)
		}
		if s.cfg.Trace.Format == config.FormatPebble {
			var err error
			kv, err = pebble.NewKVStore(pebble.WithPath(filepath.Join(s.cfg.Trace.OutputDirectory, StoreFile)))
			if err != nil {
				return nil, fmt.Errorf("open trace store: %w", err)
			}
			defer kv.Close()
			windows = store.NewTraceWindows(kv)
		}
	}

	cores := make([]*core, s.cfg.Cores)
	defer func() {
		// only reached with open writers when setup failed
		for _, c := range cores {
			if c != nil && c.writer != nil {
				_ = c.writer.Close()
			}
		}
	}()
	for i := range cores {
		c, err := s.newCore(uint32(i), windows)
		if err != nil {
			return nil, err
		}
		cores[i] = c
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, c := range cores {
		g.Go(func() error {
			return s.runCore(gctx, c)
		})
	}
	runErr := g.Wait()

	results := make([]Result, len(cores))
	for i, c := range cores {
		results[i] = s.finish(c)
		cores[i].writer = nil
	}

	if kv != nil {
		counters := store.NewCoreCounters(kv)
		for _, r := range results {
			if err := counters.PutCounters(r.Core, r.Counters); err != nil {
				return results, fmt.Errorf("store counters of core %d: %w", r.Core, err)
			}
		}
	}
	return results, runErr
}

// newCore builds one core. On error every trace destination it opened is
// closed again.
func (s *Simulation) newCore(id uint32, windows *store.TraceWindows) (_ *core, err error) {
	timer, err := s.newTimer()
	if err != nil {
		return nil, err
	}
	gen, err := workload.New(id, s.cfg.Workload)
	if err != nil {
		return nil, err
	}

	c := &core{id: id, gen: gen}
	defer func() {
		if err != nil && c.writer != nil {
			_ = c.writer.Close()
		}
	}()
	opts := []perfmodel.Option{
		perfmodel.WithFrequency(simtime.Frequency(s.cfg.FrequencyMHz)),
		perfmodel.WithCacheLineSize(s.cfg.CacheLineSize),
		perfmodel.WithSnapshot(s.snapshots[id]),
	}

	if s.cfg.TracingEnabled() {
		var next sampler.WindowWriter
		switch s.cfg.Trace.Format {
		case config.FormatPebble:
			next = windows.ForCore(id)
		default:
			w, err := tracefile.Create(tracefile.PathFor(s.cfg.Trace.OutputDirectory, id), id, codec.ByName(s.cfg.Trace.Format))
			if err != nil {
				return nil, err
			}
			next = w
		}
		c.writer = sampler.NewAsyncWriter(next, s.cfg.Trace.QueueDepth, log.Trace)
		smp, err := sampler.New(id, s.cfg.Trace.Config, c.writer)
		if err != nil {
			return nil, err
		}
		opts = append(opts, perfmodel.WithSampler(smp))
	}

	c.model, err = perfmodel.New(id, s.cfg.IssueMemops, timer, opts...)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Simulation) newTimer() (perfmodel.Timer, error) {
	switch s.cfg.Timer {
	case config.TimerAnalytic:
		return interval.NewAnalytic(s.cfg.Analytic)
	default:
		return interval.NewROB(s.cfg.ROB)
	}
}

// runCore feeds the core its instruction stream. Cancellation is only
// checked between instructions.
func (s *Simulation) runCore(ctx context.Context, c *core) error {
	log.Core.Info().Uint32("core", c.id).Uint64("instructions", s.cfg.Instructions).Msg("core started")
	for n := uint64(1); n <= s.cfg.Instructions; n++ {
		if err := ctx.Err(); err != nil {
			log.Core.Warn().Uint32("core", c.id).Uint64("instruction", n).Msg("core stopped")
			return err
		}
		ins := c.gen.Next()
		c.model.HandleInstruction(&ins)

		if s.cfg.SyncInterval != 0 && n%s.cfg.SyncInterval == 0 {
			c.model.NotifyElapsedTimeUpdate(s.sync(c.model.ElapsedTime()))
		}
	}
	log.Core.Info().Uint32("core", c.id).
		Float64("cpi", c.model.Counters().CPI()).
		Stringer("elapsed", c.model.ElapsedTime()).
		Msg("core finished")
	return nil
}

// sync publishes now and returns the latest time any core has reached.
func (s *Simulation) sync(now simtime.Time) simtime.Time {
	for {
		cur := s.clock.Load()
		if uint64(now) <= cur {
			return simtime.Time(cur)
		}
		if s.clock.CompareAndSwap(cur, uint64(now)) {
			return now
		}
	}
}

func (s *Simulation) finish(c *core) Result {
	r := Result{
		Core:          c.id,
		Counters:      c.model.Counters(),
		ElapsedTime:   c.model.ElapsedTime(),
		NonIdleCycles: c.model.NonIdleCycles(),
		Squashed:      c.model.Squashed(),
	}
	if smp := c.model.Sampler(); smp != nil {
		r.Trace = smp.Stats()
		r.TraceErr = smp.Err()
	}
	if c.writer != nil {
		if err := c.writer.Close(); err != nil {
			log.Trace.Error().Err(err).Uint32("core", c.id).Msg("closing trace output")
			if r.TraceErr == nil {
				r.TraceErr = err
			}
		}
	}
	s.snapshots[c.id].Publish(r.Counters)
	return r
}
