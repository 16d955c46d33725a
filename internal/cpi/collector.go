package cpi

import (
	"sort"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Snapshot is a published copy of one core's counters. The owning core
// goroutine publishes between groups; readers never touch live counters.
type Snapshot struct {
	mu sync.RWMutex
	c  Counters
}

func (s *Snapshot) Publish(c Counters) {
	s.mu.Lock()
	s.c = c
	s.mu.Unlock()
}

func (s *Snapshot) Load() Counters {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.c
}

// Collector exposes per-core CPI stacks to a prometheus registry.
type Collector struct {
	mu    sync.RWMutex
	cores map[uint32]*Snapshot

	stallSecondsDesc *prometheus.Desc
	instructionsDesc *prometheus.Desc
	costCyclesDesc   *prometheus.Desc
	zeroCostDesc     *prometheus.Desc
}

func NewCollector() *Collector {
	return &Collector{
		cores: make(map[uint32]*Snapshot),
		stallSecondsDesc: prometheus.NewDesc(
			"uopsim_cpi_stall_seconds_total",
			"Simulated time charged to each stall cause",
			[]string{"core", "cause"}, nil,
		),
		instructionsDesc: prometheus.NewDesc(
			"uopsim_instructions_total",
			"Instructions timed by the core model",
			[]string{"core"}, nil,
		),
		costCyclesDesc: prometheus.NewDesc(
			"uopsim_instruction_cost_cycles_total",
			"Cycles charged to instructions",
			[]string{"core"}, nil,
		),
		zeroCostDesc: prometheus.NewDesc(
			"uopsim_zero_cost_instructions_total",
			"Instructions charged zero cycles",
			[]string{"core"}, nil,
		),
	}
}

// Track registers the snapshot published by a core.
func (c *Collector) Track(core uint32, s *Snapshot) {
	c.mu.Lock()
	c.cores[core] = s
	c.mu.Unlock()
}

// Describe implements the prometheus.Collector interface
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.stallSecondsDesc
	ch <- c.instructionsDesc
	ch <- c.costCyclesDesc
	ch <- c.zeroCostDesc
}

// Collect implements the prometheus.Collector interface
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.mu.RLock()
	ids := make([]uint32, 0, len(c.cores))
	for id := range c.cores {
		ids = append(ids, id)
	}
	snaps := make(map[uint32]Counters, len(ids))
	for _, id := range ids {
		snaps[id] = c.cores[id].Load()
	}
	c.mu.RUnlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		counters := snaps[id]
		core := strconv.FormatUint(uint64(id), 10)

		for _, cause := range Causes() {
			ch <- prometheus.MustNewConstMetric(
				c.stallSecondsDesc,
				prometheus.CounterValue,
				counters.Get(cause).Seconds(),
				core, cause.String(),
			)
		}
		ch <- prometheus.MustNewConstMetric(c.instructionsDesc, prometheus.CounterValue, float64(counters.Instructions), core)
		ch <- prometheus.MustNewConstMetric(c.costCyclesDesc, prometheus.CounterValue, float64(counters.Cost), core)
		ch <- prometheus.MustNewConstMetric(c.zeroCostDesc, prometheus.CounterValue, float64(counters.ZeroCost), core)
	}
}
