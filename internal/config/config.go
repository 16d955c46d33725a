// Package config loads the JSON run configuration of a simulation.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/eigerco/uopsim/internal/interval"
	"github.com/eigerco/uopsim/internal/perfmodel"
	"github.com/eigerco/uopsim/internal/sampler"
	"github.com/eigerco/uopsim/internal/workload"
	"github.com/eigerco/uopsim/pkg/serialization/codec"
)

var ErrInvalidConfig = errors.New("invalid configuration")

const (
	TimerROB      = "rob"
	TimerAnalytic = "analytic"

	FormatBinary = codec.CompactName
	FormatJSON   = codec.JSONName
	FormatPebble = "pebble"
)

type Config struct {
	Cores        uint32 `json:"cores"`
	Instructions uint64 `json:"instructions"`
	IssueMemops  bool   `json:"issue_memops"`
	// SyncInterval is how many instructions cores run between time
	// synchronisations, zero disables them.
	SyncInterval  uint64 `json:"sync_interval"`
	FrequencyMHz  uint64 `json:"frequency_mhz"`
	CacheLineSize uint64 `json:"cache_line_size"`

	Timer    string                  `json:"timer"`
	ROB      interval.ROBConfig      `json:"rob"`
	Analytic interval.AnalyticConfig `json:"analytic"`

	Trace    Trace           `json:"trace"`
	Workload workload.Config `json:"workload"`
	Log      Log             `json:"log"`
}

// Trace configures sampled trace output. An empty OutputDirectory disables
// tracing.
type Trace struct {
	OutputDirectory string `json:"output_directory"`
	Format          string `json:"format"`
	QueueDepth      int    `json:"queue_depth"`
	sampler.Config
}

type Log struct {
	Level string `json:"level"`
	Type  string `json:"type"`
}

func Default() Config {
	return Config{
		Cores:         1,
		Instructions:  100_000,
		IssueMemops:   true,
		SyncInterval:  10_000,
		FrequencyMHz:  uint64(perfmodel.DefaultFrequency),
		CacheLineSize: perfmodel.DefaultCacheLineSize,
		Timer:         TimerROB,
		ROB:           interval.DefaultROBConfig(),
		Analytic:      interval.DefaultAnalyticConfig(),
		Trace: Trace{
			Format:     FormatBinary,
			QueueDepth: 4,
			Config: sampler.Config{
				FireDuration:          100_000,
				InstructionsPerWindow: 1_000,
				NumberOfWindows:       10,
			},
		},
		Workload: workload.DefaultConfig(),
		Log: Log{
			Level: "info",
			Type:  "console",
		},
	}
}

// Load reads a JSON file on top of the defaults and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("error reading file: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("error unmarshaling JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// TracingEnabled reports whether trace output is configured.
func (c Config) TracingEnabled() bool {
	return c.Trace.OutputDirectory != ""
}

func (c Config) Validate() error {
	if c.Cores == 0 {
		return fmt.Errorf("%w: at least one core is required", ErrInvalidConfig)
	}
	if c.FrequencyMHz == 0 {
		return fmt.Errorf("%w: frequency must be positive", ErrInvalidConfig)
	}
	if err := perfmodel.ValidateCacheLineSize(c.CacheLineSize); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	switch c.Timer {
	case TimerROB:
		if err := c.ROB.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	case TimerAnalytic:
		if err := c.Analytic.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	default:
		return fmt.Errorf("%w: unknown timer %q", ErrInvalidConfig, c.Timer)
	}
	if err := c.Workload.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.TracingEnabled() {
		switch c.Trace.Format {
		case FormatBinary, FormatJSON, FormatPebble:
		default:
			return fmt.Errorf("%w: unknown trace format %q", ErrInvalidConfig, c.Trace.Format)
		}
		if err := c.Trace.Config.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	}
	return nil
}
