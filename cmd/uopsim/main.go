package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/eigerco/uopsim/internal/config"
	"github.com/eigerco/uopsim/internal/simulation"
	"github.com/eigerco/uopsim/internal/tracefile"
	"github.com/eigerco/uopsim/pkg/log"
)

// main runs a multi-core simulation over synthetic workloads and prints the
// CPI stack of every core, or dumps a trace file as text.
//
//	go run ./cmd/uopsim -cores 4 -instructions 1000000 -trace-dir out
//	go run ./cmd/uopsim -dump out/core-0.trace
func main() {
	configPath := flag.String("config", "", "JSON configuration file")
	cores := flag.Uint("cores", 0, "number of cores, overrides the configuration")
	instructions := flag.Uint64("instructions", 0, "instructions per core, overrides the configuration")
	timer := flag.String("timer", "", "timing model: rob or analytic")
	traceDir := flag.String("trace-dir", "", "trace output directory, enables tracing")
	traceFormat := flag.String("trace-format", "", "trace format: binary, json or pebble")
	logLevel := flag.String("log-level", "", "log level")
	logType := flag.String("log-type", "", "log output: console or json")
	dump := flag.String("dump", "", "print the trace file as text and exit")
	flag.Parse()

	if *dump != "" {
		if err := dumpTrace(os.Stdout, *dump); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	if *cores != 0 {
		cfg.Cores = uint32(*cores)
	}
	if *instructions != 0 {
		cfg.Instructions = *instructions
	}
	if *timer != "" {
		cfg.Timer = *timer
	}
	if *traceDir != "" {
		cfg.Trace.OutputDirectory = *traceDir
	}
	if *traceFormat != "" {
		cfg.Trace.Format = *traceFormat
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if *logType != "" {
		cfg.Log.Type = *logType
	}

	if err := initLogger(cfg.Log); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Stdout, cfg); err != nil {
		log.Root.Error().Err(err).Msg("simulation failed")
		os.Exit(1)
	}
}

func initLogger(c config.Log) error {
	level, err := log.ParseLogLevel(c.Level)
	if err != nil {
		return err
	}
	t, err := log.ParseLoggerType(c.Type)
	if err != nil {
		return err
	}
	log.Init(log.Options{LogLevel: level, Type: t, Output: os.Stderr})
	return nil
}

func run(ctx context.Context, out io.Writer, cfg config.Config) error {
	sim, err := simulation.New(cfg)
	if err != nil {
		return err
	}

	log.Root.Info().Uint32("cores", cfg.Cores).Str("timer", cfg.Timer).
		Bool("tracing", cfg.TracingEnabled()).Msg("starting simulation")
	results, runErr := sim.Run(ctx)

	reg := prometheus.NewRegistry()
	if err := reg.Register(sim.Collector()); err != nil {
		return err
	}
	families, err := reg.Gather()
	if err != nil {
		return err
	}
	writeReport(out, families)

	for _, r := range results {
		if r.TraceErr != nil {
			log.Trace.Warn().Err(r.TraceErr).Uint32("core", r.Core).Msg("trace output incomplete")
		}
	}
	return runErr
}

// writeReport prints the CPI stack of every core from gathered metrics.
func writeReport(out io.Writer, families []*dto.MetricFamily) {
	type row struct {
		stalls       map[string]float64
		instructions float64
		cycles       float64
		zeroCost     float64
	}
	rows := map[string]*row{}
	get := func(core string) *row {
		r, ok := rows[core]
		if !ok {
			r = &row{stalls: map[string]float64{}}
			rows[core] = r
		}
		return r
	}

	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, l := range m.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
			r := get(labels["core"])
			v := m.GetCounter().GetValue()
			switch mf.GetName() {
			case "uopsim_cpi_stall_seconds_total":
				r.stalls[labels["cause"]] = v
			case "uopsim_instructions_total":
				r.instructions = v
			case "uopsim_instruction_cost_cycles_total":
				r.cycles = v
			case "uopsim_zero_cost_instructions_total":
				r.zeroCost = v
			}
		}
	}

	cores := make([]string, 0, len(rows))
	for c := range rows {
		cores = append(cores, c)
	}
	sort.Slice(cores, func(i, j int) bool {
		if len(cores[i]) != len(cores[j]) {
			return len(cores[i]) < len(cores[j])
		}
		return cores[i] < cores[j]
	})

	for _, c := range cores {
		r := rows[c]
		cpi := 0.0
		if r.instructions > 0 {
			cpi = r.cycles / r.instructions
		}
		fmt.Fprintf(out, "core %s: instructions %.0f cycles %.0f cpi %.3f zero-cost %.0f\n",
			c, r.instructions, r.cycles, cpi, r.zeroCost)

		var total float64
		for _, v := range r.stalls {
			total += v
		}
		causes := make([]string, 0, len(r.stalls))
		for cause := range r.stalls {
			causes = append(causes, cause)
		}
		sort.Strings(causes)
		for _, cause := range causes {
			share := 0.0
			if total > 0 {
				share = 100 * r.stalls[cause] / total
			}
			fmt.Fprintf(out, "  %-12s %12.6fs %6.2f%%\n", cause, r.stalls[cause], share)
		}
	}
}

func dumpTrace(out io.Writer, path string) error {
	r, err := tracefile.Open(path)
	if err != nil {
		return err
	}
	defer r.Close()
	return tracefile.Dump(out, r)
}
