package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/uopsim/internal/config"
	"github.com/eigerco/uopsim/internal/tracefile"
)

func TestRunPrintsReport(t *testing.T) {
	cfg := config.Default()
	cfg.Cores = 2
	cfg.Instructions = 2000
	cfg.Trace.OutputDirectory = t.TempDir()
	cfg.Trace.FireDuration = 0
	cfg.Trace.InstructionsPerWindow = 10
	cfg.Trace.NumberOfWindows = 1

	out := &bytes.Buffer{}
	require.NoError(t, run(context.Background(), out, cfg))

	report := out.String()
	assert.Contains(t, report, "core 0: instructions 2000")
	assert.Contains(t, report, "core 1: instructions 2000")
	for _, cause := range []string{"itlb_miss", "dtlb_miss", "mem_access", "unknown"} {
		assert.Contains(t, report, cause)
	}

	dump := &bytes.Buffer{}
	require.NoError(t, dumpTrace(dump, tracefile.PathFor(cfg.Trace.OutputDirectory, 1)))
	lines := strings.Split(strings.TrimSpace(dump.String()), "\n")
	require.Len(t, lines, 12)
	assert.Equal(t, "# core 1 codec binary version 1", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "# window 0 first 1 records 10"))
}

func TestInitLogger(t *testing.T) {
	assert.NoError(t, initLogger(config.Log{Level: "debug", Type: "json"}))
	assert.Error(t, initLogger(config.Log{Level: "loud"}))
	assert.Error(t, initLogger(config.Log{Level: "info", Type: "xml"}))
}
