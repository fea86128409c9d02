package main

import (
	"os"

	"fcc-kernel/internal/config"
	"fcc-kernel/internal/cycle"
	"fcc-kernel/internal/safety"
)

// newWriters sets up cycle and event writers based on flags and env vars.
// It returns the writers and a cleanup function to close any resources.
func newWriters(cfg *config.KernelConfig, color, tui bool, logFile string, snapshot func() safety.Snapshot) (cycle.CycleWriter, cycle.EventWriter, func(), error) {
	cleanup := func() {}

	writer, events, err := baseWriters(cfg, color, tui, snapshot)
	if err != nil {
		return nil, nil, nil, err
	}
	if c, ok := writer.(interface{ Close() error }); ok {
		cleanup = func() { c.Close() }
	}
	if logFile == "" {
		return writer, events, cleanup, nil
	}

	fw, err := cycle.NewFileWriter(logFile, logFile+".events")
	if err != nil {
		cleanup()
		return nil, nil, nil, err
	}
	mw := cycle.NewMultiWriter(
		[]cycle.CycleWriter{writer, fw},
		[]cycle.EventWriter{events, fw},
	)
	base := cleanup
	cleanup = func() {
		fw.Close()
		base()
	}
	return mw, mw, cleanup, nil
}

// baseWriters chooses the underlying writers based on flags and env vars.
func baseWriters(cfg *config.KernelConfig, color, tui bool, snapshot func() safety.Snapshot) (cycle.CycleWriter, cycle.EventWriter, error) {
	if tui {
		w := cycle.NewTUIWriter(cfg, snapshot)
		return w, w, nil
	}
	if endpoint := os.Getenv("GREPTIMEDB_ENDPOINT"); endpoint != "" {
		database := os.Getenv("GREPTIMEDB_DATABASE")
		if database == "" {
			database = "public"
		}
		w, err := cycle.NewGreptimeDBWriter(endpoint, database)
		if err != nil {
			return nil, nil, err
		}
		return w, w, nil
	}
	if color {
		w := cycle.NewColorStdoutWriter()
		return w, w, nil
	}
	w := &cycle.StdoutWriter{}
	return w, w, nil
}
