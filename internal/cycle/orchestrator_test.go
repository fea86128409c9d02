package cycle

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"fcc-kernel/internal/config"
	"fcc-kernel/internal/detlog"
	"fcc-kernel/internal/hal"
	"fcc-kernel/internal/safety"
	"fcc-kernel/internal/voter"
)

// MockWriter collects cycle rows for validation
type MockWriter struct {
	Rows []CycleRow
}

func (w *MockWriter) Write(row CycleRow) error {
	w.Rows = append(w.Rows, row)
	return nil
}

type MockEventWriter struct {
	Events []EventRow
}

func (w *MockEventWriter) WriteEvent(row EventRow) error {
	w.Events = append(w.Events, row)
	return nil
}

// faultyHAL wraps the simulator and forces an out-of-envelope sensor frame.
type faultyHAL struct {
	*hal.Sim
	aoaDeg float64
}

func (h *faultyHAL) ReadSensors(tickUS uint64) (hal.SensorSample, error) {
	s, err := h.Sim.ReadSensors(tickUS)
	s.AoADeg = h.aoaDeg
	return s, err
}

func testConfig() *config.KernelConfig {
	cfg := &config.KernelConfig{
		Monitors: config.MonitorsSpec{
			TimingEnabled:   true,
			EnvelopeEnabled: true,
		},
	}
	// Load() normally applies these; tests construct the config directly.
	applyTestDefaults(cfg)
	return cfg
}

func applyTestDefaults(cfg *config.KernelConfig) {
	cfg.MajorFrameUS = 1_000_000
	cfg.JitterBoundUS = 50
	cfg.TickPeriodUS = 1000
	cfg.VoteEpsilon = 1e-4
	cfg.SubsystemCode = 0x27
	cfg.PitchGain = 0.8
	cfg.MaxLatencyUS = 200
	cfg.Monitors.TimingToleranceUS = 50
	cfg.Monitors.Envelope = config.EnvelopeSpec{
		AoAMinDeg: -10, AoAMaxDeg: 20,
		TASMinMPS: 60, TASMaxMPS: 350,
		AltMinM: 0, AltMaxM: 18000,
		LoadFactorMinG: -1, LoadFactorMaxG: 2.5,
	}
	cfg.Partitions = []config.PartitionSpec{
		{Name: "kernel", DurationUS: 250_000},
		{Name: "flight-control", DurationUS: 250_000},
		{Name: "navigation", DurationUS: 250_000},
		{Name: "communication", DurationUS: 250_000},
	}
}

func TestEngine_ThousandTicksConsensusMaintained(t *testing.T) {
	cfg := testConfig()
	hw := hal.NewSim()
	writer := &MockWriter{}
	events := &MockEventWriter{}
	det, err := detlog.NewWriter(filepath.Join(t.TempDir(), "det.log"))
	if err != nil {
		t.Fatalf("detlog: %v", err)
	}
	defer det.Close()

	eng, err := NewEngine(cfg, hw, writer, events, nil, WithDetLog(det))
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if err := eng.RunTicks(context.Background(), 1000); err != nil {
		t.Fatalf("RunTicks: %v", err)
	}

	if len(writer.Rows) != 1000 {
		t.Fatalf("wrote %d cycle rows, want 1000", len(writer.Rows))
	}
	for _, row := range writer.Rows {
		if !row.VoteOK {
			t.Fatalf("tick %d lost consensus", row.Tick)
		}
		if row.State == "failed" {
			t.Fatalf("tick %d entered failed state", row.Tick)
		}
		if !row.Actuated {
			t.Fatalf("tick %d did not actuate", row.Tick)
		}
	}
	if len(events.Events) != 0 {
		t.Errorf("unexpected safety events: %+v", events.Events)
	}
	if got := len(hw.Writes()); got != 1000 {
		t.Errorf("actuator writes = %d, want 1000", got)
	}
	if eng.Monitor().State() != safety.StateNormal {
		t.Errorf("final state = %v, want normal", eng.Monitor().State())
	}

	// Deterministic log carries one signed record per actuation.
	out, ok := eng.Voter().Consensus(cfg.SubsystemCode)
	if !ok {
		t.Fatal("no retained consensus after 1000 ticks")
	}
	last := writer.Rows[len(writer.Rows)-1]
	if out.ElevonL != last.ElevonL || out.ElevonR != last.ElevonR {
		t.Errorf("retained consensus %+v does not match last row %+v", out, last)
	}
}

func TestEngine_PartitionEntriesRunOncePerSlot(t *testing.T) {
	cfg := testConfig()
	calls := map[string]int{}
	entries := PartitionEntries{
		"kernel":         func() error { calls["kernel"]++; return nil },
		"flight-control": func() error { calls["flight-control"]++; return nil },
	}
	eng, err := NewEngine(cfg, hal.NewSim(), &MockWriter{}, nil, entries)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	// One full major frame at 1 kHz: each partition slot crossed once.
	if err := eng.RunTicks(context.Background(), 1000); err != nil {
		t.Fatalf("RunTicks: %v", err)
	}
	if calls["kernel"] != 1 || calls["flight-control"] != 1 {
		t.Errorf("partition entries ran %v, want once each", calls)
	}
}

func TestEngine_EnvelopeViolationDegradesButKeepsActuating(t *testing.T) {
	cfg := testConfig()
	hw := &faultyHAL{Sim: hal.NewSim(), aoaDeg: 25.0} // stall AoA
	writer := &MockWriter{}
	eng, err := NewEngine(cfg, hw, writer, &MockEventWriter{}, nil)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	if err := eng.RunTicks(context.Background(), 10); err != nil {
		t.Fatalf("RunTicks: %v", err)
	}
	if eng.Monitor().State() != safety.StateDegraded {
		t.Fatalf("state = %v, want degraded", eng.Monitor().State())
	}
	// Degraded is still safe: actuation continues.
	last := writer.Rows[len(writer.Rows)-1]
	if !last.Actuated {
		t.Error("degraded state suppressed actuation")
	}
}

func TestEngine_EnvelopeFallbackPinsSurfacesNeutral(t *testing.T) {
	cfg := testConfig()
	sim := hal.NewSim()
	hw := &faultyHAL{Sim: sim, aoaDeg: 25.0}
	writer := &MockWriter{}
	eng, err := NewEngine(cfg, hw, writer, &MockEventWriter{}, nil)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	if err := eng.RunTicks(context.Background(), 10); err != nil {
		t.Fatalf("RunTicks: %v", err)
	}
	writes := sim.Writes()
	if len(writes) == 0 {
		t.Fatal("no actuator writes recorded")
	}
	// Once the envelope fallback has latched, every committed output holds
	// the surfaces at neutral.
	var out voter.ControlOutput
	if err := json.Unmarshal(writes[len(writes)-1].Payload, &out); err != nil {
		t.Fatalf("decode actuator payload: %v", err)
	}
	if out.ElevonL != 0 || out.ElevonR != 0 {
		t.Errorf("surfaces after envelope fallback = %.4f/%.4f, want 0/0", out.ElevonL, out.ElevonR)
	}
	last := writer.Rows[len(writer.Rows)-1]
	if !last.Actuated {
		t.Error("neutral hold suppressed actuation")
	}
}

func TestEngine_FailedStateLatchesActuationOff(t *testing.T) {
	cfg := testConfig()
	hw := hal.NewSim()
	eng, err := NewEngine(cfg, hw, &MockWriter{}, &MockEventWriter{}, nil)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	ctx := context.Background()

	if err := eng.RunCycle(ctx, 0); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	writesBefore := len(hw.Writes())

	eng.Monitor().EmergencyShutdown(ctx, 1000)
	for ts := uint64(1000); ts <= 5000; ts += 1000 {
		if err := eng.RunCycle(ctx, ts); !errors.Is(err, ErrFailedState) {
			t.Fatalf("RunCycle(%d) after shutdown = %v, want ErrFailedState", ts, err)
		}
	}
	if got := len(hw.Writes()); got != writesBefore {
		t.Errorf("actuator writes after Failed: %d -> %d", writesBefore, got)
	}
}

func TestEngine_SchedulingFaultFeedsTimingViolation(t *testing.T) {
	cfg := testConfig()
	cfg.JitterBoundUS = 50
	// A tick period that lands 600us past each slot boundary forces a
	// dispatch jitter above the bound on every slot crossing.
	hw := hal.NewSim()
	events := &MockEventWriter{}
	eng, err := NewEngine(cfg, hw, &MockWriter{}, events, nil)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	ctx := context.Background()

	// First dispatch at t=600: slot 0, offset 600 > 50.
	if err := eng.RunCycle(ctx, 600); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	found := false
	for _, ev := range events.Events {
		if ev.Kind == "scheduling" {
			found = true
		}
	}
	if !found {
		t.Error("scheduling fault did not produce an event row")
	}
	// The dispatch monitor turned the fault into a counted timing violation.
	if eng.Monitor().TotalViolations() == 0 {
		t.Error("scheduling fault did not reach the safety monitor")
	}
	if eng.Monitor().State() == safety.StateFailed {
		t.Error("recoverable scheduling fault escalated to failed")
	}
}

func TestEngine_StrictModeMakesSchedulingFatal(t *testing.T) {
	cfg := testConfig()
	eng, err := NewEngine(cfg, hal.NewSim(), &MockWriter{}, &MockEventWriter{}, nil, WithStrictScheduling())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if err := eng.RunCycle(context.Background(), 600); !errors.Is(err, ErrSchedulingFault) {
		t.Fatalf("expected ErrSchedulingFault, got %v", err)
	}
}

func TestEngine_FallbackFailurePropagates(t *testing.T) {
	cfg := testConfig()
	eng, err := NewEngine(cfg, hal.NewSim(), &MockWriter{}, &MockEventWriter{}, nil)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	// Install an always-violating check whose fallback is broken.
	err = eng.Monitor().Register(7, "Broken",
		func(uint64) safety.Violation { return safety.ViolationResource },
		func(uint64) error { return errors.New("backup path dead") })
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	err = eng.RunTicks(context.Background(), 10)
	if !errors.Is(err, safety.ErrFallbackFailed) {
		t.Fatalf("expected ErrFallbackFailed, got %v", err)
	}
	if eng.Monitor().State() != safety.StateFailed {
		t.Errorf("state = %v, want failed", eng.Monitor().State())
	}
	// And the engine refuses further cycles.
	if err := eng.RunCycle(context.Background(), 99_000); !errors.Is(err, ErrFailedState) {
		t.Errorf("expected ErrFailedState after fallback failure, got %v", err)
	}
}

func TestEngine_DetLogRecordsMatchActuations(t *testing.T) {
	cfg := testConfig()
	hw := hal.NewSim()
	path := filepath.Join(t.TempDir(), "det.log")
	det, err := detlog.NewWriter(path)
	if err != nil {
		t.Fatalf("detlog: %v", err)
	}
	eng, err := NewEngine(cfg, hw, &MockWriter{}, nil, nil, WithDetLog(det))
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if err := eng.RunTicks(context.Background(), 50); err != nil {
		t.Fatalf("RunTicks: %v", err)
	}
	det.Close()

	count := 0
	err = detlog.ReadFile(path, func(r detlog.Record) error {
		count++
		if r.Tag != ActuationTag {
			t.Errorf("record tag = %q, want %q", r.Tag, ActuationTag)
		}
		if len(r.Sig) == 0 {
			t.Error("actuation record missing signature")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if count != len(hw.Writes()) {
		t.Errorf("det log has %d records, actuator saw %d writes", count, len(hw.Writes()))
	}
}
