// Orchestrator driving the perceive/observe/actuate/evolve control cycle.
package cycle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"fcc-kernel/internal/config"
	"fcc-kernel/internal/ctl"
	"fcc-kernel/internal/detlog"
	"fcc-kernel/internal/diag"
	"fcc-kernel/internal/hal"
	"fcc-kernel/internal/logging"
	"fcc-kernel/internal/pqc"
	"fcc-kernel/internal/safety"
	"fcc-kernel/internal/sched"
	"fcc-kernel/internal/voter"
)

// ActuationTag is the deterministic-log tag for committed actuations.
const ActuationTag = "ATA27_STEP"

var (
	// ErrFailedState reports a cycle refused because the safety monitor has
	// latched Failed. The caller must stop issuing cycles.
	ErrFailedState = errors.New("cycle: safety state failed, actuation latched off")
	// ErrSchedulingFault is returned in strict mode when a dispatch misses
	// its window.
	ErrSchedulingFault = errors.New("cycle: scheduling fault")
)

// Monitor registry slots used by the engine.
const (
	monTiming uint32 = iota
	monEnvelope
	monResource
	monMemory
	monDispatch
)

// Engine runs the four-phase control cycle over one kernel instance. It is
// single-threaded by design: one goroutine calls RunCycle; writers and HAL
// are the only shared surfaces.
type Engine struct {
	cfg     *config.KernelConfig
	hw      hal.HAL
	laws    [3]ctl.Law
	votes   *voter.Voter
	monitor *safety.Monitor
	table   *sched.Table
	probe   *diag.Probe
	signer  pqc.Signer
	det     *detlog.Writer
	writer  CycleWriter
	events  EventWriter
	runID   string

	strict   bool
	safeMode bool

	tick       uint64
	lastSlot   int
	haveSlot   bool
	schedFault bool

	// per-cycle working state
	sample     hal.SensorSample
	metrics    diag.Metrics
	partition  string
	voteOK     bool
	actuated   bool
	output     voter.ControlOutput
	violations uint32
}

// Option tweaks engine construction.
type Option func(*Engine)

// WithStrictScheduling makes scheduling faults fatal (verification harness
// mode) instead of routing them through the safety monitor.
func WithStrictScheduling() Option {
	return func(e *Engine) { e.strict = true }
}

// WithSigner replaces the mock actuation signer.
func WithSigner(s pqc.Signer) Option {
	return func(e *Engine) { e.signer = s }
}

// WithDetLog attaches a deterministic log for actuation records.
func WithDetLog(w *detlog.Writer) Option {
	return func(e *Engine) { e.det = w }
}

// PartitionEntries maps partition names to their units of work.
type PartitionEntries map[string]sched.Entry

// NewEngine wires the kernel core from configuration. Partition entries are
// optional; a missing entry leaves the slot as a pure time reservation.
func NewEngine(cfg *config.KernelConfig, hw hal.HAL, writer CycleWriter, events EventWriter, entries PartitionEntries, opts ...Option) (*Engine, error) {
	e := &Engine{
		cfg:     cfg,
		hw:      hw,
		votes:   voter.New(),
		monitor: safety.NewMonitor(),
		probe:   diag.NewProbe(cfg.MaxLatencyUS),
		signer:  pqc.NewMockSigner(),
		writer:  writer,
		events:  events,
		runID:   uuid.NewString(),
	}
	e.laws = [3]ctl.Law{
		ctl.CPULane(cfg.PitchGain),
		ctl.FPGALane(cfg.PitchGain),
		ctl.DSPLane(cfg.PitchGain),
	}

	slots := make([]sched.Slot, 0, len(cfg.Partitions))
	for _, p := range cfg.Partitions {
		slots = append(slots, sched.Slot{
			Name:       p.Name,
			DurationUS: p.DurationUS,
			Entry:      entries[p.Name],
		})
	}
	table, err := sched.NewTable(cfg.MajorFrameUS, cfg.JitterBoundUS, slots)
	if err != nil {
		return nil, err
	}
	e.table = table

	if err := e.registerMonitors(); err != nil {
		return nil, err
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

func (e *Engine) registerMonitors() error {
	m := e.cfg.Monitors
	if m.TimingEnabled {
		err := e.monitor.Register(monTiming, "Timing",
			safety.TimingCheck(e.cfg.TickPeriodUS, m.TimingToleranceUS),
			func(uint64) error { return nil }) // no recovery action, the degraded latch is the response
		if err != nil {
			return err
		}
	}
	if m.EnvelopeEnabled {
		limits := safety.EnvelopeLimits{
			AoAMinDeg: m.Envelope.AoAMinDeg, AoAMaxDeg: m.Envelope.AoAMaxDeg,
			TASMinMPS: m.Envelope.TASMinMPS, TASMaxMPS: m.Envelope.TASMaxMPS,
			AltMinM: m.Envelope.AltMinM, AltMaxM: m.Envelope.AltMaxM,
			LoadFactorMinG: m.Envelope.LoadFactorMinG, LoadFactorMaxG: m.Envelope.LoadFactorMaxG,
		}
		err := e.monitor.Register(monEnvelope, "Envelope",
			safety.EnvelopeCheck(limits, func() safety.EnvelopeState {
				return safety.EnvelopeState{
					AoADeg:      e.sample.AoADeg,
					TASMPS:      e.sample.TASMPS,
					AltM:        e.sample.AltM,
					LoadFactorG: e.sample.LoadFactorG,
				}
			}),
			func(uint64) error { e.safeMode = true; return nil })
		if err != nil {
			return err
		}
	}
	if m.ResourceEnabled {
		if err := e.monitor.Register(monResource, "Resource",
			safety.ResourceCheck(m.MaxGoroutines), nil); err != nil {
			return err
		}
	}
	if m.MemoryEnabled {
		if err := e.monitor.Register(monMemory, "Memory",
			safety.MemoryCheck(m.MaxHeapBytes), nil); err != nil {
			return err
		}
	}
	// Dispatch supervision is not optional: a scheduler fault is always a
	// timing violation.
	return e.monitor.Register(monDispatch, "Dispatch",
		func(uint64) safety.Violation {
			if e.schedFault {
				e.schedFault = false
				return safety.ViolationTiming
			}
			return safety.ViolationNone
		},
		func(uint64) error { return nil })
}

// RunID returns the identity stamped on this engine's telemetry.
func (e *Engine) RunID() string { return e.runID }

// Monitor exposes the safety monitor for status surfaces.
func (e *Engine) Monitor() *safety.Monitor { return e.monitor }

// Voter exposes the redundancy voter for status surfaces.
func (e *Engine) Voter() *voter.Voter { return e.votes }

// Table exposes the partition schedule for status surfaces.
func (e *Engine) Table() *sched.Table { return e.table }

// Tick returns the number of completed cycles.
func (e *Engine) Tick() uint64 { return e.tick }

// Subsystem returns the configured subsystem code for voted outputs.
func (e *Engine) Subsystem() uint32 { return e.cfg.SubsystemCode }

// RunCycle executes one control tick at the given timestamp. Phases run
// strictly in order; the first phase error aborts the tick. A returned
// ErrFailedState or safety.ErrFallbackFailed means the caller must stop.
func (e *Engine) RunCycle(ctx context.Context, tsUS uint64) error {
	if e.monitor.State() == safety.StateFailed {
		return ErrFailedState
	}

	phases := []struct {
		name string
		fn   func(context.Context, uint64) error
	}{
		{"perceive", e.perceive},
		{"observe", e.observe},
		{"actuate", e.actuate},
		{"evolve", e.evolve},
	}
	for _, p := range phases {
		if err := p.fn(ctx, tsUS); err != nil {
			return fmt.Errorf("%s: %w", p.name, err)
		}
	}
	e.tick++
	return nil
}

// perceive reads the sensor frame for this tick.
func (e *Engine) perceive(_ context.Context, tsUS uint64) error {
	sample, err := e.hw.ReadSensors(tsUS)
	if err != nil {
		return fmt.Errorf("read sensors: %w", err)
	}
	e.sample = sample
	return nil
}

// observe dispatches the partition schedule when a slot boundary has been
// crossed and collects advisory diagnostics.
func (e *Engine) observe(ctx context.Context, tsUS uint64) error {
	log := logging.FromContext(ctx)

	slot, err := e.table.SlotIndex(tsUS)
	if err == nil && (!e.haveSlot || slot != e.lastSlot) {
		id, schedErr := e.table.Schedule(tsUS)
		switch {
		case schedErr == nil:
			e.partition = e.table.Partitions()[id].Name
		case errors.Is(schedErr, sched.ErrJitterExceeded), errors.Is(schedErr, sched.ErrOutOfWindow):
			err = schedErr
		default:
			return schedErr // partition entry fault
		}
		e.lastSlot = slot
		e.haveSlot = true
	}
	if err != nil {
		log.Warn("scheduling fault", "t_us", tsUS, "err", err)
		e.emitEvent(ctx, "scheduling", err.Error(), tsUS)
		if e.strict {
			return fmt.Errorf("%w: %v", ErrSchedulingFault, err)
		}
		e.schedFault = true
	}

	e.metrics = e.probe.Measure()
	return nil
}

// actuate evaluates the redundant control laws, votes, runs the safety
// monitor, and commits the trusted output only when both gates pass.
func (e *Engine) actuate(ctx context.Context, tsUS uint64) error {
	log := logging.FromContext(ctx)
	e.voteOK = false
	e.actuated = false

	a := e.laws[0](e.sample)
	b := e.laws[1](e.sample)
	c := e.laws[2](e.sample)
	out, voteErr := e.votes.Vote(e.cfg.SubsystemCode, a, b, c, e.cfg.VoteEpsilon)
	if voteErr != nil {
		log.Warn("vote mismatch", "t_us", tsUS,
			"cpu", fmt.Sprintf("%.4f/%.4f", a.ElevonL, a.ElevonR),
			"fpga", fmt.Sprintf("%.4f/%.4f", b.ElevonL, b.ElevonR),
			"dsp", fmt.Sprintf("%.4f/%.4f", c.ElevonL, c.ElevonR))
		e.emitEvent(ctx, "vote_mismatch", "no 2-of-3 consensus", tsUS)
	} else {
		e.voteOK = true
		e.output = out
	}

	violations, err := e.monitor.Run(ctx, tsUS)
	e.violations = violations
	if err != nil {
		e.emitEvent(ctx, "fallback_failure", err.Error(), tsUS)
		return err
	}

	if !e.voteOK || !e.monitor.IsSafeState() {
		return nil // suppress actuation for this tick, keep ticking
	}
	if e.safeMode {
		// Envelope fallback latched: hold the surfaces at neutral until
		// the kernel is re-initialized.
		e.output = voter.ControlOutput{}
	}

	payload, err := json.Marshal(e.output)
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	if err := e.hw.WriteActuators(payload, tsUS); err != nil {
		return fmt.Errorf("write actuators: %w", err)
	}
	if e.det != nil {
		sig := e.signer.Sign(payload)
		if err := e.det.Append(ActuationTag, tsUS, payload, sig); err != nil {
			return fmt.Errorf("det log: %w", err)
		}
	}
	e.actuated = true
	return nil
}

// evolve emits the cycle telemetry row.
func (e *Engine) evolve(ctx context.Context, tsUS uint64) error {
	if e.writer == nil {
		return nil
	}
	row := CycleRow{
		RunID:      e.runID,
		Tick:       e.tick,
		TUs:        tsUS,
		Partition:  e.partition,
		State:      e.monitor.State().String(),
		VoteOK:     e.voteOK,
		Actuated:   e.actuated,
		ElevonL:    e.output.ElevonL,
		ElevonR:    e.output.ElevonR,
		LatencyUS:  e.metrics.LatencyUS,
		Coherence:  e.metrics.Coherence,
		LatencyOK:  e.probe.WithinBound(e.metrics),
		Violations: e.violations,
		Timestamp:  time.Now().UTC(),
	}
	if err := e.writer.Write(row); err != nil {
		logging.FromContext(ctx).Error("cycle write failed", "tick", e.tick, "err", err)
	}
	return nil
}

func (e *Engine) emitEvent(ctx context.Context, kind, detail string, tsUS uint64) {
	if e.events == nil {
		return
	}
	row := EventRow{
		RunID:     e.runID,
		TUs:       tsUS,
		Kind:      kind,
		Detail:    detail,
		State:     e.monitor.State().String(),
		Timestamp: time.Now().UTC(),
	}
	if err := e.events.WriteEvent(row); err != nil {
		logging.FromContext(ctx).Error("event write failed", "kind", kind, "err", err)
	}
}

// RunTicks drives n cycles over simulated time at the configured period.
// It stops early on context cancellation or an unrecoverable safety fault.
func (e *Engine) RunTicks(ctx context.Context, n uint64) error {
	log := logging.FromContext(ctx)
	for i := uint64(0); i < n; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		tsUS := i * e.cfg.TickPeriodUS
		if err := e.RunCycle(ctx, tsUS); err != nil {
			log.Error("cycle aborted", "tick", i, "t_us", tsUS, "err", err)
			return err
		}
	}
	return nil
}

// Run drives cycles off the wall clock at the configured period until the
// context is done or an unrecoverable fault stops the kernel.
func (e *Engine) Run(ctx context.Context) error {
	log := logging.FromContext(ctx)
	period := time.Duration(e.cfg.TickPeriodUS) * time.Microsecond
	log.Info("starting kernel", "tick_period", period, "run_id", e.runID)
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := e.RunCycle(ctx, e.hw.NowUS()); err != nil {
				log.Error("kernel halted", "tick", e.tick, "err", err)
				return err
			}
		case <-ctx.Done():
			log.Info("stopping kernel", "ticks", e.tick)
			return nil
		}
	}
}
