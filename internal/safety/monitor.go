// Simplex-pattern safety supervision: a fixed registry of check hooks with
// verified-safe fallbacks and a conservative four-state health machine.
package safety

import (
	"context"
	"errors"
	"fmt"

	"fcc-kernel/internal/logging"
)

// MaxMonitors bounds the registry table.
const MaxMonitors = 8

var (
	ErrInvalidID      = errors.New("safety: monitor id out of range")
	ErrDuplicateID    = errors.New("safety: monitor id already registered")
	ErrFallbackFailed = errors.New("safety: fallback failed")
)

// CheckFunc inspects one cycle and reports the violation it found, or
// ViolationNone.
type CheckFunc func(tsUS uint64) Violation

// FallbackFunc attempts the verified-safe recovery action for a violation.
// A non-nil error is a top-level safety event: the monitor latches Failed.
type FallbackFunc func(tsUS uint64) error

type entry struct {
	id             uint32
	name           string
	enabled        bool
	registered     bool
	check          CheckFunc
	fallback       FallbackFunc
	lastCheckUS    uint64
	violationCount uint32
	lastViolation  Violation
}

// Snapshot is a read-only view of the monitor context for status reporting.
type Snapshot struct {
	State               string          `json:"state"`
	Safe                bool            `json:"safe"`
	ActiveMonitors      uint32          `json:"active_monitors"`
	TotalViolations     uint32          `json:"total_violations"`
	FallbackActivations uint32          `json:"fallback_activations"`
	LastStateChangeUS   uint64          `json:"last_state_change_us"`
	Monitors            []EntrySnapshot `json:"monitors"`
}

// EntrySnapshot mirrors one registry slot.
type EntrySnapshot struct {
	ID             uint32 `json:"id"`
	Name           string `json:"name"`
	Enabled        bool   `json:"enabled"`
	ViolationCount uint32 `json:"violation_count"`
	LastViolation  string `json:"last_violation"`
}

// Monitor owns the registry and the health state machine. It is built for a
// single-threaded cyclic executive: Register/Enable/Disable/Run are not safe
// for concurrent callers, and a multi-threaded deployment must serialize
// access externally.
type Monitor struct {
	state               State
	entries             [MaxMonitors]entry
	activeMonitors      uint32
	totalViolations     uint32
	fallbackActivations uint32
	lastStateChangeUS   uint64
}

// NewMonitor returns a monitor in StateNormal with an empty registry.
func NewMonitor() *Monitor {
	return &Monitor{state: StateNormal}
}

// Register installs a check (and optional fallback) in the given slot. The
// slot must be inside the fixed table and unused.
func (m *Monitor) Register(id uint32, name string, check CheckFunc, fallback FallbackFunc) error {
	if id >= MaxMonitors {
		return fmt.Errorf("%w: %d", ErrInvalidID, id)
	}
	if m.entries[id].registered {
		return fmt.Errorf("%w: %d (%s)", ErrDuplicateID, id, m.entries[id].name)
	}
	m.entries[id] = entry{
		id:         id,
		name:       name,
		enabled:    true,
		registered: true,
		check:      check,
		fallback:   fallback,
	}
	m.activeMonitors++
	return nil
}

// Enable marks a registered monitor as participating in the next Run.
func (m *Monitor) Enable(id uint32) error {
	if id >= MaxMonitors || !m.entries[id].registered {
		return fmt.Errorf("%w: %d", ErrInvalidID, id)
	}
	m.entries[id].enabled = true
	return nil
}

// Disable removes a monitor from evaluation without touching its counters.
func (m *Monitor) Disable(id uint32) error {
	if id >= MaxMonitors || !m.entries[id].registered {
		return fmt.Errorf("%w: %d", ErrInvalidID, id)
	}
	m.entries[id].enabled = false
	return nil
}

// Run evaluates all enabled monitors in registration order and returns the
// number of violations seen this cycle. A failing fallback latches Failed and
// aborts the remaining monitors immediately.
func (m *Monitor) Run(ctx context.Context, tsUS uint64) (uint32, error) {
	log := logging.FromContext(ctx)
	var violations uint32

	for i := range m.entries {
		e := &m.entries[i]
		if !e.registered || !e.enabled || e.check == nil {
			continue
		}
		e.lastCheckUS = tsUS

		v := e.check(tsUS)
		if v == ViolationNone {
			continue
		}

		e.violationCount++
		e.lastViolation = v
		m.totalViolations++
		violations++
		log.Warn("safety violation",
			"monitor", e.name, "id", e.id, "kind", v.String(), "t_us", tsUS)

		if e.fallback != nil {
			if err := e.fallback(tsUS); err != nil {
				log.Error("fallback failed",
					"monitor", e.name, "id", e.id, "t_us", tsUS, "err", err)
				m.transition(StateFailed, tsUS)
				return violations, fmt.Errorf("%w: monitor %s: %v", ErrFallbackFailed, e.name, err)
			}
			m.fallbackActivations++
			log.Info("fallback activated", "monitor", e.name, "id", e.id, "t_us", tsUS)
			if m.state == StateNormal {
				m.transition(StateDegraded, tsUS)
			}
		}
		// A violation without a fallback is counted only; escalation policy
		// belongs to the caller.
	}
	return violations, nil
}

// ForceFallback latches StateFallback for a hazard detected outside the
// registered checks. It never un-fails a Failed monitor.
func (m *Monitor) ForceFallback(ctx context.Context, kind Violation, tsUS uint64) {
	log := logging.FromContext(ctx)
	log.Warn("forced fallback", "kind", kind.String(), "t_us", tsUS)
	if m.state == StateFailed {
		return
	}
	m.fallbackActivations++
	m.transition(StateFallback, tsUS)
}

// EmergencyShutdown latches StateFailed. Terminal and idempotent.
func (m *Monitor) EmergencyShutdown(ctx context.Context, tsUS uint64) {
	logging.FromContext(ctx).Error("emergency shutdown", "t_us", tsUS)
	m.transition(StateFailed, tsUS)
}

// IsSafeState reports whether actuation is permitted this cycle.
func (m *Monitor) IsSafeState() bool {
	return m.state == StateNormal || m.state == StateDegraded
}

// State returns the current health state.
func (m *Monitor) State() State { return m.state }

// TotalViolations returns the global violation counter.
func (m *Monitor) TotalViolations() uint32 { return m.totalViolations }

// FallbackActivations returns how many fallbacks have run or been forced.
func (m *Monitor) FallbackActivations() uint32 { return m.fallbackActivations }

func (m *Monitor) transition(to State, tsUS uint64) {
	if m.state == to {
		return
	}
	m.state = to
	m.lastStateChangeUS = tsUS
}

// Snapshot captures the context for the admin surface and state rows.
func (m *Monitor) Snapshot() Snapshot {
	s := Snapshot{
		State:               m.state.String(),
		Safe:                m.IsSafeState(),
		ActiveMonitors:      m.activeMonitors,
		TotalViolations:     m.totalViolations,
		FallbackActivations: m.fallbackActivations,
		LastStateChangeUS:   m.lastStateChangeUS,
	}
	for i := range m.entries {
		e := &m.entries[i]
		if !e.registered {
			continue
		}
		s.Monitors = append(s.Monitors, EntrySnapshot{
			ID:             e.id,
			Name:           e.name,
			Enabled:        e.enabled,
			ViolationCount: e.violationCount,
			LastViolation:  e.lastViolation.String(),
		})
	}
	return s
}
