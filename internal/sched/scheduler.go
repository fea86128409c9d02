// Cyclic-executive partition scheduling with a bounded jitter check.
package sched

import (
	"errors"
	"fmt"
)

// DefaultJitterBoundUS is the worst-case dispatch jitter accepted by default.
const DefaultJitterBoundUS = 50

var (
	// ErrOutOfWindow reports a slot index outside the partition table. The
	// duration invariant makes this unreachable; seeing it means the table
	// state is corrupt.
	ErrOutOfWindow = errors.New("sched: time outside scheduling window")
	// ErrJitterExceeded reports a dispatch that missed its slot start by more
	// than the configured bound. The partition entry is not run.
	ErrJitterExceeded = errors.New("sched: jitter bound exceeded")
)

// Table is a fixed cyclic-executive schedule over one major frame. The slot
// sequence is validated once at construction and never changes afterwards.
type Table struct {
	partitions    []Partition
	starts        []uint64
	majorFrameUS  uint64
	jitterBoundUS uint64
	lastJitterUS  uint64
}

// NewTable builds a schedule from an ordered slot list. The slot durations
// must be positive and sum exactly to the major frame.
func NewTable(majorFrameUS uint64, jitterBoundUS uint64, slots []Slot) (*Table, error) {
	if majorFrameUS == 0 {
		return nil, fmt.Errorf("sched: major frame must be positive")
	}
	if len(slots) == 0 {
		return nil, fmt.Errorf("sched: at least one partition required")
	}
	if jitterBoundUS == 0 {
		jitterBoundUS = DefaultJitterBoundUS
	}

	t := &Table{
		partitions:    make([]Partition, 0, len(slots)),
		starts:        make([]uint64, 0, len(slots)),
		majorFrameUS:  majorFrameUS,
		jitterBoundUS: jitterBoundUS,
	}
	var sum uint64
	for i, s := range slots {
		if s.DurationUS == 0 {
			return nil, fmt.Errorf("sched: partition %q has zero duration", s.Name)
		}
		t.starts = append(t.starts, sum)
		t.partitions = append(t.partitions, Partition{
			ID:         uint32(i),
			Name:       s.Name,
			DurationUS: s.DurationUS,
			entry:      s.Entry,
		})
		sum += s.DurationUS
	}
	if sum != majorFrameUS {
		return nil, fmt.Errorf("sched: slot durations sum to %d us, major frame is %d us", sum, majorFrameUS)
	}
	return t, nil
}

// Schedule dispatches the partition whose slot contains nowUS. The dispatch
// decision is pure integer arithmetic over the frame position; nothing is
// queued and nothing blocks. The measured jitter is the true offset from the
// slot's expected start; an offset beyond the bound rejects the dispatch
// without running the partition.
func (t *Table) Schedule(nowUS uint64) (uint32, error) {
	frameTime := nowUS % t.majorFrameUS
	slot := t.slotAt(frameTime)
	if slot < 0 {
		return 0, ErrOutOfWindow
	}

	jitter := frameTime - t.starts[slot]
	t.lastJitterUS = jitter
	if jitter > t.jitterBoundUS {
		return uint32(slot), ErrJitterExceeded
	}

	p := &t.partitions[slot]
	p.LastExecUS = nowUS
	if p.entry != nil {
		if err := p.entry(); err != nil {
			return p.ID, fmt.Errorf("sched: partition %q: %w", p.Name, err)
		}
	}
	return p.ID, nil
}

// slotAt walks the cumulative start table. Partition counts are small and
// fixed, so the linear scan is constant work per tick.
func (t *Table) slotAt(frameTime uint64) int {
	for i := len(t.starts) - 1; i >= 0; i-- {
		if frameTime >= t.starts[i] {
			if frameTime-t.starts[i] < t.partitions[i].DurationUS {
				return i
			}
			return -1
		}
	}
	return -1
}

// SlotIndex returns the slot containing nowUS without dispatching. Callers
// use it to detect slot-boundary crossings between ticks.
func (t *Table) SlotIndex(nowUS uint64) (int, error) {
	slot := t.slotAt(nowUS % t.majorFrameUS)
	if slot < 0 {
		return 0, ErrOutOfWindow
	}
	return slot, nil
}

// LastJitterUS reports the offset measured by the most recent Schedule call.
func (t *Table) LastJitterUS() uint64 { return t.lastJitterUS }

// JitterBoundUS reports the configured worst-case jitter.
func (t *Table) JitterBoundUS() uint64 { return t.jitterBoundUS }

// MajorFrameUS reports the major frame length.
func (t *Table) MajorFrameUS() uint64 { return t.majorFrameUS }

// Partitions returns a snapshot of the partition table for status reporting.
func (t *Table) Partitions() []Partition {
	out := make([]Partition, len(t.partitions))
	copy(out, t.partitions)
	return out
}
