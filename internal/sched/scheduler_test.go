package sched

import (
	"errors"
	"testing"
)

func equalSlots(n int, durationUS uint64, entry Entry) []Slot {
	slots := make([]Slot, n)
	for i := range slots {
		slots[i] = Slot{Name: "p", DurationUS: durationUS, Entry: entry}
	}
	return slots
}

func TestNewTable_RejectsBadDurations(t *testing.T) {
	if _, err := NewTable(1_000_000, 50, equalSlots(4, 200_000, nil)); err == nil {
		t.Error("expected error when durations do not sum to major frame")
	}
	if _, err := NewTable(1_000_000, 50, nil); err == nil {
		t.Error("expected error for empty slot list")
	}
	if _, err := NewTable(1_000_000, 50, []Slot{{Name: "z", DurationUS: 0}}); err == nil {
		t.Error("expected error for zero-duration slot")
	}
}

func TestSchedule_MajorFrameWalk(t *testing.T) {
	tbl, err := NewTable(1_000_000, 50_000, equalSlots(4, 250_000, nil))
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}

	// Partition index at slot start must advance 0..3 across one frame.
	for want := uint32(0); want < 4; want++ {
		id, err := tbl.Schedule(uint64(want) * 250_000)
		if err != nil {
			t.Fatalf("Schedule(slot %d start): %v", want, err)
		}
		if id != want {
			t.Errorf("Schedule selected partition %d, want %d", id, want)
		}
	}
	// And wrap around into the next frame.
	id, err := tbl.Schedule(1_000_000)
	if err != nil || id != 0 {
		t.Errorf("Schedule(1000000) = %d, %v; want 0, nil", id, err)
	}
}

func TestSchedule_LiteralScenario(t *testing.T) {
	calls := 0
	entry := func() error { calls++; return nil }
	tbl, err := NewTable(1_000_000, 50_000, equalSlots(4, 250_000, entry))
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}

	id, err := tbl.Schedule(260_000)
	if err != nil {
		t.Fatalf("Schedule(260000): %v", err)
	}
	if id != 1 {
		t.Errorf("Schedule(260000) selected partition %d, want 1", id)
	}
	if got := tbl.LastJitterUS(); got != 10_000 {
		t.Errorf("jitter = %d us, want 10000", got)
	}
	if calls != 1 {
		t.Errorf("entry ran %d times, want 1", calls)
	}

	// 999999 lands 249999us into slot 3, far past the jitter bound: the
	// slot is still identified but the dispatch is rejected.
	id, err = tbl.Schedule(999_999)
	if !errors.Is(err, ErrJitterExceeded) {
		t.Fatalf("Schedule(999999): expected ErrJitterExceeded, got %v", err)
	}
	if id != 3 {
		t.Errorf("Schedule(999999) selected partition %d, want 3", id)
	}
	if calls != 1 {
		t.Errorf("entry ran on rejected dispatch (calls=%d)", calls)
	}
}

func TestSchedule_JitterExceededSkipsEntry(t *testing.T) {
	calls := 0
	entry := func() error { calls++; return nil }
	tbl, err := NewTable(1_000_000, 50, equalSlots(4, 250_000, entry))
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}

	if _, err := tbl.Schedule(40); err != nil {
		t.Fatalf("Schedule(40): %v", err)
	}
	if calls != 1 {
		t.Fatalf("entry ran %d times, want 1", calls)
	}

	_, err = tbl.Schedule(250_000 + 51)
	if !errors.Is(err, ErrJitterExceeded) {
		t.Fatalf("expected ErrJitterExceeded, got %v", err)
	}
	if calls != 1 {
		t.Errorf("entry ran on rejected dispatch (calls=%d)", calls)
	}
	if got := tbl.LastJitterUS(); got != 51 {
		t.Errorf("jitter = %d us, want 51", got)
	}
}

func TestSchedule_UnequalDurations(t *testing.T) {
	slots := []Slot{
		{Name: "kernel", DurationUS: 100_000},
		{Name: "flight-control", DurationUS: 500_000},
		{Name: "navigation", DurationUS: 400_000},
	}
	tbl, err := NewTable(1_000_000, 50, slots)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}

	cases := []struct {
		nowUS uint64
		want  uint32
	}{
		{0, 0},
		{100_000, 1},
		{600_000, 2},
		{1_000_000, 0},
	}
	for _, tc := range cases {
		id, err := tbl.Schedule(tc.nowUS)
		if err != nil {
			t.Fatalf("Schedule(%d): %v", tc.nowUS, err)
		}
		if id != tc.want {
			t.Errorf("Schedule(%d) = partition %d, want %d", tc.nowUS, id, tc.want)
		}
	}
}

func TestSchedule_EntryErrorSurfaces(t *testing.T) {
	boom := errors.New("partition fault")
	slots := []Slot{{Name: "solo", DurationUS: 1000, Entry: func() error { return boom }}}
	tbl, err := NewTable(1000, 50, slots)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	if _, err := tbl.Schedule(0); !errors.Is(err, boom) {
		t.Errorf("expected wrapped partition fault, got %v", err)
	}
}
