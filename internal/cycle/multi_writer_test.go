package cycle

import "testing"

type batchRecorder struct {
	rows    []CycleRow
	batches int
}

func (b *batchRecorder) Write(row CycleRow) error {
	b.rows = append(b.rows, row)
	return nil
}

func (b *batchRecorder) WriteBatch(rows []CycleRow) error {
	b.batches++
	b.rows = append(b.rows, rows...)
	return nil
}

func TestMultiWriter_FanOut(t *testing.T) {
	a := &MockWriter{}
	b := &MockWriter{}
	ev := &MockEventWriter{}
	mw := NewMultiWriter([]CycleWriter{a, b}, []EventWriter{ev})

	if err := mw.Write(sampleRow(1)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if len(a.Rows) != 1 || len(b.Rows) != 1 {
		t.Errorf("fan-out missed a writer: %d/%d", len(a.Rows), len(b.Rows))
	}
	if err := mw.WriteEvent(EventRow{Kind: "scheduling"}); err != nil {
		t.Fatalf("WriteEvent: %v", err)
	}
	if len(ev.Events) != 1 {
		t.Errorf("event fan-out missed: %d", len(ev.Events))
	}
}

func TestMultiWriter_UsesBatchWhenSupported(t *testing.T) {
	br := &batchRecorder{}
	plain := &MockWriter{}
	mw := NewMultiWriter([]CycleWriter{br, plain}, nil)

	rows := []CycleRow{sampleRow(1), sampleRow(2)}
	if err := mw.WriteBatch(rows); err != nil {
		t.Fatalf("WriteBatch: %v", err)
	}
	if br.batches != 1 || len(br.rows) != 2 {
		t.Errorf("batch writer got batches=%d rows=%d", br.batches, len(br.rows))
	}
	if len(plain.Rows) != 2 {
		t.Errorf("plain writer got %d rows, want 2", len(plain.Rows))
	}
}
