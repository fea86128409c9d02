package cycle

import (
	"context"
	"testing"
	"time"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
)

type mockGreptimeClient struct {
	table *table.Table
}

func (m *mockGreptimeClient) Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error) {
	if len(tables) > 0 {
		m.table = tables[0]
	}
	return &gpb.GreptimeResponse{}, nil
}

func TestGreptimeWriterCycles(t *testing.T) {
	m := &mockGreptimeClient{}
	w := &GreptimeDBWriter{client: m, cycleTable: "fcc_cycles"}

	if err := w.WriteBatch([]CycleRow{sampleRow(7)}); err != nil {
		t.Fatalf("WriteBatch: %v", err)
	}
	if m.table == nil {
		t.Fatalf("expected table to be captured")
	}

	schema := m.table.GetRows().Schema
	if len(schema) != 14 {
		t.Fatalf("unexpected schema length: %d", len(schema))
	}
	if schema[0].Datatype != gpb.ColumnDataType_STRING {
		t.Fatalf("run_id column type = %v, want %v", schema[0].Datatype, gpb.ColumnDataType_STRING)
	}
	if schema[13].Datatype != gpb.ColumnDataType_TIMESTAMP_MILLISECOND {
		t.Fatalf("ts column type = %v, want %v", schema[13].Datatype, gpb.ColumnDataType_TIMESTAMP_MILLISECOND)
	}

	values := m.table.GetRows().Rows[0].Values
	if got := values[0].GetStringValue(); got != "run-test" {
		t.Fatalf("run_id = %s, want run-test", got)
	}
	if got := values[1].GetI64Value(); got != 7 {
		t.Fatalf("tick = %d, want 7", got)
	}
	if got := values[3].GetStringValue(); got != "flight-control" {
		t.Fatalf("partition = %s, want flight-control", got)
	}
}

func TestGreptimeWriterEvents(t *testing.T) {
	m := &mockGreptimeClient{}
	w := &GreptimeDBWriter{client: m, eventTable: "fcc_events"}

	rows := []EventRow{{
		RunID:     "run-test",
		TUs:       42_000,
		Kind:      "state_change",
		Detail:    "normal -> degraded",
		State:     "degraded",
		Timestamp: time.Unix(0, 0).UTC(),
	}}
	if err := w.WriteEvents(rows); err != nil {
		t.Fatalf("WriteEvents: %v", err)
	}
	if m.table == nil {
		t.Fatalf("expected table to be captured")
	}

	schema := m.table.GetRows().Schema
	if len(schema) != 6 {
		t.Fatalf("unexpected schema length: %d", len(schema))
	}
	values := m.table.GetRows().Rows[0].Values
	if got := values[2].GetStringValue(); got != "state_change" {
		t.Fatalf("kind = %s, want state_change", got)
	}
	if got := values[4].GetStringValue(); got != "degraded" {
		t.Fatalf("state = %s, want degraded", got)
	}
}
