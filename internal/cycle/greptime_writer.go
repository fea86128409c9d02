// GreptimeDB sink for cycle and event telemetry. The fcc_cycles and
// fcc_events tables are created by the server on first write.
package cycle

import (
	"context"
	"fmt"
	"log"
	"net"
	"strconv"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	greptime "github.com/GreptimeTeam/greptimedb-ingester-go"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table/types"
)

// greptimeClient is the slice of the ingester client the writer uses.
type greptimeClient interface {
	Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error)
}

// GreptimeDBWriter writes cycle telemetry to GreptimeDB via the ingester client.
type GreptimeDBWriter struct {
	client     greptimeClient
	cycleTable string
	eventTable string
}

// NewGreptimeDBWriter connects to a GreptimeDB endpoint given as "host" or
// "host:port" (gRPC port 4001 by default).
func NewGreptimeDBWriter(endpoint, database string) (*GreptimeDBWriter, error) {
	host, portStr, err := net.SplitHostPort(endpoint)
	if err != nil {
		host, portStr = endpoint, "4001"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("greptime endpoint %q: %w", endpoint, err)
	}

	cfg := greptime.NewConfig(host).WithPort(port).WithDatabase(database)
	client, err := greptime.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return &GreptimeDBWriter{
		client:     client,
		cycleTable: "fcc_cycles",
		eventTable: "fcc_events",
	}, nil
}

func (w *GreptimeDBWriter) cycleTableFor(rows []CycleRow) (*table.Table, error) {
	tbl, err := table.New(w.cycleTable)
	if err != nil {
		return nil, err
	}
	if err := tbl.AddTagColumn("run_id", types.STRING); err != nil {
		return nil, err
	}
	fields := []struct {
		name string
		typ  types.ColumnType
	}{
		{"tick", types.INT64},
		{"t_us", types.INT64},
		{"partition", types.STRING},
		{"state", types.STRING},
		{"vote_ok", types.BOOLEAN},
		{"actuated", types.BOOLEAN},
		{"elevon_l", types.FLOAT64},
		{"elevon_r", types.FLOAT64},
		{"latency_us", types.INT64},
		{"coherence", types.FLOAT64},
		{"latency_ok", types.BOOLEAN},
		{"violations", types.INT64},
	}
	for _, f := range fields {
		if err := tbl.AddFieldColumn(f.name, f.typ); err != nil {
			return nil, err
		}
	}
	if err := tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND); err != nil {
		return nil, err
	}

	for _, r := range rows {
		err := tbl.AddRow(r.RunID,
			int64(r.Tick), int64(r.TUs), r.Partition, r.State,
			r.VoteOK, r.Actuated, r.ElevonL, r.ElevonR,
			int64(r.LatencyUS), r.Coherence, r.LatencyOK, int64(r.Violations),
			r.Timestamp)
		if err != nil {
			return nil, err
		}
	}
	return tbl, nil
}

func (w *GreptimeDBWriter) eventTableFor(rows []EventRow) (*table.Table, error) {
	tbl, err := table.New(w.eventTable)
	if err != nil {
		return nil, err
	}
	if err := tbl.AddTagColumn("run_id", types.STRING); err != nil {
		return nil, err
	}
	fields := []struct {
		name string
		typ  types.ColumnType
	}{
		{"t_us", types.INT64},
		{"kind", types.STRING},
		{"detail", types.STRING},
		{"state", types.STRING},
	}
	for _, f := range fields {
		if err := tbl.AddFieldColumn(f.name, f.typ); err != nil {
			return nil, err
		}
	}
	if err := tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND); err != nil {
		return nil, err
	}

	for _, r := range rows {
		if err := tbl.AddRow(r.RunID, int64(r.TUs), r.Kind, r.Detail, r.State, r.Timestamp); err != nil {
			return nil, err
		}
	}
	return tbl, nil
}

// Write inserts a single cycle row.
func (w *GreptimeDBWriter) Write(row CycleRow) error {
	return w.WriteBatch([]CycleRow{row})
}

// WriteBatch inserts multiple cycle rows.
func (w *GreptimeDBWriter) WriteBatch(rows []CycleRow) error {
	if len(rows) == 0 {
		return nil
	}
	tbl, err := w.cycleTableFor(rows)
	if err != nil {
		return err
	}
	if _, err := w.client.Write(context.Background(), tbl); err != nil {
		log.Printf("[GreptimeDBWriter] Write failed: %v", err)
		return err
	}
	return nil
}

// WriteEvent inserts a single event row.
func (w *GreptimeDBWriter) WriteEvent(row EventRow) error {
	return w.WriteEvents([]EventRow{row})
}

// WriteEvents inserts multiple event rows.
func (w *GreptimeDBWriter) WriteEvents(rows []EventRow) error {
	if len(rows) == 0 {
		return nil
	}
	tbl, err := w.eventTableFor(rows)
	if err != nil {
		return err
	}
	if _, err := w.client.Write(context.Background(), tbl); err != nil {
		log.Printf("[GreptimeDBWriter] Write failed: %v", err)
		return err
	}
	return nil
}
