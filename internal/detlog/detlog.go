// Deterministic append-only logging. Every record is durable before Append
// returns, so a crash loses at most the record in flight.
package detlog

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
)

// Record is one appended entry. Payload is raw bytes; the JSON encoding
// base64s it on the wire.
type Record struct {
	RunID   string `json:"run_id"`
	Tag     string `json:"tag"`
	TUs     uint64 `json:"t_us"`
	Len     int    `json:"len"`
	Payload []byte `json:"payload"`
	Sig     []byte `json:"sig,omitempty"`
}

// Writer appends records to a single log file, one JSON line per record,
// synced before each Append returns.
type Writer struct {
	f     *os.File
	enc   *json.Encoder
	runID string
}

// NewWriter creates (truncating) the log file at path. Each writer gets a
// fresh run ID stamped on every record.
func NewWriter(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("detlog: %w", err)
	}
	return &Writer{f: f, enc: json.NewEncoder(f), runID: uuid.NewString()}, nil
}

// RunID returns the run identity stamped on this writer's records.
func (w *Writer) RunID() string { return w.runID }

// Append writes one record and flushes it to stable storage.
func (w *Writer) Append(tag string, tsUS uint64, payload, sig []byte) error {
	rec := Record{
		RunID:   w.runID,
		Tag:     tag,
		TUs:     tsUS,
		Len:     len(payload),
		Payload: payload,
		Sig:     sig,
	}
	if err := w.enc.Encode(rec); err != nil {
		return fmt.Errorf("detlog: encode: %w", err)
	}
	if err := w.f.Sync(); err != nil {
		return fmt.Errorf("detlog: sync: %w", err)
	}
	return nil
}

// Close closes the underlying file.
func (w *Writer) Close() error {
	return w.f.Close()
}
