// Cycle telemetry rows and writer contracts.
package cycle

import "time"

// CycleRow is one control tick's telemetry record.
type CycleRow struct {
	RunID      string    `json:"run_id"`    // TAG
	Tick       uint64    `json:"tick"`      // FIELD
	TUs        uint64    `json:"t_us"`      // FIELD
	Partition  string    `json:"partition"` // FIELD
	State      string    `json:"state"`     // FIELD
	VoteOK     bool      `json:"vote_ok"`   // FIELD
	Actuated   bool      `json:"actuated"`  // FIELD
	ElevonL    float64   `json:"elevon_l"`  // FIELD
	ElevonR    float64   `json:"elevon_r"`  // FIELD
	LatencyUS  uint32    `json:"latency_us"`
	Coherence  float64   `json:"coherence"`
	LatencyOK  bool      `json:"latency_ok"`
	Violations uint32    `json:"violations"`
	Timestamp  time.Time `json:"ts"` // TIME INDEX
}

// EventRow records one safety-relevant fault with its timestamp and kind,
// emitted before the related state transition completes.
type EventRow struct {
	RunID     string    `json:"run_id"` // TAG
	TUs       uint64    `json:"t_us"`   // FIELD
	Kind      string    `json:"kind"`   // FIELD
	Detail    string    `json:"detail"` // FIELD
	State     string    `json:"state"`  // FIELD
	Timestamp time.Time `json:"ts"`     // TIME INDEX
}

// CycleWriter is an interface to support different output writers.
type CycleWriter interface {
	Write(CycleRow) error
}

// EventWriter handles safety event rows.
type EventWriter interface {
	WriteEvent(EventRow) error
}

// Optional: writers can also support batch mode.
type batchCycleWriter interface {
	WriteBatch([]CycleRow) error
}

// Optional: event writers may support batch mode.
type batchEventWriter interface {
	WriteEvents([]EventRow) error
}
