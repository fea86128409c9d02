// Writer implementation printing cycle telemetry to STDOUT
package cycle

import (
	"encoding/json"
	"fmt"
)

// StdoutWriter prints cycle rows to STDOUT as JSON lines.
type StdoutWriter struct{}

// Write outputs a single cycle row.
func (w *StdoutWriter) Write(row CycleRow) error {
	data, _ := json.Marshal(row)
	fmt.Println(string(data))
	return nil
}

// WriteBatch outputs multiple cycle rows.
func (w *StdoutWriter) WriteBatch(rows []CycleRow) error {
	for _, r := range rows {
		_ = w.Write(r)
	}
	return nil
}

// WriteEvent prints a safety event row to STDOUT.
func (w *StdoutWriter) WriteEvent(row EventRow) error {
	data, _ := json.Marshal(row)
	fmt.Println(string(data))
	return nil
}

// WriteEvents prints multiple safety event rows.
func (w *StdoutWriter) WriteEvents(rows []EventRow) error {
	for _, r := range rows {
		_ = w.WriteEvent(r)
	}
	return nil
}
