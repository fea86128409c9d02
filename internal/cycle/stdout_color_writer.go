// ColorStdoutWriter prints human-friendly, colorized cycle telemetry to STDOUT.
package cycle

import (
	"fmt"
	"io"
	"os"
)

const (
	colorReset   = "\x1b[0m"
	colorRed     = "\x1b[31m"
	colorGreen   = "\x1b[32m"
	colorYellow  = "\x1b[33m"
	colorBlue    = "\x1b[34m"
	colorMagenta = "\x1b[35m"
	colorCyan    = "\x1b[36m"
	colorGray    = "\x1b[90m"
)

// ColorStdoutWriter prints cycle rows using ANSI colors.
type ColorStdoutWriter struct {
	out io.Writer
}

// NewColorStdoutWriter creates a ColorStdoutWriter writing to os.Stdout.
func NewColorStdoutWriter() *ColorStdoutWriter {
	return &ColorStdoutWriter{out: os.Stdout}
}

func stateColor(state string) string {
	switch state {
	case "normal":
		return colorGreen
	case "degraded":
		return colorYellow
	default:
		return colorRed
	}
}

// Write outputs a single cycle row.
func (w *ColorStdoutWriter) Write(row CycleRow) error {
	voteColor := colorGreen
	voteLabel := "2oo3"
	if !row.VoteOK {
		voteColor = colorRed
		voteLabel = "MISMATCH"
	}
	actLabel := "held"
	actColor := colorGray
	if row.Actuated {
		actLabel = "actuated"
		actColor = colorCyan
	}
	_, err := fmt.Fprintf(w.out,
		"%s[t=%8d us]%s tick=%-6d %spart=%-14s%s %sstate=%-8s%s %svote=%s%s %s%s%s %sL=%+.4f R=%+.4f%s %slat=%dus coh=%.2f%s\n",
		colorGray, row.TUs, colorReset,
		row.Tick,
		colorBlue, row.Partition, colorReset,
		stateColor(row.State), row.State, colorReset,
		voteColor, voteLabel, colorReset,
		actColor, actLabel, colorReset,
		colorMagenta, row.ElevonL, row.ElevonR, colorReset,
		colorGray, row.LatencyUS, row.Coherence, colorReset)
	return err
}

// WriteBatch outputs multiple cycle rows.
func (w *ColorStdoutWriter) WriteBatch(rows []CycleRow) error {
	for _, r := range rows {
		if err := w.Write(r); err != nil {
			return err
		}
	}
	return nil
}

// WriteEvent highlights a safety event row.
func (w *ColorStdoutWriter) WriteEvent(row EventRow) error {
	_, err := fmt.Fprintf(w.out, "%s[t=%8d us]%s %sEVENT%s kind=%s state=%s detail=%q\n",
		colorGray, row.TUs, colorReset,
		colorRed, colorReset,
		row.Kind, row.State, row.Detail)
	return err
}

// WriteEvents outputs multiple safety event rows.
func (w *ColorStdoutWriter) WriteEvents(rows []EventRow) error {
	for _, r := range rows {
		if err := w.WriteEvent(r); err != nil {
			return err
		}
	}
	return nil
}
