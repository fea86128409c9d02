package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"fcc-kernel/internal/cycle"
	"fcc-kernel/internal/detlog"
)

var (
	replayInput string
	replaySpeed float64
	replayColor bool
	replayDet   bool
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a recorded cycle or det log file",
	Long:  "replay feeds cycle rows from a JSONL log back through a writer at a speed multiplier, or dumps a deterministic actuation log with --det.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if replayInput == "" {
			return fmt.Errorf("input file required")
		}
		if replayDet {
			enc := json.NewEncoder(cmd.OutOrStdout())
			return detlog.ReadFile(replayInput, func(rec detlog.Record) error {
				return enc.Encode(rec)
			})
		}
		var writer cycle.CycleWriter
		if replayColor {
			writer = cycle.NewColorStdoutWriter()
		} else {
			writer = &cycle.StdoutWriter{}
		}
		return cycle.ReplayLogFile(replayInput, writer, replaySpeed)
	},
}

func init() {
	replayCmd.Flags().StringVar(&replayInput, "input", "", "Path to cycle or det log file")
	replayCmd.Flags().Float64Var(&replaySpeed, "speed", 1.0, "Playback speed multiplier")
	replayCmd.Flags().BoolVar(&replayColor, "color", false, "Human-readable colored output")
	replayCmd.Flags().BoolVar(&replayDet, "det", false, "Input is a deterministic actuation log")
	replayCmd.MarkFlagRequired("input")
}
