// Control-law channels feeding the redundant voter. Each lane is written
// independently; they must agree within the vote tolerance, not bit-for-bit.
package ctl

import (
	"fcc-kernel/internal/hal"
	"fcc-kernel/internal/voter"
)

// Law maps one sensor frame to a candidate control output.
type Law func(hal.SensorSample) voter.ControlOutput

// DefaultPitchGain is the elevon deflection per unit pitch command.
const DefaultPitchGain = 0.8

// CPULane is the primary lane: direct gain multiply.
func CPULane(gain float64) Law {
	return func(s hal.SensorSample) voter.ControlOutput {
		cmd := s.PitchCmd * gain
		return voter.ControlOutput{ElevonL: cmd, ElevonR: cmd}
	}
}

// FPGALane mirrors the fixed-point lane: the command is scaled through an
// integer-friendly factorization.
func FPGALane(gain float64) Law {
	return func(s hal.SensorSample) voter.ControlOutput {
		half := s.PitchCmd * (gain / 2)
		return voter.ControlOutput{ElevonL: half + half, ElevonR: half + half}
	}
}

// DSPLane computes per-surface deflections separately, as the DSP firmware
// does.
func DSPLane(gain float64) Law {
	return func(s hal.SensorSample) voter.ControlOutput {
		return voter.ControlOutput{
			ElevonL: gain * s.PitchCmd,
			ElevonR: gain * s.PitchCmd,
		}
	}
}
