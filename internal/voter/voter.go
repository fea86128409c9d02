// 2-of-3 output voting for redundant control channels.
package voter

import (
	"errors"
	"math"
	"sync"
)

// ErrMismatch is returned when fewer than two channels agree.
var ErrMismatch = errors.New("voter: no 2-of-3 consensus")

// ControlOutput is one candidate command set for the control surfaces.
type ControlOutput struct {
	ElevonL float64 `json:"elevon_l"`
	ElevonR float64 `json:"elevon_r"`
}

// Channel identifies which redundant lane produced a candidate.
type Channel int

const (
	ChannelCPU Channel = iota
	ChannelFPGA
	ChannelDSP
)

func (c Channel) String() string {
	switch c {
	case ChannelCPU:
		return "cpu"
	case ChannelFPGA:
		return "fpga"
	case ChannelDSP:
		return "dsp"
	}
	return "unknown"
}

// Voter holds the last consensus output per subsystem code (ATA chapter).
// A mismatch never overwrites a retained value.
type Voter struct {
	mu       sync.Mutex
	retained map[uint32]ControlOutput
}

// New returns an empty Voter.
func New() *Voter {
	return &Voter{retained: make(map[uint32]ControlOutput)}
}

func equalWithin(a, b ControlOutput, eps float64) bool {
	return math.Abs(a.ElevonL-b.ElevonL) <= eps &&
		math.Abs(a.ElevonR-b.ElevonR) <= eps
}

// Vote compares the three candidates pairwise with an absolute tolerance and
// returns the majority value for the given subsystem. Selection precedence is
// fixed: a wins if it agrees with b or c, otherwise b (which must then agree
// with c). The retained consensus for the subsystem is updated only on success.
func (v *Voter) Vote(subsystem uint32, a, b, c ControlOutput, eps float64) (ControlOutput, error) {
	ab := equalWithin(a, b, eps)
	ac := equalWithin(a, c, eps)
	bc := equalWithin(b, c, eps)

	var out ControlOutput
	switch {
	case ab || ac:
		out = a
	case bc:
		out = b
	default:
		return ControlOutput{}, ErrMismatch
	}

	v.mu.Lock()
	v.retained[subsystem] = out
	v.mu.Unlock()
	return out, nil
}

// Consensus returns the last retained output for the subsystem, if any.
func (v *Voter) Consensus(subsystem uint32) (ControlOutput, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	out, ok := v.retained[subsystem]
	return out, ok
}
