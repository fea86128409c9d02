package hal

import (
	"math"
	"sync"
	"time"
)

// Sim is a simulated HAL producing smooth sinusoidal flight data. Actuator
// writes are retained for inspection by harnesses and tests.
type Sim struct {
	mu     sync.Mutex
	epoch  time.Time
	writes []ActuatorWrite
}

// ActuatorWrite records one committed actuator payload.
type ActuatorWrite struct {
	Payload []byte
	TickUS  uint64
}

// NewSim returns a simulated HAL. The monotonic epoch is fixed lazily on the
// first NowUS call.
func NewSim() *Sim {
	return &Sim{}
}

// ReadSensors synthesizes the sensor frame for a tick. The waveforms keep the
// airframe comfortably inside the flight envelope.
func (s *Sim) ReadSensors(tickUS uint64) (SensorSample, error) {
	t := float64(tickUS) / 1e6
	return SensorSample{
		AoADeg:      5.0 + 2.0*math.Sin(2*math.Pi*0.2*t),
		TASMPS:      220.0 + 5.0*math.Sin(2*math.Pi*0.1*t),
		AltM:        10000.0 + 150.0*math.Sin(2*math.Pi*0.05*t),
		LoadFactorG: 1.0 + 0.2*math.Sin(2*math.Pi*0.3*t),
		RollCmd:     0.5 * math.Sin(2*math.Pi*0.5*t),
		PitchCmd:    0.3 * math.Sin(2*math.Pi*0.4*t),
		YawCmd:      0.2 * math.Sin(2*math.Pi*0.3*t),
	}, nil
}

// WriteActuators records the payload. Nothing here blocks.
func (s *Sim) WriteActuators(payload []byte, tickUS uint64) error {
	cp := make([]byte, len(payload))
	copy(cp, payload)
	s.mu.Lock()
	s.writes = append(s.writes, ActuatorWrite{Payload: cp, TickUS: tickUS})
	s.mu.Unlock()
	return nil
}

// NowUS returns monotonic microseconds since the first call.
func (s *Sim) NowUS() uint64 {
	s.mu.Lock()
	if s.epoch.IsZero() {
		s.epoch = time.Now()
	}
	epoch := s.epoch
	s.mu.Unlock()
	return uint64(time.Since(epoch).Microseconds())
}

// Writes returns a copy of all recorded actuator writes.
func (s *Sim) Writes() []ActuatorWrite {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ActuatorWrite, len(s.writes))
	copy(out, s.writes)
	return out
}
