// Hardware abstraction for sensors, actuators, and the monotonic clock.
package hal

// SensorSample is one perception frame from the air-data and inertial
// sensors plus the pilot command inputs.
type SensorSample struct {
	AoADeg      float64 `json:"aoa_deg"`
	TASMPS      float64 `json:"tas_mps"`
	AltM        float64 `json:"alt_m"`
	LoadFactorG float64 `json:"load_factor_g"`
	RollCmd     float64 `json:"roll_cmd"`
	PitchCmd    float64 `json:"pitch_cmd"`
	YawCmd      float64 `json:"yaw_cmd"`
}

// HAL is the hardware boundary the kernel drives. Implementations must be
// non-blocking or bounded-latency; the cyclic executive never waits inside a
// tick.
type HAL interface {
	// ReadSensors returns the sensor frame for the given tick time.
	ReadSensors(tickUS uint64) (SensorSample, error)
	// WriteActuators commits a voted command payload to the surfaces.
	WriteActuators(payload []byte, tickUS uint64) error
	// NowUS returns monotonic microseconds since an epoch fixed at first use.
	NowUS() uint64
}
