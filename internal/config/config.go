// YAML config loader with CUE validation integration
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// PartitionSpec defines one slot of the major frame.
type PartitionSpec struct {
	Name       string `yaml:"name"`
	DurationUS uint64 `yaml:"duration_us"`
}

// EnvelopeSpec bounds the flight envelope for the envelope monitor.
type EnvelopeSpec struct {
	AoAMinDeg      float64 `yaml:"aoa_min_deg"`
	AoAMaxDeg      float64 `yaml:"aoa_max_deg"`
	TASMinMPS      float64 `yaml:"tas_min_mps"`
	TASMaxMPS      float64 `yaml:"tas_max_mps"`
	AltMinM        float64 `yaml:"alt_min_m"`
	AltMaxM        float64 `yaml:"alt_max_m"`
	LoadFactorMinG float64 `yaml:"load_factor_min_g"`
	LoadFactorMaxG float64 `yaml:"load_factor_max_g"`
}

// MonitorsSpec toggles and tunes the built-in safety monitors.
type MonitorsSpec struct {
	TimingEnabled     bool         `yaml:"timing_enabled"`
	TimingToleranceUS uint64       `yaml:"timing_tolerance_us"`
	EnvelopeEnabled   bool         `yaml:"envelope_enabled"`
	Envelope          EnvelopeSpec `yaml:"envelope"`
	ResourceEnabled   bool         `yaml:"resource_enabled"`
	MaxGoroutines     int          `yaml:"max_goroutines"`
	MemoryEnabled     bool         `yaml:"memory_enabled"`
	MaxHeapBytes      uint64       `yaml:"max_heap_bytes"`
}

// KernelConfig is the root configuration for one kernel instance.
type KernelConfig struct {
	MajorFrameUS  uint64          `yaml:"major_frame_us"`
	JitterBoundUS uint64          `yaml:"jitter_bound_us"`
	TickPeriodUS  uint64          `yaml:"tick_period_us"`
	VoteEpsilon   float64         `yaml:"vote_epsilon"`
	SubsystemCode uint32          `yaml:"subsystem_code"`
	PitchGain     float64         `yaml:"pitch_gain"`
	MaxLatencyUS  uint32          `yaml:"max_latency_us"`
	Partitions    []PartitionSpec `yaml:"partitions"`
	Monitors      MonitorsSpec    `yaml:"monitors"`
}

// Load loads YAML config, validates it against a CUE schema, and applies
// defaults for unset tunables.
func Load(configPath, cueSchemaPath string) (*KernelConfig, error) {
	if err := ValidateWithCue(configPath, cueSchemaPath); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}
	var cfg KernelConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.check(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *KernelConfig) applyDefaults() {
	if c.MajorFrameUS == 0 {
		c.MajorFrameUS = 1_000_000
	}
	if c.JitterBoundUS == 0 {
		c.JitterBoundUS = 50
	}
	if c.TickPeriodUS == 0 {
		c.TickPeriodUS = 1000
	}
	if c.VoteEpsilon == 0 {
		c.VoteEpsilon = 1e-4
	}
	if c.SubsystemCode == 0 {
		c.SubsystemCode = 0x27
	}
	if c.PitchGain == 0 {
		c.PitchGain = 0.8
	}
	if c.MaxLatencyUS == 0 {
		c.MaxLatencyUS = 200
	}
	if c.Monitors.TimingToleranceUS == 0 {
		c.Monitors.TimingToleranceUS = 50
	}
	if c.Monitors.MaxGoroutines == 0 {
		c.Monitors.MaxGoroutines = 64
	}
	if c.Monitors.MaxHeapBytes == 0 {
		c.Monitors.MaxHeapBytes = 256 << 20
	}
	if c.Monitors.Envelope == (EnvelopeSpec{}) {
		c.Monitors.Envelope = EnvelopeSpec{
			AoAMinDeg: -10, AoAMaxDeg: 20,
			TASMinMPS: 60, TASMaxMPS: 350,
			AltMinM: 0, AltMaxM: 18000,
			LoadFactorMinG: -1, LoadFactorMaxG: 2.5,
		}
	}
	if len(c.Partitions) == 0 {
		quarter := c.MajorFrameUS / 4
		c.Partitions = []PartitionSpec{
			{Name: "kernel", DurationUS: quarter},
			{Name: "flight-control", DurationUS: quarter},
			{Name: "navigation", DurationUS: quarter},
			{Name: "communication", DurationUS: quarter},
		}
	}
}

// check enforces cross-field invariants the CUE schema cannot express
// against concrete values.
func (c *KernelConfig) check() error {
	var sum uint64
	for _, p := range c.Partitions {
		if p.DurationUS == 0 {
			return fmt.Errorf("config: partition %q has zero duration", p.Name)
		}
		sum += p.DurationUS
	}
	if sum != c.MajorFrameUS {
		return fmt.Errorf("config: partition durations sum to %d us, major frame is %d us", sum, c.MajorFrameUS)
	}
	return nil
}
