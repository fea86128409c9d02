// Advisory network/coherence diagnostics. Nothing here feeds the safety
// monitor; a failed latency check is telemetry, not a violation.
package diag

// Metrics is one advisory measurement per cycle.
type Metrics struct {
	LatencyUS uint32  `json:"latency_us"`
	JitterUS  uint32  `json:"jitter_us"`
	Coherence float64 `json:"coherence"`
}

// Probe produces synthetic latency/jitter measurements and a coherence
// scalar from a fixed-seed LCG, so runs are exactly repeatable.
type Probe struct {
	state        uint32
	maxLatencyUS uint32
}

// NewProbe returns a probe with the given advisory latency ceiling.
func NewProbe(maxLatencyUS uint32) *Probe {
	return &Probe{state: 123456789, maxLatencyUS: maxLatencyUS}
}

func (p *Probe) next() uint32 {
	p.state = 1103515245*p.state + 12345
	return (p.state >> 16) & 0x7fff
}

// Measure returns the metrics for one cycle.
func (p *Probe) Measure() Metrics {
	r1 := p.next()
	r2 := p.next()
	lat := 150 + r1%40
	jit := 1 + r2%3
	// Coherence decays linearly with latency over the advisory window.
	coh := 1.0
	if p.maxLatencyUS > 0 {
		coh = 1.0 - float64(lat)/float64(2*p.maxLatencyUS)
		if coh < 0 {
			coh = 0
		}
	}
	return Metrics{LatencyUS: lat, JitterUS: jit, Coherence: coh}
}

// WithinBound reports the advisory latency check for a measurement.
func (p *Probe) WithinBound(m Metrics) bool {
	return p.maxLatencyUS == 0 || m.LatencyUS <= p.maxLatencyUS
}
