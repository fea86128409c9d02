package safety

import "runtime"

// TimingCheck verifies the tick cadence: consecutive timestamps must land
// within toleranceUS of the nominal period. The first call only seeds the
// reference.
func TimingCheck(periodUS, toleranceUS uint64) CheckFunc {
	var lastUS uint64
	seeded := false
	return func(tsUS uint64) Violation {
		if !seeded {
			seeded = true
			lastUS = tsUS
			return ViolationNone
		}
		delta := tsUS - lastUS
		lastUS = tsUS
		var off uint64
		if delta > periodUS {
			off = delta - periodUS
		} else {
			off = periodUS - delta
		}
		if off > toleranceUS {
			return ViolationTiming
		}
		return ViolationNone
	}
}

// EnvelopeLimits bounds the flight envelope. Zero value is not usable; use
// DefaultEnvelopeLimits or configuration.
type EnvelopeLimits struct {
	AoAMinDeg      float64
	AoAMaxDeg      float64
	TASMinMPS      float64
	TASMaxMPS      float64
	AltMinM        float64
	AltMaxM        float64
	LoadFactorMinG float64
	LoadFactorMaxG float64
}

// DefaultEnvelopeLimits are typical transport-aircraft bounds.
func DefaultEnvelopeLimits() EnvelopeLimits {
	return EnvelopeLimits{
		AoAMinDeg:      -10.0,
		AoAMaxDeg:      20.0,
		TASMinMPS:      60.0,
		TASMaxMPS:      350.0,
		AltMinM:        0.0,
		AltMaxM:        18000.0,
		LoadFactorMinG: -1.0,
		LoadFactorMaxG: 2.5,
	}
}

// EnvelopeState is the airframe state the envelope check evaluates.
type EnvelopeState struct {
	AoADeg      float64
	TASMPS      float64
	AltM        float64
	LoadFactorG float64
}

// Inside reports whether the state sits within the limits.
func (l EnvelopeLimits) Inside(s EnvelopeState) bool {
	if s.AoADeg < l.AoAMinDeg || s.AoADeg > l.AoAMaxDeg {
		return false
	}
	if s.TASMPS < l.TASMinMPS || s.TASMPS > l.TASMaxMPS {
		return false
	}
	if s.AltM < l.AltMinM || s.AltM > l.AltMaxM {
		return false
	}
	if s.LoadFactorG < l.LoadFactorMinG || s.LoadFactorG > l.LoadFactorMaxG {
		return false
	}
	return true
}

// EnvelopeCheck evaluates the latest airframe state supplied by source
// against the limits.
func EnvelopeCheck(limits EnvelopeLimits, source func() EnvelopeState) CheckFunc {
	return func(uint64) Violation {
		if !limits.Inside(source()) {
			return ViolationEnvelope
		}
		return ViolationNone
	}
}

// MemoryCheck flags heap growth beyond maxHeapBytes.
func MemoryCheck(maxHeapBytes uint64) CheckFunc {
	return func(uint64) Violation {
		var ms runtime.MemStats
		runtime.ReadMemStats(&ms)
		if ms.HeapAlloc > maxHeapBytes {
			return ViolationMemory
		}
		return ViolationNone
	}
}

// ResourceCheck flags goroutine counts beyond maxGoroutines, a proxy for a
// partition exceeding its execution-resource budget.
func ResourceCheck(maxGoroutines int) CheckFunc {
	return func(uint64) Violation {
		if runtime.NumGoroutine() > maxGoroutines {
			return ViolationResource
		}
		return ViolationNone
	}
}
