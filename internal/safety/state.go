package safety

// State is the global health state of one monitor instance. Failed is
// terminal: no operation leaves it short of constructing a new Monitor.
type State int

const (
	StateNormal State = iota
	StateDegraded
	StateFallback
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNormal:
		return "normal"
	case StateDegraded:
		return "degraded"
	case StateFallback:
		return "fallback"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Violation tags the hazard class a check detected.
type Violation int

const (
	ViolationNone Violation = iota
	ViolationTiming
	ViolationEnvelope
	ViolationResource
	ViolationMemory
	ViolationCommunication
)

func (v Violation) String() string {
	switch v {
	case ViolationNone:
		return "none"
	case ViolationTiming:
		return "timing"
	case ViolationEnvelope:
		return "envelope"
	case ViolationResource:
		return "resource"
	case ViolationMemory:
		return "memory"
	case ViolationCommunication:
		return "communication"
	}
	return "unknown"
}
