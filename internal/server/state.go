package server

import "sync/atomic"

// Phase is the server lifecycle phase. Transitions are one-directional:
// Running -> Draining -> Stopped.
type Phase int32

const (
	PhaseRunning Phase = iota
	PhaseDraining
	PhaseStopped
)

// String returns the phase name used in logs and telemetry.
func (p Phase) String() string {
	switch p {
	case PhaseRunning:
		return "running"
	case PhaseDraining:
		return "draining"
	case PhaseStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// lifecycle holds the current phase and enforces forward-only transitions.
type lifecycle struct {
	phase atomic.Int32
}

// Phase returns the current phase.
func (l *lifecycle) Phase() Phase {
	return Phase(l.phase.Load())
}

// advance moves to the given phase if it is strictly later than the
// current one. Returns false if the transition already happened or would
// go backwards, so Stop is safe to call more than once.
func (l *lifecycle) advance(to Phase) bool {
	for {
		cur := l.phase.Load()
		if int32(to) <= cur {
			return false
		}
		if l.phase.CompareAndSwap(cur, int32(to)) {
			return true
		}
	}
}
