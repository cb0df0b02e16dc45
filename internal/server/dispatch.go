package server

import (
	"errors"
	"net"
	"sync/atomic"
)

// Admission errors. Both mean the datagram is dropped; UDP senders own
// retry decisions.
var (
	// ErrBackpressure is returned when every admission slot is occupied.
	// Policy is drop-newest: in-flight work is never evicted.
	ErrBackpressure = errors.New("concurrency ceiling reached")

	// ErrRateLimited is returned when the sender exceeded its per-source
	// share, checked before the global ceiling.
	ErrRateLimited = errors.New("per-source rate limit exceeded")

	// ErrDraining is returned once shutdown has begun.
	ErrDraining = errors.New("server is draining")
)

// Dispatcher admits datagrams for processing under a fixed concurrency
// ceiling. Slots are a counting resource: the number of live slots never
// exceeds the ceiling, which bounds memory and goroutine count under
// flood conditions.
type Dispatcher struct {
	slots    chan struct{}
	limiter  *SourceLimiter // nil when per-source limiting is disabled
	draining atomic.Bool
}

// Slot is the token for one admitted datagram. It is created on admission
// and must be released exactly when processing finishes, whether by
// success, error, or timeout. Release is idempotent so the timeout path
// and a late handler cannot double-free.
type Slot struct {
	d        *Dispatcher
	released atomic.Bool
}

// NewDispatcher creates a dispatcher with the given concurrency ceiling
// and optional per-source limiter.
func NewDispatcher(ceiling int, limiter *SourceLimiter) *Dispatcher {
	return &Dispatcher{
		slots:   make(chan struct{}, ceiling),
		limiter: limiter,
	}
}

// Admit attempts to claim a slot for a datagram from addr. It never
// blocks: when the ceiling is reached the newest datagram is refused with
// ErrBackpressure rather than evicting work already in flight.
func (d *Dispatcher) Admit(addr *net.UDPAddr) (*Slot, error) {
	if d.draining.Load() {
		return nil, ErrDraining
	}

	if d.limiter != nil && !d.limiter.Allow(addr) {
		return nil, ErrRateLimited
	}

	select {
	case d.slots <- struct{}{}:
		return &Slot{d: d}, nil
	default:
		return nil, ErrBackpressure
	}
}

// Release frees the slot. Safe to call more than once; only the first
// call returns the token.
func (s *Slot) Release() {
	if s.released.CompareAndSwap(false, true) {
		<-s.d.slots
	}
}

// InFlight returns the number of live slots.
func (d *Dispatcher) InFlight() int {
	return len(d.slots)
}

// Ceiling returns the configured concurrency ceiling.
func (d *Dispatcher) Ceiling() int {
	return cap(d.slots)
}

// CloseIntake permanently stops admissions. Existing slots drain normally.
func (d *Dispatcher) CloseIntake() {
	d.draining.Store(true)
}
