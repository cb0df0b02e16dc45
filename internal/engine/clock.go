package engine

import (
	"time"
)

// ClockState is the run state of the simulation clock.
type ClockState int

const (
	ClockStopped ClockState = iota
	ClockRunning
	ClockPaused
)

// String returns a human-readable clock state name.
func (s ClockState) String() string {
	switch s {
	case ClockStopped:
		return "Stopped"
	case ClockRunning:
		return "Running"
	case ClockPaused:
		return "Paused"
	default:
		return "Unknown"
	}
}

// Clock is a fixed-timestep simulation clock. Wall time since the last
// step is scaled by the time multiplier and collected into an accumulator;
// each time the accumulator covers one step the simulation time advances
// by exactly one step. The clock is not safe for concurrent use; the
// engine serializes access.
type Clock struct {
	config        Config
	state         ClockState
	simTimeNs     uint64
	wallStart     time.Time
	lastStep      time.Time
	totalSteps    uint64
	accumulatorNs uint64

	// now is swapped in tests to drive the clock deterministically.
	now func() time.Time
}

// NewClock creates a stopped clock with zero simulation time.
func NewClock(config Config) *Clock {
	c := &Clock{
		config: config,
		state:  ClockStopped,
		now:    time.Now,
	}
	t := c.now()
	c.wallStart = t
	c.lastStep = t
	return c
}

// Start begins running the clock from the current wall instant.
func (c *Clock) Start() {
	c.state = ClockRunning
	t := c.now()
	c.wallStart = t
	c.lastStep = t
}

// Pause suspends the clock. Wall time elapsed while paused is not
// accumulated because Resume rebases the last-step instant.
func (c *Clock) Pause() {
	c.state = ClockPaused
}

// Resume continues a paused clock.
func (c *Clock) Resume() {
	c.state = ClockRunning
	c.lastStep = c.now()
}

// Stop halts the clock. Simulation time is preserved until Reset.
func (c *Clock) Stop() {
	c.state = ClockStopped
}

// Reset zeroes simulation time, step count, and the accumulator without
// changing the configured rate or the run state.
func (c *Clock) Reset() {
	c.simTimeNs = 0
	c.totalSteps = 0
	c.accumulatorNs = 0
	c.lastStep = c.now()
}

// Advance collects wall time into the accumulator and, if at least one
// full step has accumulated, advances simulation time by exactly one step
// and returns its duration. Returns zero and false when the clock is not
// running or not enough time has accumulated.
func (c *Clock) Advance() (time.Duration, bool) {
	if c.state != ClockRunning {
		return 0, false
	}

	t := c.now()
	elapsed := t.Sub(c.lastStep)
	c.lastStep = t

	stepNs := uint64(time.Second) / uint64(c.config.TargetStepsPerSecond)
	scaled := uint64(float64(elapsed.Nanoseconds()) * c.config.SimulationTimeMultiplier)
	c.accumulatorNs += scaled

	if c.accumulatorNs < stepNs {
		return 0, false
	}

	c.accumulatorNs -= stepNs
	c.simTimeNs += stepNs
	c.totalSteps++
	return time.Duration(stepNs), true
}

// SimulationTimeNs returns the accumulated simulation time in nanoseconds.
func (c *Clock) SimulationTimeNs() uint64 {
	return c.simTimeNs
}

// TotalSteps returns the number of completed steps.
func (c *Clock) TotalSteps() uint64 {
	return c.totalSteps
}

// State returns the clock run state.
func (c *Clock) State() ClockState {
	return c.state
}

// Tick returns the configured step duration.
func (c *Clock) Tick() time.Duration {
	return c.config.TimeStep()
}
