package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// State is the engine lifecycle state.
type State int

const (
	StateStopped State = iota
	StateRunning
	StatePaused
	StateError
)

// String returns the state name used in Status replies.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "Stopped"
	case StateRunning:
		return "Running"
	case StatePaused:
		return "Paused"
	case StateError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Engine owns the simulation clock and its lifecycle state. All methods
// are safe for concurrent use; command workers and the real-time stepping
// loop share one instance.
type Engine struct {
	mu       sync.RWMutex
	clock    *Clock
	state    State
	config   Config
	logger   *slog.Logger
	stepHook func()
}

// New creates a stopped engine.
func New(config Config, logger *slog.Logger) *Engine {
	return &Engine{
		clock:  NewClock(config),
		state:  StateStopped,
		config: config,
		logger: logger,
	}
}

// Start begins the simulation from the current simulation time.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.clock.Start()
	e.state = StateRunning
}

// Stop halts the simulation, preserving simulation time.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.clock.Stop()
	e.state = StateStopped
}

// Pause suspends the simulation without losing accumulated time.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.clock.Pause()
	e.state = StatePaused
}

// Resume continues a paused simulation.
func (e *Engine) Resume() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.clock.Resume()
	e.state = StateRunning
}

// Reset zeroes simulation time and returns the engine to Stopped.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.clock.Reset()
	e.clock.Stop()
	e.state = StateStopped
}

// Step advances the clock by at most one simulation step. Returns the
// step duration and whether a step was taken.
func (e *Engine) Step() (time.Duration, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	dt, stepped := e.clock.Advance()
	if stepped && e.stepHook != nil {
		e.stepHook()
	}
	return dt, stepped
}

// OnStep registers a hook invoked once per completed step. Must be set
// before the engine starts stepping.
func (e *Engine) OnStep(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stepHook = fn
}

// SimulationTimeNs returns the current simulation time in nanoseconds.
func (e *Engine) SimulationTimeNs() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.clock.SimulationTimeNs()
}

// TotalSteps returns the number of completed simulation steps.
func (e *Engine) TotalSteps() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.clock.TotalSteps()
}

// State returns the engine lifecycle state.
func (e *Engine) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// Config returns the simulation configuration. The configuration is
// immutable after construction.
func (e *Engine) Config() Config {
	return e.config
}

// Run drives the clock at the configured step rate until the context is
// cancelled. Only used in real-time mode; in manual mode the clock is
// advanced exclusively by Step commands. Steps are skipped while the
// engine is not Running, so Start/Pause/Stop commands gate the loop
// without restarting it.
func (e *Engine) Run(ctx context.Context) {
	tick := e.config.TimeStep()
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	e.logger.Info("Real-time stepping loop started",
		slog.Duration("tick", tick),
		slog.String("fidelity", e.config.Fidelity.String()),
	)

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("Real-time stepping loop stopped",
				slog.Uint64("total_steps", e.TotalSteps()),
			)
			return
		case <-ticker.C:
			// Drain the accumulator: a late tick can owe more than one step.
			for {
				if _, stepped := e.Step(); !stepped {
					break
				}
			}
		}
	}
}
