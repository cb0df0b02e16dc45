// Package engine implements the simulation engine: a fixed-timestep
// simulation clock and the lifecycle state machine driven by commands.
package engine
