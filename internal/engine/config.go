package engine

import (
	"fmt"
	"strings"
	"time"
)

// FidelityLevel selects a preset simulation step rate and entity cap.
type FidelityLevel int

const (
	FidelityLow FidelityLevel = iota
	FidelityMedium
	FidelityHigh
	FidelityUltra
)

// StepsPerSecond returns the step rate for a fidelity level.
func (f FidelityLevel) StepsPerSecond() uint32 {
	switch f {
	case FidelityLow:
		return 10
	case FidelityMedium:
		return 30
	case FidelityHigh:
		return 60
	case FidelityUltra:
		return 120
	default:
		return 30
	}
}

// MaxEntities returns the entity ceiling for a fidelity level.
func (f FidelityLevel) MaxEntities() int {
	switch f {
	case FidelityLow:
		return 100
	case FidelityMedium:
		return 1000
	case FidelityHigh:
		return 10000
	case FidelityUltra:
		return 50000
	default:
		return 1000
	}
}

// String returns the canonical lowercase name.
func (f FidelityLevel) String() string {
	switch f {
	case FidelityLow:
		return "low"
	case FidelityMedium:
		return "medium"
	case FidelityHigh:
		return "high"
	case FidelityUltra:
		return "ultra"
	default:
		return fmt.Sprintf("unknown(%d)", int(f))
	}
}

// ParseFidelity converts a configuration string to a fidelity level.
func ParseFidelity(s string) (FidelityLevel, error) {
	switch strings.ToLower(s) {
	case "low":
		return FidelityLow, nil
	case "medium":
		return FidelityMedium, nil
	case "high":
		return FidelityHigh, nil
	case "ultra":
		return FidelityUltra, nil
	default:
		return FidelityMedium, fmt.Errorf("invalid fidelity %q: valid values are low, medium, high, ultra", s)
	}
}

// Config holds the simulation timing parameters.
type Config struct {
	TargetStepsPerSecond     uint32
	SimulationTimeMultiplier float64
	Fidelity                 FidelityLevel
	RealTimeMode             bool
}

// DefaultConfig returns the default simulation configuration: medium
// fidelity at 60 steps per second, unscaled time, real-time stepping on.
func DefaultConfig() Config {
	return Config{
		TargetStepsPerSecond:     60,
		SimulationTimeMultiplier: 1.0,
		Fidelity:                 FidelityMedium,
		RealTimeMode:             true,
	}
}

// WithFidelity sets the fidelity level and its preset step rate.
func (c Config) WithFidelity(f FidelityLevel) Config {
	c.Fidelity = f
	c.TargetStepsPerSecond = f.StepsPerSecond()
	return c
}

// TimeStep returns the duration of one simulation step.
func (c Config) TimeStep() time.Duration {
	return time.Duration(uint64(time.Second) / uint64(c.TargetStepsPerSecond))
}
