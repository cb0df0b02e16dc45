package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jdharrison/worldline/internal/engine"
)

// Config represents the complete service configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	HTTP       HTTPConfig       `yaml:"http"`
	Simulation SimulationConfig `yaml:"simulation"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig contains UDP server configuration.
type ServerConfig struct {
	UDPPort         int             `yaml:"udp_port"`
	BindAddress     string          `yaml:"bind_address"`
	BufferSize      int             `yaml:"buffer_size"`
	MaxDatagramSize int             `yaml:"max_datagram_size"`
	MaxInFlight     int             `yaml:"max_in_flight"`
	ProcessTimeout  float64         `yaml:"process_timeout"` // seconds
	DrainTimeout    float64         `yaml:"drain_timeout"`   // seconds
	RateLimit       RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig contains the optional per-source admission limit.
type RateLimitConfig struct {
	Enabled          bool    `yaml:"enabled"`
	PacketsPerSecond float64 `yaml:"packets_per_second"`
	Burst            int     `yaml:"burst"`
}

// HTTPConfig contains the monitoring API configuration.
type HTTPConfig struct {
	Port    int    `yaml:"port"`
	Address string `yaml:"address"`
	Enabled bool   `yaml:"enabled"`
}

// SimulationConfig contains simulation engine parameters.
type SimulationConfig struct {
	Fidelity       string  `yaml:"fidelity"`
	StepsPerSecond int     `yaml:"steps_per_second"`
	TimeMultiplier float64 `yaml:"time_multiplier"`
	RealTimeMode   bool    `yaml:"real_time_mode"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Default returns the built-in configuration with conservative transport
// limits.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			UDPPort:         8080,
			BindAddress:     "0.0.0.0",
			BufferSize:      65535,
			MaxDatagramSize: 1472,
			MaxInFlight:     64,
			ProcessTimeout:  5.0,
			DrainTimeout:    5.0,
			RateLimit: RateLimitConfig{
				Enabled:          false,
				PacketsPerSecond: 100,
				Burst:            20,
			},
		},
		HTTP: HTTPConfig{
			Port:    9090,
			Address: "0.0.0.0",
			Enabled: true,
		},
		Simulation: SimulationConfig{
			Fidelity:       "medium",
			StepsPerSecond: 60,
			TimeMultiplier: 1.0,
			RealTimeMode:   false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
	}
}

// Load reads the configuration file, applies environment overrides, and
// validates the result. A missing path yields the defaults so the binary
// can run with nothing but its environment.
func Load(path string) (*Config, error) {
	config := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	config.applyEnvOverrides()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// applyEnvOverrides layers environment variables over the file values.
// LOG_LEVEL is read at startup; "trace" maps onto the debug handler since
// slog has no finer level.
func (c *Config) applyEnvOverrides() {
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		if level == "trace" {
			level = "debug"
		}
		c.Logging.Level = level
	}
}

// Validate performs validation of the full configuration.
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http config: %w", err)
	}

	if err := c.Simulation.Validate(); err != nil {
		return fmt.Errorf("simulation config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates server configuration.
func (s *ServerConfig) Validate() error {
	if s.UDPPort < 1 || s.UDPPort > 65535 {
		return fmt.Errorf("udp_port must be between 1 and 65535, got %d", s.UDPPort)
	}

	if s.BindAddress == "" {
		return fmt.Errorf("bind_address cannot be empty")
	}

	if s.BufferSize < 1024 {
		return fmt.Errorf("buffer_size must be at least 1024 bytes, got %d", s.BufferSize)
	}

	if s.MaxDatagramSize < 1 || s.MaxDatagramSize > 65507 {
		return fmt.Errorf("max_datagram_size must be between 1 and 65507, got %d", s.MaxDatagramSize)
	}

	if s.MaxDatagramSize > s.BufferSize {
		return fmt.Errorf("max_datagram_size (%d) cannot exceed buffer_size (%d)",
			s.MaxDatagramSize, s.BufferSize)
	}

	if s.MaxInFlight < 1 {
		return fmt.Errorf("max_in_flight must be at least 1, got %d", s.MaxInFlight)
	}

	if s.ProcessTimeout <= 0 {
		return fmt.Errorf("process_timeout must be positive, got %f", s.ProcessTimeout)
	}

	if s.DrainTimeout <= 0 {
		return fmt.Errorf("drain_timeout must be positive, got %f", s.DrainTimeout)
	}

	if s.RateLimit.Enabled {
		if s.RateLimit.PacketsPerSecond <= 0 {
			return fmt.Errorf("rate_limit.packets_per_second must be positive, got %f",
				s.RateLimit.PacketsPerSecond)
		}
		if s.RateLimit.Burst < 1 {
			return fmt.Errorf("rate_limit.burst must be at least 1, got %d", s.RateLimit.Burst)
		}
	}

	return nil
}

// Validate validates HTTP configuration.
func (h *HTTPConfig) Validate() error {
	if h.Enabled {
		if h.Port < 1 || h.Port > 65535 {
			return fmt.Errorf("http port must be between 1 and 65535, got %d", h.Port)
		}

		if h.Address == "" {
			return fmt.Errorf("http address cannot be empty when HTTP is enabled")
		}
	}

	return nil
}

// Validate validates simulation configuration.
func (s *SimulationConfig) Validate() error {
	if _, err := engine.ParseFidelity(s.Fidelity); err != nil {
		return err
	}

	if s.StepsPerSecond < 1 || s.StepsPerSecond > 1000 {
		return fmt.Errorf("steps_per_second must be between 1 and 1000, got %d", s.StepsPerSecond)
	}

	if s.TimeMultiplier <= 0 {
		return fmt.Errorf("time_multiplier must be positive, got %f", s.TimeMultiplier)
	}

	return nil
}

// Validate validates logging configuration.
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	return nil
}

// GetProcessTimeout returns the per-datagram processing timeout.
func (s *ServerConfig) GetProcessTimeout() time.Duration {
	return time.Duration(s.ProcessTimeout * float64(time.Second))
}

// GetDrainTimeout returns the shutdown drain deadline.
func (s *ServerConfig) GetDrainTimeout() time.Duration {
	return time.Duration(s.DrainTimeout * float64(time.Second))
}

// EngineConfig converts the simulation section into an engine config.
// An explicit steps_per_second wins over the fidelity preset.
func (s *SimulationConfig) EngineConfig() engine.Config {
	cfg := engine.DefaultConfig()

	fidelity, err := engine.ParseFidelity(s.Fidelity)
	if err == nil {
		cfg = cfg.WithFidelity(fidelity)
	}

	if s.StepsPerSecond > 0 {
		cfg.TargetStepsPerSecond = uint32(s.StepsPerSecond)
	}

	if s.TimeMultiplier > 0 {
		cfg.SimulationTimeMultiplier = s.TimeMultiplier
	}

	cfg.RealTimeMode = s.RealTimeMode

	return cfg
}
