package server

import "time"

// Telemetry rejection and drop reasons.
const (
	ReasonOversized    = "oversized"
	ReasonEmpty        = "empty"
	ReasonBackpressure = "backpressure"
	ReasonRateLimited  = "rate_limited"
	ReasonTimeout      = "timeout"
	ReasonError        = "error"
)

// Telemetry is the boundary over which the transport core reports discrete
// operational events to an external sink. The prometheus implementation
// lives in internal/metrics; tests use NopTelemetry.
type Telemetry interface {
	// PacketAccepted records a datagram admitted for processing.
	PacketAccepted()
	// PacketRejected records a datagram refused by frame validation.
	PacketRejected(reason string)
	// PacketProcessed records a completed datagram and its latency.
	PacketProcessed(duration time.Duration)
	// PacketDropped records a datagram lost after validation, whether to
	// backpressure, rate limiting, a worker error, or a timeout.
	PacketDropped(reason string)
	// ShutdownPhase records a lifecycle transition.
	ShutdownPhase(phase string)
	// WorkAbandoned records in-flight work discarded at the drain deadline.
	WorkAbandoned(count int)
	// ObserveInFlight records the current number of live admission slots.
	ObserveInFlight(n int)
}

// NopTelemetry discards all events.
type NopTelemetry struct{}

func (NopTelemetry) PacketAccepted() {}

func (NopTelemetry) PacketRejected(reason string) {}

func (NopTelemetry) PacketProcessed(d time.Duration) {}

func (NopTelemetry) PacketDropped(reason string) {}

func (NopTelemetry) ShutdownPhase(phase string) {}

func (NopTelemetry) WorkAbandoned(count int) {}

func (NopTelemetry) ObserveInFlight(n int) {}
