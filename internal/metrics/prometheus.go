// Package metrics provides the prometheus-backed telemetry sink.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all prometheus metrics for the simulation server. It
// implements the server.Telemetry interface.
type Metrics struct {
	// Transport metrics
	PacketsAccepted    prometheus.Counter
	PacketsRejected    *prometheus.CounterVec
	PacketsProcessed   prometheus.Counter
	PacketsDropped     *prometheus.CounterVec
	ProcessingDuration prometheus.Histogram
	InFlight           prometheus.Gauge

	// Lifecycle metrics
	ShutdownTransitions *prometheus.CounterVec
	AbandonedWork       prometheus.Counter

	// Simulation metrics
	SimulationSteps prometheus.Counter

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New creates and registers all metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		PacketsAccepted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "worldline_packets_accepted_total",
			Help: "Total number of datagrams admitted for processing",
		}),
		PacketsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "worldline_packets_rejected_total",
			Help: "Total number of datagrams rejected by frame validation",
		}, []string{"reason"}),
		PacketsProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "worldline_packets_processed_total",
			Help: "Total number of datagrams processed to completion",
		}),
		PacketsDropped: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "worldline_packets_dropped_total",
			Help: "Total number of datagrams dropped after validation",
		}, []string{"reason"}),
		ProcessingDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "worldline_processing_duration_seconds",
			Help:    "Per-datagram processing latency",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14), // 100us to ~1.6s
		}),
		InFlight: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "worldline_in_flight_slots",
			Help: "Current number of live admission slots",
		}),
		ShutdownTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "worldline_shutdown_transitions_total",
			Help: "Lifecycle phase transitions observed",
		}, []string{"phase"}),
		AbandonedWork: promauto.NewCounter(prometheus.CounterOpts{
			Name: "worldline_abandoned_work_total",
			Help: "In-flight datagrams abandoned at the drain deadline",
		}),
		SimulationSteps: promauto.NewCounter(prometheus.CounterOpts{
			Name: "worldline_simulation_steps_total",
			Help: "Total number of completed simulation steps",
		}),
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "worldline_http_requests_total",
			Help: "Total number of HTTP API requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "worldline_http_request_duration_seconds",
			Help:    "Duration of HTTP API requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
	}
}

// PacketAccepted records an admitted datagram.
func (m *Metrics) PacketAccepted() {
	m.PacketsAccepted.Inc()
}

// PacketRejected records a datagram refused by frame validation.
func (m *Metrics) PacketRejected(reason string) {
	m.PacketsRejected.WithLabelValues(reason).Inc()
}

// PacketProcessed records a completed datagram and its latency.
func (m *Metrics) PacketProcessed(duration time.Duration) {
	m.PacketsProcessed.Inc()
	m.ProcessingDuration.Observe(duration.Seconds())
}

// PacketDropped records a post-validation datagram loss.
func (m *Metrics) PacketDropped(reason string) {
	m.PacketsDropped.WithLabelValues(reason).Inc()
}

// ShutdownPhase records a lifecycle transition.
func (m *Metrics) ShutdownPhase(phase string) {
	m.ShutdownTransitions.WithLabelValues(phase).Inc()
}

// WorkAbandoned records work discarded at the drain deadline.
func (m *Metrics) WorkAbandoned(count int) {
	m.AbandonedWork.Add(float64(count))
}

// ObserveInFlight records the live slot count.
func (m *Metrics) ObserveInFlight(n int) {
	m.InFlight.Set(float64(n))
}

// RecordSimulationStep counts one completed simulation step.
func (m *Metrics) RecordSimulationStep() {
	m.SimulationSteps.Inc()
}

// RecordHTTPRequest records one HTTP API request.
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}
