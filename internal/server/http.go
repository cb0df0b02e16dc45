package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jdharrison/worldline/internal/config"
	"github.com/jdharrison/worldline/internal/engine"
	"github.com/jdharrison/worldline/internal/metrics"
)

// HTTPServer provides the HTTP monitoring API: health, statistics,
// configuration, simulation state, and prometheus metrics.
type HTTPServer struct {
	server    *http.Server
	logger    *slog.Logger
	config    *config.Config
	engine    *engine.Engine
	udpServer *UDPServer
	metrics   *metrics.Metrics

	startTime time.Time
}

// NewHTTPServer creates a new monitoring API server.
func NewHTTPServer(cfg config.HTTPConfig, logger *slog.Logger,
	appConfig *config.Config, eng *engine.Engine, udpServer *UDPServer, m *metrics.Metrics) *HTTPServer {

	h := &HTTPServer{
		logger:    logger,
		config:    appConfig,
		engine:    eng,
		udpServer: udpServer,
		metrics:   m,
		startTime: time.Now(),
	}

	mux := http.NewServeMux()
	h.setupRoutes(mux)

	h.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Address, cfg.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return h
}

// setupRoutes configures the API routes.
func (h *HTTPServer) setupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.withMetrics("/health", h.handleHealth))
	mux.HandleFunc("/stats", h.withMetrics("/stats", h.handleStats))
	mux.HandleFunc("/config", h.withMetrics("/config", h.handleConfig))
	mux.HandleFunc("/simulation", h.withMetrics("/simulation", h.handleSimulation))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/", h.withMetrics("/", h.handleRoot))
}

// withMetrics wraps a handler with request metrics collection.
func (h *HTTPServer) withMetrics(endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		ww := &responseWriter{ResponseWriter: w, statusCode: 200}
		handler(ww, r)

		duration := time.Since(startTime).Seconds()
		h.metrics.RecordHTTPRequest(r.Method, endpoint, fmt.Sprintf("%d", ww.statusCode), duration)
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Start starts the HTTP server.
func (h *HTTPServer) Start() error {
	h.logger.Info("Starting HTTP API server", slog.String("address", h.server.Addr))

	go func() {
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			h.logger.Error("HTTP server error", slog.String("error", err.Error()))
		}
	}()

	return nil
}

// Stop gracefully stops the HTTP server.
func (h *HTTPServer) Stop(ctx context.Context) error {
	h.logger.Info("Stopping HTTP API server...")
	return h.server.Shutdown(ctx)
}

// handleHealth implements the /health endpoint.
func (h *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats := h.udpServer.Statistics()

	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(h.startTime).String(),
		"service": map[string]interface{}{
			"name":    "worldline",
			"version": "1.0.0",
		},
		"components": map[string]interface{}{
			"udp_server": map[string]interface{}{
				"phase":             stats.Phase,
				"packets_received":  stats.PacketsReceived,
				"packets_processed": stats.PacketsProcessed,
				"in_flight":         stats.InFlight,
			},
			"simulation": map[string]interface{}{
				"state":              h.engine.State().String(),
				"simulation_time_ns": h.engine.SimulationTimeNs(),
				"total_steps":        h.engine.TotalSteps(),
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}

// handleStats implements the /stats endpoint.
func (h *HTTPServer) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats := map[string]interface{}{
		"uptime":    time.Since(h.startTime).String(),
		"timestamp": time.Now().UTC(),
		"udp":       h.udpServer.Statistics(),
		"simulation": map[string]interface{}{
			"state":              h.engine.State().String(),
			"simulation_time_ns": h.engine.SimulationTimeNs(),
			"total_steps":        h.engine.TotalSteps(),
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

// handleConfig implements the /config endpoint.
func (h *HTTPServer) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sanitized := map[string]interface{}{
		"server": map[string]interface{}{
			"udp_port":          h.config.Server.UDPPort,
			"bind_address":      h.config.Server.BindAddress,
			"buffer_size":       h.config.Server.BufferSize,
			"max_datagram_size": h.config.Server.MaxDatagramSize,
			"max_in_flight":     h.config.Server.MaxInFlight,
			"process_timeout":   h.config.Server.ProcessTimeout,
			"drain_timeout":     h.config.Server.DrainTimeout,
			"rate_limit": map[string]interface{}{
				"enabled":            h.config.Server.RateLimit.Enabled,
				"packets_per_second": h.config.Server.RateLimit.PacketsPerSecond,
				"burst":              h.config.Server.RateLimit.Burst,
			},
		},
		"simulation": map[string]interface{}{
			"fidelity":         h.config.Simulation.Fidelity,
			"steps_per_second": h.config.Simulation.StepsPerSecond,
			"time_multiplier":  h.config.Simulation.TimeMultiplier,
			"real_time_mode":   h.config.Simulation.RealTimeMode,
		},
		"logging": map[string]interface{}{
			"level":  h.config.Logging.Level,
			"format": h.config.Logging.Format,
			"output": h.config.Logging.Output,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sanitized)
}

// handleSimulation implements the /simulation endpoint.
func (h *HTTPServer) handleSimulation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	engineCfg := h.engine.Config()
	status := map[string]interface{}{
		"state":              h.engine.State().String(),
		"simulation_time_ns": h.engine.SimulationTimeNs(),
		"total_steps":        h.engine.TotalSteps(),
		"config": map[string]interface{}{
			"target_steps_per_second":    engineCfg.TargetStepsPerSecond,
			"simulation_time_multiplier": engineCfg.SimulationTimeMultiplier,
			"fidelity":                   engineCfg.Fidelity.String(),
			"real_time_mode":             engineCfg.RealTimeMode,
			"max_entities":               engineCfg.Fidelity.MaxEntities(),
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(status)
}

// handleRoot implements the / endpoint with API documentation.
func (h *HTTPServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	apiDoc := map[string]interface{}{
		"service": "Worldline Simulation Server",
		"version": "1.0.0",
		"endpoints": map[string]interface{}{
			"GET /":           "API documentation",
			"GET /health":     "Service health check",
			"GET /stats":      "Transport and simulation statistics",
			"GET /config":     "Service configuration",
			"GET /simulation": "Simulation engine status",
			"GET /metrics":    "Prometheus metrics",
		},
		"timestamp": time.Now().UTC(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(apiDoc)
}
