package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdharrison/worldline/internal/config"
	"github.com/jdharrison/worldline/internal/engine"
	"github.com/jdharrison/worldline/internal/metrics"
)

// The prometheus registry is global, so the metrics instance is created
// once for the whole package run.
var httpTestMetrics = metrics.New()

func TestHTTPEndpoints(t *testing.T) {
	cfg := config.Default()
	cfg.Server = *testServerConfig()

	eng := engine.New(cfg.Simulation.EngineConfig(), testLogger())
	eng.Start()

	udpServer := startTestServer(t, &cfg.Server, echoHandler(), nil)

	h := NewHTTPServer(cfg.HTTP, testLogger(), cfg, eng, udpServer, httpTestMetrics)
	mux := http.NewServeMux()
	h.setupRoutes(mux)

	get := func(t *testing.T, path string) (int, map[string]interface{}) {
		t.Helper()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		var body map[string]interface{}
		if rec.Code == http.StatusOK {
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		}
		return rec.Code, body
	}

	t.Run("health", func(t *testing.T) {
		code, body := get(t, "/health")
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, "healthy", body["status"])

		components := body["components"].(map[string]interface{})
		sim := components["simulation"].(map[string]interface{})
		assert.Equal(t, "Running", sim["state"])
	})

	t.Run("stats", func(t *testing.T) {
		code, body := get(t, "/stats")
		require.Equal(t, http.StatusOK, code)

		udp := body["udp"].(map[string]interface{})
		assert.Equal(t, "running", udp["phase"])
		assert.EqualValues(t, cfg.Server.MaxInFlight, udp["in_flight_ceiling"])
	})

	t.Run("simulation", func(t *testing.T) {
		code, body := get(t, "/simulation")
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, "Running", body["state"])

		simCfg := body["config"].(map[string]interface{})
		assert.Equal(t, "medium", simCfg["fidelity"])
	})

	t.Run("config", func(t *testing.T) {
		code, body := get(t, "/config")
		require.Equal(t, http.StatusOK, code)

		serverCfg := body["server"].(map[string]interface{})
		assert.EqualValues(t, cfg.Server.MaxDatagramSize, serverCfg["max_datagram_size"])
	})

	t.Run("root documents the api", func(t *testing.T) {
		code, body := get(t, "/")
		require.Equal(t, http.StatusOK, code)
		assert.Contains(t, body, "endpoints")
	})

	t.Run("method not allowed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/health", nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}
