package protocol

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		wantType string
		wantErr  string
	}{
		{name: "start", payload: `{"type":"Start"}`, wantType: CommandStart},
		{name: "stop", payload: `{"type":"Stop"}`, wantType: CommandStop},
		{name: "pause", payload: `{"type":"Pause"}`, wantType: CommandPause},
		{name: "resume", payload: `{"type":"Resume"}`, wantType: CommandResume},
		{name: "step", payload: `{"type":"Step"}`, wantType: CommandStep},
		{name: "status", payload: `{"type":"Status"}`, wantType: CommandStatus},
		{name: "reset", payload: `{"type":"Reset"}`, wantType: CommandReset},
		{name: "unknown type", payload: `{"type":"Destroy"}`, wantErr: "unknown command type"},
		{name: "missing type", payload: `{}`, wantErr: "missing type"},
		{name: "lowercase type", payload: `{"type":"start"}`, wantErr: "unknown command type"},
		{name: "not json", payload: `hello`, wantErr: "invalid command encoding"},
		{name: "truncated json", payload: `{"type":"Sta`, wantErr: "invalid command encoding"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := ParseCommand([]byte(tt.payload))

			if tt.wantErr != "" {
				if err == nil {
					t.Fatalf("ParseCommand(%q) expected error containing %q, got nil", tt.payload, tt.wantErr)
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("ParseCommand(%q) error = %v, want it to contain %q", tt.payload, err, tt.wantErr)
				}
				return
			}

			if err != nil {
				t.Fatalf("ParseCommand(%q) unexpected error: %v", tt.payload, err)
			}
			if cmd.Type != tt.wantType {
				t.Errorf("ParseCommand(%q).Type = %q, want %q", tt.payload, cmd.Type, tt.wantType)
			}
		})
	}
}

func TestOkResponseEncoding(t *testing.T) {
	data, err := OkResponse("Simulation started").Encode()
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("reply is not valid JSON: %v", err)
	}

	if decoded["type"] != "Ok" {
		t.Errorf("type = %v, want Ok", decoded["type"])
	}
	if decoded["message"] != "Simulation started" {
		t.Errorf("message = %v", decoded["message"])
	}
	// Status-only fields must not leak into Ok replies.
	for _, field := range []string{"state", "simulation_time_ns", "config"} {
		if _, ok := decoded[field]; ok {
			t.Errorf("Ok reply unexpectedly contains %q", field)
		}
	}
}

func TestStatusResponseEncoding(t *testing.T) {
	resp := StatusResponse("Running", 0, StatusConfig{
		TargetStepsPerSecond:     60,
		SimulationTimeMultiplier: 1.0,
		Fidelity:                 "medium",
		RealTimeMode:             true,
	})

	data, err := resp.Encode()
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("reply is not valid JSON: %v", err)
	}

	if decoded["type"] != "Status" {
		t.Errorf("type = %v, want Status", decoded["type"])
	}
	if decoded["state"] != "Running" {
		t.Errorf("state = %v, want Running", decoded["state"])
	}

	// A zero simulation time must still appear on the wire.
	timeNs, ok := decoded["simulation_time_ns"]
	if !ok {
		t.Fatal("Status reply missing simulation_time_ns")
	}
	if timeNs.(float64) != 0 {
		t.Errorf("simulation_time_ns = %v, want 0", timeNs)
	}

	cfg, ok := decoded["config"].(map[string]interface{})
	if !ok {
		t.Fatal("Status reply missing config")
	}
	if cfg["target_steps_per_second"].(float64) != 60 {
		t.Errorf("target_steps_per_second = %v, want 60", cfg["target_steps_per_second"])
	}
	if cfg["fidelity"] != "medium" {
		t.Errorf("fidelity = %v, want medium", cfg["fidelity"])
	}
	if cfg["real_time_mode"] != true {
		t.Errorf("real_time_mode = %v, want true", cfg["real_time_mode"])
	}
}

func TestErrorResponseEncoding(t *testing.T) {
	data, err := ErrorResponse("Invalid command: boom").Encode()
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}

	var decoded Response
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("reply is not valid JSON: %v", err)
	}
	if decoded.Type != ResponseError {
		t.Errorf("type = %q, want %q", decoded.Type, ResponseError)
	}
	if decoded.Message != "Invalid command: boom" {
		t.Errorf("message = %q", decoded.Message)
	}
}
