package protocol

import (
	"encoding/json"
	"fmt"
)

// Command types carried in the "type" field of a request datagram.
const (
	CommandStart  = "Start"
	CommandStop   = "Stop"
	CommandPause  = "Pause"
	CommandResume = "Resume"
	CommandStep   = "Step"
	CommandStatus = "Status"
	CommandReset  = "Reset"
)

// Response types carried in the "type" field of a reply datagram.
const (
	ResponseOk     = "Ok"
	ResponseError  = "Error"
	ResponseStatus = "Status"
)

// Command is a decoded request. The wire format is an internally tagged
// JSON object: {"type":"Start"}.
type Command struct {
	Type string `json:"type"`
}

// Response is a reply envelope. Exactly one shape is populated depending
// on Type: Ok and Error carry Message, Status carries the engine snapshot.
type Response struct {
	Type             string        `json:"type"`
	Message          string        `json:"message,omitempty"`
	State            string        `json:"state,omitempty"`
	SimulationTimeNs *uint64       `json:"simulation_time_ns,omitempty"`
	Config           *StatusConfig `json:"config,omitempty"`
}

// StatusConfig echoes the active simulation configuration in a Status reply.
type StatusConfig struct {
	TargetStepsPerSecond     uint32  `json:"target_steps_per_second"`
	SimulationTimeMultiplier float64 `json:"simulation_time_multiplier"`
	Fidelity                 string  `json:"fidelity"`
	RealTimeMode             bool    `json:"real_time_mode"`
}

// ParseCommand decodes and validates a request payload.
func ParseCommand(data []byte) (*Command, error) {
	var cmd Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		return nil, fmt.Errorf("invalid command encoding: %w", err)
	}
	switch cmd.Type {
	case CommandStart, CommandStop, CommandPause, CommandResume,
		CommandStep, CommandStatus, CommandReset:
		return &cmd, nil
	case "":
		return nil, fmt.Errorf("command missing type field")
	default:
		return nil, fmt.Errorf("unknown command type: %q", cmd.Type)
	}
}

// OkResponse builds an Ok reply.
func OkResponse(message string) *Response {
	return &Response{Type: ResponseOk, Message: message}
}

// ErrorResponse builds an Error reply.
func ErrorResponse(message string) *Response {
	return &Response{Type: ResponseError, Message: message}
}

// StatusResponse builds a Status reply. Simulation time is carried as a
// pointer so a zero reading still appears on the wire.
func StatusResponse(state string, simulationTimeNs uint64, cfg StatusConfig) *Response {
	return &Response{
		Type:             ResponseStatus,
		State:            state,
		SimulationTimeNs: &simulationTimeNs,
		Config:           &cfg,
	}
}

// Encode serializes a response for the wire.
func (r *Response) Encode() ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to encode response: %w", err)
	}
	return data, nil
}
