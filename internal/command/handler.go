package command

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jdharrison/worldline/internal/engine"
	"github.com/jdharrison/worldline/internal/protocol"
)

// Handler executes one command datagram against the simulation engine and
// produces exactly one reply. A command that fails to parse still gets an
// Error reply so clients learn what they sent was rejected; only encoding
// failures surface as processing errors.
type Handler struct {
	engine *engine.Engine
	logger *slog.Logger
}

// NewHandler creates a command handler bound to an engine.
func NewHandler(eng *engine.Engine, logger *slog.Logger) *Handler {
	return &Handler{
		engine: eng,
		logger: logger,
	}
}

// Handle implements the server.Handler contract: one datagram in, one
// reply out. It holds no per-datagram state; concurrent invocations
// synchronize only through the engine.
func (h *Handler) Handle(_ context.Context, dg *protocol.Datagram) (*protocol.Reply, error) {
	cmd, err := protocol.ParseCommand(dg.Payload)
	if err != nil {
		h.logger.Warn("Failed to parse command",
			slog.String("remote_addr", dg.RemoteAddr.String()),
			slog.String("error", err.Error()),
		)
		return h.reply(dg, protocol.ErrorResponse(fmt.Sprintf("Invalid command: %v", err)))
	}

	h.logger.Info("Received command",
		slog.String("remote_addr", dg.RemoteAddr.String()),
		slog.String("command", cmd.Type),
	)

	return h.reply(dg, h.execute(cmd))
}

// execute dispatches a parsed command to the engine.
func (h *Handler) execute(cmd *protocol.Command) *protocol.Response {
	switch cmd.Type {
	case protocol.CommandStart:
		h.engine.Start()
		return protocol.OkResponse("Simulation started")

	case protocol.CommandStop:
		h.engine.Stop()
		return protocol.OkResponse("Simulation stopped")

	case protocol.CommandPause:
		h.engine.Pause()
		return protocol.OkResponse("Simulation paused")

	case protocol.CommandResume:
		h.engine.Resume()
		return protocol.OkResponse("Simulation resumed")

	case protocol.CommandStep:
		h.engine.Step()
		return protocol.OkResponse(fmt.Sprintf("Stepped to %d", h.engine.SimulationTimeNs()))

	case protocol.CommandStatus:
		cfg := h.engine.Config()
		return protocol.StatusResponse(
			h.engine.State().String(),
			h.engine.SimulationTimeNs(),
			protocol.StatusConfig{
				TargetStepsPerSecond:     cfg.TargetStepsPerSecond,
				SimulationTimeMultiplier: cfg.SimulationTimeMultiplier,
				Fidelity:                 cfg.Fidelity.String(),
				RealTimeMode:             cfg.RealTimeMode,
			},
		)

	case protocol.CommandReset:
		h.engine.Reset()
		return protocol.OkResponse("Simulation reset")

	default:
		// Unreachable: ParseCommand only yields known types.
		return protocol.ErrorResponse(fmt.Sprintf("Unknown command: %s", cmd.Type))
	}
}

// reply encodes a response addressed to the datagram's sender.
func (h *Handler) reply(dg *protocol.Datagram, resp *protocol.Response) (*protocol.Reply, error) {
	data, err := resp.Encode()
	if err != nil {
		return nil, err
	}
	return &protocol.Reply{Addr: dg.RemoteAddr, Payload: data}, nil
}
