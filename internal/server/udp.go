package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jdharrison/worldline/internal/config"
	"github.com/jdharrison/worldline/internal/protocol"
)

// readPollInterval bounds how long the receive loop can sit in a blocking
// read before noticing a shutdown request.
const readPollInterval = 250 * time.Millisecond

// Handler is the pluggable processing boundary: one validated datagram in,
// zero or one reply out. Implementations must not share mutable state
// across datagrams except through their own synchronization; a handler
// error means no reply is sent and the datagram counts as dropped.
type Handler interface {
	Handle(ctx context.Context, dg *protocol.Datagram) (*protocol.Reply, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, dg *protocol.Datagram) (*protocol.Reply, error)

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, dg *protocol.Datagram) (*protocol.Reply, error) {
	return f(ctx, dg)
}

// UDPServer owns the bound UDP socket and runs the transport core:
// receive loop, frame validation, admission, worker execution, replies,
// and the Running -> Draining -> Stopped shutdown sequence.
type UDPServer struct {
	conn       *net.UDPConn
	config     *config.ServerConfig
	logger     *slog.Logger
	handler    Handler
	telemetry  Telemetry
	dispatcher *Dispatcher
	state      lifecycle

	ctx    context.Context
	cancel context.CancelFunc

	receiverWG sync.WaitGroup
	workerWG   sync.WaitGroup
	closeOnce  sync.Once

	startTime time.Time

	// Counters are written from the receive loop and workers concurrently.
	packetsReceived  atomic.Uint64
	packetsAccepted  atomic.Uint64
	packetsRejected  atomic.Uint64
	packetsProcessed atomic.Uint64
	packetsDropped   atomic.Uint64
	repliesSent      atomic.Uint64
	sendErrors       atomic.Uint64
}

// NewUDPServer creates an unstarted server. The telemetry sink may be
// NopTelemetry; the handler must not be nil.
func NewUDPServer(cfg *config.ServerConfig, logger *slog.Logger, handler Handler, telemetry Telemetry) *UDPServer {
	ctx, cancel := context.WithCancel(context.Background())

	var limiter *SourceLimiter
	if cfg.RateLimit.Enabled {
		limiter = NewSourceLimiter(cfg.RateLimit.PacketsPerSecond, cfg.RateLimit.Burst)
	}

	return &UDPServer{
		config:     cfg,
		logger:     logger,
		handler:    handler,
		telemetry:  telemetry,
		dispatcher: NewDispatcher(cfg.MaxInFlight, limiter),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start binds the socket and launches the receive loop. A bind failure is
// the only fatal error in the system; everything after this point is
// absorbed per-datagram.
func (s *UDPServer) Start() error {
	addr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", s.config.BindAddress, s.config.UDPPort))
	if err != nil {
		return fmt.Errorf("failed to resolve UDP address: %w", err)
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind UDP socket: %w", err)
	}

	s.conn = conn
	s.startTime = time.Now()

	if err := s.conn.SetReadBuffer(s.config.BufferSize); err != nil {
		s.logger.Warn("Failed to set UDP read buffer size",
			slog.Int("buffer_size", s.config.BufferSize),
			slog.String("error", err.Error()),
		)
	}

	s.logger.Info("UDP server started",
		slog.String("address", conn.LocalAddr().String()),
		slog.Int("max_datagram_size", s.config.MaxDatagramSize),
		slog.Int("max_in_flight", s.config.MaxInFlight),
		slog.Bool("rate_limit", s.config.RateLimit.Enabled),
	)
	s.telemetry.ShutdownPhase(PhaseRunning.String())

	s.receiverWG.Add(1)
	go s.receiveLoop()

	return nil
}

// Stop drains the server: admissions cease immediately, in-flight work
// gets until the drain deadline to finish, then remaining work is
// abandoned and the socket is released. Safe to call more than once.
func (s *UDPServer) Stop() error {
	if !s.state.advance(PhaseDraining) {
		return nil
	}

	s.logger.Info("UDP server draining",
		slog.Int("in_flight", s.dispatcher.InFlight()),
		slog.Duration("drain_timeout", s.config.GetDrainTimeout()),
	)
	s.telemetry.ShutdownPhase(PhaseDraining.String())

	// Stop intake: no new admissions, and unblock the receive loop.
	s.dispatcher.CloseIntake()
	s.cancel()
	s.receiverWG.Wait()

	// Let in-flight work finish, bounded by the drain deadline.
	done := make(chan struct{})
	go func() {
		s.workerWG.Wait()
		close(done)
	}()

	drainTimer := time.NewTimer(s.config.GetDrainTimeout())
	defer drainTimer.Stop()

	select {
	case <-done:
	case <-drainTimer.C:
		abandoned := s.dispatcher.InFlight()
		s.telemetry.WorkAbandoned(abandoned)
		s.logger.Warn("Drain deadline elapsed, abandoning in-flight work",
			slog.Int("abandoned", abandoned),
		)
	}

	s.state.advance(PhaseStopped)
	s.closeOnce.Do(func() {
		if err := s.conn.Close(); err != nil {
			s.logger.Warn("Error closing UDP socket", slog.String("error", err.Error()))
		}
	})
	s.telemetry.ShutdownPhase(PhaseStopped.String())

	s.logger.Info("UDP server stopped",
		slog.Uint64("packets_received", s.packetsReceived.Load()),
		slog.Uint64("packets_processed", s.packetsProcessed.Load()),
		slog.Uint64("packets_rejected", s.packetsRejected.Load()),
		slog.Uint64("packets_dropped", s.packetsDropped.Load()),
	)

	return nil
}

// Phase returns the current lifecycle phase.
func (s *UDPServer) Phase() Phase {
	return s.state.Phase()
}

// LocalAddr returns the bound address, or nil before Start.
func (s *UDPServer) LocalAddr() *net.UDPAddr {
	if s.conn == nil {
		return nil
	}
	addr, _ := s.conn.LocalAddr().(*net.UDPAddr)
	return addr
}

// receiveLoop is the only reader of the socket. It validates and admits
// each datagram, spawning one bounded worker per admission.
func (s *UDPServer) receiveLoop() {
	defer s.receiverWG.Done()

	buffer := make([]byte, s.config.BufferSize)

	for {
		select {
		case <-s.ctx.Done():
			s.logger.Debug("Receive loop stopping")
			return
		default:
		}

		// The deadline makes the blocking read re-check shutdown
		// periodically without closing the socket out from under
		// in-flight replies.
		if err := s.conn.SetReadDeadline(time.Now().Add(readPollInterval)); err != nil {
			s.logger.Error("Failed to set read deadline", slog.String("error", err.Error()))
			return
		}

		n, remoteAddr, err := s.conn.ReadFromUDP(buffer)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			select {
			case <-s.ctx.Done():
				return
			default:
				s.logger.Error("Failed to read UDP datagram", slog.String("error", err.Error()))
				continue
			}
		}

		s.packetsReceived.Add(1)
		s.ingest(buffer[:n], remoteAddr)
	}
}

// ingest runs the validate/admit path for one raw datagram.
func (s *UDPServer) ingest(raw []byte, remoteAddr *net.UDPAddr) {
	if err := protocol.ValidateFrame(raw, s.config.MaxDatagramSize); err != nil {
		s.packetsRejected.Add(1)
		s.telemetry.PacketRejected(rejectReason(err))
		s.logger.Debug("Datagram rejected",
			slog.String("remote_addr", remoteAddr.String()),
			slog.Int("size", len(raw)),
			slog.String("reason", err.Error()),
		)
		return
	}

	slot, err := s.dispatcher.Admit(remoteAddr)
	if err != nil {
		s.packetsDropped.Add(1)
		s.telemetry.PacketDropped(dropReason(err))
		s.logger.Debug("Datagram dropped at admission",
			slog.String("remote_addr", remoteAddr.String()),
			slog.String("reason", err.Error()),
		)
		return
	}

	s.packetsAccepted.Add(1)
	s.telemetry.PacketAccepted()
	s.telemetry.ObserveInFlight(s.dispatcher.InFlight())

	// Ownership of the datagram transfers to the worker. The buffer is
	// copied because the receive loop reuses it.
	dg := protocol.NewDatagram(raw, remoteAddr, time.Now())
	s.workerWG.Add(1)
	go s.processDatagram(dg, slot)
}

// processDatagram runs the handler for one admitted datagram, enforcing
// the per-datagram timeout. On timeout the handler goroutine is abandoned,
// not cancelled mid-step: the processing contract is opaque and cannot be
// assumed interruptible.
func (s *UDPServer) processDatagram(dg *protocol.Datagram, slot *Slot) {
	defer s.workerWG.Done()
	defer func() {
		slot.Release()
		s.telemetry.ObserveInFlight(s.dispatcher.InFlight())
	}()

	start := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), s.config.GetProcessTimeout())
	defer cancel()

	type result struct {
		reply *protocol.Reply
		err   error
	}
	done := make(chan result, 1)

	go func() {
		reply, err := s.handler.Handle(ctx, dg)
		done <- result{reply: reply, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			s.packetsDropped.Add(1)
			s.telemetry.PacketDropped(ReasonError)
			s.logger.Error("Datagram processing failed",
				slog.String("remote_addr", dg.RemoteAddr.String()),
				slog.String("error", res.err.Error()),
			)
			return
		}
		if res.reply != nil {
			s.sendReply(res.reply)
		}
		s.packetsProcessed.Add(1)
		s.telemetry.PacketProcessed(time.Since(start))
	case <-ctx.Done():
		s.packetsDropped.Add(1)
		s.telemetry.PacketDropped(ReasonTimeout)
		s.logger.Warn("Datagram processing timed out",
			slog.String("remote_addr", dg.RemoteAddr.String()),
			slog.Duration("timeout", s.config.GetProcessTimeout()),
		)
	}
}

// sendReply writes a reply datagram. Sends are best-effort: a failure is
// counted and logged, never propagated, since UDP senders already
// tolerate loss. Replies outliving the socket are discarded silently.
func (s *UDPServer) sendReply(reply *protocol.Reply) {
	if s.state.Phase() == PhaseStopped {
		return
	}

	if _, err := s.conn.WriteToUDP(reply.Payload, reply.Addr); err != nil {
		s.sendErrors.Add(1)
		s.logger.Warn("Failed to send reply",
			slog.String("remote_addr", reply.Addr.String()),
			slog.Int("size", len(reply.Payload)),
			slog.String("error", err.Error()),
		)
		return
	}
	s.repliesSent.Add(1)
}

// rejectReason maps a frame validation error to a telemetry label.
func rejectReason(err error) string {
	switch {
	case errors.Is(err, protocol.ErrOversized):
		return ReasonOversized
	case errors.Is(err, protocol.ErrEmpty):
		return ReasonEmpty
	default:
		return ReasonError
	}
}

// dropReason maps an admission error to a telemetry label.
func dropReason(err error) string {
	switch {
	case errors.Is(err, ErrRateLimited):
		return ReasonRateLimited
	default:
		return ReasonBackpressure
	}
}

// Statistics is a point-in-time snapshot of transport counters.
type Statistics struct {
	Phase            string `json:"phase"`
	PacketsReceived  uint64 `json:"packets_received"`
	PacketsAccepted  uint64 `json:"packets_accepted"`
	PacketsRejected  uint64 `json:"packets_rejected"`
	PacketsProcessed uint64 `json:"packets_processed"`
	PacketsDropped   uint64 `json:"packets_dropped"`
	RepliesSent      uint64 `json:"replies_sent"`
	SendErrors       uint64 `json:"send_errors"`
	InFlight         int    `json:"in_flight"`
	InFlightCeiling  int    `json:"in_flight_ceiling"`
}

// Statistics returns the current counter snapshot.
func (s *UDPServer) Statistics() Statistics {
	return Statistics{
		Phase:            s.state.Phase().String(),
		PacketsReceived:  s.packetsReceived.Load(),
		PacketsAccepted:  s.packetsAccepted.Load(),
		PacketsRejected:  s.packetsRejected.Load(),
		PacketsProcessed: s.packetsProcessed.Load(),
		PacketsDropped:   s.packetsDropped.Load(),
		RepliesSent:      s.repliesSent.Load(),
		SendErrors:       s.sendErrors.Load(),
		InFlight:         s.dispatcher.InFlight(),
		InFlightCeiling:  s.dispatcher.Ceiling(),
	}
}
