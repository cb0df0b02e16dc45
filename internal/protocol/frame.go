package protocol

import (
	"errors"
	"fmt"
	"net"
	"time"
)

// DefaultMaxDatagramSize is the default frame ceiling. It matches the
// usable payload of an Ethernet/IPv4 path MTU so accepted datagrams are
// never fragmented on the common path.
const DefaultMaxDatagramSize = 1472

// Frame rejection reasons. Rejected datagrams never reach a worker.
var (
	ErrOversized = errors.New("datagram exceeds maximum size")
	ErrEmpty     = errors.New("datagram is empty")
)

// Datagram is one received UDP packet: payload bytes, the sender address,
// and the arrival timestamp. Ownership transfers with the value; nothing
// upstream retains a reference once it has been handed to a worker.
type Datagram struct {
	Payload    []byte
	RemoteAddr *net.UDPAddr
	ReceivedAt time.Time
}

// Reply is an optional worker output: bytes to send back to a destination.
// It is consumed exactly once by the socket owner.
type Reply struct {
	Addr    *net.UDPAddr
	Payload []byte
}

// ValidateFrame classifies a raw buffer against the frame contract. It is a
// pure function: no allocation, no side effects, same verdict every time
// for the same input.
func ValidateFrame(raw []byte, maxSize int) error {
	if len(raw) == 0 {
		return ErrEmpty
	}
	if len(raw) > maxSize {
		return fmt.Errorf("%w: %d bytes, limit %d", ErrOversized, len(raw), maxSize)
	}
	return nil
}

// NewDatagram copies a validated receive buffer into an owned Datagram.
// The copy is required because the receive loop reuses its buffer.
func NewDatagram(raw []byte, addr *net.UDPAddr, at time.Time) *Datagram {
	payload := make([]byte, len(raw))
	copy(payload, raw)
	return &Datagram{
		Payload:    payload,
		RemoteAddr: addr,
		ReceivedAt: at,
	}
}
