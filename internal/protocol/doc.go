// Package protocol defines the datagram frame contract and the JSON
// command wire format understood by the simulation server.
package protocol
