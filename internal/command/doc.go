// Package command turns validated datagrams into simulation engine
// operations. It is the processing function plugged into the transport
// core's worker boundary.
package command
