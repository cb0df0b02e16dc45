// Package server implements the UDP transport core: socket ownership,
// frame validation, bounded-concurrency dispatch, worker execution, and
// the drain-on-shutdown lifecycle. It also hosts the HTTP monitoring API.
package server
