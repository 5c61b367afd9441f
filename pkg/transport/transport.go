// Package transport supplies the byte-stream underneath the wire protocol:
// a Wi-Fi TCP socket or a USB accessory-mode bulk pipe (spec §2.1, §6).
package transport

import (
	"context"
	"errors"
	"time"
)

// ErrClosed is returned by Read/Write once Stop has completed.
var ErrClosed = errors.New("transport: closed")

// Transport is the minimal byte-pump interface the head unit core drives.
// Unlike the teacher's PhysicalChannel, a Transport never reconnects on its
// own: a broken Transport is a fatal event for the connection above it
// (spec §7), so silently re-dialing here would hide a state transition the
// caller needs to see.
type Transport interface {
	// Start opens the underlying device or socket. If waitForDevice is true
	// and the transport is USB, Start blocks (subject to ctx) until a
	// compatible device node appears rather than failing immediately.
	Start(ctx context.Context, waitForDevice bool) error

	// Stop releases the underlying resource. Safe to call more than once.
	Stop() error

	// Write sends buf, blocking up to timeout, and returns how many bytes
	// went out. A timeout is returned as an error but is not reported on
	// Errors as fatal; callers retry.
	Write(ctx context.Context, buf []byte, timeout time.Duration) (int, error)

	// Read fills as much of a fresh buffer as arrives within timeout,
	// returning aawire.ErrTimeout-compatible semantics: (0, ErrReadTimeout)
	// on a bounded wait with nothing to deliver.
	Read(ctx context.Context, timeout time.Duration) ([]byte, error)

	// Errors delivers the first fatal transport-level error; later fatal
	// errors are not delivered. This mirrors the "error descriptor" of spec §6 as a channel instead of a
	// raw fd (Go transports are not uniformly backed by an fd).
	Errors() <-chan error
}

// ErrReadTimeout is returned by Read when no data arrived within the
// requested timeout; it is not fatal.
var ErrReadTimeout = errors.New("transport: read timeout")
