package aawire

import (
	"errors"
	"time"
)

// ErrTimeout is returned by a Reader when no data arrived within the
// requested timeout. It is never fatal to the caller of Decode: a header or
// payload read that times out is simply retried (spec §4.1).
var ErrTimeout = errors.New("aawire: read timeout")

// Reader is the minimal primitive the decoder needs from a transport: fill
// as much of buf as arrives within timeout, returning the number of bytes
// written into buf starting at offset 0. A read that makes no progress
// because of a short timeout returns (0, ErrTimeout); a read that returns
// (0, nil) or io.EOF-like closure is treated by Decode as fatal.
type Reader interface {
	Read(buf []byte, timeout time.Duration) (int, error)
}

// Decoder decodes one frame at a time from a Reader, transparently retrying
// timeouts and accumulating partial reads.
type Decoder struct {
	recvTimeout time.Duration
}

// NewDecoder creates a Decoder that waits up to recvTimeout per underlying
// read attempt (spec §5 default: 150ms).
func NewDecoder(recvTimeout time.Duration) *Decoder {
	return &Decoder{recvTimeout: recvTimeout}
}

// Decode reads exactly one frame, blocking (via repeated timeout-bounded
// reads) until it has the whole thing or a fatal error occurs. Timeouts are
// retried inside Decode and never returned, so on a transport with no data
// Decode keeps waiting; the only way out is for the Reader itself to return
// a non-timeout error (for example on cancellation), which Decode passes on.
func (d *Decoder) Decode(r Reader) (*Frame, error) {
	header := make([]byte, headerSize)
	if err := d.readExact(r, header); err != nil {
		return nil, err
	}

	channel, flags, payloadLen, err := ParseHeader(header)
	if err != nil {
		return nil, err
	}

	var totalLen uint32
	if flags.Has(FlagFirst) && !flags.Has(FlagLast) {
		extra := make([]byte, totalLengthSize)
		if err := d.readExact(r, extra); err != nil {
			return nil, err
		}
		totalLen, err = ParseTotalLength(extra)
		if err != nil {
			return nil, err
		}
	}

	if payloadLen > MaxFramePayload {
		return nil, ErrPayloadTooLarge
	}

	payload := make([]byte, payloadLen)
	if payloadLen > 0 {
		if err := d.readExact(r, payload); err != nil {
			return nil, err
		}
	}

	return &Frame{
		Channel:     channel,
		Flags:       flags,
		TotalLength: totalLen,
		Payload:     payload,
	}, nil
}

// readExact fills buf completely, retrying on ErrTimeout (non-fatal per
// spec §4.1) and returning ErrTransportClosed on a zero-byte, non-timeout
// read (the transport indicating closure).
func (d *Decoder) readExact(r Reader, buf []byte) error {
	filled := 0
	for filled < len(buf) {
		n, err := r.Read(buf[filled:], d.recvTimeout)
		if n > 0 {
			filled += n
		}
		if err != nil {
			if errors.Is(err, ErrTimeout) {
				continue
			}
			return err
		}
		if n == 0 {
			return ErrTransportClosed
		}
	}
	return nil
}
