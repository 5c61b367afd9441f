package headunit

import (
	"encoding/binary"
	"errors"

	"github.com/z9yaya/AAM-headunit/pkg/aaproto"
	"github.com/z9yaya/AAM-headunit/pkg/aawire"
	"github.com/z9yaya/AAM-headunit/pkg/queue"
)

// ErrNotOpen is returned by any of the four send primitives when the
// target channel is neither CTRL nor open (spec §6, §7).
var ErrNotOpen = errors.New("headunit: channel not open")

// ErrConnectionClosed is returned by the public Send* methods when the
// connection tears down before a queued command could run.
var ErrConnectionClosed = errors.New("headunit: connection closed")

// Connection itself implements queue.Sender for callers outside the I/O
// goroutine: each call posts a Command and blocks its own calling
// goroutine (never the I/O loop) until that Command has actually run,
// giving producers the same four primitives dispatch code gets, safely
// (spec §4.5, §6).
var _ queue.Sender = (*Connection)(nil)

func (c *Connection) SendUnencryptedMessage(channel byte, code uint16, body []byte) error {
	return c.enqueueAndWait(func(s queue.Sender) error { return s.SendUnencryptedMessage(channel, code, body) })
}

func (c *Connection) SendUnencryptedBlob(channel byte, payload []byte) error {
	return c.enqueueAndWait(func(s queue.Sender) error { return s.SendUnencryptedBlob(channel, payload) })
}

func (c *Connection) SendEncryptedMessage(channel byte, code uint16, body []byte) error {
	return c.enqueueAndWait(func(s queue.Sender) error { return s.SendEncryptedMessage(channel, code, body) })
}

func (c *Connection) SendEncryptedMediaPacket(channel byte, payload []byte) error {
	return c.enqueueAndWait(func(s queue.Sender) error { return s.SendEncryptedMediaPacket(channel, payload) })
}

func (c *Connection) enqueueAndWait(fn func(s queue.Sender) error) error {
	if c.State() != StateStarted {
		return newError(KindNotOpen, ErrNotOpen)
	}
	result := make(chan error, 1)
	c.cmdQueue.Push(func(s queue.Sender) { result <- fn(s) })
	select {
	case err := <-result:
		return err
	case <-c.done:
		return newError(KindTransportFailure, ErrConnectionClosed)
	}
}

// ioSender implements queue.Sender (a superset of dispatch.Sender) and is
// the only thing in this package allowed to touch the transport and TLS
// engine directly. It is only ever constructed and used from inside
// ioLoop, whether servicing a dispatcher reply or draining a queued
// Command, so it never races the rest of Connection's I/O-goroutine state.
type ioSender struct {
	c *Connection
}

func (c *Connection) ioSender() queue.Sender { return ioSender{c: c} }

func (s ioSender) SendUnencryptedMessage(channel byte, code uint16, body []byte) error {
	if err := s.c.checkOpen(channel); err != nil {
		return err
	}
	return s.c.sendUnencryptedNow(channel, code, body)
}

func (s ioSender) SendUnencryptedBlob(channel byte, payload []byte) error {
	if err := s.c.checkOpen(channel); err != nil {
		return err
	}
	return s.c.sendRaw(channel, 0, payload)
}

func (s ioSender) SendEncryptedMessage(channel byte, code uint16, body []byte) error {
	// A ChannelOpenResponse answers a request for a channel that is not open
	// yet (and stays closed on FAIL), so it is exempt from the open check.
	if code != uint16(aaproto.MsgChannelOpenResponse) {
		if err := s.c.checkOpen(channel); err != nil {
			return err
		}
	}
	msg := make([]byte, 2+len(body))
	binary.BigEndian.PutUint16(msg[0:2], code)
	copy(msg[2:], body)
	ciphertext, err := s.c.tls.Encrypt(msg)
	if err != nil {
		return newError(KindTLSFailure, err)
	}
	return s.c.sendRaw(channel, aawire.FlagEncrypted, ciphertext)
}

func (s ioSender) SendEncryptedMediaPacket(channel byte, payload []byte) error {
	if err := s.c.checkOpen(channel); err != nil {
		return err
	}
	ciphertext, err := s.c.tls.Encrypt(payload)
	if err != nil {
		return newError(KindTLSFailure, err)
	}
	return s.c.sendRaw(channel, aawire.FlagEncrypted, ciphertext)
}

// checkOpen enforces that every channel but CTRL must be open before it can
// be sent on (spec §7: "send on a closed channel fails with NotOpen and is
// not retried").
func (c *Connection) checkOpen(channel byte) error {
	if channel == byte(aaproto.ChannelCTRL) {
		return nil
	}
	if !c.sessions.Get(channel).Open {
		return newError(KindNotOpen, ErrNotOpen)
	}
	return nil
}

// sendUnencryptedNow builds a (code, body) message and writes it as a
// CONTROL frame. It carries the pre-TLS HU_INIT_MESSAGE exchange
// (VersionRequest, SSLHandshake, AuthComplete), since spec §4.2 wraps
// handshake and setup traffic in CONTROL frames, and it also backs
// ioSender.SendUnencryptedMessage.
func (c *Connection) sendUnencryptedNow(channel byte, code uint16, body []byte) error {
	msg := make([]byte, 2+len(body))
	binary.BigEndian.PutUint16(msg[0:2], code)
	copy(msg[2:], body)
	return c.sendRaw(channel, aawire.FlagControl, msg)
}

// sendRaw fragments payload into wire frames and writes each in turn,
// retrying a short write up to cfg.SendRetries times before giving up with
// a fatal TransportFailure (spec §5, §7).
func (c *Connection) sendRaw(channel byte, flags aawire.Flags, payload []byte) error {
	frames, err := aawire.Encode(channel, flags, payload)
	if err != nil {
		return newError(KindProtocolViolation, err)
	}
	for _, frame := range frames {
		if err := c.writeFrame(frame); err != nil {
			return err
		}
	}
	return nil
}

func (c *Connection) writeFrame(frame []byte) error {
	written := 0
	attempts := c.cfg.SendRetries + 1
	for attempt := 0; attempt < attempts && written < len(frame); attempt++ {
		n, err := c.tr.Write(c.loopCtx, frame[written:], c.cfg.SendTimeout)
		written += n
		if err != nil {
			continue
		}
	}
	if written < len(frame) {
		return newError(KindTransportFailure, errors.New("headunit: write did not complete after retries"))
	}
	return nil
}
