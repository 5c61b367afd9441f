// Package headunit assembles the transport, frame codec, TLS engine,
// reassembly table, and dispatcher into one connection state machine and
// poll loop (spec §2 item 10, §4.6).
package headunit

import (
	"context"
	"encoding/binary"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/z9yaya/AAM-headunit/internal/logger"
	"github.com/z9yaya/AAM-headunit/pkg/aaproto"
	"github.com/z9yaya/AAM-headunit/pkg/aawire"
	"github.com/z9yaya/AAM-headunit/pkg/callback"
	"github.com/z9yaya/AAM-headunit/pkg/dispatch"
	"github.com/z9yaya/AAM-headunit/pkg/queue"
	"github.com/z9yaya/AAM-headunit/pkg/reassembly"
	"github.com/z9yaya/AAM-headunit/pkg/session"
	"github.com/z9yaya/AAM-headunit/pkg/tlsengine"
	"github.com/z9yaya/AAM-headunit/pkg/transport"
)

// Config carries the tunables spec §5 and §4.4 name with concrete defaults.
type Config struct {
	RecvTimeout        time.Duration // default 150ms
	SendTimeout        time.Duration // default 500ms
	SendRetries        int           // 0 means try once
	ProtocolMajor      uint16
	ProtocolMinor      uint16
	ServerName         string // TLS ServerName / SNI for the in-band handshake
	Dispatch           dispatch.Config
	BackupCameraFocusDelay time.Duration // default 1s, spec §9
}

// DefaultConfig returns the spec-mandated defaults.
func DefaultConfig() Config {
	return Config{
		RecvTimeout:            150 * time.Millisecond,
		SendTimeout:            500 * time.Millisecond,
		SendRetries:            0,
		ProtocolMajor:          1,
		ProtocolMinor:          1,
		BackupCameraFocusDelay: time.Second,
	}
}

// Connection owns exactly one I/O goroutine, the TLS engine, the
// reassembly buffers, and the channel table (spec §4.5, §5): everything
// except the command queue and the state atomic is confined to that
// goroutine.
type Connection struct {
	cfg  Config
	tr   transport.Transport
	sink callback.EventSink
	log  logger.Logger

	decoder    *aawire.Decoder
	tls        *tlsengine.Engine
	reasm      *reassembly.Table
	sessions   *session.Table
	dispatcher *dispatch.Dispatcher

	cmdQueue *queue.Queue

	state    atomic.Int32
	stopOnce sync.Once
	wg       sync.WaitGroup
	done     chan struct{}

	// stopErr is set by fail before teardown runs; nil means an orderly
	// stop or shutdown. Only ever touched from the I/O goroutine.
	stopErr error

	loopCtx    context.Context
	loopCancel context.CancelFunc
}

// New constructs a Connection in StateInitial. Nothing is opened until
// Start is called.
func New(cfg Config, tr transport.Transport, sink callback.EventSink, log logger.Logger) *Connection {
	if log == nil {
		log = logger.GetDefault()
	}
	sessions := session.New()

	c := &Connection{
		cfg:      cfg,
		tr:       tr,
		sink:     sink,
		log:      log,
		decoder:  aawire.NewDecoder(cfg.RecvTimeout),
		reasm:    reassembly.New(),
		sessions: sessions,
		cmdQueue: queue.New(),
		done:     make(chan struct{}),
	}
	c.dispatcher = dispatch.New(cfg.Dispatch, sessions, sink, log)
	return c
}

// State returns the current lifecycle state.
func (c *Connection) State() State {
	return State(c.state.Load())
}

func (c *Connection) setState(s State) {
	c.state.Store(int32(s))
}

// Start opens the transport, spawns the I/O goroutine, and drives the
// connection from INITIAL through STARTING (spec §4.6). It returns once the
// transport is open and the goroutine is running; STARTED is reached
// asynchronously once the handshake completes.
func (c *Connection) Start(ctx context.Context, waitForDevice bool) error {
	if !c.state.CompareAndSwap(int32(StateInitial), int32(StateStarting)) {
		return newError(KindProtocolViolation, errors.New("headunit: Start called outside INITIAL"))
	}

	engine, err := tlsengine.New(c.cfg.ServerName)
	if err != nil {
		c.setState(StateStopped)
		return newError(KindTLSFailure, err)
	}
	c.tls = engine

	if err := c.tr.Start(ctx, waitForDevice); err != nil {
		c.setState(StateStopped)
		return newError(KindTransportFailure, err)
	}

	c.loopCtx, c.loopCancel = context.WithCancel(context.Background())
	c.wg.Add(1)
	go c.ioLoop()

	return nil
}

// Stop is idempotent and safe from any goroutine; it drives STOPPING then
// STOPPED, closing TLS and the transport and joining the I/O goroutine
// (spec §4.6, §5).
func (c *Connection) Stop() error {
	c.stopOnce.Do(func() {
		c.transitionToStopping()
		c.cmdQueue.Push(func(s queue.Sender) {}) // wake the loop so it notices the state change promptly
		if c.loopCancel != nil {
			c.loopCancel()
		}
	})
	c.wg.Wait()
	return nil
}

func (c *Connection) transitionToStopping() {
	for {
		cur := State(c.state.Load())
		if cur == StateStopping || cur == StateStopped {
			return
		}
		if c.state.CompareAndSwap(int32(cur), int32(StateStopping)) {
			return
		}
	}
}

// ioLoop is the single dedicated I/O thread of spec §5: it owns the TLS
// engine, reassembly buffers, and channel table exclusively, alternating
// between draining the command queue and polling the transport.
func (c *Connection) ioLoop() {
	defer c.wg.Done()
	defer c.teardown()

	reader := &transportReader{t: c.tr, ctx: c.loopCtx, idle: c.drainCommands}

	if err := c.sendVersionRequest(); err != nil {
		c.fail(err)
		return
	}

	for {
		if c.State() == StateStopping {
			c.drainCommands()
			return
		}

		select {
		case <-c.loopCtx.Done():
			c.drainCommands()
			return
		case err := <-c.tr.Errors():
			c.fail(newError(KindTransportFailure, err))
			return
		case <-c.cmdQueue.Wake():
			c.drainCommands()
			continue
		default:
		}

		frame, err := c.decoder.Decode(reader)
		if err != nil {
			if errors.Is(err, aawire.ErrTimeout) {
				continue
			}
			if errors.Is(err, context.Canceled) {
				c.drainCommands()
				return
			}
			c.fail(newError(KindTransportFailure, err))
			return
		}

		if fatal := c.handleFrame(frame); fatal != nil {
			if fatal == errStopRequested {
				c.setState(StateStopping)
				continue
			}
			c.fail(fatal)
			return
		}
	}
}

var errStopRequested = errors.New("headunit: peer requested shutdown")

func (c *Connection) drainCommands() {
	sender := c.ioSender()
	for {
		cmd, ok := c.cmdQueue.Pop()
		if !ok {
			return
		}
		c.log.Debug("headunit: running queued command %s", cmd.ID)
		cmd.Run(sender)
	}
}

// handleFrame processes one decoded frame through reassembly, then (once a
// message is complete) TLS decryption and the dispatcher. It returns a
// non-nil *Error for conditions the caller should treat as fatal, or
// errStopRequested if the peer asked for an orderly shutdown.
func (c *Connection) handleFrame(f *aawire.Frame) error {
	msg, complete, err := c.reasm.Process(f.Channel, f)
	if err != nil {
		if errors.Is(err, reassembly.ErrProtocolViolation) {
			if c.State() == StateStarting {
				return newError(KindProtocolViolation, err)
			}
			c.log.Warn("headunit: dropping protocol violation on channel %d: %v", f.Channel, err)
			return nil
		}
		return newError(KindProtocolViolation, err)
	}
	if !complete {
		return nil
	}

	if f.Flags.Has(aawire.FlagEncrypted) {
		plaintext, err := c.tls.Decrypt(msg)
		if err != nil {
			return newError(KindTLSFailure, err)
		}
		msg = plaintext
	}

	if f.Channel == byte(aaproto.ChannelCTRL) && !c.tls.Established() {
		return c.handlePreAuthCTRL(msg)
	}

	sender := c.ioSender()
	if err := c.dispatcher.Dispatch(f.Channel, msg, sender); err != nil {
		if errors.Is(err, dispatch.ErrShutdownRequested) {
			return errStopRequested
		}
		var herr *Error
		if errors.As(err, &herr) {
			if herr.Kind.Fatal() {
				return herr
			}
		} else {
			herr = newError(KindProtocolViolation, err)
		}
		if herr.Kind == KindProtocolViolation && c.State() == StateStarting {
			return herr
		}
		c.log.Warn("headunit: dropping message on channel %d: %v", f.Channel, err)
	}
	return nil
}

// handlePreAuthCTRL processes the fixed HU_INIT_MESSAGE sequence on channel
// 0 that happens before TLS is established: VersionResponse and
// SSLHandshake (spec §4.1, §4.4).
func (c *Connection) handlePreAuthCTRL(msg []byte) error {
	if len(msg) < 2 {
		return newError(KindProtocolViolation, dispatch.ErrShortMessage)
	}
	code := aaproto.MessageCode(binary.BigEndian.Uint16(msg[0:2]))
	body := msg[2:]

	switch code {
	case aaproto.MsgVersionResponse:
		var resp aaproto.VersionResponse
		if err := resp.Unmarshal(body); err != nil {
			return newError(KindProtocolViolation, err)
		}
		if resp.Status != aaproto.VersionStatusMatch {
			return newError(KindProtocolViolation, errors.New("headunit: version mismatch"))
		}
		return c.driveHandshake()

	case aaproto.MsgSSLHandshake:
		c.tls.Feed(body)
		return c.driveHandshake()

	default:
		c.log.Debug("headunit: unexpected pre-auth CTRL code %#04x", uint16(code))
		return nil
	}
}

// driveHandshake advances the TLS handshake and forwards any outgoing
// ciphertext as an SSLHandshake message; once established it sends
// AuthComplete (spec §4.1, §4.4).
func (c *Connection) driveHandshake() error {
	done, outgoing, err := c.tls.Handshake(c.cfg.SendTimeout)
	if err != nil {
		return newError(KindTLSFailure, err)
	}
	if len(outgoing) > 0 {
		if err := c.sendUnencryptedNow(byte(aaproto.ChannelCTRL), uint16(aaproto.MsgSSLHandshake), outgoing); err != nil {
			return err
		}
	}
	if done {
		auth := aaproto.AuthCompleteMessage{Status: 0}
		if err := c.sendUnencryptedNow(byte(aaproto.ChannelCTRL), uint16(aaproto.MsgAuthComplete), auth.Marshal()); err != nil {
			return err
		}
		c.setState(StateStarted)
	}
	return nil
}

func (c *Connection) sendVersionRequest() error {
	req := aaproto.VersionRequest{Major: c.cfg.ProtocolMajor, Minor: c.cfg.ProtocolMinor}
	return c.sendUnencryptedNow(byte(aaproto.ChannelCTRL), uint16(aaproto.MsgVersionRequest), req.Marshal())
}

// fail records a fatal error and drives the connection to STOPPING; the
// error is reported to the embedder once teardown reaches STOPPED, not
// here, so that DisconnectionOrError fires exactly once regardless of
// which path out of ioLoop is taken (spec §8 scenario 6).
func (c *Connection) fail(err error) {
	c.setState(StateStopping)
	c.log.Warn("headunit: fatal error, stopping: %v", err)
	c.stopErr = err
}

// teardown runs once, as ioLoop's deferred cleanup, on every exit path:
// fatal error, peer-requested shutdown, or an external Stop(). It is the
// single place DisconnectionOrError fires (nil for an orderly stop or
// shutdown, the fatal error otherwise).
func (c *Connection) teardown() {
	if c.tls != nil {
		c.tls.Close()
	}
	c.tr.Stop()
	c.setState(StateStopped)
	c.sink.DisconnectionOrError(c.stopErr)
	close(c.done)
}

// transportReader adapts a transport.Transport (which returns freshly
// allocated chunks) to aawire.Reader (which fills a caller-owned buffer),
// buffering whatever didn't fit between calls. idle, when set, runs after
// every read timeout so queued commands are serviced while Decode waits.
type transportReader struct {
	t    transport.Transport
	ctx  context.Context
	buf  []byte
	idle func()
}

func (r *transportReader) Read(dst []byte, timeout time.Duration) (int, error) {
	if len(r.buf) == 0 {
		select {
		case <-r.ctx.Done():
			return 0, r.ctx.Err()
		default:
		}
		chunk, err := r.t.Read(r.ctx, timeout)
		if err != nil {
			if errors.Is(err, transport.ErrReadTimeout) {
				if r.idle != nil {
					r.idle()
				}
				return 0, aawire.ErrTimeout
			}
			return 0, err
		}
		r.buf = chunk
	}
	n := copy(dst, r.buf)
	r.buf = r.buf[n:]
	return n, nil
}
