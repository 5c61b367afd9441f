package headunit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/z9yaya/AAM-headunit/pkg/aaproto"
	"github.com/z9yaya/AAM-headunit/pkg/callback"
	"github.com/z9yaya/AAM-headunit/pkg/transport"
)

// fakeTransport is an in-memory transport.Transport used to drive the I/O
// loop without a real socket or USB device.
type fakeTransport struct {
	mu      sync.Mutex
	writes  [][]byte
	readCh  chan []byte
	errCh   chan error
	started bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		readCh: make(chan []byte, 8),
		errCh:  make(chan error, 1),
	}
}

func (f *fakeTransport) Start(ctx context.Context, waitForDevice bool) error {
	f.started = true
	return nil
}
func (f *fakeTransport) Stop() error { return nil }
func (f *fakeTransport) Write(ctx context.Context, buf []byte, timeout time.Duration) (int, error) {
	f.mu.Lock()
	f.writes = append(f.writes, append([]byte(nil), buf...))
	f.mu.Unlock()
	return len(buf), nil
}
func (f *fakeTransport) Read(ctx context.Context, timeout time.Duration) ([]byte, error) {
	select {
	case b := <-f.readCh:
		return b, nil
	case <-time.After(timeout):
		return nil, transport.ErrReadTimeout
	}
}
func (f *fakeTransport) Errors() <-chan error { return f.errCh }

func (f *fakeTransport) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.writes)
}

func newTestConnection(tr transport.Transport) *Connection {
	cfg := DefaultConfig()
	cfg.RecvTimeout = 5 * time.Millisecond
	cfg.SendTimeout = 20 * time.Millisecond
	return New(cfg, tr, &callback.NoOpSink{}, nil)
}

func TestNewIsInitial(t *testing.T) {
	c := newTestConnection(newFakeTransport())
	if c.State() != StateInitial {
		t.Errorf("State() = %v, want INITIAL", c.State())
	}
}

func TestStartSendsVersionRequestAndEntersStarting(t *testing.T) {
	tr := newFakeTransport()
	c := newTestConnection(tr)

	if err := c.Start(context.Background(), false); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer c.Stop()

	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) {
		if tr.writeCount() > 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	if tr.writeCount() == 0 {
		t.Fatal("expected the connection to write a VersionRequest frame")
	}
	if c.State() != StateStarting {
		t.Errorf("State() = %v, want STARTING (no VersionResponse delivered yet)", c.State())
	}
}

func TestSendBeforeStartedFailsWithNotOpen(t *testing.T) {
	c := newTestConnection(newFakeTransport())

	err := c.SendUnencryptedMessage(byte(aaproto.ChannelCTRL), uint16(aaproto.MsgPingRequest), nil)
	if err == nil {
		t.Fatal("expected an error sending before the connection reached STARTED")
	}
	var herr *Error
	if !asError(err, &herr) || herr.Kind != KindNotOpen {
		t.Errorf("err = %v, want a *Error with KindNotOpen", err)
	}
}

func TestStopIsIdempotentAndReachesStopped(t *testing.T) {
	tr := newFakeTransport()
	c := newTestConnection(tr)

	if err := c.Start(context.Background(), false); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := c.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := c.Stop(); err != nil {
		t.Fatalf("second Stop: %v", err)
	}

	if c.State() != StateStopped {
		t.Errorf("State() = %v, want STOPPED", c.State())
	}
}

func TestCheckOpenAllowsCTRLRegardlessOfSessionState(t *testing.T) {
	c := newTestConnection(newFakeTransport())
	if err := c.checkOpen(byte(aaproto.ChannelCTRL)); err != nil {
		t.Errorf("checkOpen(CTRL) = %v, want nil", err)
	}
}

func TestCheckOpenRejectsUnopenedChannel(t *testing.T) {
	c := newTestConnection(newFakeTransport())
	err := c.checkOpen(byte(aaproto.ChannelVideo))
	var herr *Error
	if !asError(err, &herr) || herr.Kind != KindNotOpen {
		t.Errorf("checkOpen(unopened) = %v, want KindNotOpen", err)
	}
}

func TestCheckOpenAllowsChannelAfterOpen(t *testing.T) {
	c := newTestConnection(newFakeTransport())
	c.sessions.Open(byte(aaproto.ChannelVideo), 1)
	if err := c.checkOpen(byte(aaproto.ChannelVideo)); err != nil {
		t.Errorf("checkOpen(opened) = %v, want nil", err)
	}
}

func TestIoSenderRejectsSendOnUnopenedChannel(t *testing.T) {
	tr := newFakeTransport()
	c := newTestConnection(tr)

	err := c.ioSender().SendUnencryptedMessage(byte(aaproto.ChannelVideo), uint16(aaproto.MsgMediaStartRequest), nil)
	var herr *Error
	if !asError(err, &herr) || herr.Kind != KindNotOpen {
		t.Errorf("err = %v, want KindNotOpen", err)
	}
	if tr.writeCount() != 0 {
		t.Errorf("expected no bytes written for a rejected send, got %d writes", tr.writeCount())
	}
}

func TestIoSenderAllowsUnencryptedSendOnCTRL(t *testing.T) {
	tr := newFakeTransport()
	c := newTestConnection(tr)

	req := aaproto.PingRequest{Timestamp: 42}
	err := c.ioSender().SendUnencryptedMessage(byte(aaproto.ChannelCTRL), uint16(aaproto.MsgPingRequest), req.Marshal())
	if err != nil {
		t.Fatalf("SendUnencryptedMessage: %v", err)
	}
	if tr.writeCount() != 1 {
		t.Fatalf("expected exactly one frame written, got %d", tr.writeCount())
	}
}

// asError is a small helper standing in for errors.As so tests read the
// same way whether the error came back wrapped or bare.
func asError(err error, target **Error) bool {
	if e, ok := err.(*Error); ok {
		*target = e
		return true
	}
	return false
}
