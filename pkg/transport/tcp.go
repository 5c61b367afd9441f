package transport

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultPort is the TCP port the Android Auto Wi-Fi projection service
// listens on (spec §6).
const DefaultPort = 5277

// TCPStats mirrors the teacher's TCPChannel.Statistics, minus the
// reconnect-related counters that no longer apply now that this transport
// never reconnects on its own.
type TCPStats struct {
	BytesSent     uint64
	BytesReceived uint64
	WriteErrors   uint64
	ReadErrors    uint64
}

// TCPTransport connects once to a phone's Wi-Fi projection endpoint and
// never attempts to reconnect: per spec §7 a broken transport must drive
// the connection to STOPPED, not silently mask the failure the way the
// teacher's TCPChannel does.
type TCPTransport struct {
	address string

	connMu sync.RWMutex
	conn   net.Conn

	stats struct {
		bytesSent     atomic.Uint64
		bytesReceived atomic.Uint64
		writeErrors   atomic.Uint64
		readErrors    atomic.Uint64
	}

	errCh  chan error
	errOne sync.Once

	closed atomic.Bool
}

// NewTCPTransport builds a TCPTransport that will dial host:port on Start.
// If port is 0, DefaultPort is used.
func NewTCPTransport(host string, port int) *TCPTransport {
	if port == 0 {
		port = DefaultPort
	}
	return &TCPTransport{
		address: fmt.Sprintf("%s:%d", host, port),
		errCh:   make(chan error, 1),
	}
}

func (t *TCPTransport) Start(ctx context.Context, waitForDevice bool) error {
	dialer := net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", t.address)
	if err != nil {
		return fmt.Errorf("transport: dial %s: %w", t.address, err)
	}

	t.connMu.Lock()
	t.conn = conn
	t.connMu.Unlock()
	return nil
}

func (t *TCPTransport) Stop() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}

	t.connMu.Lock()
	conn := t.conn
	t.conn = nil
	t.connMu.Unlock()

	if conn != nil {
		return conn.Close()
	}
	return nil
}

func (t *TCPTransport) Write(ctx context.Context, buf []byte, timeout time.Duration) (int, error) {
	t.connMu.RLock()
	conn := t.conn
	t.connMu.RUnlock()

	if conn == nil {
		return 0, ErrClosed
	}

	if timeout > 0 {
		conn.SetWriteDeadline(time.Now().Add(timeout))
	}

	n, err := conn.Write(buf)
	if err != nil {
		t.stats.writeErrors.Add(1)
		if !isTimeout(err) {
			t.reportFatal(fmt.Errorf("transport: write: %w", err))
		}
		return n, err
	}

	t.stats.bytesSent.Add(uint64(n))
	return n, nil
}

func (t *TCPTransport) Read(ctx context.Context, timeout time.Duration) ([]byte, error) {
	t.connMu.RLock()
	conn := t.conn
	t.connMu.RUnlock()

	if conn == nil {
		return nil, ErrClosed
	}

	if timeout > 0 {
		conn.SetReadDeadline(time.Now().Add(timeout))
	}

	buf := make([]byte, 4096)
	n, err := conn.Read(buf)
	if err != nil {
		if isTimeout(err) {
			return nil, ErrReadTimeout
		}
		t.stats.readErrors.Add(1)
		t.reportFatal(fmt.Errorf("transport: read: %w", err))
		return nil, err
	}

	t.stats.bytesReceived.Add(uint64(n))
	return buf[:n], nil
}

func (t *TCPTransport) Errors() <-chan error {
	return t.errCh
}

func (t *TCPTransport) Stats() TCPStats {
	return TCPStats{
		BytesSent:     t.stats.bytesSent.Load(),
		BytesReceived: t.stats.bytesReceived.Load(),
		WriteErrors:   t.stats.writeErrors.Load(),
		ReadErrors:    t.stats.readErrors.Load(),
	}
}

func (t *TCPTransport) reportFatal(err error) {
	t.errOne.Do(func() {
		select {
		case t.errCh <- err:
		default:
		}
	})
}

func isTimeout(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}
