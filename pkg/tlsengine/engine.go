// Package tlsengine drives an in-band TLS handshake tunneled through
// protocol frames instead of a raw socket (spec §4.2).
package tlsengine

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"net"
	"sync"
	"time"
)

// ErrNotEstablished is returned by Encrypt/Decrypt before the handshake has
// completed.
var ErrNotEstablished = errors.New("tlsengine: handshake not established")

const maxRecordBuffer = 65536

// Engine wraps crypto/tls.Conn around a net.Pipe() pair: the idiomatic Go
// analog of a memory BIO. crypto/tls has no memory-BIO mode of its own, so
// one end of the pipe is handed to tls.Client and driven entirely by
// feeding it the peer's ciphertext and draining what it wants to send,
// instead of a live socket (spec §4.2).
type Engine struct {
	conn    *tls.Conn
	appSide net.Conn // our end: fed with peer ciphertext, drained for outgoing ciphertext

	inbox   chan []byte // ciphertext waiting to be written onto appSide, in order
	outbox  chan []byte // ciphertext tls.Conn wrote to appSide, waiting to be sent

	established     chan struct{}
	establishedOnce sync.Once
	handshakeErr    error
	handshakeErrMu  sync.Mutex
}

// New creates an Engine and starts its background pumps together with the
// client handshake itself; Handshake then collects the ciphertext that
// handshake produces and reports its progress.
func New(serverName string) (*Engine, error) {
	cfg, err := generateSelfSignedConfig(serverName)
	if err != nil {
		return nil, fmt.Errorf("tlsengine: generate config: %w", err)
	}

	appSide, tlsSide := net.Pipe()
	conn := tls.Client(tlsSide, cfg)

	e := &Engine{
		conn:        conn,
		appSide:     appSide,
		inbox:       make(chan []byte, 16),
		outbox:      make(chan []byte, 16),
		established: make(chan struct{}),
	}

	go e.pumpInbox()
	go e.pumpOutbox()
	go e.runHandshake()

	return e, nil
}

// generateSelfSignedConfig builds a *tls.Config with a fresh self-signed
// certificate, the same technique the teacher uses for its QUIC transport
// (pkg/channel/quic_channel.go generateTLSConfig), adapted from a
// socket-owned handshake to our pipe-owned one.
func generateSelfSignedConfig(serverName string) (*tls.Config, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, err
	}

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		NotBefore:    time.Now(),
		NotAfter:     time.Now().Add(365 * 24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
	}

	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		return nil, err
	}

	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER})

	tlsCert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return nil, err
	}

	return &tls.Config{
		Certificates:       []tls.Certificate{tlsCert},
		ServerName:         serverName,
		InsecureSkipVerify: true,
	}, nil
}

// pumpInbox serializes writes of fed ciphertext onto appSide, matching what
// tls.Conn reads from the other end of the pipe as it needs input.
func (e *Engine) pumpInbox() {
	for chunk := range e.inbox {
		if _, err := e.appSide.Write(chunk); err != nil {
			return
		}
	}
}

// pumpOutbox continuously reads whatever tls.Conn wrote to its side of the
// pipe and republishes it as chunks callers can drain via Handshake,
// Encrypt, or Decrypt.
func (e *Engine) pumpOutbox() {
	buf := make([]byte, maxRecordBuffer)
	for {
		n, err := e.appSide.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			e.outbox <- chunk
		}
		if err != nil {
			return
		}
	}
}

func (e *Engine) runHandshake() {
	err := e.conn.Handshake()
	e.handshakeErrMu.Lock()
	e.handshakeErr = err
	e.handshakeErrMu.Unlock()
	e.establishedOnce.Do(func() { close(e.established) })
}

// Feed pushes ciphertext received from the peer's SSLHandshake message into
// the engine so tls.Conn can consume it as part of the handshake.
func (e *Engine) Feed(ciphertext []byte) {
	cp := make([]byte, len(ciphertext))
	copy(cp, ciphertext)
	e.inbox <- cp
}

// Handshake advances the handshake and returns any ciphertext this side now
// wants to send as the next SSLHandshake payload. done is true once the
// handshake has completed (Established() will report true immediately
// after); err reports a fatal handshake failure (spec §7 TLSFailure).
func (e *Engine) Handshake(timeout time.Duration) (done bool, outgoing []byte, err error) {
	select {
	case <-e.established:
		return true, e.drainOutbox(), e.readHandshakeErr()
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-e.established:
		return true, e.drainOutbox(), e.readHandshakeErr()
	case chunk := <-e.outbox:
		return false, append(chunk, e.drainOutbox()...), nil
	case <-timer.C:
		return false, nil, nil
	}
}

func (e *Engine) drainOutbox() []byte {
	var out []byte
	for {
		select {
		case chunk := <-e.outbox:
			out = append(out, chunk...)
		default:
			return out
		}
	}
}

func (e *Engine) readHandshakeErr() error {
	e.handshakeErrMu.Lock()
	defer e.handshakeErrMu.Unlock()
	return e.handshakeErr
}

// Established reports whether the handshake has completed successfully.
func (e *Engine) Established() bool {
	select {
	case <-e.established:
		return e.readHandshakeErr() == nil
	default:
		return false
	}
}

// Encrypt wraps plaintext into one or more TLS records and returns the
// resulting ciphertext, ready to frame as an ENCRYPTED payload.
func (e *Engine) Encrypt(plaintext []byte) ([]byte, error) {
	if !e.Established() {
		return nil, ErrNotEstablished
	}

	done := make(chan error, 1)
	go func() {
		_, err := e.conn.Write(plaintext)
		done <- err
	}()

	var out []byte
	for {
		select {
		case chunk := <-e.outbox:
			out = append(out, chunk...)
		case err := <-done:
			out = append(out, e.drainOutbox()...)
			if err != nil {
				return nil, fmt.Errorf("tlsengine: encrypt: %w", err)
			}
			return out, nil
		}
	}
}

// Decrypt feeds one message's ciphertext through the established
// connection and returns the plaintext. Each call is expected to correspond
// to exactly one already-reassembled ENCRYPTED frame payload (spec §4.3
// hands Decrypt a whole message, never a partial fragment).
func (e *Engine) Decrypt(ciphertext []byte) ([]byte, error) {
	if !e.Established() {
		return nil, ErrNotEstablished
	}

	e.Feed(ciphertext)

	buf := make([]byte, maxRecordBuffer)
	n, err := e.conn.Read(buf)
	if err != nil {
		return nil, fmt.Errorf("tlsengine: decrypt: %w", err)
	}
	out := append([]byte(nil), buf[:n]...)

	// A single ENCRYPTED frame payload can carry more than one TLS record,
	// and tls.Conn.Read only returns the first one it decrypted; drain
	// whatever else is already buffered instead of handing back a truncated
	// message. A short deadline distinguishes "more of this message" from
	// "peer has nothing more to say right now" without blocking Decrypt on
	// the next frame's ciphertext.
	for {
		_ = e.conn.SetReadDeadline(time.Now().Add(time.Millisecond))
		n, err := e.conn.Read(buf)
		if n > 0 {
			out = append(out, buf[:n]...)
		}
		if err != nil {
			break
		}
	}
	_ = e.conn.SetReadDeadline(time.Time{})

	return out, nil
}

// Close tears down the pipe and background pumps.
func (e *Engine) Close() error {
	close(e.inbox)
	return e.appSide.Close()
}
