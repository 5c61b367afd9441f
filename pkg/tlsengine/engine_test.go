package tlsengine

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"math/big"
	"net"
	"testing"
	"time"
)

// serverTLSConfig builds a throwaway self-signed *tls.Config for the
// peer side of the handshake, playing the phone's role in the test.
func serverTLSConfig(t *testing.T) *tls.Config {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		NotBefore:    time.Now(),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("CreateCertificate: %v", err)
	}
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		t.Fatalf("X509KeyPair: %v", err)
	}
	return &tls.Config{Certificates: []tls.Certificate{cert}}
}

// TestHandshakeAndDataPath drives a real tls.Server against the Engine's
// client-side handshake over an in-memory wire, then exercises Encrypt and
// Decrypt in both directions.
func TestHandshakeAndDataPath(t *testing.T) {
	wireClient, wireServer := net.Pipe()

	serverDone := make(chan *tls.Conn, 1)
	go func() {
		sconn := tls.Server(wireServer, serverTLSConfig(t))
		if err := sconn.Handshake(); err != nil {
			t.Errorf("server handshake: %v", err)
			serverDone <- nil
			return
		}
		serverDone <- sconn
	}()

	engine, err := New("headunit.local")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// Pump handshake bytes between the engine and the wire until Established.
	go func() {
		for {
			done, out, herr := engine.Handshake(200 * time.Millisecond)
			if len(out) > 0 {
				if _, err := wireClient.Write(out); err != nil {
					return
				}
			}
			if herr != nil || done {
				return
			}
		}
	}()

	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		buf := make([]byte, maxRecordBuffer)
		for {
			n, err := wireClient.Read(buf)
			if n > 0 {
				engine.Feed(buf[:n])
			}
			if err != nil {
				return
			}
			if engine.Established() {
				return
			}
		}
	}()

	sconn := <-serverDone
	if sconn == nil {
		t.Fatalf("server handshake failed")
	}

	deadline := time.After(3 * time.Second)
	for !engine.Established() {
		select {
		case <-deadline:
			t.Fatalf("engine never reached Established()")
		case <-time.After(10 * time.Millisecond):
		}
	}

	// Stop the handshake reader so it cannot swallow the data-path bytes.
	wireClient.SetReadDeadline(time.Now())
	<-readDone
	wireClient.SetReadDeadline(time.Time{})

	ciphertext, err := engine.Encrypt([]byte("hello phone"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	// net.Pipe is synchronous, so each write runs while the other end reads.
	writeErr := make(chan error, 1)
	go func() {
		_, err := wireClient.Write(ciphertext)
		writeErr <- err
	}()

	buf := make([]byte, 4096)
	sconn.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, err := sconn.Read(buf)
	if err != nil {
		t.Fatalf("server read: %v", err)
	}
	if err := <-writeErr; err != nil {
		t.Fatalf("write ciphertext to wire: %v", err)
	}
	if !bytes.Equal(buf[:n], []byte("hello phone")) {
		t.Errorf("server got %q, want %q", buf[:n], "hello phone")
	}

	go func() {
		_, err := sconn.Write([]byte("hello head unit"))
		writeErr <- err
	}()
	wireClient.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, err = wireClient.Read(buf)
	if err != nil {
		t.Fatalf("client read ciphertext: %v", err)
	}
	if err := <-writeErr; err != nil {
		t.Fatalf("server write: %v", err)
	}
	plaintext, err := engine.Decrypt(buf[:n])
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if !bytes.Equal(plaintext, []byte("hello head unit")) {
		t.Errorf("client got %q, want %q", plaintext, "hello head unit")
	}
}
