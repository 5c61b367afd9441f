package transport

import (
	"context"
	"net"
	"testing"
	"time"
)

func TestTCPTransportRoundTrip(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()

	serverDone := make(chan struct{})
	go func() {
		defer close(serverDone)
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 5)
		if _, err := conn.Read(buf); err != nil {
			return
		}
		conn.Write(buf)
	}()

	addr := ln.Addr().(*net.TCPAddr)
	tr := NewTCPTransport("127.0.0.1", addr.Port)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := tr.Start(ctx, false); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer tr.Stop()

	if _, err := tr.Write(ctx, []byte("hello"), time.Second); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := tr.Read(ctx, time.Second)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "hello" {
		t.Errorf("Read = %q, want %q", got, "hello")
	}

	<-serverDone
}

func TestTCPTransportDialFailureIsNotFatalPanic(t *testing.T) {
	tr := NewTCPTransport("127.0.0.1", 1) // reserved port, expected closed
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	if err := tr.Start(ctx, false); err == nil {
		t.Fatalf("expected Start to fail against an unreachable port")
	}
}

func TestTCPTransportWriteAfterStopReturnsErrClosed(t *testing.T) {
	tr := NewTCPTransport("127.0.0.1", 0)
	tr.Stop()

	ctx := context.Background()
	if _, err := tr.Write(ctx, []byte("x"), time.Second); err != ErrClosed {
		t.Errorf("Write after Stop = %v, want ErrClosed", err)
	}
	if _, err := tr.Read(ctx, time.Second); err != ErrClosed {
		t.Errorf("Read after Stop = %v, want ErrClosed", err)
	}
}
