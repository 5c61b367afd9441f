package reassembly

import (
	"bytes"
	"testing"

	"github.com/z9yaya/AAM-headunit/pkg/aawire"
)

func TestSingleFrameMessage(t *testing.T) {
	table := New()
	f := &aawire.Frame{Channel: 4, Flags: aawire.FlagFirst | aawire.FlagLast, Payload: []byte("hello")}

	msg, complete, err := table.Process(4, f)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !complete {
		t.Fatalf("expected complete=true for a FIRST|LAST frame")
	}
	if !bytes.Equal(msg, []byte("hello")) {
		t.Errorf("msg = %q, want %q", msg, "hello")
	}
}

func TestFragmentedMessage(t *testing.T) {
	table := New()

	frames := []*aawire.Frame{
		{Channel: 3, Flags: aawire.FlagFirst, Payload: []byte("aaaa")},
		{Channel: 3, Flags: 0, Payload: []byte("bbbb")},
		{Channel: 3, Flags: aawire.FlagLast, Payload: []byte("cccc")},
	}

	var last []byte
	var complete bool
	var err error
	for _, f := range frames {
		last, complete, err = table.Process(3, f)
		if err != nil {
			t.Fatalf("Process: %v", err)
		}
	}
	if !complete {
		t.Fatalf("expected complete=true after LAST fragment")
	}
	if want := "aaaabbbbcccc"; string(last) != want {
		t.Errorf("reassembled = %q, want %q", last, want)
	}
}

func TestMidFragmentOnIdleChannelIsProtocolViolation(t *testing.T) {
	table := New()
	f := &aawire.Frame{Channel: 3, Flags: 0, Payload: []byte("stray")}

	_, complete, err := table.Process(3, f)
	if err != ErrProtocolViolation {
		t.Fatalf("err = %v, want ErrProtocolViolation", err)
	}
	if complete {
		t.Fatalf("expected complete=false on a protocol violation")
	}
}

func TestChannelsAreIndependent(t *testing.T) {
	table := New()

	f0 := &aawire.Frame{Channel: 0, Flags: aawire.FlagFirst, Payload: []byte("ctrl-")}
	if _, complete, err := table.Process(0, f0); err != nil || complete {
		t.Fatalf("unexpected state after first ctrl fragment: complete=%v err=%v", complete, err)
	}

	fMedia := &aawire.Frame{Channel: 4, Flags: aawire.FlagFirst | aawire.FlagLast, Payload: []byte("media")}
	msg, complete, err := table.Process(4, fMedia)
	if err != nil || !complete || string(msg) != "media" {
		t.Fatalf("media channel affected by in-flight ctrl fragment: msg=%q complete=%v err=%v", msg, complete, err)
	}

	fCtrlLast := &aawire.Frame{Channel: 0, Flags: aawire.FlagLast, Payload: []byte("done")}
	msg, complete, err = table.Process(0, fCtrlLast)
	if err != nil || !complete || string(msg) != "ctrl-done" {
		t.Fatalf("ctrl channel reassembly broken: msg=%q complete=%v err=%v", msg, complete, err)
	}
}

func TestResetClearsInFlightFragment(t *testing.T) {
	table := New()
	table.Process(2, &aawire.Frame{Channel: 2, Flags: aawire.FlagFirst, Payload: []byte("x")})
	table.Reset(2)

	_, _, err := table.Process(2, &aawire.Frame{Channel: 2, Flags: 0, Payload: []byte("y")})
	if err != ErrProtocolViolation {
		t.Fatalf("err = %v, want ErrProtocolViolation after Reset", err)
	}
}
