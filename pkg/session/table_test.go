package session

import (
	"testing"

	"github.com/z9yaya/AAM-headunit/pkg/aaproto"
)

func TestNewSeedsReservedKinds(t *testing.T) {
	table := New()

	ch := table.Get(byte(aaproto.ChannelVideo))
	if ch.Kind != aaproto.KindVideoOut {
		t.Errorf("Kind = %v, want KindVideoOut", ch.Kind)
	}
	if ch.Open {
		t.Errorf("expected channel to start closed")
	}
	if ch.SessionID != unopenedSessionID {
		t.Errorf("SessionID = %d, want %d", ch.SessionID, unopenedSessionID)
	}
}

func TestOpenAndClose(t *testing.T) {
	table := New()
	table.Advertise(20, aaproto.KindAudioOut)
	table.Open(20, 7)

	ch := table.Get(20)
	if !ch.Open || ch.SessionID != 7 {
		t.Fatalf("got %+v, want open with SessionID=7", ch)
	}

	table.Close(20)
	ch = table.Get(20)
	if ch.Open || ch.SessionID != unopenedSessionID {
		t.Fatalf("got %+v after Close, want closed with SessionID=%d", ch, unopenedSessionID)
	}
}

func TestStartStopMedia(t *testing.T) {
	table := New()
	table.Advertise(20, aaproto.KindAudioOut)
	table.Open(20, 7)

	table.StartMedia(20)
	if !table.Get(20).Streaming {
		t.Fatalf("expected channel 20 to be streaming after StartMedia")
	}

	table.StopMedia(20)
	if table.Get(20).Streaming {
		t.Fatalf("expected channel 20 to not be streaming after StopMedia")
	}

	table.StartMedia(20)
	table.Close(20)
	if table.Get(20).Streaming {
		t.Fatalf("expected Close to clear Streaming")
	}
}

func TestResetPreservesKind(t *testing.T) {
	table := New()
	table.Advertise(30, aaproto.KindSensor)
	table.Open(30, 3)

	table.Reset()

	ch := table.Get(30)
	if ch.Kind != aaproto.KindSensor {
		t.Errorf("Kind = %v, want preserved KindSensor", ch.Kind)
	}
	if ch.Open || ch.SessionID != unopenedSessionID {
		t.Errorf("expected channel closed after Reset, got %+v", ch)
	}
}
