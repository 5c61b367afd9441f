// Package session tracks the open/closed state and negotiated session id of
// every channel for one connection (spec §3).
package session

import "github.com/z9yaya/AAM-headunit/pkg/aaproto"

const numChannels = 256

// unopenedSessionID is the sentinel a Channel's SessionID holds before Open
// (on a successful ChannelOpenRequest) assigns it a real one.
const unopenedSessionID = -1

// Channel tracks one multiplexed channel's negotiated state.
type Channel struct {
	ID        byte
	Kind      aaproto.Kind
	Open      bool
	SessionID int32
	// Streaming records whether a MediaStartRequest has been seen since the
	// channel last opened, without a matching MediaStopRequest yet (spec
	// §4.4: "Call embedder MediaStart(chan), remember start").
	Streaming bool
}

// Table holds the per-connection state of every channel. It is not
// goroutine-safe on its own; the dispatcher only ever touches it from the
// I/O goroutine (spec §4.5).
type Table struct {
	channels [numChannels]Channel
}

// New returns a Table with every channel closed and its Kind pre-seeded
// from the fixed reserved set (spec §3); channels outside that set start as
// KindUnknown until advertised.
func New() *Table {
	t := &Table{}
	for i := range t.channels {
		id := byte(i)
		t.channels[i] = Channel{
			ID:        id,
			Kind:      aaproto.KindOf(aaproto.ChannelID(id)),
			SessionID: unopenedSessionID,
		}
	}
	return t
}

// Get returns the current state of a channel.
func (t *Table) Get(id byte) Channel {
	return t.channels[id]
}

// Advertise records that a channel was included in a ServiceDiscoveryResponse
// with the given kind, without yet opening it.
func (t *Table) Advertise(id byte, kind aaproto.Kind) {
	t.channels[id].Kind = kind
}

// Open marks a channel open, assigning it a fresh SessionID (spec §4.4:
// ChannelOpenRequest success path).
func (t *Table) Open(id byte, sessionID int32) {
	t.channels[id].Open = true
	t.channels[id].SessionID = sessionID
}

// Close marks a channel closed and resets its SessionID and Streaming flag.
// Nothing in this module calls it; a connection's table is discarded with
// the connection at teardown.
func (t *Table) Close(id byte) {
	t.channels[id].Open = false
	t.channels[id].SessionID = unopenedSessionID
	t.channels[id].Streaming = false
}

// StartMedia records a MediaStartRequest against a channel.
func (t *Table) StartMedia(id byte) {
	t.channels[id].Streaming = true
}

// StopMedia records a MediaStopRequest against a channel.
func (t *Table) StopMedia(id byte) {
	t.channels[id].Streaming = false
}

// Reset returns every channel to its just-advertised, unopened state,
// preserving Kind but dropping Open/SessionID/Streaming. Nothing in this
// module calls it.
func (t *Table) Reset() {
	for i := range t.channels {
		t.channels[i].Open = false
		t.channels[i].SessionID = unopenedSessionID
		t.channels[i].Streaming = false
	}
}
