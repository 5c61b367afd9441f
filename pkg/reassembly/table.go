// Package reassembly reassembles fragmented aawire frames back into whole
// messages, one buffer per channel (spec §3, §4.3).
package reassembly

import (
	"errors"

	"github.com/z9yaya/AAM-headunit/pkg/aawire"
)

// ErrProtocolViolation is returned when a non-FIRST fragment arrives on a
// channel with no fragment already in flight. It is never fatal on its own;
// callers decide whether to tear down the connection based on the current
// connection state (spec §7).
var ErrProtocolViolation = errors.New("reassembly: fragment received with no message in flight")

const numChannels = 256

// Table holds one reassembly buffer per channel (256 of them, indexed by
// channel id), so channel 0's control traffic never contends with a media
// channel's in-flight fragment (spec §4.3).
type Table struct {
	buffers [numChannels]buffer
}

type buffer struct {
	inFlight bool
	data     []byte
}

// New returns an empty reassembly table.
func New() *Table {
	return &Table{}
}

// Process feeds one decoded frame into the channel's buffer. It returns the
// complete message and true once a LAST fragment closes it out; otherwise it
// returns (nil, false, nil) while more fragments are still expected.
func (t *Table) Process(channel byte, f *aawire.Frame) ([]byte, bool, error) {
	b := &t.buffers[channel]

	first := f.Flags.Has(aawire.FlagFirst)
	last := f.Flags.Has(aawire.FlagLast)

	if first {
		b.inFlight = true
		b.data = append(b.data[:0], f.Payload...)
	} else {
		if !b.inFlight {
			return nil, false, ErrProtocolViolation
		}
		b.data = append(b.data, f.Payload...)
	}

	if !last {
		return nil, false, nil
	}

	msg := b.data
	b.inFlight = false
	b.data = nil
	return msg, true, nil
}

// Reset clears any in-flight fragment on a channel. Nothing in this module
// calls it outside the tests.
func (t *Table) Reset(channel byte) {
	t.buffers[channel] = buffer{}
}
