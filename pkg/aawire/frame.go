// Package aawire implements the wire framing layer of the Android Auto
// head-unit protocol: a small header (channel id, flags, payload length,
// and an optional total-length prefix), fragmentation of oversized
// messages, and reassembly-agnostic decoding of one frame at a time.
//
// The header layout and flag bits are fixed by the protocol (see spec §3,
// §4.1); this package only knows about frames, never about message codes
// or channel semantics.
package aawire

import (
	"encoding/binary"
	"errors"
)

// Flags is the 1-byte flag bitmap carried in every frame header.
type Flags uint8

const (
	FlagFirst     Flags = 0x01
	FlagLast      Flags = 0x02
	FlagControl   Flags = 0x04
	FlagEncrypted Flags = 0x08
)

func (f Flags) Has(bit Flags) bool { return f&bit != 0 }

const (
	// MaxFramePayload is the largest payload a single frame may carry.
	MaxFramePayload = 0x4000 // 16384

	// MaxFrameSize is the ceiling the transport read buffer must be sized to;
	// the spec fixes it as MaxFramePayload plus a fixed 0x100 margin, which
	// covers the header, the optional total-length prefix, and slack, rather
	// than being the exact header size.
	MaxFrameSize = MaxFramePayload + 0x100 // 16640

	// headerSize is the 4-byte fixed portion of every frame header:
	// 1 channel + 1 flags + 2 payload length.
	headerSize = 4

	// totalLengthSize is the extra 4-byte field present only on a
	// FIRST-and-not-LAST fragment, carrying the length of the full,
	// reassembled message.
	totalLengthSize = 4
)

var (
	ErrPayloadTooLarge  = errors.New("aawire: payload exceeds max frame payload")
	ErrFrameTooShort    = errors.New("aawire: frame shorter than header")
	ErrTransportClosed  = errors.New("aawire: transport closed during frame read")
)

// Frame is one decoded wire frame.
type Frame struct {
	Channel byte
	Flags   Flags
	// TotalLength is only meaningful when Flags has FIRST set and LAST
	// unset: it is the length of the complete, reassembled message.
	TotalLength uint32
	Payload     []byte
}

// Encode serializes (channel, flags, payload) into one or more wire frames.
// A payload that fits in one frame is sent FIRST|LAST (spec §3: a message is
// the concatenation of payloads from one FIRST to the matching LAST, so even
// a single-frame message must carry both). A larger payload is split into
// consecutive frames on the same channel: FIRST is set on the first
// fragment (which alone carries the 4-byte total-length prefix), LAST on the
// final fragment, and middle fragments carry neither flag. The
// caller-supplied flags (e.g. CONTROL, ENCRYPTED) are applied to every
// fragment.
func Encode(channel byte, flags Flags, payload []byte) ([][]byte, error) {
	if len(payload) <= MaxFramePayload {
		return [][]byte{encodeSingle(channel, flags|FlagFirst|FlagLast, payload)}, nil
	}

	total := len(payload)
	var frames [][]byte
	offset := 0
	first := true
	for offset < total {
		end := offset + MaxFramePayload
		if end > total {
			end = total
		}
		chunk := payload[offset:end]
		last := end == total

		chunkFlags := flags
		if first {
			chunkFlags |= FlagFirst
		}
		if last {
			chunkFlags |= FlagLast
		}

		if first {
			frames = append(frames, encodeFirstFragment(channel, chunkFlags, uint32(total), chunk))
		} else {
			frames = append(frames, encodeSingle(channel, chunkFlags, chunk))
		}

		offset = end
		first = false
	}
	return frames, nil
}

func encodeSingle(channel byte, flags Flags, payload []byte) []byte {
	buf := make([]byte, headerSize+len(payload))
	buf[0] = channel
	buf[1] = byte(flags)
	binary.BigEndian.PutUint16(buf[2:4], uint16(len(payload)))
	copy(buf[headerSize:], payload)
	return buf
}

func encodeFirstFragment(channel byte, flags Flags, totalLen uint32, payload []byte) []byte {
	buf := make([]byte, headerSize+totalLengthSize+len(payload))
	buf[0] = channel
	buf[1] = byte(flags)
	binary.BigEndian.PutUint16(buf[2:4], uint16(len(payload)))
	binary.BigEndian.PutUint32(buf[4:8], totalLen)
	copy(buf[headerSize+totalLengthSize:], payload)
	return buf
}

// HeaderLen returns the number of header bytes to read for a frame whose
// flags byte is already known: 4 normally, 8 when FIRST is set and LAST is
// not (the extra total-length field).
func HeaderLen(flags Flags) int {
	if flags.Has(FlagFirst) && !flags.Has(FlagLast) {
		return headerSize + totalLengthSize
	}
	return headerSize
}

// ParseHeader decodes the fixed 4-byte prefix of a frame header. Callers
// use the returned flags to decide, via HeaderLen, whether to read the
// extra 4-byte total-length field before reading the payload.
func ParseHeader(buf []byte) (channel byte, flags Flags, payloadLen uint16, err error) {
	if len(buf) < headerSize {
		return 0, 0, 0, ErrFrameTooShort
	}
	channel = buf[0]
	flags = Flags(buf[1])
	payloadLen = binary.BigEndian.Uint16(buf[2:4])
	return channel, flags, payloadLen, nil
}

// ParseTotalLength decodes the 4-byte total-length field that follows the
// fixed header on a FIRST-and-not-LAST fragment.
func ParseTotalLength(buf []byte) (uint32, error) {
	if len(buf) < totalLengthSize {
		return 0, ErrFrameTooShort
	}
	return binary.BigEndian.Uint32(buf[:totalLengthSize]), nil
}
