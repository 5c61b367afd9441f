package aawire

import (
	"bytes"
	"testing"
	"time"
)

// bufferReader adapts a plain byte slice to the Reader interface for tests,
// delivering the whole buffer on the first call regardless of timeout.
type bufferReader struct {
	data []byte
}

func (b *bufferReader) Read(buf []byte, timeout time.Duration) (int, error) {
	if len(b.data) == 0 {
		return 0, nil
	}
	n := copy(buf, b.data)
	b.data = b.data[n:]
	return n, nil
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		channel byte
		flags   Flags
		payload []byte
	}{
		{"empty payload", 0, FlagControl, nil},
		{"small payload", 3, FlagFirst | FlagLast, []byte{1, 2, 3, 4}},
		{"encrypted media", 4, FlagEncrypted, bytes.Repeat([]byte{0xAB}, 512)},
		{"max single frame", 1, FlagFirst | FlagLast, bytes.Repeat([]byte{0x7F}, MaxFramePayload)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frames, err := Encode(tt.channel, tt.flags, tt.payload)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			if len(frames) != 1 {
				t.Fatalf("expected single frame, got %d", len(frames))
			}

			dec := NewDecoder(50 * time.Millisecond)
			r := &bufferReader{data: frames[0]}
			frame, err := dec.Decode(r)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}

			if frame.Channel != tt.channel {
				t.Errorf("Channel = %d, want %d", frame.Channel, tt.channel)
			}
			want := tt.flags | FlagFirst | FlagLast // every single-frame message is FIRST|LAST
			if frame.Flags != want {
				t.Errorf("Flags = %#x, want %#x", frame.Flags, want)
			}
			if !bytes.Equal(frame.Payload, tt.payload) {
				t.Errorf("Payload mismatch: got %d bytes, want %d bytes", len(frame.Payload), len(tt.payload))
			}
		})
	}
}

func TestEncodeFragmentation(t *testing.T) {
	msg := bytes.Repeat([]byte{0x42}, 40000) // matches spec scenario 4: 16384+16384+7232
	frames, err := Encode(4, 0, msg)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(frames) != 3 {
		t.Fatalf("expected 3 fragments, got %d", len(frames))
	}

	dec := NewDecoder(50 * time.Millisecond)

	var reassembled []byte
	var sawFirst, sawLast bool
	for i, raw := range frames {
		r := &bufferReader{data: raw}
		f, err := dec.Decode(r)
		if err != nil {
			t.Fatalf("Decode fragment %d: %v", i, err)
		}
		if f.Flags.Has(FlagFirst) {
			sawFirst = true
			if f.TotalLength != uint32(len(msg)) {
				t.Errorf("TotalLength = %d, want %d", f.TotalLength, len(msg))
			}
		}
		if f.Flags.Has(FlagLast) {
			sawLast = true
		}
		reassembled = append(reassembled, f.Payload...)
	}

	if !sawFirst || !sawLast {
		t.Fatalf("expected exactly one FIRST and one LAST fragment: first=%v last=%v", sawFirst, sawLast)
	}
	if !bytes.Equal(reassembled, msg) {
		t.Fatalf("reassembled message does not match original")
	}

	sizes := []int{len(frames[0]) - headerSize - totalLengthSize, len(frames[1]) - headerSize, len(frames[2]) - headerSize}
	want := []int{16384, 16384, 7232}
	for i := range want {
		if sizes[i] != want[i] {
			t.Errorf("fragment %d payload size = %d, want %d", i, sizes[i], want[i])
		}
	}
}

func TestTimeoutIsRetried(t *testing.T) {
	frames, _ := Encode(0, FlagControl, []byte{0x00, 0x01, 0x00, 0x01, 0x00, 0x01})
	raw := frames[0]

	calls := 0
	tr := &flakyReader{
		fn: func(buf []byte, timeout time.Duration) (int, error) {
			calls++
			if calls == 1 {
				return 0, ErrTimeout
			}
			n := copy(buf, raw)
			raw = raw[n:]
			return n, nil
		},
	}

	dec := NewDecoder(10 * time.Millisecond)
	frame, err := dec.Decode(tr)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if frame.Channel != 0 {
		t.Errorf("Channel = %d, want 0", frame.Channel)
	}
	if calls < 2 {
		t.Errorf("expected at least one retried read, got %d calls", calls)
	}
}

type flakyReader struct {
	fn func(buf []byte, timeout time.Duration) (int, error)
}

func (f *flakyReader) Read(buf []byte, timeout time.Duration) (int, error) {
	return f.fn(buf, timeout)
}
