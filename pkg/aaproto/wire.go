package aaproto

import (
	"errors"

	"google.golang.org/protobuf/encoding/protowire"
)

// ErrMalformedMessage is returned when a message body cannot be parsed as
// valid protobuf-wire-format bytes.
var ErrMalformedMessage = errors.New("aaproto: malformed message body")

// field is the generic (number, wire-type, value) tuple produced while
// iterating a message body one field at a time. For BytesType fields Raw
// holds the field payload; for Varint/Fixed32/Fixed64 fields Varint holds
// the decoded numeric value.
type field struct {
	Num    protowire.Number
	Typ    protowire.Type
	Raw    []byte
	Varint uint64
}

// iterateFields walks a protobuf-wire-encoded message body one field at a
// time, in the same style protowire's own package documentation recommends
// for hand-written (non-generated) consumers.
func iterateFields(data []byte, fn func(f field) error) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return ErrMalformedMessage
		}
		data = data[n:]

		switch typ {
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return ErrMalformedMessage
			}
			data = data[n:]
			if err := fn(field{Num: num, Typ: typ, Varint: v}); err != nil {
				return err
			}
		case protowire.Fixed32Type:
			v, n := protowire.ConsumeFixed32(data)
			if n < 0 {
				return ErrMalformedMessage
			}
			data = data[n:]
			if err := fn(field{Num: num, Typ: typ, Varint: uint64(v)}); err != nil {
				return err
			}
		case protowire.Fixed64Type:
			v, n := protowire.ConsumeFixed64(data)
			if n < 0 {
				return ErrMalformedMessage
			}
			data = data[n:]
			if err := fn(field{Num: num, Typ: typ, Varint: v}); err != nil {
				return err
			}
		case protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return ErrMalformedMessage
			}
			data = data[n:]
			if err := fn(field{Num: num, Typ: typ, Raw: v}); err != nil {
				return err
			}
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return ErrMalformedMessage
			}
			data = data[n:]
		}
	}
	return nil
}

// appendVarint writes a varint field. Callers pass int32 fields through as
// uint64(uint32(x)): not canonical protobuf int32 encoding for negative
// values (that requires the full 10-byte sign-extended form), but every
// int32 field on this wire is a small non-negative status or timestamp, so
// the truncated form round-trips fine.
func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	x := uint64(0)
	if v {
		x = 1
	}
	return appendVarint(b, num, x)
}

func appendString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendMessage(b []byte, num protowire.Number, sub []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, sub)
}
