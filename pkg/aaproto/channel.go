// Package aaproto defines the channel identifiers, message codes, and
// message payload shapes of the Android Auto head-unit protocol. The wire
// schema itself is treated as an external contract (spec §1: "the core uses
// the schemas but does not define them") — these structs are hand-built to
// be protobuf-wire-compatible using google.golang.org/protobuf/encoding/protowire,
// the same low-level primitives a protoc-generated package would itself
// compile down to, without shipping a .proto file of our own.
package aaproto

// ChannelID identifies one of the 256 possible multiplexed channels. Twelve
// values are reserved with fixed semantics (spec §3); the rest are unused in
// this deployment but remain addressable.
type ChannelID byte

const (
	ChannelCTRL          ChannelID = 0
	ChannelTouch         ChannelID = 1
	ChannelSensor        ChannelID = 2
	ChannelVideo         ChannelID = 3
	ChannelAudio         ChannelID = 4
	ChannelAudio1        ChannelID = 5
	ChannelAudio2        ChannelID = 6
	ChannelMic           ChannelID = 7
	ChannelBluetooth     ChannelID = 8
	ChannelPhoneStatus   ChannelID = 9
	ChannelNotifications ChannelID = 10
	ChannelNavigation    ChannelID = 11
)

// Kind classifies a channel for dispatch and service-discovery purposes.
type Kind int

const (
	KindUnknown Kind = iota
	KindCTRL
	KindInput      // touch/binding
	KindSensor
	KindVideoOut   // media output: video
	KindAudioOut   // media output: audio (including AUDIO1/AUDIO2 secondary streams)
	KindMic        // media input
	KindBluetooth
	KindPhoneStatus
	KindNotifications
	KindNavigation
)

// KindOf returns the reserved Kind for a channel id, or KindUnknown for any
// id outside the fixed reserved set.
func KindOf(id ChannelID) Kind {
	switch id {
	case ChannelCTRL:
		return KindCTRL
	case ChannelTouch:
		return KindInput
	case ChannelSensor:
		return KindSensor
	case ChannelVideo:
		return KindVideoOut
	case ChannelAudio, ChannelAudio1, ChannelAudio2:
		return KindAudioOut
	case ChannelMic:
		return KindMic
	case ChannelBluetooth:
		return KindBluetooth
	case ChannelPhoneStatus:
		return KindPhoneStatus
	case ChannelNotifications:
		return KindNotifications
	case ChannelNavigation:
		return KindNavigation
	default:
		return KindUnknown
	}
}

// String returns a human-readable channel name, matching the teacher's
// chan_get()-style debug helper (original_source/hu/hu_aap.h).
func (id ChannelID) String() string {
	switch id {
	case ChannelCTRL:
		return "CTRL"
	case ChannelTouch:
		return "TOUCH"
	case ChannelSensor:
		return "SENSOR"
	case ChannelVideo:
		return "VIDEO"
	case ChannelAudio:
		return "AUDIO"
	case ChannelAudio1:
		return "AUDIO1"
	case ChannelAudio2:
		return "AUDIO2"
	case ChannelMic:
		return "MIC"
	case ChannelBluetooth:
		return "BLUETOOTH"
	case ChannelPhoneStatus:
		return "PHONE_STATUS"
	case ChannelNotifications:
		return "NOTIFICATIONS"
	case ChannelNavigation:
		return "NAVIGATION"
	default:
		return "UNKNOWN"
	}
}
