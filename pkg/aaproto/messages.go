package aaproto

import (
	"encoding/binary"
	"errors"
)

// ErrShortMessage is returned when a fixed-layout message body (one that
// predates protobuf on channel 0, per spec §4.1) is too short to contain its
// required fields.
var ErrShortMessage = errors.New("aaproto: message body too short")

// VersionRequest and VersionResponse are the only two messages on the wire
// that are NOT protobuf: spec §4.1 fixes their body as two raw big-endian
// uint16 fields, sent before either side knows the peer's protobuf
// capabilities.
type VersionRequest struct {
	Major uint16
	Minor uint16
}

func (m VersionRequest) Marshal() []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint16(b[0:2], m.Major)
	binary.BigEndian.PutUint16(b[2:4], m.Minor)
	return b
}

func (m *VersionRequest) Unmarshal(b []byte) error {
	if len(b) < 4 {
		return ErrShortMessage
	}
	m.Major = binary.BigEndian.Uint16(b[0:2])
	m.Minor = binary.BigEndian.Uint16(b[2:4])
	return nil
}

// VersionResponseStatus values (spec §4.1).
const (
	VersionStatusMatch     uint16 = 0
	VersionStatusMismatch  uint16 = 1
)

type VersionResponse struct {
	Major  uint16
	Minor  uint16
	Status uint16
}

func (m VersionResponse) Marshal() []byte {
	b := make([]byte, 6)
	binary.BigEndian.PutUint16(b[0:2], m.Major)
	binary.BigEndian.PutUint16(b[2:4], m.Minor)
	binary.BigEndian.PutUint16(b[4:6], m.Status)
	return b
}

func (m *VersionResponse) Unmarshal(b []byte) error {
	if len(b) < 6 {
		return ErrShortMessage
	}
	m.Major = binary.BigEndian.Uint16(b[0:2])
	m.Minor = binary.BigEndian.Uint16(b[2:4])
	m.Status = binary.BigEndian.Uint16(b[4:6])
	return nil
}

// AuthCompleteMessage carries the outcome of the in-band TLS handshake.
type AuthCompleteMessage struct {
	Status int32
}

func (m AuthCompleteMessage) Marshal() []byte {
	return appendVarint(nil, 1, uint64(uint32(m.Status)))
}

func (m *AuthCompleteMessage) Unmarshal(b []byte) error {
	return iterateFields(b, func(f field) error {
		if f.Num == 1 {
			m.Status = int32(f.Varint)
		}
		return nil
	})
}

// Service describes one advertised channel in a ServiceDiscoveryResponse.
// Only the fields relevant to the channels this core actually drives are
// populated; for any other kind only the ID is encoded, so such a Service
// decodes with its ID set and Kind left as KindUnknown.
type Service struct {
	ID   int32
	Kind Kind

	// Sensor
	SensorTypes []int32

	// Video
	VideoWidth, VideoHeight, VideoFPS int32
	VideoConfigIndices                []int32

	// Audio / Mic
	AudioSampleRate, AudioBitDepth, AudioChannels int32

	// Input
	InputButtons []InputButton

	// Bluetooth
	BluetoothSupportedTypes []int32
}

func (s Service) marshal() []byte {
	var b []byte
	b = appendVarint(b, 1, uint64(uint32(s.ID)))
	switch s.Kind {
	case KindSensor:
		for _, t := range s.SensorTypes {
			b = appendVarint(b, 10, uint64(uint32(t)))
		}
	case KindVideoOut:
		var v []byte
		v = appendVarint(v, 1, uint64(uint32(s.VideoWidth)))
		v = appendVarint(v, 2, uint64(uint32(s.VideoHeight)))
		v = appendVarint(v, 3, uint64(uint32(s.VideoFPS)))
		for _, ci := range s.VideoConfigIndices {
			v = appendVarint(v, 4, uint64(uint32(ci)))
		}
		b = appendMessage(b, 11, v)
	case KindAudioOut, KindMic:
		var a []byte
		a = appendVarint(a, 1, uint64(uint32(s.AudioSampleRate)))
		a = appendVarint(a, 2, uint64(uint32(s.AudioBitDepth)))
		a = appendVarint(a, 3, uint64(uint32(s.AudioChannels)))
		if s.Kind == KindMic {
			b = appendMessage(b, 15, a)
		} else {
			b = appendMessage(b, 12, a)
		}
	case KindInput:
		for _, btn := range s.InputButtons {
			b = appendVarint(b, 13, uint64(int64(btn)))
		}
	case KindBluetooth:
		for _, t := range s.BluetoothSupportedTypes {
			b = appendVarint(b, 14, uint64(uint32(t)))
		}
	}
	return b
}

func (s *Service) unmarshal(b []byte) error {
	return iterateFields(b, func(f field) error {
		switch f.Num {
		case 1:
			s.ID = int32(f.Varint)
		case 10:
			s.Kind = KindSensor
			s.SensorTypes = append(s.SensorTypes, int32(f.Varint))
		case 11:
			s.Kind = KindVideoOut
			return iterateFields(f.Raw, func(v field) error {
				switch v.Num {
				case 1:
					s.VideoWidth = int32(v.Varint)
				case 2:
					s.VideoHeight = int32(v.Varint)
				case 3:
					s.VideoFPS = int32(v.Varint)
				case 4:
					s.VideoConfigIndices = append(s.VideoConfigIndices, int32(v.Varint))
				}
				return nil
			})
		case 12, 15:
			if f.Num == 15 {
				s.Kind = KindMic
			} else {
				s.Kind = KindAudioOut
			}
			return iterateFields(f.Raw, func(a field) error {
				switch a.Num {
				case 1:
					s.AudioSampleRate = int32(a.Varint)
				case 2:
					s.AudioBitDepth = int32(a.Varint)
				case 3:
					s.AudioChannels = int32(a.Varint)
				}
				return nil
			})
		case 13:
			s.Kind = KindInput
			s.InputButtons = append(s.InputButtons, InputButton(int64(f.Varint)))
		case 14:
			s.Kind = KindBluetooth
			s.BluetoothSupportedTypes = append(s.BluetoothSupportedTypes, int32(f.Varint))
		}
		return nil
	})
}

// ServiceDiscoveryResponse is the head unit's self-description, sent in
// reply to a ServiceDiscoveryRequest (spec §4.1, §8 scenario 2).
type ServiceDiscoveryResponse struct {
	HeadUnitName string
	CarModel     string
	CarYear      string
	CarSerial    string
	Services     []Service
}

func (m ServiceDiscoveryResponse) Marshal() []byte {
	var b []byte
	b = appendString(b, 1, m.HeadUnitName)
	b = appendString(b, 2, m.CarModel)
	b = appendString(b, 3, m.CarYear)
	b = appendString(b, 4, m.CarSerial)
	for _, svc := range m.Services {
		b = appendMessage(b, 5, svc.marshal())
	}
	return b
}

func (m *ServiceDiscoveryResponse) Unmarshal(b []byte) error {
	return iterateFields(b, func(f field) error {
		switch f.Num {
		case 1:
			m.HeadUnitName = string(f.Raw)
		case 2:
			m.CarModel = string(f.Raw)
		case 3:
			m.CarYear = string(f.Raw)
		case 4:
			m.CarSerial = string(f.Raw)
		case 5:
			var svc Service
			if err := svc.unmarshal(f.Raw); err != nil {
				return err
			}
			m.Services = append(m.Services, svc)
		}
		return nil
	})
}

// PingRequest and PingResponse carry an 8-byte monotonic timestamp used for
// the periodic keepalive of spec §5.
type PingRequest struct {
	Timestamp uint64
}

func (m PingRequest) Marshal() []byte {
	return appendVarint(nil, 1, m.Timestamp)
}

func (m *PingRequest) Unmarshal(b []byte) error {
	return iterateFields(b, func(f field) error {
		if f.Num == 1 {
			m.Timestamp = f.Varint
		}
		return nil
	})
}

type PingResponse struct {
	Timestamp uint64
}

func (m PingResponse) Marshal() []byte {
	return appendVarint(nil, 1, m.Timestamp)
}

func (m *PingResponse) Unmarshal(b []byte) error {
	return iterateFields(b, func(f field) error {
		if f.Num == 1 {
			m.Timestamp = f.Varint
		}
		return nil
	})
}

// ChannelOpenRequest/Response negotiate whether a previously-discovered
// service may actually be used this session (spec §4.4).
type ChannelOpenRequest struct {
	Priority int32
}

func (m ChannelOpenRequest) Marshal() []byte {
	return appendVarint(nil, 1, uint64(uint32(m.Priority)))
}

func (m *ChannelOpenRequest) Unmarshal(b []byte) error {
	return iterateFields(b, func(f field) error {
		if f.Num == 1 {
			m.Priority = int32(f.Varint)
		}
		return nil
	})
}

// ChannelOpenStatus values.
const (
	ChannelOpenOK   int32 = 0
	ChannelOpenFail int32 = 1
)

type ChannelOpenResponse struct {
	Status int32
}

func (m ChannelOpenResponse) Marshal() []byte {
	return appendVarint(nil, 1, uint64(uint32(m.Status)))
}

func (m *ChannelOpenResponse) Unmarshal(b []byte) error {
	return iterateFields(b, func(f field) error {
		if f.Num == 1 {
			m.Status = int32(f.Varint)
		}
		return nil
	})
}

// MediaSetupRequest/Response negotiate the media output channel before any
// data flows (spec §4.4, §8 scenario 3).
type MediaSetupRequest struct {
	Type int32
}

func (m MediaSetupRequest) Marshal() []byte {
	return appendVarint(nil, 1, uint64(uint32(m.Type)))
}

func (m *MediaSetupRequest) Unmarshal(b []byte) error {
	return iterateFields(b, func(f field) error {
		if f.Num == 1 {
			m.Type = int32(f.Varint)
		}
		return nil
	})
}

const (
	MediaSetupStatusOK   int32 = 0
	MediaSetupStatusFail int32 = 1
)

type MediaSetupResponse struct {
	Status      int32
	MaxUnacked  int32
	ConfigIndex int32
}

func (m MediaSetupResponse) Marshal() []byte {
	var b []byte
	b = appendVarint(b, 1, uint64(uint32(m.Status)))
	b = appendVarint(b, 2, uint64(uint32(m.MaxUnacked)))
	b = appendVarint(b, 3, uint64(uint32(m.ConfigIndex)))
	return b
}

func (m *MediaSetupResponse) Unmarshal(b []byte) error {
	return iterateFields(b, func(f field) error {
		switch f.Num {
		case 1:
			m.Status = int32(f.Varint)
		case 2:
			m.MaxUnacked = int32(f.Varint)
		case 3:
			m.ConfigIndex = int32(f.Varint)
		}
		return nil
	})
}

type MediaStartRequest struct {
	SessionID int32
}

func (m MediaStartRequest) Marshal() []byte {
	return appendVarint(nil, 1, uint64(uint32(m.SessionID)))
}

func (m *MediaStartRequest) Unmarshal(b []byte) error {
	return iterateFields(b, func(f field) error {
		if f.Num == 1 {
			m.SessionID = int32(f.Varint)
		}
		return nil
	})
}

type MediaStopRequest struct {
	SessionID int32
}

func (m MediaStopRequest) Marshal() []byte {
	return appendVarint(nil, 1, uint64(uint32(m.SessionID)))
}

func (m *MediaStopRequest) Unmarshal(b []byte) error {
	return iterateFields(b, func(f field) error {
		if f.Num == 1 {
			m.SessionID = int32(f.Varint)
		}
		return nil
	})
}

// MediaAck flow-controls the media sender: the head unit may not have more
// than MaxUnacked buffers outstanding (spec §4.4).
type MediaAck struct {
	SessionID int32
	ACK       int32
}

func (m MediaAck) Marshal() []byte {
	var b []byte
	b = appendVarint(b, 1, uint64(uint32(m.SessionID)))
	b = appendVarint(b, 2, uint64(uint32(m.ACK)))
	return b
}

func (m *MediaAck) Unmarshal(b []byte) error {
	return iterateFields(b, func(f field) error {
		switch f.Num {
		case 1:
			m.SessionID = int32(f.Varint)
		case 2:
			m.ACK = int32(f.Varint)
		}
		return nil
	})
}

// AudioFocusRequest/Response arbitrate speaker ownership between the phone
// and the head unit (spec §4.4, §8 scenario 5).
const (
	AudioFocusGain          int32 = 1
	AudioFocusGainTransient int32 = 2
	AudioFocusLoss          int32 = 3
	AudioFocusRelease       int32 = 4
)

type AudioFocusRequest struct {
	Type int32
}

func (m AudioFocusRequest) Marshal() []byte {
	return appendVarint(nil, 1, uint64(uint32(m.Type)))
}

func (m *AudioFocusRequest) Unmarshal(b []byte) error {
	return iterateFields(b, func(f field) error {
		if f.Num == 1 {
			m.Type = int32(f.Varint)
		}
		return nil
	})
}

type AudioFocusResponse struct {
	Type int32
}

func (m AudioFocusResponse) Marshal() []byte {
	return appendVarint(nil, 1, uint64(uint32(m.Type)))
}

func (m *AudioFocusResponse) Unmarshal(b []byte) error {
	return iterateFields(b, func(f field) error {
		if f.Num == 1 {
			m.Type = int32(f.Varint)
		}
		return nil
	})
}

// VideoFocusRequest/VideoFocus negotiate whether the video surface is
// visible (spec §4.4).
const (
	VideoFocusProjected int32 = 1
	VideoFocusNative    int32 = 2
)

type VideoFocusRequest struct {
	Mode   int32
	Reason int32
}

func (m VideoFocusRequest) Marshal() []byte {
	var b []byte
	b = appendVarint(b, 1, uint64(uint32(m.Mode)))
	b = appendVarint(b, 2, uint64(uint32(m.Reason)))
	return b
}

func (m *VideoFocusRequest) Unmarshal(b []byte) error {
	return iterateFields(b, func(f field) error {
		switch f.Num {
		case 1:
			m.Mode = int32(f.Varint)
		case 2:
			m.Reason = int32(f.Varint)
		}
		return nil
	})
}

type VideoFocus struct {
	Mode        int32
	Unrequested bool
}

func (m VideoFocus) Marshal() []byte {
	var b []byte
	b = appendVarint(b, 1, uint64(uint32(m.Mode)))
	b = appendBool(b, 2, m.Unrequested)
	return b
}

func (m *VideoFocus) Unmarshal(b []byte) error {
	return iterateFields(b, func(f field) error {
		switch f.Num {
		case 1:
			m.Mode = int32(f.Varint)
		case 2:
			m.Unrequested = f.Varint != 0
		}
		return nil
	})
}

// MicRequest opens or closes the phone-side microphone stream.
type MicRequest struct {
	Open bool
}

func (m MicRequest) Marshal() []byte {
	return appendBool(nil, 1, m.Open)
}

func (m *MicRequest) Unmarshal(b []byte) error {
	return iterateFields(b, func(f field) error {
		if f.Num == 1 {
			m.Open = f.Varint != 0
		}
		return nil
	})
}

// SensorStartRequest/Response subscribe to one sensor kind on the sensor
// channel (spec §4.4).
type SensorStartRequest struct {
	SensorType int32
}

func (m SensorStartRequest) Marshal() []byte {
	return appendVarint(nil, 1, uint64(uint32(m.SensorType)))
}

func (m *SensorStartRequest) Unmarshal(b []byte) error {
	return iterateFields(b, func(f field) error {
		if f.Num == 1 {
			m.SensorType = int32(f.Varint)
		}
		return nil
	})
}

type SensorStartResponse struct {
	Status int32
}

func (m SensorStartResponse) Marshal() []byte {
	return appendVarint(nil, 1, uint64(uint32(m.Status)))
}

func (m *SensorStartResponse) Unmarshal(b []byte) error {
	return iterateFields(b, func(f field) error {
		if f.Num == 1 {
			m.Status = int32(f.Varint)
		}
		return nil
	})
}

// BindingRequest/Response advertise which physical buttons the head unit
// wants routed to it on the input channel (spec §4.4).
type BindingRequest struct {
	ScanCodes []InputButton
}

func (m BindingRequest) Marshal() []byte {
	var b []byte
	for _, sc := range m.ScanCodes {
		b = appendVarint(b, 1, uint64(int64(sc)))
	}
	return b
}

func (m *BindingRequest) Unmarshal(b []byte) error {
	return iterateFields(b, func(f field) error {
		if f.Num == 1 {
			m.ScanCodes = append(m.ScanCodes, InputButton(int64(f.Varint)))
		}
		return nil
	})
}

type BindingResponse struct {
	Status int32
}

func (m BindingResponse) Marshal() []byte {
	return appendVarint(nil, 1, uint64(uint32(m.Status)))
}

func (m *BindingResponse) Unmarshal(b []byte) error {
	return iterateFields(b, func(f field) error {
		if f.Num == 1 {
			m.Status = int32(f.Varint)
		}
		return nil
	})
}

// PhoneStatus mirrors the subset of the phone-status channel this core
// surfaces to callers; the full schema is out of scope (spec Non-goals).
type PhoneStatus struct {
	State int32
}

func (m PhoneStatus) Marshal() []byte {
	return appendVarint(nil, 1, uint64(uint32(m.State)))
}

func (m *PhoneStatus) Unmarshal(b []byte) error {
	return iterateFields(b, func(f field) error {
		if f.Num == 1 {
			m.State = int32(f.Varint)
		}
		return nil
	})
}

// BluetoothPairingRequest/Response negotiate whether the phone should pair
// its Bluetooth stack with the car's advertised MAC address.
type BluetoothPairingRequest struct {
	AlreadyPaired bool
}

func (m BluetoothPairingRequest) Marshal() []byte {
	return appendBool(nil, 1, m.AlreadyPaired)
}

func (m *BluetoothPairingRequest) Unmarshal(b []byte) error {
	return iterateFields(b, func(f field) error {
		if f.Num == 1 {
			m.AlreadyPaired = f.Varint != 0
		}
		return nil
	})
}

type BluetoothPairingResponse struct {
	Status        int32
	AlreadyPaired bool
}

func (m BluetoothPairingResponse) Marshal() []byte {
	var b []byte
	b = appendVarint(b, 1, uint64(uint32(m.Status)))
	b = appendBool(b, 2, m.AlreadyPaired)
	return b
}

func (m *BluetoothPairingResponse) Unmarshal(b []byte) error {
	return iterateFields(b, func(f field) error {
		switch f.Num {
		case 1:
			m.Status = int32(f.Varint)
		case 2:
			m.AlreadyPaired = f.Varint != 0
		}
		return nil
	})
}

// StartGenericNotifications/StopGenericNotifications are empty bodies (the
// channel-0 message code alone carries the meaning); GenericNotificationResponse
// acknowledges one.
type StartGenericNotifications struct{}

func (StartGenericNotifications) Marshal() []byte { return nil }

func (m *StartGenericNotifications) Unmarshal(b []byte) error { return nil }

type StopGenericNotifications struct{}

func (StopGenericNotifications) Marshal() []byte { return nil }

func (m *StopGenericNotifications) Unmarshal(b []byte) error { return nil }

type GenericNotificationResponse struct {
	Status int32
}

func (m GenericNotificationResponse) Marshal() []byte {
	return appendVarint(nil, 1, uint64(uint32(m.Status)))
}

func (m *GenericNotificationResponse) Unmarshal(b []byte) error {
	return iterateFields(b, func(f field) error {
		if f.Num == 1 {
			m.Status = int32(f.Varint)
		}
		return nil
	})
}

// NAVMessagesStatus/NAVTurnMessage/NAVDistanceMessage are the navigation
// channel's three message kinds (spec §4.4). The turn-instruction schema
// itself is out of scope; StreetName is retained as the one field callers
// consistently need for on-screen presentation.
type NAVMessagesStatus struct {
	Active bool
}

func (m NAVMessagesStatus) Marshal() []byte {
	return appendBool(nil, 1, m.Active)
}

func (m *NAVMessagesStatus) Unmarshal(b []byte) error {
	return iterateFields(b, func(f field) error {
		if f.Num == 1 {
			m.Active = f.Varint != 0
		}
		return nil
	})
}

type NAVTurnMessage struct {
	EventType  int32
	StreetName string
}

func (m NAVTurnMessage) Marshal() []byte {
	var b []byte
	b = appendVarint(b, 1, uint64(uint32(m.EventType)))
	b = appendString(b, 2, m.StreetName)
	return b
}

func (m *NAVTurnMessage) Unmarshal(b []byte) error {
	return iterateFields(b, func(f field) error {
		switch f.Num {
		case 1:
			m.EventType = int32(f.Varint)
		case 2:
			m.StreetName = string(f.Raw)
		}
		return nil
	})
}

type NAVDistanceMessage struct {
	Meters      int32
	TimeSeconds int32
}

func (m NAVDistanceMessage) Marshal() []byte {
	var b []byte
	b = appendVarint(b, 1, uint64(uint32(m.Meters)))
	b = appendVarint(b, 2, uint64(uint32(m.TimeSeconds)))
	return b
}

func (m *NAVDistanceMessage) Unmarshal(b []byte) error {
	return iterateFields(b, func(f field) error {
		switch f.Num {
		case 1:
			m.Meters = int32(f.Varint)
		case 2:
			m.TimeSeconds = int32(f.Varint)
		}
		return nil
	})
}

// ShutdownRequest/Response close down the session cleanly (spec §4.4, §6).
type ShutdownRequest struct {
	Reason int32
}

func (m ShutdownRequest) Marshal() []byte {
	return appendVarint(nil, 1, uint64(uint32(m.Reason)))
}

func (m *ShutdownRequest) Unmarshal(b []byte) error {
	return iterateFields(b, func(f field) error {
		if f.Num == 1 {
			m.Reason = int32(f.Varint)
		}
		return nil
	})
}

type ShutdownResponse struct{}

func (ShutdownResponse) Marshal() []byte { return nil }

func (m *ShutdownResponse) Unmarshal(b []byte) error { return nil }

// VoiceSessionRequest toggles the phone-side voice-assistant overlay.
type VoiceSessionRequest struct {
	Status int32
}

func (m VoiceSessionRequest) Marshal() []byte {
	return appendVarint(nil, 1, uint64(uint32(m.Status)))
}

func (m *VoiceSessionRequest) Unmarshal(b []byte) error {
	return iterateFields(b, func(f field) error {
		if f.Num == 1 {
			m.Status = int32(f.Varint)
		}
		return nil
	})
}

// NavigationFocusRequest/Response are channel-0 analogs of AudioFocus for
// the navigation app's screen ownership.
type NavigationFocusRequest struct {
	Type int32
}

func (m NavigationFocusRequest) Marshal() []byte {
	return appendVarint(nil, 1, uint64(uint32(m.Type)))
}

func (m *NavigationFocusRequest) Unmarshal(b []byte) error {
	return iterateFields(b, func(f field) error {
		if f.Num == 1 {
			m.Type = int32(f.Varint)
		}
		return nil
	})
}

type NavigationFocusResponse struct {
	Type int32
}

func (m NavigationFocusResponse) Marshal() []byte {
	return appendVarint(nil, 1, uint64(uint32(m.Type)))
}

func (m *NavigationFocusResponse) Unmarshal(b []byte) error {
	return iterateFields(b, func(f field) error {
		if f.Num == 1 {
			m.Type = int32(f.Varint)
		}
		return nil
	})
}
