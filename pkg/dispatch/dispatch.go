// Package dispatch decodes assembled channel-0-and-beyond messages and
// routes them to the exact (channel-class, code) behavior of spec §4.4.
package dispatch

import (
	"encoding/binary"
	"fmt"

	"github.com/z9yaya/AAM-headunit/internal/logger"
	"github.com/z9yaya/AAM-headunit/pkg/aaproto"
	"github.com/z9yaya/AAM-headunit/pkg/callback"
	"github.com/z9yaya/AAM-headunit/pkg/session"
)

// Sender is the subset of pkg/queue.Sender the dispatcher needs to emit
// replies; it never queues anything itself — the caller (pkg/headunit) is
// already running on the I/O goroutine when it calls Dispatch.
type Sender interface {
	SendUnencryptedMessage(channel byte, code uint16, body []byte) error
	SendEncryptedMessage(channel byte, code uint16, body []byte) error
}

// ErrShortMessage means a message body was too short to contain even the
// 2-byte message code.
var ErrShortMessage = fmt.Errorf("dispatch: message shorter than a message code")

// Service describes one capability the embedder wants advertised in
// ServiceDiscoveryResponse, before per-kind customization hooks run.
type Service struct {
	ID   int32
	Kind aaproto.Kind
}

// Config configures the dispatcher's advertised capabilities and constants
// mandated by spec §4.4 and §9.
type Config struct {
	// Services is the full set of channels this deployment advertises,
	// keyed by channel id (spec §4.4 row 1: "advertises every service the
	// embedder enables").
	Services map[byte]Service
	// InputButtons is appended to the input service's button list in
	// ServiceDiscoveryResponse. BindingResponse carries only a status and
	// does not list these buttons.
	InputButtons []aaproto.InputButton
	// HeadUnitName/CarModel/CarYear/CarSerial populate ServiceDiscoveryResponse.
	HeadUnitName, CarModel, CarYear, CarSerial string
}

// Dispatcher holds the session table and callback sink for one connection
// and routes decoded messages per spec §4.4.
type Dispatcher struct {
	cfg      Config
	sessions *session.Table
	sink     callback.EventSink
	log      logger.Logger

	nextSessionID int32
}

// New builds a Dispatcher over an already-constructed session table.
func New(cfg Config, sessions *session.Table, sink callback.EventSink, log logger.Logger) *Dispatcher {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Dispatcher{cfg: cfg, sessions: sessions, sink: sink, log: log}
}

// Dispatch decodes the 2-byte message code at the front of msg and routes it
// per the (channel, code) table of spec §4.4. Unknown pairs are logged and
// dropped, never fatal, and so are malformed bodies. Dispatch returns an
// error only when msg is shorter than its 2-byte code (ErrShortMessage),
// after replying to a ShutdownRequest (ErrShutdownRequested), or when a
// reply sent through s fails (that send's error, passed on unchanged).
func (d *Dispatcher) Dispatch(channel byte, msg []byte, s Sender) error {
	if len(msg) < 2 {
		return ErrShortMessage
	}
	code := aaproto.MessageCode(binary.BigEndian.Uint16(msg[0:2]))
	body := msg[2:]

	kind := d.sessions.Get(channel).Kind

	switch {
	case channel == byte(aaproto.ChannelCTRL):
		return d.dispatchCTRL(code, body, s)
	case code == aaproto.MsgChannelOpenRequest:
		return d.handleChannelOpen(channel, body, s)
	default:
		return d.dispatchByKind(channel, kind, code, body, s)
	}
}

func (d *Dispatcher) dispatchCTRL(code aaproto.MessageCode, body []byte, s Sender) error {
	switch code {
	case aaproto.MsgServiceDiscoveryRequest:
		return d.handleServiceDiscovery(s)

	case aaproto.MsgPingRequest:
		var req aaproto.PingRequest
		if err := req.Unmarshal(body); err != nil {
			d.log.Warn("dispatch: malformed PingRequest: %v", err)
			return nil
		}
		resp := aaproto.PingResponse{Timestamp: req.Timestamp}
		return s.SendEncryptedMessage(byte(aaproto.ChannelCTRL), uint16(aaproto.MsgPingResponse), resp.Marshal())

	case aaproto.MsgNavigationFocusRequest:
		var req aaproto.NavigationFocusRequest
		if err := req.Unmarshal(body); err != nil {
			d.log.Warn("dispatch: malformed NavigationFocusRequest: %v", err)
			return nil
		}
		resp := aaproto.NavigationFocusResponse{Type: req.Type}
		return s.SendEncryptedMessage(byte(aaproto.ChannelCTRL), uint16(aaproto.MsgNavigationFocusResponse), resp.Marshal())

	case aaproto.MsgShutdownRequest:
		var resp aaproto.ShutdownResponse
		if err := s.SendEncryptedMessage(byte(aaproto.ChannelCTRL), uint16(aaproto.MsgShutdownResponse), resp.Marshal()); err != nil {
			return err
		}
		return ErrShutdownRequested

	case aaproto.MsgVoiceSessionRequest:
		var req aaproto.VoiceSessionRequest
		if err := req.Unmarshal(body); err != nil {
			d.log.Warn("dispatch: malformed VoiceSessionRequest: %v", err)
			return nil
		}
		d.sink.VoiceSessionRequest(req.Status)
		return nil

	case aaproto.MsgAudioFocusRequest:
		var req aaproto.AudioFocusRequest
		if err := req.Unmarshal(body); err != nil {
			d.log.Warn("dispatch: malformed AudioFocusRequest: %v", err)
			return nil
		}
		d.sink.AudioFocusRequest(req.Type)
		return nil

	default:
		d.log.Debug("dispatch: unknown CTRL code %#04x", uint16(code))
		return nil
	}
}

// ErrShutdownRequested signals the caller (pkg/headunit) to begin an
// orderly stop after the ShutdownResponse has been sent (spec §4.4, §4.6).
var ErrShutdownRequested = fmt.Errorf("dispatch: peer requested shutdown")

// Default media/sensor descriptors seeded before the Customize* hooks run,
// so a deployment using callback.NoOpSink still advertises something a
// phone will actually project to (spec §8 scenario 2: "video (1280x720 at
// 30 fps by default)"). An embedder's CustomizeOutputChannel/
// CustomizeSensorConfig hook only needs to tweak these, the same way
// original_source/ubuntu/callbacks.cpp only sets margin_height on top of a
// base video config it doesn't otherwise build.
const (
	defaultVideoWidth, defaultVideoHeight, defaultVideoFPS = 1280, 720, 30

	defaultAudioOutSampleRate, defaultAudioOutBitDepth, defaultAudioOutChannels = 48000, 16, 2
	defaultMicSampleRate, defaultMicBitDepth, defaultMicChannels               = 16000, 16, 1

	// defaultSensorType is the driving-status sensor, the one channel a
	// phone expects a head unit to expose even with no vendor sensors wired up.
	defaultSensorType = 1
)

func defaultService(id int32, kind aaproto.Kind) aaproto.Service {
	svc := aaproto.Service{ID: id, Kind: kind}
	switch kind {
	case aaproto.KindVideoOut:
		svc.VideoWidth, svc.VideoHeight, svc.VideoFPS = defaultVideoWidth, defaultVideoHeight, defaultVideoFPS
	case aaproto.KindAudioOut:
		svc.AudioSampleRate, svc.AudioBitDepth, svc.AudioChannels = defaultAudioOutSampleRate, defaultAudioOutBitDepth, defaultAudioOutChannels
	case aaproto.KindMic:
		svc.AudioSampleRate, svc.AudioBitDepth, svc.AudioChannels = defaultMicSampleRate, defaultMicBitDepth, defaultMicChannels
	case aaproto.KindSensor:
		svc.SensorTypes = []int32{defaultSensorType}
	}
	return svc
}

func (d *Dispatcher) handleServiceDiscovery(s Sender) error {
	resp := aaproto.ServiceDiscoveryResponse{
		HeadUnitName: d.cfg.HeadUnitName,
		CarModel:     d.cfg.CarModel,
		CarYear:      d.cfg.CarYear,
		CarSerial:    d.cfg.CarSerial,
	}

	for id, svcCfg := range d.cfg.Services {
		d.sessions.Advertise(id, svcCfg.Kind)
		svc := defaultService(svcCfg.ID, svcCfg.Kind)

		switch svcCfg.Kind {
		case aaproto.KindVideoOut:
			d.sink.CustomizeOutputChannel(svcCfg.Kind, &svc)
		case aaproto.KindAudioOut, aaproto.KindMic:
			d.sink.CustomizeOutputChannel(svcCfg.Kind, &svc)
		case aaproto.KindSensor:
			d.sink.CustomizeSensorConfig(&svc)
		case aaproto.KindInput:
			svc.InputButtons = append(svc.InputButtons, d.cfg.InputButtons...)
			d.sink.CustomizeInputChannel(&svc)
			d.sink.CustomizeInputConfig(&svc)
		case aaproto.KindBluetooth:
			d.sink.CustomizeBluetoothService(&svc)
		}

		resp.Services = append(resp.Services, svc)
	}

	return s.SendEncryptedMessage(byte(aaproto.ChannelCTRL), uint16(aaproto.MsgServiceDiscoveryResponse), resp.Marshal())
}

func (d *Dispatcher) handleChannelOpen(channel byte, body []byte, s Sender) error {
	var req aaproto.ChannelOpenRequest
	if err := req.Unmarshal(body); err != nil {
		d.log.Warn("dispatch: malformed ChannelOpenRequest: %v", err)
		return nil
	}

	if _, advertised := d.cfg.Services[channel]; !advertised {
		resp := aaproto.ChannelOpenResponse{Status: aaproto.ChannelOpenFail}
		return s.SendEncryptedMessage(channel, uint16(aaproto.MsgChannelOpenResponse), resp.Marshal())
	}

	d.nextSessionID++
	d.sessions.Open(channel, d.nextSessionID)

	resp := aaproto.ChannelOpenResponse{Status: aaproto.ChannelOpenOK}
	return s.SendEncryptedMessage(channel, uint16(aaproto.MsgChannelOpenResponse), resp.Marshal())
}

func (d *Dispatcher) dispatchByKind(channel byte, kind aaproto.Kind, code aaproto.MessageCode, body []byte, s Sender) error {
	ch := d.sessions.Get(channel)

	switch kind {
	case aaproto.KindVideoOut, aaproto.KindAudioOut, aaproto.KindMic:
		return d.dispatchMediaOutput(channel, ch.Open, code, body, s)
	case aaproto.KindSensor:
		return d.dispatchSensor(channel, code, body, s)
	case aaproto.KindInput:
		return d.dispatchInput(channel, code, body, s)
	case aaproto.KindPhoneStatus:
		return d.dispatchPhoneStatus(code, body)
	case aaproto.KindBluetooth:
		return d.dispatchBluetooth(channel, code, body, s)
	case aaproto.KindNotifications:
		return d.dispatchNotifications(channel, code, body, s)
	case aaproto.KindNavigation:
		return d.dispatchNavigation(code, body)
	default:
		d.log.Debug("dispatch: unknown (channel=%d, code=%#04x) pair", channel, uint16(code))
		return nil
	}
}

func (d *Dispatcher) dispatchMediaOutput(channel byte, open bool, code aaproto.MessageCode, body []byte, s Sender) error {
	switch code {
	case aaproto.MsgMediaDataWithTimestamp:
		if !open {
			return nil // dropped: media before channel open (spec §4.4 edge case)
		}
		if len(body) < 8 {
			d.log.Warn("dispatch: MediaDataWithTimestamp too short on channel %d", channel)
			return nil
		}
		ts := binary.BigEndian.Uint64(body[0:8])
		d.sink.MediaPacket(channel, ts, body[8:])
		return nil

	case aaproto.MsgMediaData:
		if !open {
			return nil
		}
		d.sink.MediaPacket(channel, 0, body)
		return nil

	case aaproto.MsgMediaSetupRequest:
		resp := aaproto.MediaSetupResponse{Status: aaproto.MediaSetupStatusOK, MaxUnacked: 10, ConfigIndex: 0}
		if err := s.SendEncryptedMessage(channel, uint16(aaproto.MsgMediaSetupResponse), resp.Marshal()); err != nil {
			return err
		}
		d.sink.MediaSetupComplete(channel, resp.MaxUnacked, resp.ConfigIndex)
		return nil

	case aaproto.MsgMediaStartRequest:
		d.sessions.StartMedia(channel)
		d.sink.MediaStart(channel, d.sessions.Get(channel).SessionID)
		return nil

	case aaproto.MsgMediaStopRequest:
		d.sessions.StopMedia(channel)
		d.sink.MediaStop(channel, d.sessions.Get(channel).SessionID)
		return nil

	case aaproto.MsgMediaAck:
		return nil // informational, dropped per spec §4.4

	case aaproto.MsgVideoFocusRequest:
		var req aaproto.VideoFocusRequest
		if err := req.Unmarshal(body); err == nil {
			d.sink.VideoFocusRequest(req.Mode, req.Reason)
		}
		return nil

	case aaproto.MsgMicRequest:
		var req aaproto.MicRequest
		if err := req.Unmarshal(body); err != nil {
			d.log.Warn("dispatch: malformed MicRequest: %v", err)
			return nil
		}
		d.sink.MicRequest(channel, req.Open)
		return nil

	default:
		d.log.Debug("dispatch: unknown media code %#04x on channel %d", uint16(code), channel)
		return nil
	}
}

func (d *Dispatcher) dispatchSensor(channel byte, code aaproto.MessageCode, body []byte, s Sender) error {
	if code == aaproto.MsgSensorStartRequest {
		resp := aaproto.SensorStartResponse{Status: 0}
		return s.SendEncryptedMessage(channel, uint16(aaproto.MsgSensorStartResponse), resp.Marshal())
	}
	d.log.Debug("dispatch: unknown sensor code %#04x", uint16(code))
	return nil
}

func (d *Dispatcher) dispatchInput(channel byte, code aaproto.MessageCode, body []byte, s Sender) error {
	if code == aaproto.MsgBindingRequest {
		resp := aaproto.BindingResponse{Status: 0}
		if err := s.SendEncryptedMessage(channel, uint16(aaproto.MsgBindingResponse), resp.Marshal()); err != nil {
			return err
		}
		return nil
	}
	d.log.Debug("dispatch: unknown input code %#04x", uint16(code))
	return nil
}

func (d *Dispatcher) dispatchPhoneStatus(code aaproto.MessageCode, body []byte) error {
	if code == aaproto.MsgPhoneStatus {
		var status aaproto.PhoneStatus
		if err := status.Unmarshal(body); err != nil {
			d.log.Warn("dispatch: malformed PhoneStatus: %v", err)
			return nil
		}
		d.sink.HandlePhoneStatus(status)
	}
	return nil
}

func (d *Dispatcher) dispatchBluetooth(channel byte, code aaproto.MessageCode, body []byte, s Sender) error {
	if code == aaproto.MsgBluetoothPairingRequest {
		addr := d.sink.GetCarBluetoothAddress()
		resp := aaproto.BluetoothPairingResponse{Status: aaproto.ChannelOpenOK, AlreadyPaired: addr == ""}
		if addr == "" {
			resp.Status = aaproto.ChannelOpenFail
		}
		return s.SendEncryptedMessage(channel, uint16(aaproto.MsgBluetoothPairingResponse), resp.Marshal())
	}
	d.log.Debug("dispatch: unknown bluetooth code %#04x", uint16(code))
	return nil
}

func (d *Dispatcher) dispatchNotifications(channel byte, code aaproto.MessageCode, body []byte, s Sender) error {
	switch code {
	case aaproto.MsgStartGenericNotifications:
		d.sink.NotificationStart(channel)
		return nil

	case aaproto.MsgStopGenericNotifications:
		d.sink.NotificationStop(channel)
		return nil

	case aaproto.MsgGenericNotificationResponse:
		var resp aaproto.GenericNotificationResponse
		if err := resp.Unmarshal(body); err != nil {
			d.log.Warn("dispatch: malformed GenericNotificationResponse: %v", err)
			return nil
		}
		d.sink.NotificationResponse(channel, resp.Status)
		return nil

	default:
		d.log.Debug("dispatch: unknown notifications code %#04x", uint16(code))
		return nil
	}
}

func (d *Dispatcher) dispatchNavigation(code aaproto.MessageCode, body []byte) error {
	switch code {
	case aaproto.MsgNaviStatus:
		var m aaproto.NAVMessagesStatus
		if err := m.Unmarshal(body); err == nil {
			d.sink.HandleNaviStatus(m.Active)
		}
	case aaproto.MsgNaviTurn:
		var m aaproto.NAVTurnMessage
		if err := m.Unmarshal(body); err == nil {
			d.sink.HandleNaviTurn(m)
		}
	case aaproto.MsgNaviTurnDistance:
		var m aaproto.NAVDistanceMessage
		if err := m.Unmarshal(body); err == nil {
			d.sink.HandleNaviTurnDistance(m)
		}
	default:
		d.log.Debug("dispatch: unknown navigation code %#04x", uint16(code))
	}
	return nil
}
