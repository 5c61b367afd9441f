// Package callback defines the embedder-facing façade a Connection drives:
// event notifications and per-service customization hooks (spec §4.9, §6).
package callback

import "github.com/z9yaya/AAM-headunit/pkg/aaproto"

// EventSink mirrors original_source/hu/hu_aap.h's
// IHUConnectionThreadEventCallbacks. Every method here is invoked
// synchronously on the connection's I/O goroutine (spec §5) — these
// callbacks are executed in the head unit thread, so an embedder that needs
// to do real work in one of them must hand it off rather than block here.
type EventSink interface {
	// MediaPacket delivers one decoded media buffer for the given channel.
	MediaPacket(channel byte, timestamp uint64, payload []byte)
	// MediaStart/MediaStop mark a media session's lifecycle.
	MediaStart(channel byte, sessionID int32)
	MediaStop(channel byte, sessionID int32)
	// MediaSetupComplete reports the negotiated MediaSetupResponse.
	MediaSetupComplete(channel byte, maxUnacked, configIndex int32)

	// DisconnectionOrError fires exactly once, when a started connection's
	// I/O goroutine ends and the connection reaches STOPPED: err is the fatal
	// condition that caused it (spec §7), or nil for an orderly Stop() or
	// peer-requested shutdown. A Start call that fails returns its error
	// instead and does not fire this callback.
	DisconnectionOrError(err error)

	// AudioFocusRequest/VideoFocusRequest surface a focus negotiation for
	// the embedder to arbitrate; the dispatcher has already sent whatever
	// protocol-mandated auto-response applies.
	AudioFocusRequest(requestType int32)
	VideoFocusRequest(mode, reason int32)

	// MicRequest reports the phone opening or closing its mic stream; the
	// embedder replies, if at all, via the command queue (spec §4.4).
	MicRequest(channel byte, open bool)
	// VoiceSessionRequest forwards the phone's voice-assistant overlay
	// toggle verbatim (spec §4.4).
	VoiceSessionRequest(status int32)
	// NotificationStart/NotificationStop mark the generic notification
	// channel's Start/Stop lifecycle (spec §4.4); NotificationResponse
	// forwards the phone's reply to a notification the embedder posted.
	NotificationStart(channel byte)
	NotificationStop(channel byte)
	NotificationResponse(channel byte, status int32)

	// HandlePhoneStatus and the navigation callbacks forward decoded,
	// out-of-scope-schema payloads verbatim (spec Non-goals).
	HandlePhoneStatus(status aaproto.PhoneStatus)
	HandleNaviStatus(active bool)
	HandleNaviTurn(msg aaproto.NAVTurnMessage)
	HandleNaviTurnDistance(msg aaproto.NAVDistanceMessage)

	// GetCarBluetoothAddress supplies the MAC address advertised during
	// Bluetooth pairing negotiation.
	GetCarBluetoothAddress() string

	// Customize* hooks let the embedder shape the ServiceDiscoveryResponse
	// per service kind before it is sent (spec §4.4 row 1, §6).
	CustomizeOutputChannel(kind aaproto.Kind, svc *aaproto.Service)
	CustomizeInputChannel(svc *aaproto.Service)
	CustomizeSensorConfig(svc *aaproto.Service)
	CustomizeInputConfig(svc *aaproto.Service)
	CustomizeBluetoothService(svc *aaproto.Service)
}

// NoOpSink implements EventSink with no-op bodies, for embedders that only
// care about a handful of events; embed it and override selectively.
type NoOpSink struct{}

func (NoOpSink) MediaPacket(channel byte, timestamp uint64, payload []byte)     {}
func (NoOpSink) MediaStart(channel byte, sessionID int32)                      {}
func (NoOpSink) MediaStop(channel byte, sessionID int32)                       {}
func (NoOpSink) MediaSetupComplete(channel byte, maxUnacked, configIndex int32) {}
func (NoOpSink) DisconnectionOrError(err error)                                {}
func (NoOpSink) AudioFocusRequest(requestType int32)                          {}
func (NoOpSink) VideoFocusRequest(mode, reason int32)                          {}
func (NoOpSink) MicRequest(channel byte, open bool)                           {}
func (NoOpSink) VoiceSessionRequest(status int32)                             {}
func (NoOpSink) NotificationStart(channel byte)                               {}
func (NoOpSink) NotificationStop(channel byte)                                {}
func (NoOpSink) NotificationResponse(channel byte, status int32)              {}
func (NoOpSink) HandlePhoneStatus(status aaproto.PhoneStatus)                  {}
func (NoOpSink) HandleNaviStatus(active bool)                                  {}
func (NoOpSink) HandleNaviTurn(msg aaproto.NAVTurnMessage)                     {}
func (NoOpSink) HandleNaviTurnDistance(msg aaproto.NAVDistanceMessage)         {}
func (NoOpSink) GetCarBluetoothAddress() string                                { return "" }
func (NoOpSink) CustomizeOutputChannel(kind aaproto.Kind, svc *aaproto.Service) {}
func (NoOpSink) CustomizeInputChannel(svc *aaproto.Service)                    {}
func (NoOpSink) CustomizeSensorConfig(svc *aaproto.Service)                    {}
func (NoOpSink) CustomizeInputConfig(svc *aaproto.Service)                     {}
func (NoOpSink) CustomizeBluetoothService(svc *aaproto.Service)                {}
