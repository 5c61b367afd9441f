package aaproto

// MessageCode is the 2-byte big-endian identifier at the start of every
// assembled non-media-data message (spec §4.4, GLOSSARY).
type MessageCode uint16

// Channel-0 init phase (HU_INIT_MESSAGE).
const (
	MsgVersionRequest  MessageCode = 0x0001
	MsgVersionResponse MessageCode = 0x0002
	MsgSSLHandshake    MessageCode = 0x0003
	MsgAuthComplete    MessageCode = 0x0004
)

// Channel-0 post-auth control phase (HU_PROTOCOL_MESSAGE).
const (
	MsgServiceDiscoveryRequest  MessageCode = 0x0005
	MsgServiceDiscoveryResponse MessageCode = 0x0006
	MsgChannelOpenRequest       MessageCode = 0x0007
	MsgChannelOpenResponse      MessageCode = 0x0008
	MsgPingRequest              MessageCode = 0x000B
	MsgPingResponse             MessageCode = 0x000C
	MsgNavigationFocusRequest   MessageCode = 0x000D
	MsgNavigationFocusResponse  MessageCode = 0x000E
	MsgShutdownRequest          MessageCode = 0x000F
	MsgShutdownResponse         MessageCode = 0x0010
	MsgVoiceSessionRequest      MessageCode = 0x0011
	MsgAudioFocusRequest        MessageCode = 0x0012
	MsgAudioFocusResponse       MessageCode = 0x0013
)

// Media-data channel messages (no message-code table entry: these are the
// raw first two bytes of a media payload, spec §3).
const (
	MsgMediaDataWithTimestamp MessageCode = 0x0000
	MsgMediaData              MessageCode = 0x0001
)

// Media output channel messages (HU_MEDIA_CHANNEL_MESSAGE).
const (
	MsgMediaSetupRequest  MessageCode = 0x8000
	MsgMediaStartRequest  MessageCode = 0x8001
	MsgMediaStopRequest   MessageCode = 0x8002
	MsgMediaSetupResponse MessageCode = 0x8003
	MsgMediaAck           MessageCode = 0x8004
	MsgMicRequest         MessageCode = 0x8005
	MsgMicResponse        MessageCode = 0x8006
	MsgVideoFocusRequest  MessageCode = 0x8007
	MsgVideoFocus         MessageCode = 0x8008
)

// Sensor channel messages (HU_SENSOR_CHANNEL_MESSAGE).
const (
	MsgSensorStartRequest  MessageCode = 0x8001
	MsgSensorStartResponse MessageCode = 0x8002
	MsgSensorEvent         MessageCode = 0x8003
)

// Input channel messages (HU_INPUT_CHANNEL_MESSAGE).
const (
	MsgInputEvent      MessageCode = 0x8001
	MsgBindingRequest  MessageCode = 0x8002
	MsgBindingResponse MessageCode = 0x8003
)

// Phone status channel messages (HU_PHONE_STATUS_CHANNEL_MESSAGE).
const (
	MsgPhoneStatus      MessageCode = 0x8001
	MsgPhoneStatusInput MessageCode = 0x8002
)

// Bluetooth channel messages (HU_BLUETOOTH_CHANNEL_MESSAGE).
const (
	MsgBluetoothPairingRequest  MessageCode = 0x8001
	MsgBluetoothPairingResponse MessageCode = 0x8002
	MsgBluetoothAuthData        MessageCode = 0x8003
)

// Notifications channel messages (HU_GENERIC_NOTIFICATIONS_CHANNEL_MESSAGE).
const (
	MsgStartGenericNotifications  MessageCode = 0x8001
	MsgStopGenericNotifications   MessageCode = 0x8002
	MsgGenericNotificationRequest MessageCode = 0x8003
	MsgGenericNotificationResponse MessageCode = 0x8004
)

// Navigation channel messages (HU_NAVI_CHANNEL_MESSAGE).
const (
	MsgNaviStatus       MessageCode = 0x8003
	MsgNaviTurn         MessageCode = 0x8004
	MsgNaviTurnDistance MessageCode = 0x8005
)

// InputButton enumerates the button/key codes a BindingResponse may
// advertise (original_source/hu/hu_aap.h HU_INPUT_BUTTON).
type InputButton int

const (
	ButtonMic1        InputButton = 0x01
	ButtonMenu        InputButton = 0x02
	ButtonHome        InputButton = 0x03
	ButtonBack        InputButton = 0x04
	ButtonPhone       InputButton = 0x05
	ButtonCallEnd     InputButton = 0x06
	ButtonUp          InputButton = 0x13
	ButtonDown        InputButton = 0x14
	ButtonLeft        InputButton = 0x15
	ButtonRight       InputButton = 0x16
	ButtonEnter       InputButton = 0x17
	ButtonMic         InputButton = 0x54
	ButtonPlayPause   InputButton = 0x55
	ButtonNext        InputButton = 0x57
	ButtonPrev        InputButton = 0x58
	ButtonStart       InputButton = 0x7E
	ButtonStop        InputButton = 0x7F
	ButtonMusic       InputButton = 0xD1
	ButtonScrollWheel InputButton = 65536
	ButtonMedia       InputButton = 65537
	ButtonNavigation  InputButton = 65538
	ButtonRadio       InputButton = 65539
	ButtonTel         InputButton = 65540
)
