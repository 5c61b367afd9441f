// Command headunitd is a minimal reference wiring of the head-unit core:
// it reads the JSON config sidecar to pick a transport, opens a
// connection, and logs the events a real embedder would forward to audio
// output, a video surface, and a navigation UI.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/z9yaya/AAM-headunit/internal/logger"
	"github.com/z9yaya/AAM-headunit/pkg/aaproto"
	"github.com/z9yaya/AAM-headunit/pkg/callback"
	"github.com/z9yaya/AAM-headunit/pkg/config"
	"github.com/z9yaya/AAM-headunit/pkg/dispatch"
	"github.com/z9yaya/AAM-headunit/pkg/headunit"
	"github.com/z9yaya/AAM-headunit/pkg/transport"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to the JSON config sidecar")
	phoneAddr := flag.String("phone", "", "phone IP address for a Wi-Fi Android Auto session (overrides wifiTransport)")
	usbDevice := flag.String("usb-device", "/dev/bus/usb/001/002", "USB device node to use for accessory mode")
	logLevel := flag.String("log-level", "info", "debug|info|warn|error")
	flag.Parse()

	log := logger.NewStdLogger(parseLevel(*logLevel))
	logger.SetDefault(log)

	store := config.NewStore(*configPath)
	cfg := store.Load()
	log.Info("loaded config: %+v", cfg)

	tr := buildTransport(cfg, *phoneAddr, *usbDevice, log)

	sink := &loggingSink{log: log}
	conn := headunit.New(connectionConfig(), tr, sink, log)
	sink.conn = conn

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := conn.Start(ctx, cfg.LaunchOnDevice); err != nil {
		log.Error("failed to start connection: %v", err)
		os.Exit(1)
	}

	<-ctx.Done()
	log.Info("shutting down")
	if err := conn.Stop(); err != nil {
		log.Error("error during shutdown: %v", err)
	}
}

func buildTransport(cfg config.Config, phoneAddr, usbDevice string, log logger.Logger) transport.Transport {
	if phoneAddr != "" || cfg.WifiTransport {
		host := phoneAddr
		if host == "" {
			host = "0.0.0.0"
		}
		log.Info("using TCP transport to %s:%d", host, transport.DefaultPort)
		return transport.NewTCPTransport(host, transport.DefaultPort)
	}

	log.Info("using USB accessory transport on %s", usbDevice)
	return transport.NewUSBTransport(usbDevice, transport.AccessoryStrings{
		Manufacturer: "AAM-headunit",
		Model:        "Generic Head Unit",
		Description:  "Android Auto Accessory",
		Version:      "2.0.0",
		URI:          "https://github.com/z9yaya/AAM-headunit",
		Serial:       "0001",
	})
}

func connectionConfig() headunit.Config {
	cfg := headunit.DefaultConfig()
	cfg.ServerName = "aa-headunit"
	cfg.Dispatch = dispatch.Config{
		Services: map[byte]dispatch.Service{
			byte(aaproto.ChannelVideo): {ID: 1, Kind: aaproto.KindVideoOut},
			byte(aaproto.ChannelAudio): {ID: 2, Kind: aaproto.KindAudioOut},
			byte(aaproto.ChannelMic):   {ID: 3, Kind: aaproto.KindMic},
			byte(aaproto.ChannelTouch): {ID: 4, Kind: aaproto.KindInput},
		},
		HeadUnitName: "AAM Head Unit",
		CarModel:     "Generic",
		CarYear:      "2026",
		CarSerial:    "0001",
	}
	return cfg
}

func parseLevel(s string) logger.Level {
	switch s {
	case "debug":
		return logger.LevelDebug
	case "warn":
		return logger.LevelWarn
	case "error":
		return logger.LevelError
	default:
		return logger.LevelInfo
	}
}

// loggingSink implements callback.EventSink by logging every event, the
// same role the example programs play for the teacher's channel packages:
// a demonstration wiring, not a production media pipeline.
type loggingSink struct {
	callback.NoOpSink
	log  logger.Logger
	conn *headunit.Connection
}

func (s *loggingSink) MediaPacket(channel byte, timestamp uint64, payload []byte) {
	s.log.Debug("media packet: channel=%d ts=%d bytes=%d", channel, timestamp, len(payload))
}

func (s *loggingSink) MediaStart(channel byte, sessionID int32) {
	s.log.Info("media start: channel=%d session=%d", channel, sessionID)
}

func (s *loggingSink) MediaStop(channel byte, sessionID int32) {
	s.log.Info("media stop: channel=%d session=%d", channel, sessionID)
}

func (s *loggingSink) MediaSetupComplete(channel byte, maxUnacked, configIndex int32) {
	s.log.Info("media setup complete: channel=%d maxUnacked=%d configIndex=%d", channel, maxUnacked, configIndex)
}

func (s *loggingSink) DisconnectionOrError(err error) {
	s.log.Warn("disconnected: %v", err)
}

func (s *loggingSink) AudioFocusRequest(requestType int32) {
	s.log.Info("audio focus request: %d", requestType)
}

func (s *loggingSink) VideoFocusRequest(mode, reason int32) {
	s.log.Info("video focus request: mode=%d reason=%d", mode, reason)
	// Sink callbacks run on the I/O goroutine, and RequestVideoFocus waits
	// for that goroutine to send, so it is called from a goroutine of its own.
	go s.conn.RequestVideoFocus(byte(aaproto.ChannelVideo), headunit.VideoFocusRequestorPhone, mode == aaproto.VideoFocusProjected)
}

func (s *loggingSink) MicRequest(channel byte, open bool) {
	s.log.Info("mic request: channel=%d open=%v", channel, open)
}

func (s *loggingSink) VoiceSessionRequest(status int32) {
	s.log.Info("voice session request: status=%d", status)
}

func (s *loggingSink) NotificationStart(channel byte) {
	s.log.Info("notifications start: channel=%d", channel)
}

func (s *loggingSink) NotificationStop(channel byte) {
	s.log.Info("notifications stop: channel=%d", channel)
}

func (s *loggingSink) NotificationResponse(channel byte, status int32) {
	s.log.Debug("notification response: channel=%d status=%d", channel, status)
}

func (s *loggingSink) HandlePhoneStatus(status aaproto.PhoneStatus) {
	s.log.Debug("phone status: %d", status.State)
}

func (s *loggingSink) HandleNaviStatus(active bool) {
	s.log.Info("navigation active: %v", active)
}

func (s *loggingSink) HandleNaviTurn(msg aaproto.NAVTurnMessage) {
	s.log.Info("nav turn: event=%d street=%q", msg.EventType, msg.StreetName)
}

func (s *loggingSink) HandleNaviTurnDistance(msg aaproto.NAVDistanceMessage) {
	s.log.Debug("nav distance: meters=%d seconds=%d", msg.Meters, msg.TimeSeconds)
}

func (s *loggingSink) GetCarBluetoothAddress() string {
	return ""
}
