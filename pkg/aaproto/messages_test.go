package aaproto

import "testing"

func TestVersionRoundTrip(t *testing.T) {
	req := VersionRequest{Major: 1, Minor: 6}
	var got VersionRequest
	if err := got.Unmarshal(req.Marshal()); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got != req {
		t.Errorf("got %+v, want %+v", got, req)
	}

	resp := VersionResponse{Major: 1, Minor: 6, Status: VersionStatusMatch}
	var gotResp VersionResponse
	if err := gotResp.Unmarshal(resp.Marshal()); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if gotResp != resp {
		t.Errorf("got %+v, want %+v", gotResp, resp)
	}
}

func TestServiceDiscoveryResponseRoundTrip(t *testing.T) {
	want := ServiceDiscoveryResponse{
		HeadUnitName: "headunitd",
		CarModel:     "Generic",
		CarYear:      "2026",
		CarSerial:    "0000-0001",
		Services: []Service{
			{ID: 2, Kind: KindSensor, SensorTypes: []int32{1, 2}},
			{ID: 3, Kind: KindVideoOut, VideoWidth: 1280, VideoHeight: 720, VideoFPS: 30, VideoConfigIndices: []int32{0}},
			{ID: 4, Kind: KindAudioOut, AudioSampleRate: 48000, AudioBitDepth: 16, AudioChannels: 2},
			{ID: 7, Kind: KindMic, AudioSampleRate: 16000, AudioBitDepth: 16, AudioChannels: 1},
			{ID: 1, Kind: KindInput, InputButtons: []InputButton{ButtonHome, ButtonBack, ButtonMic}},
		},
	}

	var got ServiceDiscoveryResponse
	if err := got.Unmarshal(want.Marshal()); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if got.HeadUnitName != want.HeadUnitName || got.CarModel != want.CarModel {
		t.Fatalf("header mismatch: got %+v", got)
	}
	if len(got.Services) != len(want.Services) {
		t.Fatalf("got %d services, want %d", len(got.Services), len(want.Services))
	}

	video := got.Services[1]
	if video.VideoWidth != 1280 || video.VideoHeight != 720 || video.VideoFPS != 30 {
		t.Errorf("video service mismatch: %+v", video)
	}
	audio := got.Services[2]
	if audio.AudioSampleRate != 48000 || audio.Kind != KindAudioOut {
		t.Errorf("audio service mismatch: %+v", audio)
	}
	mic := got.Services[3]
	if mic.Kind != KindMic || mic.AudioSampleRate != 16000 {
		t.Errorf("mic service mismatch: %+v", mic)
	}
	input := got.Services[4]
	if len(input.InputButtons) != 3 || input.InputButtons[2] != ButtonMic {
		t.Errorf("input service mismatch: %+v", input)
	}
}

func TestMediaSetupResponseRoundTrip(t *testing.T) {
	want := MediaSetupResponse{Status: MediaSetupStatusOK, MaxUnacked: 10, ConfigIndex: 0}
	var got MediaSetupResponse
	if err := got.Unmarshal(want.Marshal()); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestAudioVideoFocusRoundTrip(t *testing.T) {
	af := AudioFocusRequest{Type: AudioFocusGainTransient}
	var gotAF AudioFocusRequest
	if err := gotAF.Unmarshal(af.Marshal()); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if gotAF != af {
		t.Errorf("got %+v, want %+v", gotAF, af)
	}

	vf := VideoFocus{Mode: VideoFocusProjected, Unrequested: true}
	var gotVF VideoFocus
	if err := gotVF.Unmarshal(vf.Marshal()); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if gotVF != vf {
		t.Errorf("got %+v, want %+v", gotVF, vf)
	}
}

func TestNavMessagesRoundTrip(t *testing.T) {
	turn := NAVTurnMessage{EventType: 3, StreetName: "Main St"}
	var gotTurn NAVTurnMessage
	if err := gotTurn.Unmarshal(turn.Marshal()); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if gotTurn != turn {
		t.Errorf("got %+v, want %+v", gotTurn, turn)
	}

	dist := NAVDistanceMessage{Meters: 400, TimeSeconds: 45}
	var gotDist NAVDistanceMessage
	if err := gotDist.Unmarshal(dist.Marshal()); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if gotDist != dist {
		t.Errorf("got %+v, want %+v", gotDist, dist)
	}
}

func TestChannelOpenAndPingRoundTrip(t *testing.T) {
	open := ChannelOpenRequest{Priority: 1}
	var gotOpen ChannelOpenRequest
	if err := gotOpen.Unmarshal(open.Marshal()); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if gotOpen != open {
		t.Errorf("got %+v, want %+v", gotOpen, open)
	}

	ping := PingRequest{Timestamp: 1234567890}
	var gotPing PingRequest
	if err := gotPing.Unmarshal(ping.Marshal()); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if gotPing != ping {
		t.Errorf("got %+v, want %+v", gotPing, ping)
	}
}
