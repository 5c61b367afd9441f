package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeRaw(path, contents string) error {
	return os.WriteFile(path, []byte(contents), 0o644)
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "headunit.json"))
	cfg := s.Load()
	if cfg != Default() {
		t.Errorf("Load() = %+v, want defaults %+v", cfg, Default())
	}
}

func TestUpdateRoundTrips(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "sub", "headunit.json"))

	if _, err := s.SetWifiTransport(true); err != nil {
		t.Fatalf("SetWifiTransport: %v", err)
	}
	if _, err := s.SetReverseGPS(true); err != nil {
		t.Fatalf("SetReverseGPS: %v", err)
	}

	got := s.Load()
	want := Config{LaunchOnDevice: true, CarGPS: true, WifiTransport: true, ReverseGPS: true}
	if got != want {
		t.Errorf("Load() = %+v, want %+v", got, want)
	}
}

func TestUpdatePreservesOtherFields(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "headunit.json"))

	s.SetLaunchOnDevice(false)
	s.SetCarGPS(false)

	got := s.Load()
	if got.LaunchOnDevice || got.CarGPS {
		t.Fatalf("expected both fields false, got %+v", got)
	}
	if got.WifiTransport != Default().WifiTransport {
		t.Errorf("unrelated field WifiTransport changed: got %v, want default %v", got.WifiTransport, Default().WifiTransport)
	}
}

func TestCorruptFileFallsBackToDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "headunit.json")
	if err := writeRaw(path, "{not valid json"); err != nil {
		t.Fatalf("writeRaw: %v", err)
	}

	s := NewStore(path)
	cfg := s.Load()
	if cfg != Default() {
		t.Errorf("Load() on corrupt file = %+v, want defaults %+v", cfg, Default())
	}
}
