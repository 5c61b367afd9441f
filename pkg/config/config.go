// Package config loads and rewrites the JSON sidecar file that persists a
// deployment's user-facing preferences across restarts (spec §6, grounded
// on original_source/common/config.{h,cpp}).
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// DefaultPath matches the original implementation's fixed location.
const DefaultPath = "/tmp/root/headunit.json"

// Config mirrors the four keys the original sidecar recognizes. Unknown
// keys in the file are preserved on disk but not exposed here — the same
// tolerant-parse behavior as the original's per-field is_boolean checks.
type Config struct {
	LaunchOnDevice bool `json:"launchOnDevice"`
	CarGPS         bool `json:"carGPS"`
	WifiTransport  bool `json:"wifiTransport"`
	ReverseGPS     bool `json:"reverseGPS"`
}

// Default returns the original implementation's compiled-in defaults
// (USB transport, on-device launch, car GPS enabled).
func Default() Config {
	return Config{
		LaunchOnDevice: true,
		CarGPS:         true,
		WifiTransport:  false,
		ReverseGPS:     false,
	}
}

// Store guards one config file with a mutex so concurrent Update calls
// from different goroutines (e.g. a settings UI and a CLI flag handler)
// don't interleave a read-modify-write cycle.
type Store struct {
	mu   sync.Mutex
	path string
}

// NewStore opens a Store over path without touching the filesystem yet.
func NewStore(path string) *Store {
	if path == "" {
		path = DefaultPath
	}
	return &Store{path: path}
}

// Load reads the sidecar file, returning Default() if it doesn't exist yet
// or fails to parse — matching the original's "couldn't read/parse, keep
// compiled-in defaults" behavior rather than failing startup.
func (s *Store) Load() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *Store) loadLocked() Config {
	cfg := Default()
	data, err := os.ReadFile(s.path)
	if err != nil {
		return cfg
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg
	}
	return cfg
}

// Update applies mutate to the config currently on disk and atomically
// rewrites the file (write to a temp file, then rename), returning the
// config as saved.
func (s *Store) Update(mutate func(cfg *Config)) (Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg := s.loadLocked()
	mutate(&cfg)

	// Overlay the four known keys on whatever the file already holds, so
	// keys this package does not know about survive the rewrite.
	doc := map[string]json.RawMessage{}
	if old, err := os.ReadFile(s.path); err == nil {
		if json.Unmarshal(old, &doc) != nil {
			doc = map[string]json.RawMessage{}
		}
	}
	known, err := json.Marshal(cfg)
	if err == nil {
		err = json.Unmarshal(known, &doc)
	}
	if err != nil {
		return cfg, fmt.Errorf("config: marshal: %w", err)
	}
	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return cfg, fmt.Errorf("config: marshal: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return cfg, fmt.Errorf("config: create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".headunit-config-*")
	if err != nil {
		return cfg, fmt.Errorf("config: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return cfg, fmt.Errorf("config: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return cfg, fmt.Errorf("config: close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return cfg, fmt.Errorf("config: rename into place: %w", err)
	}
	return cfg, nil
}

// SetLaunchOnDevice and the other SetXxx helpers mirror the original's
// updateConfigBool calls one field at a time.
func (s *Store) SetLaunchOnDevice(v bool) (Config, error) {
	return s.Update(func(c *Config) { c.LaunchOnDevice = v })
}

func (s *Store) SetCarGPS(v bool) (Config, error) {
	return s.Update(func(c *Config) { c.CarGPS = v })
}

func (s *Store) SetWifiTransport(v bool) (Config, error) {
	return s.Update(func(c *Config) { c.WifiTransport = v })
}

func (s *Store) SetReverseGPS(v bool) (Config, error) {
	return s.Update(func(c *Config) { c.ReverseGPS = v })
}
