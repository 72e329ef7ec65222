package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Language != "en" {
		t.Errorf("Expected default language en, got %q", cfg.Language)
	}
	if cfg.Audio.SampleRate != 16000 {
		t.Errorf("Expected default sample rate 16000, got %d", cfg.Audio.SampleRate)
	}
	if cfg.Stream.Backend != "remote" {
		t.Errorf("Expected default backend remote, got %q", cfg.Stream.Backend)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
language: ru
audio:
  device: "USB Microphone"
  chunk_frames: 2048
stream:
  backend: local
  model_path: /opt/models/small-ru
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Language != "ru" {
		t.Errorf("Expected language ru, got %q", cfg.Language)
	}
	if cfg.Audio.Device != "USB Microphone" {
		t.Errorf("Expected device override, got %q", cfg.Audio.Device)
	}
	if cfg.Audio.ChunkFrames != 2048 {
		t.Errorf("Expected chunk_frames 2048, got %d", cfg.Audio.ChunkFrames)
	}
	if cfg.Stream.Backend != "local" {
		t.Errorf("Expected backend local, got %q", cfg.Stream.Backend)
	}

	// Unset fields keep their defaults
	if cfg.Audio.SampleRate != 16000 {
		t.Errorf("Expected default sample rate preserved, got %d", cfg.Audio.SampleRate)
	}
	if cfg.Transcribe.Model == "" {
		t.Error("Expected default transcribe model preserved")
	}
}

func TestLoadInvalidBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("stream:\n  backend: carrier-pigeon\n"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Error("Expected error for invalid backend")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestLoadWithFallbackDefaults(t *testing.T) {
	// With no explicit path and no config files present, defaults come back
	cfg, err := LoadWithFallback("")
	if err != nil {
		t.Fatalf("LoadWithFallback failed: %v", err)
	}
	if cfg == nil {
		t.Fatal("Expected a config")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	cfg := DefaultConfig()
	cfg.Language = "ko"
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load after Save failed: %v", err)
	}
	if loaded.Language != "ko" {
		t.Errorf("Expected language ko after round trip, got %q", loaded.Language)
	}
}
