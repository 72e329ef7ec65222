package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	// Language is the transcription language code (en, ru, ko)
	Language string `yaml:"language"`

	// Audio capture settings
	Audio struct {
		Device      string `yaml:"device"`
		SampleRate  uint32 `yaml:"sample_rate"`
		ChunkFrames uint32 `yaml:"chunk_frames"`
	} `yaml:"audio"`

	// Stream settings for the realtime transcription channel
	Stream struct {
		// Backend selects the channel implementation: "remote" or "local"
		Backend   string `yaml:"backend"`
		Endpoint  string `yaml:"endpoint"`
		Model     string `yaml:"model"`
		ModelPath string `yaml:"model_path"` // local backend model directory
	} `yaml:"stream"`

	// Transcribe settings for one-shot file transcription
	Transcribe struct {
		Endpoint       string `yaml:"endpoint"`
		Model          string `yaml:"model"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"transcribe"`

	// Share handoff store settings
	Share struct {
		StorePath string `yaml:"store_path"`
	} `yaml:"share"`

	// Metrics settings
	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Language = "en"

	cfg.Audio.Device = ""
	cfg.Audio.SampleRate = 16000
	cfg.Audio.ChunkFrames = 4096

	cfg.Stream.Backend = "remote"
	cfg.Stream.Endpoint = "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"
	cfg.Stream.Model = "models/gemini-2.0-flash-live-001"
	cfg.Stream.ModelPath = ""

	cfg.Transcribe.Endpoint = "https://generativelanguage.googleapis.com/v1beta"
	cfg.Transcribe.Model = "gemini-2.5-flash"
	cfg.Transcribe.TimeoutSeconds = 60

	cfg.Share.StorePath = ""
	cfg.Metrics.Addr = ""

	return cfg
}

// APIKey returns the hosted service API key from the environment.
func APIKey() string {
	return os.Getenv("DICTA_API_KEY")
}

// Load loads configuration from file
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadWithFallback attempts to load configuration from multiple locations
// Priority: explicit path > ~/.dictarc > /etc/dicta/config.yaml
func LoadWithFallback(explicitPath string) (*Config, error) {
	if explicitPath != "" {
		return Load(explicitPath)
	}

	homeDir, err := os.UserHomeDir()
	if err == nil {
		userConfigPath := filepath.Join(homeDir, ".dictarc")
		if _, err := os.Stat(userConfigPath); err == nil {
			cfg, err := Load(userConfigPath)
			if err == nil {
				return cfg, nil
			}
		}
	}

	systemConfigPath := "/etc/dicta/config.yaml"
	if _, err := os.Stat(systemConfigPath); err == nil {
		cfg, err := Load(systemConfigPath)
		if err == nil {
			return cfg, nil
		}
	}

	// No config file found, return defaults
	return DefaultConfig(), nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func (c *Config) validate() error {
	switch c.Stream.Backend {
	case "remote", "local":
	default:
		return fmt.Errorf("invalid stream backend: %s (valid: remote, local)", c.Stream.Backend)
	}

	if c.Audio.SampleRate == 0 {
		return fmt.Errorf("audio sample rate must be positive")
	}
	if c.Audio.ChunkFrames == 0 {
		return fmt.Errorf("audio chunk frames must be positive")
	}

	return nil
}
