package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
)

type Config struct {
	Audio    AudioConfig   `json:"audio"`
	Output   OutputConfig  `json:"output"`
	MQTT     MQTTConfig    `json:"mqtt"`
	Catalog  CatalogConfig `json:"catalog"`
	LogLevel string        `json:"log_level"`
}

type AudioConfig struct {
	DeviceID   string `json:"device_id"`
	SampleRate int    `json:"sample_rate"`
	BlockSize  int    `json:"block_size"` // samples per capture callback
}

type OutputConfig struct {
	Dir string `json:"dir"`
}

type MQTTConfig struct {
	Enabled  bool   `json:"enabled"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	UseTLS   bool   `json:"use_tls"`
	Username string `json:"username"`
	Password string `json:"password"`
	Topic    string `json:"topic"`
}

type CatalogConfig struct {
	Path string `json:"path"`
}

// Load reads the config from disk or returns defaults
func Load() (*Config, error) {
	path := configPath()

	// Default config
	cfg := &Config{
		Audio: AudioConfig{
			DeviceID:   "",
			SampleRate: 44100,
			BlockSize:  2048,
		},
		Output: OutputConfig{
			Dir: defaultOutputDir(),
		},
		MQTT: MQTTConfig{
			Enabled: false,
			Host:    "localhost",
			Port:    1883,
			Topic:   "wavcap/recordings",
		},
		Catalog: CatalogConfig{
			Path: filepath.Join(filepath.Dir(path), "catalog.db"),
		},
		LogLevel: "info",
	}

	// Load existing config if it exists
	if data, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Save writes the config to disk
func (c *Config) Save() error {
	path := configPath()

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// configPath returns the platform-specific config file path
func configPath() string {
	var base string

	switch runtime.GOOS {
	case "darwin":
		base = os.Getenv("HOME") + "/Library/Application Support"
	case "windows":
		base = os.Getenv("APPDATA")
	default: // linux
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = xdg
		} else {
			base = os.Getenv("HOME") + "/.config"
		}
	}

	return filepath.Join(base, "wavcap", "config.json")
}

// defaultOutputDir returns where recordings land when no directory is
// configured
func defaultOutputDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, "Recordings")
}
