// Package config loads the YAML configuration that describes how to run
// the tracker process: where the HTTP server binds, which model files
// back which zones, and the logging settings.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level tracker configuration.
type Config struct {
	Server  ServerConfig          `yaml:"server"`
	Logging LoggingConfig         `yaml:"logging"`
	Zones   map[string]ZoneConfig `yaml:"zones"`
}

// ServerConfig controls the HTTP/WebSocket listener.
type ServerConfig struct {
	Port           string `yaml:"port"`
	MaxImageSizeMB int    `yaml:"max_image_size_mb"`
}

// LoggingConfig holds the logging section. Load parses and defaults it;
// the server does not read these values, so they do not change log
// output.
type LoggingConfig struct {
	Level             string `yaml:"level"`
	LogInferenceTimes bool   `yaml:"log_inference_times"`
}

// ZoneConfig describes one entry under the "zones" map. The map key is
// either a single zone name ("left_eye", "right_eye", "mouth") or the
// combined key "eyes" for the shared left/right eye model.
type ZoneConfig struct {
	ModelPath string `yaml:"model_path"`
}

// Load reads and parses a YAML config file, applying defaults for any
// zero-valued field.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
	if cfg.Server.MaxImageSizeMB == 0 {
		cfg.Server.MaxImageSizeMB = 10
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Zones == nil {
		cfg.Zones = map[string]ZoneConfig{}
	}

	return &cfg, nil
}
