package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeTempConfig(t, "")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("Server.Port = %q, want \"8080\"", cfg.Server.Port)
	}
	if cfg.Server.MaxImageSizeMB != 10 {
		t.Errorf("Server.MaxImageSizeMB = %d, want 10", cfg.Server.MaxImageSizeMB)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want \"info\"", cfg.Logging.Level)
	}
	if cfg.Zones == nil {
		t.Error("Zones should default to an empty, non-nil map")
	}
}

func TestLoadRespectsExplicitValues(t *testing.T) {
	path := writeTempConfig(t, `
server:
  port: "9090"
  max_image_size_mb: 25
logging:
  level: debug
  log_inference_times: true
zones:
  mouth:
    model_path: /models/mouth.onnx
  eyes:
    model_path: /models/eyes.onnx
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("Server.Port = %q, want \"9090\"", cfg.Server.Port)
	}
	if cfg.Server.MaxImageSizeMB != 25 {
		t.Errorf("Server.MaxImageSizeMB = %d, want 25", cfg.Server.MaxImageSizeMB)
	}
	if !cfg.Logging.LogInferenceTimes {
		t.Error("expected LogInferenceTimes to be true")
	}
	zc, ok := cfg.Zones["mouth"]
	if !ok || zc.ModelPath != "/models/mouth.onnx" {
		t.Errorf("zones[mouth] = %+v, want model_path /models/mouth.onnx", zc)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeTempConfig(t, "server: [this is not a mapping")
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for malformed YAML")
	}
}
