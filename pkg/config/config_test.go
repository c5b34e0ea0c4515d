package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Retry.MaxAttempts != 3 {
		t.Errorf("Expected default retry attempts to be 3, got %d", config.Retry.MaxAttempts)
	}
	if config.Retry.BaseDelay != 200*time.Millisecond {
		t.Errorf("Expected default base delay to be 200ms, got %v", config.Retry.BaseDelay)
	}
	if config.Download.Timeout != 60*time.Second {
		t.Errorf("Expected default timeout to be 60s, got %v", config.Download.Timeout)
	}
	if config.Download.Concurrency != 4 {
		t.Errorf("Expected default concurrency to be 4, got %d", config.Download.Concurrency)
	}
	if !strings.HasPrefix(config.Instagram.UserAgent, "Instagram 10.26.0") {
		t.Errorf("Unexpected default user agent %q", config.Instagram.UserAgent)
	}
	if err := config.Validate(); err != nil {
		t.Errorf("Expected default config to be valid, got %v", err)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("IGSTORIES_USER_ID", "12345")
	t.Setenv("IGSTORIES_SESSION_ID", "test-session-id")
	t.Setenv("IGSTORIES_CSRF_TOKEN", "test-csrf-token")
	t.Setenv("IGSTORIES_DEVICE_ID", "device-1")
	t.Setenv("IGSTORIES_ROOT_DIR", "/tmp/stories")
	t.Setenv("IGSTORIES_CONCURRENCY", "6")
	t.Setenv("IGSTORIES_TIMEOUT", "30s")
	t.Setenv("IGSTORIES_ARCHIVE_SNAPSHOTS", "false")
	t.Setenv("IGSTORIES_LOG_LEVEL", "debug")

	config := DefaultConfig()
	if err := config.LoadFromEnv(); err != nil {
		t.Fatalf("Failed to load from environment: %v", err)
	}

	if !config.Instagram.HasCredentials() {
		t.Error("Expected credentials to be complete")
	}
	if config.Instagram.DeviceID != "device-1" {
		t.Errorf("Expected device id device-1, got %s", config.Instagram.DeviceID)
	}
	if config.Output.RootDirectory != "/tmp/stories" {
		t.Errorf("Expected root /tmp/stories, got %s", config.Output.RootDirectory)
	}
	if config.Download.Concurrency != 6 {
		t.Errorf("Expected concurrency 6, got %d", config.Download.Concurrency)
	}
	if config.Download.Timeout != 30*time.Second {
		t.Errorf("Expected timeout 30s, got %v", config.Download.Timeout)
	}
	if config.Output.ArchiveSnapshots {
		t.Error("Expected archiving to be disabled")
	}
	if config.Logging.Level != "debug" {
		t.Errorf("Expected log level debug, got %s", config.Logging.Level)
	}
}

func TestLoadFromEnvInvalidNumber(t *testing.T) {
	t.Setenv("IGSTORIES_CONCURRENCY", "many")

	config := DefaultConfig()
	err := config.LoadFromEnv()
	if err == nil {
		t.Fatal("Expected error for invalid concurrency")
	}
	if !strings.Contains(err.Error(), "IGSTORIES_CONCURRENCY") {
		t.Errorf("Expected error to name the variable, got %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
output:
  root_directory: /data/stories
  snapshot_directory: raw
download:
  concurrency: 8
  timeout: 45s
retry:
  max_attempts: 5
schedule:
  interval: 2h
logging:
  level: warn
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	config := DefaultConfig()
	if err := config.LoadFromFile(path); err != nil {
		t.Fatalf("Failed to load config file: %v", err)
	}

	if config.Output.RootDirectory != "/data/stories" {
		t.Errorf("Expected root /data/stories, got %s", config.Output.RootDirectory)
	}
	if config.Output.SnapshotDirectory != "raw" {
		t.Errorf("Expected snapshot dir raw, got %s", config.Output.SnapshotDirectory)
	}
	if config.Download.Concurrency != 8 {
		t.Errorf("Expected concurrency 8, got %d", config.Download.Concurrency)
	}
	if config.Download.Timeout != 45*time.Second {
		t.Errorf("Expected timeout 45s, got %v", config.Download.Timeout)
	}
	if config.Retry.MaxAttempts != 5 {
		t.Errorf("Expected 5 attempts, got %d", config.Retry.MaxAttempts)
	}
	if config.Schedule.Interval != 2*time.Hour {
		t.Errorf("Expected interval 2h, got %v", config.Schedule.Interval)
	}
	// untouched keys keep their defaults
	if config.Retry.BaseDelay != 200*time.Millisecond {
		t.Errorf("Expected default base delay, got %v", config.Retry.BaseDelay)
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	config := DefaultConfig()
	if err := config.LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Expected error for missing explicit config file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"concurrency too high", func(c *Config) { c.Download.Concurrency = 32 }, "concurrency"},
		{"concurrency zero", func(c *Config) { c.Download.Concurrency = 0 }, "concurrency"},
		{"no attempts", func(c *Config) { c.Retry.MaxAttempts = 0 }, "max attempts"},
		{"bad level", func(c *Config) { c.Logging.Level = "chatty" }, "log level"},
		{"short interval", func(c *Config) { c.Schedule.Interval = time.Second }, "interval"},
		{"empty root", func(c *Config) { c.Output.RootDirectory = "" }, "root directory"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)
			err := config.Validate()
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	config := DefaultConfig()
	config.Download.Concurrency = 0
	config.Logging.Level = "nope"

	err := config.Validate()
	if err == nil {
		t.Fatal("Expected validation error")
	}
	if !strings.Contains(err.Error(), "concurrency") || !strings.Contains(err.Error(), "log level") {
		t.Errorf("Expected both problems reported, got %v", err)
	}
}

func TestSaveOmitsSecrets(t *testing.T) {
	config := DefaultConfig()
	config.Instagram.UserID = "1"
	config.Instagram.SessionID = "secret-session"
	config.Instagram.CSRFToken = "secret-csrf"

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	if err := config.Save(path); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read saved config: %v", err)
	}
	if strings.Contains(string(data), "secret") {
		t.Error("Saved config must not contain credentials")
	}
	if config.Instagram.SessionID != "secret-session" {
		t.Error("Save must not modify the receiver")
	}

	loaded := DefaultConfig()
	if err := loaded.LoadFromFile(path); err != nil {
		t.Fatalf("Failed to reload: %v", err)
	}
	if loaded.Instagram.UserID != "1" {
		t.Errorf("Expected user id to round trip, got %q", loaded.Instagram.UserID)
	}
}

func TestMergeCommandLineFlags(t *testing.T) {
	config := DefaultConfig()
	config.MergeCommandLineFlags(map[string]interface{}{
		"root":        "/out",
		"concurrency": 2,
		"interval":    30 * time.Minute,
		"archive":     false,
		"log-level":   "error",
	})

	if config.Output.RootDirectory != "/out" {
		t.Errorf("Expected root /out, got %s", config.Output.RootDirectory)
	}
	if config.Download.Concurrency != 2 {
		t.Errorf("Expected concurrency 2, got %d", config.Download.Concurrency)
	}
	if config.Schedule.Interval != 30*time.Minute {
		t.Errorf("Expected interval 30m, got %v", config.Schedule.Interval)
	}
	if config.Output.ArchiveSnapshots {
		t.Error("Expected archive disabled")
	}
	if config.Logging.Level != "error" {
		t.Errorf("Expected log level error, got %s", config.Logging.Level)
	}
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("download:\n  concurrency: 3\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("IGSTORIES_CONCURRENCY", "5")

	config, err := Load(path, map[string]interface{}{"concurrency": 7})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if config.Download.Concurrency != 7 {
		t.Errorf("Expected flag to win with 7, got %d", config.Download.Concurrency)
	}

	config, err = Load(path, nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if config.Download.Concurrency != 5 {
		t.Errorf("Expected env to win with 5, got %d", config.Download.Concurrency)
	}
}
