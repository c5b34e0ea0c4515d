package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const envPrefix = "IGSTORIES_"

// Config holds all configuration options for the story archiver
type Config struct {
	Instagram InstagramConfig `yaml:"instagram" json:"instagram"`
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`
	Retry     RetryConfig     `yaml:"retry" json:"retry"`
	Output    OutputConfig    `yaml:"output" json:"output"`
	Download  DownloadConfig  `yaml:"download" json:"download"`
	Schedule  ScheduleConfig  `yaml:"schedule" json:"schedule"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging"`
}

// InstagramConfig holds the credential bundle and client identity.
// Credentials are usually kept in the credential store and only land here
// when supplied through the environment or flags.
type InstagramConfig struct {
	Account   string `yaml:"account" json:"account"`
	UserID    string `yaml:"user_id" json:"user_id"`
	SessionID string `yaml:"session_id" json:"session_id"`
	CSRFToken string `yaml:"csrf_token" json:"csrf_token"`
	DeviceID  string `yaml:"device_id" json:"device_id"`
	UserAgent string `yaml:"user_agent" json:"user_agent"`
	BaseURL   string `yaml:"base_url" json:"base_url"`
}

// HasCredentials reports whether a complete bundle is present
func (c InstagramConfig) HasCredentials() bool {
	return c.UserID != "" && c.SessionID != "" && c.CSRFToken != ""
}

// RateLimitConfig bounds the request rate against the API and CDN
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute"`
	BurstSize         int `yaml:"burst_size" json:"burst_size"`
}

// RetryConfig is the per-request retry policy
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts" json:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay" json:"base_delay"`
	Multiplier  float64       `yaml:"multiplier" json:"multiplier"`
	MaxDelay    time.Duration `yaml:"max_delay" json:"max_delay"`
}

// OutputConfig controls where media and JSON snapshots are written
type OutputConfig struct {
	RootDirectory     string `yaml:"root_directory" json:"root_directory"`
	SnapshotDirectory string `yaml:"snapshot_directory" json:"snapshot_directory"`
	SaveSnapshots     bool   `yaml:"save_snapshots" json:"save_snapshots"`
	ArchiveSnapshots  bool   `yaml:"archive_snapshots" json:"archive_snapshots"`
}

// DownloadConfig holds download-specific configuration
type DownloadConfig struct {
	Concurrency int           `yaml:"concurrency" json:"concurrency"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout"`
}

// ScheduleConfig configures watch mode
type ScheduleConfig struct {
	Interval time.Duration `yaml:"interval" json:"interval"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Instagram: InstagramConfig{
			UserAgent: "Instagram 10.26.0 (iPhone7,2; iOS 10_1_1; en_US; en-US; scale=2.00; gamut=normal; 750x1334) AppleWebKit/420+",
			BaseURL:   "https://i.instagram.com",
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 60,
			BurstSize:         10,
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   200 * time.Millisecond,
			Multiplier:  2.0,
			MaxDelay:    2 * time.Minute,
		},
		Output: OutputConfig{
			RootDirectory:     ".",
			SnapshotDirectory: "json",
			SaveSnapshots:     true,
			ArchiveSnapshots:  true,
		},
		Download: DownloadConfig{
			Concurrency: 4,
			Timeout:     60 * time.Second,
		},
		Schedule: ScheduleConfig{
			Interval: 6 * time.Hour,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from IGSTORIES_* environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	setString := func(name string, dst *string) {
		if v := os.Getenv(envPrefix + name); v != "" {
			*dst = v
		}
	}
	setInt := func(name string, dst *int) {
		v := os.Getenv(envPrefix + name)
		if v == "" {
			return
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, name, err))
			return
		}
		*dst = n
	}
	setDuration := func(name string, dst *time.Duration) {
		v := os.Getenv(envPrefix + name)
		if v == "" {
			return
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, name, err))
			return
		}
		*dst = d
	}

	setString("ACCOUNT", &c.Instagram.Account)
	setString("USER_ID", &c.Instagram.UserID)
	setString("SESSION_ID", &c.Instagram.SessionID)
	setString("CSRF_TOKEN", &c.Instagram.CSRFToken)
	setString("DEVICE_ID", &c.Instagram.DeviceID)
	setString("USER_AGENT", &c.Instagram.UserAgent)
	setString("ROOT_DIR", &c.Output.RootDirectory)
	setInt("REQUESTS_PER_MINUTE", &c.RateLimit.RequestsPerMinute)
	setInt("CONCURRENCY", &c.Download.Concurrency)
	setInt("MAX_ATTEMPTS", &c.Retry.MaxAttempts)
	setDuration("TIMEOUT", &c.Download.Timeout)
	setDuration("WATCH_INTERVAL", &c.Schedule.Interval)
	setString("LOG_LEVEL", &c.Logging.Level)
	setString("LOG_FILE", &c.Logging.File)

	if v := os.Getenv(envPrefix + "ARCHIVE_SNAPSHOTS"); v != "" {
		c.Output.ArchiveSnapshots = strings.EqualFold(v, "true") || v == "1"
	}

	return errors.Join(errs...)
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = FindConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// FindConfigFile searches for a config file in standard locations
func FindConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".igstories.yaml",
		".igstories.yml",
		filepath.Join(home, ".config", "igstories", "config.yaml"),
		filepath.Join(home, ".config", "igstories", "config.yml"),
		filepath.Join(home, ".igstories.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// DefaultConfigPath is where `config init` writes
func DefaultConfigPath() string {
	return filepath.Join(os.Getenv("HOME"), ".config", "igstories", "config.yaml")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.RateLimit.RequestsPerMinute <= 0 {
		errs = append(errs, errors.New("requests per minute must be positive"))
	}
	if c.RateLimit.BurstSize <= 0 {
		errs = append(errs, errors.New("burst size must be positive"))
	}

	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, errors.New("retry max attempts must be at least 1"))
	}
	if c.Retry.BaseDelay < 0 {
		errs = append(errs, errors.New("retry base delay cannot be negative"))
	}
	if c.Retry.Multiplier < 1 {
		errs = append(errs, errors.New("retry multiplier must be at least 1"))
	}

	if c.Download.Concurrency < 1 || c.Download.Concurrency > 16 {
		errs = append(errs, errors.New("download concurrency must be between 1 and 16"))
	}
	if c.Download.Timeout <= 0 {
		errs = append(errs, errors.New("download timeout must be positive"))
	}

	if c.Output.RootDirectory == "" {
		errs = append(errs, errors.New("output root directory is required"))
	}
	if c.Output.SnapshotDirectory == "" {
		errs = append(errs, errors.New("snapshot directory is required"))
	}

	if c.Schedule.Interval < time.Minute {
		errs = append(errs, errors.New("watch interval must be at least one minute"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Errorf("invalid log level %q", c.Logging.Level))
	}

	return errors.Join(errs...)
}

// Save writes the configuration as YAML. Credentials are never persisted
// here; they belong in the credential store.
func (c *Config) Save(path string) error {
	out := *c
	out.Instagram.SessionID = ""
	out.Instagram.CSRFToken = ""

	data, err := yaml.Marshal(&out)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags overlays values set on the command line. Only keys
// present in flags are applied.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if v, ok := flags["account"].(string); ok && v != "" {
		c.Instagram.Account = v
	}
	if v, ok := flags["root"].(string); ok && v != "" {
		c.Output.RootDirectory = v
	}
	if v, ok := flags["concurrency"].(int); ok && v > 0 {
		c.Download.Concurrency = v
	}
	if v, ok := flags["requests-per-minute"].(int); ok && v > 0 {
		c.RateLimit.RequestsPerMinute = v
	}
	if v, ok := flags["max-attempts"].(int); ok && v > 0 {
		c.Retry.MaxAttempts = v
	}
	if v, ok := flags["timeout"].(time.Duration); ok && v > 0 {
		c.Download.Timeout = v
	}
	if v, ok := flags["interval"].(time.Duration); ok && v > 0 {
		c.Schedule.Interval = v
	}
	if v, ok := flags["archive"].(bool); ok {
		c.Output.ArchiveSnapshots = v
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".igstories.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
