// Package config loads tilefeed settings from a YAML file and applies
// environment overrides on top of built-in defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where the CLI looks for settings when --config is not given.
const DefaultPath = "tilefeed.yaml"

// Config holds all tilefeed settings.
type Config struct {
	// Delay is the pause between consecutive tile copies, in seconds.
	// The --delay flag takes precedence when set explicitly.
	Delay float64 `yaml:"delay"`

	// Logging controls the structured diagnostics on stderr. The stdout
	// progress stream is a separate contract and is not affected.
	Logging LoggingConfig `yaml:"logging"`

	// Watch tunes the continuous mirror mode.
	Watch WatchConfig `yaml:"watch"`
}

// LoggingConfig selects the zap sink.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // console or json
	File   string `yaml:"file"`   // log file path; stderr when empty
}

// WatchConfig tunes the mirror.
type WatchConfig struct {
	// Debounce is the settle window before a changed tile is copied,
	// as a duration string (e.g. "500ms").
	Debounce string `yaml:"debounce"`
}

// DefaultConfig returns the built-in defaults: the 2 second pace of the
// original pipeline, console logging at info, a 500ms settle window.
func DefaultConfig() *Config {
	return &Config{
		Delay: 2.0,
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Watch: WatchConfig{
			Debounce: "500ms",
		},
	}
}

// Load reads the YAML file at path over the defaults and then applies
// environment overrides. A missing file is not an error; defaults plus
// environment apply.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the configuration as YAML, creating parent directories as
// needed.
func (c *Config) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides lets the environment win over file values. Unparseable
// numeric values are ignored rather than fatal.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("TILEFEED_DELAY"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Delay = f
		}
	}
	if v := os.Getenv("TILEFEED_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("TILEFEED_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("TILEFEED_LOG_FILE"); v != "" {
		c.Logging.File = v
	}
	if v := os.Getenv("TILEFEED_WATCH_DEBOUNCE"); v != "" {
		c.Watch.Debounce = v
	}
}

// DelayDuration converts the configured seconds into a wall-clock duration.
func (c *Config) DelayDuration() time.Duration {
	return time.Duration(c.Delay * float64(time.Second))
}

// WatchDebounce parses the settle window, falling back to the default when
// the value is missing or malformed.
func (c *Config) WatchDebounce() time.Duration {
	d, err := time.ParseDuration(c.Watch.Debounce)
	if err != nil || d <= 0 {
		return 500 * time.Millisecond
	}
	return d
}
