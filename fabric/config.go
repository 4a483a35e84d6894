package fabric

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/agent-fabric/fabric/monitor"
	"github.com/agent-fabric/fabric/observability"
	"github.com/agent-fabric/fabric/transport"
)

// Config holds initialization parameters for all fabric subsystems.
// Each subsystem section delegates to that subsystem's config-driven
// constructor.
//
// Observer names a registered observer implementation ("noop", "slog",
// "otel", or anything added through observability.RegisterObserver); it
// is resolved at startup and ignored when WithObserver installs one
// directly.
type Config struct {
	LogLevel  string
	Observer  string
	Transport transport.Config
	Monitor   monitor.Config
}

// DefaultConfig returns a Config with sensible defaults for all
// subsystems.
func DefaultConfig() Config {
	return Config{
		LogLevel:  "info",
		Observer:  "noop",
		Transport: transport.DefaultConfig(),
		Monitor:   monitor.DefaultConfig(),
	}
}

// Merge applies non-zero values from source into c, delegating to each
// subsystem's Merge method.
func (c *Config) Merge(source *Config) {
	if source.LogLevel != "" {
		c.LogLevel = source.LogLevel
	}
	if source.Observer != "" {
		c.Observer = source.Observer
	}
	c.Transport.Merge(&source.Transport)
	c.Monitor.Merge(&source.Monitor)
}

// SlogLevel translates the configured log level name for slog handlers.
// Unknown names fall back to info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// fileConfig is the on-disk shape of Config. Durations are strings in
// Go duration syntax ("30s", "5m") so the same file works for JSON and
// YAML.
type fileConfig struct {
	LogLevel  string              `json:"log_level,omitempty" yaml:"log_level,omitempty"`
	Observer  string              `json:"observer,omitempty" yaml:"observer,omitempty"`
	Transport transportFileConfig `json:"transport,omitempty" yaml:"transport,omitempty"`
	Monitor   monitorFileConfig   `json:"monitor,omitempty" yaml:"monitor,omitempty"`
}

type transportFileConfig struct {
	Name              string `json:"name,omitempty" yaml:"name,omitempty"`
	ChannelBufferSize int    `json:"channel_buffer_size,omitempty" yaml:"channel_buffer_size,omitempty"`
	DefaultTimeout    string `json:"default_timeout,omitempty" yaml:"default_timeout,omitempty"`
	CleanupInterval   string `json:"cleanup_interval,omitempty" yaml:"cleanup_interval,omitempty"`
	CleanupMaxAge     string `json:"cleanup_max_age,omitempty" yaml:"cleanup_max_age,omitempty"`
}

type monitorFileConfig struct {
	BufferSize    int `json:"buffer_size,omitempty" yaml:"buffer_size,omitempty"`
	LatencyWindow int `json:"latency_window,omitempty" yaml:"latency_window,omitempty"`
}

// LoadConfig reads a JSON or YAML config file (by extension), merges it
// with defaults, and returns the resulting Config.
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var loaded fileConfig
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".json":
		if err := json.Unmarshal(data, &loaded); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &loaded); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", ext)
	}

	overrides, err := loaded.toConfig()
	if err != nil {
		return nil, err
	}
	if overrides.Observer != "" {
		if _, err := observability.GetObserver(overrides.Observer); err != nil {
			return nil, fmt.Errorf("failed to resolve observer: %w", err)
		}
	}

	cfg := DefaultConfig()
	cfg.Merge(overrides)
	return &cfg, nil
}

func (fc fileConfig) toConfig() (*Config, error) {
	defaultTimeout, err := parseDuration("transport.default_timeout", fc.Transport.DefaultTimeout)
	if err != nil {
		return nil, err
	}
	cleanupInterval, err := parseDuration("transport.cleanup_interval", fc.Transport.CleanupInterval)
	if err != nil {
		return nil, err
	}
	cleanupMaxAge, err := parseDuration("transport.cleanup_max_age", fc.Transport.CleanupMaxAge)
	if err != nil {
		return nil, err
	}

	return &Config{
		LogLevel: fc.LogLevel,
		Observer: fc.Observer,
		Transport: transport.Config{
			Name:              fc.Transport.Name,
			ChannelBufferSize: fc.Transport.ChannelBufferSize,
			DefaultTimeout:    defaultTimeout,
			CleanupInterval:   cleanupInterval,
			CleanupMaxAge:     cleanupMaxAge,
		},
		Monitor: monitor.Config{
			BufferSize:    fc.Monitor.BufferSize,
			LatencyWindow: fc.Monitor.LatencyWindow,
		},
	}, nil
}

func parseDuration(field, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", field, value, err)
	}
	return d, nil
}
