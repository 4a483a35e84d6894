package transport

import (
	"log/slog"
	"time"
)

// Config defines configuration for a Transport instance.
type Config struct {
	// Transport identity, used as the receiver on discovery envelopes and
	// in log attributes.
	Name string

	// Communication settings
	ChannelBufferSize int
	DefaultTimeout    time.Duration

	// Pending-call sweep. Entries that were resolved but never collected
	// are removed once older than CleanupMaxAge, every CleanupInterval.
	CleanupInterval time.Duration
	CleanupMaxAge   time.Duration

	// Observability
	Logger   *slog.Logger
	Recorder Recorder
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Name:              "fabric",
		ChannelBufferSize: 100,
		DefaultTimeout:    30 * time.Second,
		CleanupInterval:   time.Minute,
		CleanupMaxAge:     5 * time.Minute,
		Logger:            slog.Default(),
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.Name != "" {
		c.Name = source.Name
	}

	if source.ChannelBufferSize > 0 {
		c.ChannelBufferSize = source.ChannelBufferSize
	}

	if source.DefaultTimeout > 0 {
		c.DefaultTimeout = source.DefaultTimeout
	}

	if source.CleanupInterval > 0 {
		c.CleanupInterval = source.CleanupInterval
	}

	if source.CleanupMaxAge > 0 {
		c.CleanupMaxAge = source.CleanupMaxAge
	}

	if source.Logger != nil {
		c.Logger = source.Logger
	}

	if source.Recorder != nil {
		c.Recorder = source.Recorder
	}
}
