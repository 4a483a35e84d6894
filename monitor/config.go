package monitor

import "log/slog"

// Config defines configuration for a Monitor instance.
type Config struct {
	// Event queue capacity. Record calls that arrive while the queue is
	// full are dropped, never blocked.
	BufferSize int `json:"buffer_size,omitempty" yaml:"buffer_size,omitempty"`

	// How many recent call durations are retained for the median latency
	// figure. Older durations are discarded, so memory stays flat no
	// matter how many calls complete.
	LatencyWindow int `json:"latency_window,omitempty" yaml:"latency_window,omitempty"`

	// Observability
	Logger *slog.Logger `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		BufferSize:    256,
		LatencyWindow: 1024,
		Logger:        slog.Default(),
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.BufferSize > 0 {
		c.BufferSize = source.BufferSize
	}

	if source.LatencyWindow > 0 {
		c.LatencyWindow = source.LatencyWindow
	}

	if source.Logger != nil {
		c.Logger = source.Logger
	}
}
