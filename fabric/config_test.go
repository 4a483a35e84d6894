package fabric_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agent-fabric/fabric/fabric"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig_YAML(t *testing.T) {
	path := writeConfig(t, "fabric.yaml", `
log_level: debug
observer: slog
transport:
  name: test-fabric
  channel_buffer_size: 200
  default_timeout: 45s
  cleanup_interval: 2m
monitor:
  buffer_size: 512
  latency_window: 4096
`)

	cfg, err := fabric.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "slog", cfg.Observer)
	assert.Equal(t, "test-fabric", cfg.Transport.Name)
	assert.Equal(t, 200, cfg.Transport.ChannelBufferSize)
	assert.Equal(t, 45*time.Second, cfg.Transport.DefaultTimeout)
	assert.Equal(t, 2*time.Minute, cfg.Transport.CleanupInterval)
	assert.Equal(t, 512, cfg.Monitor.BufferSize)
	assert.Equal(t, 4096, cfg.Monitor.LatencyWindow)

	// Fields absent from the file keep their defaults.
	assert.Equal(t, 5*time.Minute, cfg.Transport.CleanupMaxAge)
}

func TestLoadConfig_JSON(t *testing.T) {
	path := writeConfig(t, "fabric.json", `{
  "log_level": "warn",
  "transport": {"default_timeout": "1.5s"}
}`)

	cfg, err := fabric.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 1500*time.Millisecond, cfg.Transport.DefaultTimeout)
	assert.Equal(t, "fabric", cfg.Transport.Name)
}

func TestLoadConfig_InvalidDuration(t *testing.T) {
	path := writeConfig(t, "fabric.yaml", "transport:\n  default_timeout: fast\n")

	_, err := fabric.LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "default_timeout")
}

func TestLoadConfig_UnknownObserver(t *testing.T) {
	path := writeConfig(t, "fabric.yaml", "observer: statsd\n")

	_, err := fabric.LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to resolve observer")
}

func TestLoadConfig_UnsupportedFormat(t *testing.T) {
	path := writeConfig(t, "fabric.toml", "log_level = \"debug\"\n")

	_, err := fabric.LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported config format")
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := fabric.LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestConfig_MergeKeepsDefaults(t *testing.T) {
	cfg := fabric.DefaultConfig()
	cfg.Merge(&fabric.Config{})

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "noop", cfg.Observer)
	assert.Equal(t, 30*time.Second, cfg.Transport.DefaultTimeout)
	assert.Equal(t, 100, cfg.Transport.ChannelBufferSize)
	assert.Equal(t, 256, cfg.Monitor.BufferSize)
	assert.Equal(t, 1024, cfg.Monitor.LatencyWindow)
}

func TestConfig_SlogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"DEBUG", slog.LevelDebug},
		{"", slog.LevelInfo},
		{"nonsense", slog.LevelInfo},
	}

	for _, tt := range tests {
		cfg := fabric.Config{LogLevel: tt.level}
		assert.Equal(t, tt.want, cfg.SlogLevel(), "level %q", tt.level)
	}
}
