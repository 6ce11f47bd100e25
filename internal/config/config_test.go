package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Netflix/go-env"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvSet_Defaults(t *testing.T) {
	cfg, err := FromEnvSet(env.EnvSet{"S3TUI_DATA": "/tmp/s3tui-test"})
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Concurrency)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 100*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, 2*time.Second, cfg.SaveInterval)
	assert.Equal(t, filepath.Join("/tmp/s3tui-test", "s3tui.log"), cfg.LogFile)
	assert.Equal(t, filepath.Join("/tmp/s3tui-test", "creds"), cfg.CredsDir())
}

func TestFromEnvSet_Overrides(t *testing.T) {
	cfg, err := FromEnvSet(env.EnvSet{
		"S3TUI_DATA":          "/data",
		"S3TUI_CREDS_FILE":    "/data/mine",
		"S3TUI_CONCURRENCY":   "3",
		"S3TUI_LOG_LEVEL":     "debug",
		"S3TUI_LOG_FILE":      "/var/log/s3tui.log",
		"S3TUI_POLL_INTERVAL": "250ms",
		"S3TUI_SAVE_INTERVAL": "0s",
	})
	require.NoError(t, err)

	assert.Equal(t, "/data/mine", cfg.CredsFile)
	assert.Equal(t, "/var/log/s3tui.log", cfg.LogFile)

	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	tc := cfg.TransferConfig()
	assert.Equal(t, 3, tc.Concurrency)
	assert.Equal(t, 250*time.Millisecond, tc.PollInterval)
	assert.Zero(t, tc.SaveInterval)
	assert.NoError(t, tc.Validate())
}

func TestFromEnvSet_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"zero concurrency", "S3TUI_CONCURRENCY", "0"},
		{"bad number", "S3TUI_CONCURRENCY", "lots"},
		{"bad level", "S3TUI_LOG_LEVEL", "loud"},
		{"zero poll", "S3TUI_POLL_INTERVAL", "0s"},
		{"bad duration", "S3TUI_SAVE_INTERVAL", "soon"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := FromEnvSet(env.EnvSet{"S3TUI_DATA": "/data", test.key: test.val})
			assert.Error(t, err)
		})
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "s3tui.env")
	require.NoError(t, os.WriteFile(file, []byte("S3TUI_DATA="+dir+"\nS3TUI_CONCURRENCY=2\n"), 0600))

	t.Setenv("S3TUI_CONFIG", file)
	t.Setenv("S3TUI_LOG_LEVEL", "warn")
	t.Cleanup(func() {
		os.Unsetenv("S3TUI_DATA")
		os.Unsetenv("S3TUI_CONCURRENCY")
	})

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.DataDir)
	assert.Equal(t, 2, cfg.Concurrency)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	t.Setenv("S3TUI_CONFIG", filepath.Join(t.TempDir(), "nope.env"))
	_, err := Load()
	assert.Error(t, err)
}
