package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"

	"github.com/rescp17/s3tui/pkg/transfer"
)

const (
	appName     = "s3tui"
	credsDir    = "creds"
	logFileName = "s3tui.log"
)

// Config is the process configuration read from S3TUI_* variables.
// A .env file in the working directory, and the file named by
// S3TUI_CONFIG, are loaded first; real environment variables win.
type Config struct {
	DataDir      string        `env:"S3TUI_DATA"`
	ConfigFile   string        `env:"S3TUI_CONFIG"`
	CredsFile    string        `env:"S3TUI_CREDS_FILE"`
	Concurrency  int           `env:"S3TUI_CONCURRENCY,default=8"`
	LogLevel     string        `env:"S3TUI_LOG_LEVEL,default=info"`
	LogFile      string        `env:"S3TUI_LOG_FILE"`
	PollInterval time.Duration `env:"S3TUI_POLL_INTERVAL,default=100ms"`
	SaveInterval time.Duration `env:"S3TUI_SAVE_INTERVAL,default=2s"`
}

// Load reads dotenv files and the environment into a Config
func Load() (*Config, error) {
	_ = godotenv.Load() // ignore error if .env not found
	if extra := os.Getenv("S3TUI_CONFIG"); extra != "" {
		if err := godotenv.Load(extra); err != nil {
			return nil, fmt.Errorf("config error: load %s: %w", extra, err)
		}
	}
	es, err := env.EnvironToEnvSet(os.Environ())
	if err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}
	return FromEnvSet(es)
}

// FromEnvSet builds a Config from an explicit set of variables
func FromEnvSet(es env.EnvSet) (*Config, error) {
	var cfg Config
	if err := env.Unmarshal(es, &cfg); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}
	if err := cfg.fillDefaults(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) fillDefaults() error {
	if c.DataDir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return fmt.Errorf("config error: resolve data dir: %w", err)
		}
		c.DataDir = filepath.Join(base, appName)
	}
	if c.LogFile == "" {
		c.LogFile = filepath.Join(c.DataDir, logFileName)
	}
	return nil
}

// Validate checks values that go-env cannot
func (c *Config) Validate() error {
	if c.Concurrency <= 0 {
		return errors.New("config error: S3TUI_CONCURRENCY must be positive")
	}
	if c.PollInterval <= 0 {
		return errors.New("config error: S3TUI_POLL_INTERVAL must be positive")
	}
	if c.SaveInterval < 0 {
		return errors.New("config error: S3TUI_SAVE_INTERVAL cannot be negative")
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("config error: S3TUI_LOG_LEVEL %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// CredsDir is where credential files live when no single file is configured
func (c *Config) CredsDir() string {
	return filepath.Join(c.DataDir, credsDir)
}

// TransferConfig returns the transfer defaults with the worker settings
// taken from c.
func (c *Config) TransferConfig() *transfer.TransferConfig {
	tc := transfer.DefaultTransferConfig()
	tc.Concurrency = c.Concurrency
	tc.PollInterval = c.PollInterval
	tc.SaveInterval = c.SaveInterval
	return tc
}
