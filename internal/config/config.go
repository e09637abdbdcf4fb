// Package config loads the dragboard configuration file.
//
// Configuration comes from a single YAML file named by the --config flag.
// Fields the file leaves out keep their Default values; unknown fields are
// an error.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/dragboard/internal/layout"
)

// Config is the dragboard configuration.
type Config struct {
	// Engine configures drag sessions.
	Engine EngineConfig `yaml:"engine"`

	// Layout is the synthetic grid used by run and replay when a board
	// definition declares no layout of its own.
	Layout layout.Config `yaml:"layout"`

	// Log configures logging.
	Log LogConfig `yaml:"log"`
}

// EngineConfig configures the drag engine.
type EngineConfig struct {
	// CommitUnchanged forwards gestures that end where they started to the
	// persister. Default: true
	CommitUnchanged bool `yaml:"commit_unchanged"`

	// StickyTarget keeps the last resolved target when the pointer leaves
	// every region. Default: true
	StickyTarget bool `yaml:"sticky_target"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	// Level is one of debug, info, warn, error. Default: info
	Level string `yaml:"level"`

	// File, when set, receives logs through a rotating writer instead of
	// stderr. ${HOME} style variables are expanded.
	File string `yaml:"file"`

	// MaxSizeMB is the size at which File is rotated. Default: 10
	MaxSizeMB int `yaml:"max_size_mb"`

	// MaxBackups is the number of rotated files kept. Default: 3
	MaxBackups int `yaml:"max_backups"`

	// MaxAgeDays is how long rotated files are kept. Default: 28
	MaxAgeDays int `yaml:"max_age_days"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			CommitUnchanged: true,
			StickyTarget:    true,
		},
		Layout: layout.Default(),
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Load reads the configuration at path over Default. An empty path returns
// Default.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes data over Default and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.Log.File = os.ExpandEnv(cfg.Log.File)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field values.
func (c *Config) Validate() error {
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.Log.MaxSizeMB < 0 || c.Log.MaxBackups < 0 || c.Log.MaxAgeDays < 0 {
		return fmt.Errorf("log rotation limits must not be negative")
	}
	return c.Layout.Validate()
}

// ParseLevel maps a level name to its slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q: must be one of debug, info, warn, error", name)
	}
}
