// Package config provides configuration loading and defaults for the sigflag
// daemon.
//
// Configuration is loaded from config.toml in the data directory. Every field
// has a default, so a missing file or a file holding only the version is a
// valid configuration.
package config

//go:generate go run ../../cmd/genconfig

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"tools.zach/dev/sigflag/internal/atomicfile"
	"tools.zach/dev/sigflag/internal/migrate"
	"tools.zach/dev/sigflag/internal/paths"
	"tools.zach/dev/sigflag/internal/shutdown"
)

// ///////////////////////////////////////////////
// Configuration Types
// ///////////////////////////////////////////////

// Config represents the top-level daemon configuration.
type Config struct {
	// Version is the config schema version used for migrations.
	Version int `toml:"version"`
	// Behavior holds signal and status loop settings.
	Behavior BehaviorConfig `toml:"behavior"`
	// Log holds logging settings.
	Log LogConfig `toml:"log"`
}

// BehaviorConfig holds signal and status loop settings.
type BehaviorConfig struct {
	// Signal is the single termination signal that sets the shutdown flag.
	Signal string `toml:"signal"`
	// IntervalMS is the delay between status lines in milliseconds.
	IntervalMS int `toml:"interval_ms"`
	// ExitOnShutdown makes the loop return after the first status line that
	// reports the flag as set. When false the loop keeps reporting forever.
	ExitOnShutdown bool `toml:"exit_on_shutdown"`
	// WatchConfig reloads config.toml while the daemon runs.
	WatchConfig bool `toml:"watch_config"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level is the minimum log level (trace, debug, info, warn, error).
	Level string `toml:"level"`
	// MaxSizeMB is the maximum log file size in megabytes before rotation.
	MaxSizeMB int `toml:"max_size_mb"`
}

// ///////////////////////////////////////////////
// Default Configuration
// ///////////////////////////////////////////////

// DefaultConfig returns a Config populated with defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: migrate.Config.CurrentVersion,
		Behavior: BehaviorConfig{
			Signal:         shutdown.DefaultSignalName,
			IntervalMS:     1000,
			ExitOnShutdown: false,
			WatchConfig:    true,
		},
		Log: LogConfig{
			Level:     "info",
			MaxSizeMB: 10,
		},
	}
}

// ExampleConfig returns the Config used to generate config.default.toml.
func ExampleConfig() *Config {
	return DefaultConfig()
}

// Interval returns the status loop interval.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.Behavior.IntervalMS) * time.Millisecond
}

// ///////////////////////////////////////////////
// PeekVersion
// ///////////////////////////////////////////////

// PeekVersion reads just the version field from raw TOML bytes.
// Returns 1 if the version field is missing, zero or unparseable.
func PeekVersion(data []byte) int {
	var v struct {
		Version int `toml:"version"`
	}
	if err := toml.Unmarshal(data, &v); err != nil || v.Version == 0 {
		return 1
	}
	return v.Version
}

// ///////////////////////////////////////////////
// Loading and Saving
// ///////////////////////////////////////////////

// Load reads and parses dataDir/config.toml. A missing file yields
// [DefaultConfig]. Older schema versions are migrated, backed up to
// config.toml.bak and re-saved.
func Load(dataDir string) (*Config, error) {
	path := filepath.Join(dataDir, paths.ConfigFile)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var probe struct {
		Version int `toml:"version"`
	}
	if err := toml.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	version := PeekVersion(data)
	if version > migrate.Config.CurrentVersion {
		return nil, fmt.Errorf("config version %d is newer than supported version %d", version, migrate.Config.CurrentVersion)
	}

	migrated := migrate.Config.NeedsMigration(version)
	if migrated {
		if backupErr := os.WriteFile(path+".bak", data, 0o644); backupErr != nil {
			slog.Warn("failed to write config backup", "error", backupErr)
		}
		data, _, err = migrate.Config.Run(data, version)
		if err != nil {
			return nil, fmt.Errorf("migrate config: %w", err)
		}
	}

	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Version = migrate.Config.CurrentVersion

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	if migrated {
		if err := cfg.Save(path); err != nil {
			slog.Warn("failed to save migrated config", "error", err)
		}
	}

	return cfg, nil
}

// Save writes the config to path as TOML using an atomic file write.
func (c *Config) Save(path string) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return atomicfile.Write(path, buf.Bytes(), 0o644)
}

// ///////////////////////////////////////////////
// Validation
// ///////////////////////////////////////////////

// MaxIntervalMS caps behavior.interval_ms at one day, far below the point
// where Interval would overflow time.Duration.
const MaxIntervalMS = 24 * 60 * 60 * 1000

// validLogLevels is the set of accepted log level strings.
var validLogLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "error": true,
}

// Validate checks that all configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	if _, err := shutdown.ParseSignal(c.Behavior.Signal); err != nil {
		return fmt.Errorf("invalid behavior.signal: %w", err)
	}

	if c.Behavior.IntervalMS <= 0 || c.Behavior.IntervalMS > MaxIntervalMS {
		return fmt.Errorf("interval_ms must be between 1 and %d, got %d", MaxIntervalMS, c.Behavior.IntervalMS)
	}

	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("invalid log.level %q: must be trace, debug, info, warn, or error", c.Log.Level)
	}

	if c.Log.MaxSizeMB <= 0 {
		return fmt.Errorf("max_size_mb must be > 0, got %d", c.Log.MaxSizeMB)
	}

	return nil
}
