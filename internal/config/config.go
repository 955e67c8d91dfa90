// Package config handles configuration loading from YAML files and environment variables.
// Configuration precedence: CLI flags > environment variables > config file > defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a wrapper around time.Duration that supports YAML unmarshaling
// from human-readable strings like "60s", "5m", "1h".
type Duration struct {
	time.Duration
}

// UnmarshalYAML implements the yaml.Unmarshaler interface for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		parsed, err := time.ParseDuration(value.Value)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", value.Value, err)
		}
		d.Duration = parsed
		return nil
	default:
		return fmt.Errorf("unsupported duration format: %v", value.Kind)
	}
}

// MarshalYAML implements the yaml.Marshaler interface for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// Config holds all tool configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Sampling SamplingConfig `yaml:"sampling"`
	Report   ReportConfig   `yaml:"report"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// DatabaseConfig holds sample store settings.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// SamplingConfig holds counter sampling settings.
type SamplingConfig struct {
	// Interface to sample. Empty means auto-detect the default
	// outbound interface.
	Interface string   `yaml:"interface"`
	Interval  Duration `yaml:"interval"`
}

// ReportConfig holds reporting settings.
type ReportConfig struct {
	// Timezone names the IANA zone used for day boundaries. Empty
	// means the process's local timezone.
	Timezone string `yaml:"timezone"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path: defaultDBPath(),
		},
		Sampling: SamplingConfig{
			Interface: "",
			Interval:  Duration{60 * time.Second},
		},
		Report: ReportConfig{
			Timezone: "",
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// defaultDBPath puts the sample database in the user's home directory.
func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "netusage.db"
	}
	return filepath.Join(home, ".netusage.db")
}

// CLIOverrides holds values from command-line flags.
// Empty strings and zero durations are treated as "not set" and skipped.
type CLIOverrides struct {
	DBPath   string
	Iface    string
	TZ       string
	Interval time.Duration
}

// Locate searches standard config file paths and returns the first one found.
// Returns empty string if no config file exists.
func Locate() string {
	for _, p := range configSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Load reads configuration with the full precedence chain:
// CLI flags > env vars > YAML file > defaults. An empty path skips the
// file layer; a named file that does not exist is not an error.
func Load(path string, cli CLIOverrides) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("reading config file: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if cli.DBPath != "" {
		cfg.Database.Path = cli.DBPath
	}
	if cli.Iface != "" {
		cfg.Sampling.Interface = cli.Iface
	}
	if cli.TZ != "" {
		cfg.Report.Timezone = cli.TZ
	}
	if cli.Interval > 0 {
		cfg.Sampling.Interval = Duration{cli.Interval}
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	if db := os.Getenv("NETUSAGE_DB"); db != "" {
		cfg.Database.Path = db
	}
	if iface := os.Getenv("NETUSAGE_IFACE"); iface != "" {
		cfg.Sampling.Interface = iface
	}
	if tz := os.Getenv("NETUSAGE_TZ"); tz != "" {
		cfg.Report.Timezone = tz
	}
	if level := os.Getenv("NETUSAGE_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}
	if c.Sampling.Interval.Duration < time.Second {
		return fmt.Errorf("sampling interval must be at least 1s (got %s)", c.Sampling.Interval.Duration)
	}
	return nil
}
