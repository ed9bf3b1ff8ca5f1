// Package config provides configuration management for cadtoh5m.
//
// Settings are resolved in three layers: built-in defaults, then the config
// file, then CADTOH5M_* environment variables. Job files and command-line
// flags override the resulting conversion options per run.
//
// Config file locations (priority order):
//  1. $CADTOH5M_CONFIG
//  2. ./cadtoh5m.yaml
//  3. $XDG_CONFIG_HOME/cadtoh5m/config.yaml
//  4. ~/.config/cadtoh5m/config.yaml
//  5. /etc/cadtoh5m/config.yaml
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"cadtoh5m/internal/domain"
	"cadtoh5m/internal/kernel"
)

const (
	// DefaultHistoryPath is the run history database
	DefaultHistoryPath = "./cadtoh5m.db"
	// DefaultWatchDebounce groups bursts of file writes into one rerun
	DefaultWatchDebounce = 500 * time.Millisecond
)

// Load finds and loads the config file, or returns defaults if none found.
// Environment overrides apply either way. jobFile, when set, adds its
// directory to the search.
func Load(jobFile string) (*Config, string, error) {
	path := FindConfigPath(jobFile)

	if path == "" {
		cfg := &Config{}
		if err := cfg.applyEnv(); err != nil {
			return nil, "", err
		}
		cfg.applyDefaults()
		return cfg, "", nil
	}

	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, path, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, path, err
	}
	cfg.applyDefaults()

	return &cfg, path, nil
}

// Save writes config to the specified path
func (c *Config) Save(path string) error {
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// DefaultConfig returns sensible defaults for a new installation
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// applyEnv overlays CADTOH5M_* variables. Unset variables leave the
// file value in place.
func (c *Config) applyEnv() error {
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// applyDefaults fills in missing values with defaults
func (c *Config) applyDefaults() {
	if c.Version == 0 {
		c.Version = 1
	}
	if c.Kernel.Transport == "" {
		c.Kernel.Transport = TransportLocal
	}
	if c.Kernel.CubitPath == "" {
		c.Kernel.CubitPath = kernel.DefaultCubitPath
	}
	if c.Kernel.Python == "" {
		c.Kernel.Python = "python3"
	}
	if c.History.Path == "" {
		c.History.Path = DefaultHistoryPath
	}
	if c.History.Enabled == nil {
		enabled := true
		c.History.Enabled = &enabled
	}
}

// Validate checks settings that would only fail later at kernel start
func (c *Config) Validate() error {
	switch c.Kernel.Transport {
	case TransportLocal, TransportSim:
	case TransportSSH:
		if c.Kernel.SSH.Host == "" {
			return fmt.Errorf("kernel.ssh.host is required for the ssh transport")
		}
	default:
		return fmt.Errorf("unknown kernel transport %q (use local, ssh or sim)", c.Kernel.Transport)
	}
	return c.Options().Validate()
}

// Options returns the conversion options with configured values applied
// over the built-in defaults
func (c *Config) Options() domain.Options {
	opts := domain.DefaultOptions()
	conv := c.Conversion

	if conv.H5MFilename != "" {
		opts.H5MFilename = conv.H5MFilename
	}
	if conv.MergeTolerance != 0 {
		opts.MergeTolerance = conv.MergeTolerance
	}
	if conv.FacetingTolerance != 0 {
		opts.FacetingTolerance = conv.FacetingTolerance
	}
	if conv.MakeWatertight != nil {
		opts.MakeWatertight = *conv.MakeWatertight
	}
	if conv.Imprint != nil {
		opts.Imprint = *conv.Imprint
	}
	if conv.SurfaceReflectivityName != "" {
		opts.SurfaceReflectivityName = conv.SurfaceReflectivityName
	}
	if conv.ImplicitComplementMaterialTag != "" {
		opts.ImplicitComplementMaterialTag = conv.ImplicitComplementMaterialTag
	}
	if conv.Graveyard != 0 {
		opts.Graveyard = conv.Graveyard
	}
	if conv.Verbose != nil {
		opts.Verbose = *conv.Verbose
	}
	return opts
}

// HistoryEnabled reports whether runs are recorded
func (c *Config) HistoryEnabled() bool {
	return c.History.Enabled == nil || *c.History.Enabled
}

// WatchDebounce returns the effective watch debounce interval
func (c *Config) WatchDebounce() time.Duration {
	if c.Watch.Debounce == nil || c.Watch.Debounce.Duration() <= 0 {
		return DefaultWatchDebounce
	}
	return c.Watch.Debounce.Duration()
}

// Summary returns a human-readable config summary
func (c *Config) Summary() string {
	summary := fmt.Sprintf("Kernel: %s", c.Kernel.Transport)
	switch c.Kernel.Transport {
	case TransportLocal:
		summary += fmt.Sprintf(" (%s)", c.Kernel.CubitPath)
	case TransportSSH:
		summary += fmt.Sprintf(" (%s)", c.Kernel.SSH.Host)
	}
	if c.HistoryEnabled() {
		summary += fmt.Sprintf(", history: %s", c.History.Path)
	} else {
		summary += ", history: off"
	}
	return summary
}
