// Package config provides configuration loading and management for deinterleave.
// It handles loading configuration from YAML files, environment overrides and
// the persisted dialog defaults.
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sethvargo/go-envconfig"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Deinterleave holds the defaults offered when no preference is stored yet
	Deinterleave struct {
		// Channels is the number of interleaved channels in the input stack
		Channels int `yaml:"channels" env:"DEINTERLEAVE_CHANNELS, overwrite"`

		// KeepSource leaves the source stack open after splitting
		KeepSource bool `yaml:"keepSource" env:"DEINTERLEAVE_KEEP_SOURCE, overwrite"`
	} `yaml:"deinterleave"`

	// Input parameters
	Input struct {
		// Extensions lists the frame file extensions picked up from a directory
		Extensions []string `yaml:"extensions"`

		// CalibrationFile is the sidecar holding the stack calibration
		CalibrationFile string `yaml:"calibrationFile"`
	} `yaml:"input"`

	// Output parameters
	Output struct {
		// Dir is where channel stacks are written
		Dir string `yaml:"dir" env:"DEINTERLEAVE_OUTPUT_DIR, overwrite"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose" env:"DEINTERLEAVE_VERBOSE, overwrite"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Deinterleave.Channels = 2
	cfg.Deinterleave.KeepSource = true

	cfg.Input.Extensions = []string{".tif", ".tiff", ".png", ".jpg", ".jpeg"}
	cfg.Input.CalibrationFile = "calibration.yaml"

	cfg.Output.Dir = "channels"
	cfg.Output.Verbose = false

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// ApplyEnv overrides configuration values from DEINTERLEAVE_* environment
// variables. Variables that are unset leave the loaded values alone.
func ApplyEnv(ctx context.Context, cfg *Config) error {
	return ApplyEnvFrom(ctx, cfg, envconfig.OsLookuper())
}

// ApplyEnvFrom is ApplyEnv with an explicit lookuper, for tests.
func ApplyEnvFrom(ctx context.Context, cfg *Config, l envconfig.Lookuper) error {
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   cfg,
		Lookuper: l,
	}); err != nil {
		return fmt.Errorf("error applying environment overrides: %w", err)
	}
	return nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
