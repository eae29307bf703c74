// Package config provides configuration loading and management for anatomy3d.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that reads and writes YAML in the usual
// "30s" / "10m" notation. Bare integers are taken as nanoseconds.
type Duration time.Duration

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}
	var n int64
	if err := value.Decode(&n); err != nil {
		return fmt.Errorf("invalid duration value: %w", err)
	}
	*d = Duration(n)
	return nil
}

// Config represents the application configuration loaded from YAML
type Config struct {
	// Pipeline parameters control the slice-to-voxel reconstruction stages
	Pipeline struct {
		// IsoThreshold is the scalar level at which the iso-surface is
		// extracted from the assembled volume. Zero means "derive from
		// the volume statistics" at run time.
		IsoThreshold float64 `yaml:"isoThreshold"`

		// VoxelPitch is the edge length of one occupancy-grid voxel, in
		// the same units as the mesh coordinates.
		VoxelPitch float64 `yaml:"voxelPitch"`

		// TargetFaces is the decimation budget for processed meshes.
		// Zero disables decimation.
		TargetFaces int `yaml:"targetFaces"`

		// ZRefine is the stacking-axis refinement factor applied to
		// assembled volumes before surface extraction. 1 disables it.
		ZRefine int `yaml:"zRefine"`

		// Workers bounds how many organs are built concurrently.
		Workers int `yaml:"workers"`

		// StageTimeout limits how long a single organ build may run
		// before its context is cancelled.
		StageTimeout Duration `yaml:"stageTimeout"`
	} `yaml:"pipeline"`

	// Output parameters
	Output struct {
		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Pipeline.IsoThreshold = 0
	cfg.Pipeline.VoxelPitch = 1.0
	cfg.Pipeline.TargetFaces = 0
	cfg.Pipeline.ZRefine = 1
	cfg.Pipeline.Workers = runtime.NumCPU()
	cfg.Pipeline.StageTimeout = Duration(10 * time.Minute)

	cfg.Output.Verbose = true

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	// Marshal config to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	// Write to file
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
