// Package config provides configuration loading and management for scanstereo.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"scanstereo/pkg/matching"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Matching parameters
	Matching struct {
		// OcclusionCost is the penalty for leaving a pixel unmatched
		OcclusionCost int `yaml:"occlusionCost"`

		// FullCoverage extends traceback to the first pixel column
		FullCoverage bool `yaml:"fullCoverage"`
	} `yaml:"matching"`

	// Processing parameters
	Processing struct {
		// NumWorkers is the number of scanlines matched concurrently
		NumWorkers int `yaml:"numWorkers"`
	} `yaml:"processing"`

	// Depth map rendering parameters
	Render struct {
		// FlatLevel is the gray level used when every disparity is equal
		FlatLevel uint8 `yaml:"flatLevel"`

		// Background is the gray level of pixels that were not traced
		Background uint8 `yaml:"background"`
	} `yaml:"render"`

	// Output parameters
	Output struct {
		// SaveIntermediaryResults determines whether to save intermediary processing results
		SaveIntermediaryResults bool `yaml:"saveIntermediaryResults"`

		// IntermediaryDir is where intermediary results are written
		IntermediaryDir string `yaml:"intermediaryDir"`

		// ReportFile, when set, receives a YAML summary of the disparities
		ReportFile string `yaml:"reportFile"`

		// STLFile, when set, receives the depth map as a relief mesh
		STLFile string `yaml:"stlFile"`

		// STLScale is the height of a white pixel in the relief mesh
		STLScale float64 `yaml:"stlScale"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Matching.OcclusionCost = matching.DefaultOcclusionCost
	cfg.Matching.FullCoverage = false

	cfg.Processing.NumWorkers = runtime.NumCPU()

	cfg.Render.FlatLevel = 128
	cfg.Render.Background = 0

	cfg.Output.SaveIntermediaryResults = false
	cfg.Output.IntermediaryDir = "intermediary_results"
	cfg.Output.STLScale = 10
	cfg.Output.Verbose = false

	return cfg
}

// Validate checks that the configuration values are usable
func (c *Config) Validate() error {
	var errs []error
	if c.Matching.OcclusionCost <= 0 {
		errs = append(errs, fmt.Errorf("matching.occlusionCost must be positive, got %d", c.Matching.OcclusionCost))
	}
	if c.Processing.NumWorkers < 1 {
		errs = append(errs, fmt.Errorf("processing.numWorkers must be at least 1, got %d", c.Processing.NumWorkers))
	}
	if c.Output.STLFile != "" && c.Output.STLScale <= 0 {
		errs = append(errs, fmt.Errorf("output.stlScale must be positive, got %g", c.Output.STLScale))
	}
	if c.Output.SaveIntermediaryResults && c.Output.IntermediaryDir == "" {
		errs = append(errs, errors.New("output.intermediaryDir is required when saving intermediary results"))
	}
	return errors.Join(errs...)
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
