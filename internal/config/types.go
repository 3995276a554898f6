// Package config provides configuration loading and management for certiflow.
//
// Configuration is loaded using Viper, supporting YAML config files and environment
// variable overrides. The defaults work out of the box for a dossier laid out in
// the current directory with workflow_certif.yaml and objectifs.yaml next to it.
//
// Key types:
//   - [Config] is the root configuration container with all settings
//   - [Loader] handles Viper-based configuration loading
//   - [DossierConfig] identifies the dossier under certification
//   - [LogConfig] controls structured logging
//
// Configuration priority (highest to lowest):
//  1. Command-line flags (applied by the cli package)
//  2. Environment variables (CERTIFLOW_ prefix, e.g. CERTIFLOW_DOSSIER_ROOT)
//  3. Config file specified by --config or CERTIFLOW_CONFIG_PATH
//  4. User config directory (platform-standard):
//     - Linux: ~/.config/certiflow/certiflow.yaml
//     - macOS: ~/Library/Application Support/certiflow/certiflow.yaml
//     - Windows: %APPDATA%\certiflow\certiflow.yaml
//  5. ./certiflow.yaml
//  6. [DefaultConfig] defaults
package config

import "fmt"

// Config represents the root configuration structure.
type Config struct {
	// Dossier identifies the dossier the commands operate on.
	Dossier DossierConfig `mapstructure:"dossier"`

	// WorkflowFile is the YAML file listing the certification steps.
	// Default: "workflow_certif.yaml"
	WorkflowFile string `mapstructure:"workflow_file"`

	// ObjectivesFile is the YAML file defining the objectives.
	// Default: "objectifs.yaml"
	ObjectivesFile string `mapstructure:"objectives_file"`

	// Interpreter runs ".py" step scripts.
	// Default: "python3"
	Interpreter string `mapstructure:"interpreter"`

	// Log contains logging configuration.
	Log LogConfig `mapstructure:"log"`

	// Metrics contains run metrics configuration.
	Metrics MetricsConfig `mapstructure:"metrics"`

	// Output contains terminal output configuration.
	Output OutputConfig `mapstructure:"output"`
}

// DossierConfig identifies a certification dossier.
type DossierConfig struct {
	// ID is the project identifier. Defaults to the root directory name when empty.
	ID string `mapstructure:"id"`

	// Root is the dossier directory holding data/, audit/ and statut.txt.
	// Default: "."
	Root string `mapstructure:"root"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error. Default: "info"
	Level string `mapstructure:"level"`

	// Format is "text" or "json". Default: "text"
	Format string `mapstructure:"format"`

	// File appends logs to this path instead of stderr when set.
	File string `mapstructure:"file"`
}

// MetricsConfig controls run metrics.
type MetricsConfig struct {
	// Textfile is written in the Prometheus text format at the end of each
	// command when set, for collection by node_exporter.
	Textfile string `mapstructure:"textfile"`
}

// OutputConfig contains terminal output configuration.
type OutputConfig struct {
	// Color enables styled output. Default: true
	Color bool `mapstructure:"color"`
}

// DefaultConfig returns a new [Config] with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Dossier: DossierConfig{
			Root: ".",
		},
		WorkflowFile:   "workflow_certif.yaml",
		ObjectivesFile: "objectifs.yaml",
		Interpreter:    "python3",
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Output: OutputConfig{
			Color: true,
		},
	}
}

// Validate checks values that cannot be defaulted.
func (c *Config) Validate() error {
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format %q: expected text or json", c.Log.Format)
	}
	if c.Dossier.Root == "" {
		return fmt.Errorf("dossier root is empty")
	}
	if c.WorkflowFile == "" {
		return fmt.Errorf("workflow file is empty")
	}
	return nil
}
