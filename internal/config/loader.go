package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	appName        = "certiflow"
	configFileName = "certiflow.yaml"

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "CERTIFLOW"

	// EnvConfigPath names an explicit config file.
	EnvConfigPath = "CERTIFLOW_CONFIG_PATH"
)

// Loader handles Viper-based configuration loading.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a loader with defaults and environment overrides bound.
func NewLoader() *Loader {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, DefaultConfig())
	return &Loader{v: v}
}

// setDefaults registers every key so that environment overrides apply on Unmarshal.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("dossier.id", cfg.Dossier.ID)
	v.SetDefault("dossier.root", cfg.Dossier.Root)
	v.SetDefault("workflow_file", cfg.WorkflowFile)
	v.SetDefault("objectives_file", cfg.ObjectivesFile)
	v.SetDefault("interpreter", cfg.Interpreter)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("log.file", cfg.Log.File)
	v.SetDefault("metrics.textfile", cfg.Metrics.Textfile)
	v.SetDefault("output.color", cfg.Output.Color)
}

// Load finds the config file through the search path and loads it. Without
// any config file the defaults plus environment overrides are returned.
func (l *Loader) Load() (*Config, error) {
	if path := os.Getenv(EnvConfigPath); path != "" {
		return l.LoadFromFile(path)
	}
	for _, candidate := range searchPaths() {
		if _, err := os.Stat(candidate); err == nil {
			return l.LoadFromFile(candidate)
		}
	}
	return l.unmarshal()
}

// LoadFromFile loads a specific config file. The format follows the file extension.
func (l *Loader) LoadFromFile(path string) (*Config, error) {
	l.v.SetConfigFile(path)
	if err := l.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	return l.unmarshal()
}

func (l *Loader) unmarshal() (*Config, error) {
	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ConfigFileUsed returns the config file read by the last load, empty when none.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

func searchPaths() []string {
	var paths []string
	if p, err := DefaultConfigPath(); err == nil {
		paths = append(paths, p)
	}
	return append(paths, configFileName)
}

// MustLoad loads the configuration and panics on failure.
func MustLoad() *Config {
	cfg, err := NewLoader().Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// ConfigDir returns the platform-standard certiflow config directory.
func ConfigDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate user config directory: %w", err)
	}
	return filepath.Join(dir, appName), nil
}

// DefaultConfigPath returns the config file path inside [ConfigDir].
func DefaultConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// EnsureConfigDir creates [ConfigDir] if needed.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}
