// Package config loads and saves cull's preference record.
//
// Preferences live in a small JSON file in the working directory
// (cull_config.json by default). Every key can be overridden with a CULL_
// environment variable, e.g. CULL_STRATEGY=copy or CULL_LOGGING_LEVEL=debug.
// The resulting Config is a plain value handed to the components that need it.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"

	"cull/internal/triage"
)

// DefaultFile is the preference record looked up in the working directory.
const DefaultFile = "cull_config.json"

// Config holds all application configuration
type Config struct {
	Theme       string        `mapstructure:"theme"`
	Strategy    string        `mapstructure:"strategy"`
	DrainOnExit bool          `mapstructure:"drain_on_exit"`
	LogName     string        `mapstructure:"log_name"`
	Logging     LoggingConfig `mapstructure:"logging"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Theme:       "dark",
		Strategy:    string(triage.StrategyMove),
		DrainOnExit: true,
		LogName:     triage.DefaultLogName,
		Logging: LoggingConfig{
			File:  defaultLogPath(),
			Level: "INFO",
		},
	}
}

// defaultLogPath returns the default log file path for the current OS
func defaultLogPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "cull", "cull.log")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "cull", "cull.log")
	}
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetEnvPrefix("CULL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the preference record at path, falling back to defaults for
// anything it does not set. A missing file is not an error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultFile
	}
	cfg := Default()
	v := newViper(path)

	v.SetDefault("theme", cfg.Theme)
	v.SetDefault("strategy", cfg.Strategy)
	v.SetDefault("drain_on_exit", cfg.DrainOnExit)
	v.SetDefault("log_name", cfg.LogName)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.level", cfg.Logging.Level)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path as JSON.
func Save(path string, cfg *Config) error {
	if path == "" {
		path = DefaultFile
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	v := viper.New()
	v.Set("theme", cfg.Theme)
	v.Set("strategy", cfg.Strategy)
	v.Set("drain_on_exit", cfg.DrainOnExit)
	v.Set("log_name", cfg.LogName)
	v.Set("logging.file", cfg.Logging.File)
	v.Set("logging.level", cfg.Logging.Level)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func (c *Config) Validate() error {
	switch strings.ToLower(c.Theme) {
	case "dark", "light":
	default:
		return fmt.Errorf("invalid theme %q (want dark or light)", c.Theme)
	}
	if _, err := triage.ParseStrategy(c.Strategy); err != nil {
		return err
	}
	if c.LogName == "" || filepath.Base(c.LogName) != c.LogName {
		return fmt.Errorf("invalid log_name %q: must be a plain file name", c.LogName)
	}
	return nil
}

// SessionConfig derives the triage session settings.
func (c *Config) SessionConfig() triage.SessionConfig {
	strategy, _ := triage.ParseStrategy(c.Strategy)
	return triage.SessionConfig{
		Strategy:    strategy,
		LogName:     c.LogName,
		DrainOnExit: c.DrainOnExit,
		LockFolder:  true,
	}
}
