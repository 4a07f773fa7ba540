package app

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config contains global runtime configuration.
type Config struct {
	Workspace string
	// UnitsDir is scanned for unit definitions; defaults to <workspace>/units.
	UnitsDir string
	// SettingsFile persists the section/option store; defaults to
	// <workspace>/settings.yaml.
	SettingsFile string
	LogLevel     string
	Timeout      time.Duration
}

// LoadConfigFromViper builds Config from Viper-bound flags/env.
func LoadConfigFromViper() (Config, error) {
	cfg := Config{
		Workspace:    viper.GetString("workspace"),
		UnitsDir:     viper.GetString("units"),
		SettingsFile: viper.GetString("settings"),
		LogLevel:     viper.GetString("log_level"),
		Timeout:      viper.GetDuration("timeout"),
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Workspace == "" {
		return
	}
	if c.UnitsDir == "" {
		c.UnitsDir = filepath.Join(c.Workspace, "units")
	}
	if c.SettingsFile == "" {
		c.SettingsFile = filepath.Join(c.Workspace, "settings.yaml")
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
}

// Validate returns error if configuration is invalid.
func (c Config) Validate() error {
	if c.Workspace == "" {
		return fmt.Errorf("workspace cannot be empty")
	}
	if c.UnitsDir == "" {
		return fmt.Errorf("units directory cannot be empty")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q (debug|info|warn|error)", c.LogLevel)
	}
	return nil
}
