// Package config provides configuration management for copa using Viper.
package config

import (
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"
)

// AppName is the application name used for config file naming.
const AppName = "copa"

// DefaultBranch is the branch used for archive URL derivation when the
// config file and --branch flag are both silent.
const DefaultBranch = "main"

// DefaultRetention is the number of snapshots `copa backup prune` keeps
// when the config file does not say otherwise.
const DefaultRetention = 5

// Config represents the top-level configuration structure.
type Config struct {
	// Source is the default bundle repository URL used when --url is omitted.
	Source string `mapstructure:"source" yaml:"source"`

	// Branch is the default branch for archive URL derivation.
	Branch string `mapstructure:"branch" yaml:"branch"`

	// Backup holds snapshot-related settings.
	Backup BackupConfig `mapstructure:"backup" yaml:"backup"`
}

// BackupConfig contains snapshot retention settings.
type BackupConfig struct {
	// Retention is the number of snapshots kept by `copa backup prune`.
	Retention int `mapstructure:"retention" yaml:"retention"`
}

// Init initializes Viper with default configuration.
// Call this once at application startup before accessing config values.
func Init() {
	// Config file settings
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	// Search paths (in order of precedence)
	viper.AddConfigPath(".") // Current directory
	viper.AddConfigPath(filepath.Join(xdg.ConfigHome, AppName))

	// Environment variable support
	viper.SetEnvPrefix("COPA")
	viper.AutomaticEnv()

	// Defaults
	viper.SetDefault("branch", DefaultBranch)
	viper.SetDefault("backup.retention", DefaultRetention)
}

// Load reads the configuration file.
// If path is provided, it reads from that specific file.
// If path is empty, it searches in the default locations.
// Returns the loaded configuration or default values if no file is found
// (when path is empty).
func Load(path string) (*Config, error) {
	if path != "" {
		viper.SetConfigFile(path)
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// If user specified a path, this is an error
			if path != "" {
				return nil, errors.Wrapf(err, "config file not found at %s", path)
			}
			// Otherwise (implicit load), it's fine to use defaults
		} else {
			// Real read error (parsing, permissions, etc)
			return nil, errors.Wrap(err, "reading config file")
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshaling config")
	}

	if cfg.Branch == "" {
		cfg.Branch = DefaultBranch
	}
	if cfg.Backup.Retention <= 0 {
		cfg.Backup.Retention = DefaultRetention
	}

	return &cfg, nil
}

// DefaultConfigDir returns the directory where copa looks for its config file.
func DefaultConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}
