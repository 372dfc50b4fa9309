// Package am loads the tagtical configuration ("am" as in "I am configured
// like this") from defaults, TOML files and TAGTICAL_* environment variables.
package am

import "time"

// Config represents the tagtical configuration
type Config struct {
	Database DatabaseConfig `mapstructure:"database" toml:"database"`
	Taxonomy TaxonomyConfig `mapstructure:"taxonomy" toml:"taxonomy"`
	Tagging  TaggingConfig  `mapstructure:"tagging" toml:"tagging"`
	Log      LogConfig      `mapstructure:"log" toml:"log"`
}

// DatabaseConfig configures the SQLite database
type DatabaseConfig struct {
	Path string `mapstructure:"path" toml:"path"`
}

// TaxonomyConfig points at the tag type and context declarations
type TaxonomyConfig struct {
	Path string `mapstructure:"path" toml:"path,omitempty"` // .toml or .yaml; empty = built-in default taxonomy
}

// TaggingConfig tunes parsing and synchronization
type TaggingConfig struct {
	Delimiter       string `mapstructure:"delimiter" toml:"delimiter"`
	ForceLowercase  bool   `mapstructure:"force_lowercase" toml:"force_lowercase"`
	SyncMaxAttempts int    `mapstructure:"sync_max_attempts" toml:"sync_max_attempts"` // find-or-create attempts per value
	SyncBackoffMS   int    `mapstructure:"sync_backoff_ms" toml:"sync_backoff_ms"`     // pause between attempts
}

// LogConfig configures the global logger
type LogConfig struct {
	JSON  bool   `mapstructure:"json" toml:"json"`
	Level string `mapstructure:"level" toml:"level"`
}

// SyncBackoff returns the retry pause as a duration
func (c TaggingConfig) SyncBackoff() time.Duration {
	return time.Duration(c.SyncBackoffMS) * time.Millisecond
}

// File system constants
const (
	DefaultDirPermissions  = 0755 // Standard directory permissions (rwxr-xr-x)
	DefaultFilePermissions = 0644 // Standard file permissions (rw-r--r--)
)

// Config file locations
const (
	ConfigFileName = "tagtical.toml"
	UserConfigDir  = ".tagtical"
	SystemConfig   = "/etc/tagtical/tagtical.toml"
	EnvPrefix      = "TAGTICAL"
)
