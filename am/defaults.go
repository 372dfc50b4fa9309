package am

import (
	"fmt"

	"github.com/spf13/viper"
)

// Default values
const (
	DefaultDatabasePath    = "tagtical.db"
	DefaultDelimiter       = ","
	DefaultSyncMaxAttempts = 3
	DefaultSyncBackoffMS   = 10
	DefaultLogLevel        = "info"
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.path", DefaultDatabasePath)
	v.SetDefault("taxonomy.path", "")

	v.SetDefault("tagging.delimiter", DefaultDelimiter)
	v.SetDefault("tagging.force_lowercase", false)
	v.SetDefault("tagging.sync_max_attempts", DefaultSyncMaxAttempts)
	v.SetDefault("tagging.sync_backoff_ms", DefaultSyncBackoffMS)

	v.SetDefault("log.json", false)
	v.SetDefault("log.level", DefaultLogLevel)
}

// BindEnvVars binds every key to its TAGTICAL_* variable so that
// Unmarshal sees environment overrides even for keys no file sets
func BindEnvVars(v *viper.Viper) {
	for _, key := range Keys() {
		v.BindEnv(key, EnvName(key))
	}
}

// GetDatabasePath returns the configured database path
func (c *Config) GetDatabasePath() string {
	if c.Database.Path == "" {
		return DefaultDatabasePath // Fallback default
	}
	return c.Database.Path
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf("Config{Database: %s, Taxonomy: %q, Tagging: {Delimiter: %q, Attempts: %d}}",
		c.Database.Path, c.Taxonomy.Path, c.Tagging.Delimiter, c.Tagging.SyncMaxAttempts)
}

// defaultsViper returns a viper holding only the defaults
func defaultsViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	return v
}

// loadMapIntoViper layers a parsed TOML map over the defaults
func loadMapIntoViper(settings map[string]interface{}) *viper.Viper {
	v := defaultsViper()
	v.MergeConfigMap(settings)
	return v
}
