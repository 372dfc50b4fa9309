package am

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/viper"

	"github.com/teranos/tagtical/errors"
)

var (
	mu            sync.Mutex
	globalConfig  *Config
	viperInstance *viper.Viper

	// ConfigSources records, per dotted key, the file that last set it during
	// loading. Environment overrides are resolved at introspection time.
	ConfigSources = map[string]SourceInfo{}
)

// Load reads the tagtical configuration using Viper. The result is cached
// until Reset.
func Load() (*Config, error) {
	mu.Lock()
	defer mu.Unlock()
	if globalConfig != nil {
		return globalConfig, nil
	}

	config, err := LoadWithViper(initViperLocked())
	if err != nil {
		return nil, err
	}
	globalConfig = config
	return globalConfig, nil
}

// GetViper returns the Viper instance for advanced configuration access
func GetViper() *viper.Viper {
	mu.Lock()
	defer mu.Unlock()
	return initViperLocked()
}

// LoadWithViper loads configuration using a provided Viper instance
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	return &config, nil
}

// LoadFromFile loads configuration from a specific file path, on top of the
// defaults but without environment overrides
func LoadFromFile(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("toml")
	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %s", configPath)
	}

	config, err := LoadWithViper(v)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load config from %s", configPath)
	}
	return config, nil
}

// Reset clears the cached configuration (useful for testing)
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	globalConfig = nil
	viperInstance = nil
	ConfigSources = map[string]SourceInfo{}
}

// initViperLocked initializes Viper with configuration sources and defaults
func initViperLocked() *viper.Viper {
	if viperInstance != nil {
		return viperInstance
	}

	v := viper.New()

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	BindEnvVars(v)

	SetDefaults(v)

	// Manually merge configs in precedence order: system -> user -> project -> env vars
	mergeConfigFiles(v)

	viperInstance = v
	return v
}

// FindProjectConfig walks up from the working directory looking for
// tagtical.toml and returns the first match, or "" when there is none
func FindProjectConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		candidate := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// UserConfigPath returns ~/.tagtical/tagtical.toml, or "" without a home directory
func UserConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, UserConfigDir, ConfigFileName)
}

// mergeConfigFiles merges configuration files in precedence order and records
// which file each key came from.
// Precedence (lowest to highest): system < user < project < env vars
func mergeConfigFiles(v *viper.Viper) {
	type layer struct {
		path   string
		source ConfigSource
	}
	layers := []layer{{SystemConfig, SourceSystem}}
	if user := UserConfigPath(); user != "" {
		layers = append(layers, layer{user, SourceUser})
	}
	if project := FindProjectConfig(); project != "" {
		layers = append(layers, layer{project, SourceProject})
	}

	for _, l := range layers {
		if _, err := os.Stat(l.path); err != nil {
			continue
		}
		tempViper := viper.New()
		tempViper.SetConfigFile(l.path)
		tempViper.SetConfigType("toml")
		if err := tempViper.ReadInConfig(); err != nil {
			continue
		}

		// MergeConfigMap keeps file values below env vars; v.Set would outrank them
		if err := v.MergeConfigMap(tempViper.AllSettings()); err != nil {
			continue
		}
		for _, key := range tempViper.AllKeys() {
			ConfigSources[key] = SourceInfo{Source: l.source, Path: l.path}
		}
		v.SetConfigFile(l.path)
	}
}

// Keys returns every known configuration key in sorted order
func Keys() []string {
	keys := defaultsViper().AllKeys()
	sort.Strings(keys)
	return keys
}

// EnvName returns the environment variable that overrides key
func EnvName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}
