package am

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/teranos/tagtical/errors"
	"github.com/teranos/tagtical/logger"
)

// createBackup creates rotating backups (.back1, .back2, .back3) before modifying config
func createBackup(configPath string) error {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil // No file to backup
	}

	// Rotate backups: .back3 -> delete, .back2 -> .back3, .back1 -> .back2, current -> .back1
	back3 := configPath + ".back3"
	back2 := configPath + ".back2"
	back1 := configPath + ".back1"

	if err := os.Remove(back3); err != nil && !os.IsNotExist(err) {
		logger.Logger.Warnw("Failed to delete old config backup", "path", back3, "error", err)
	}

	if _, err := os.Stat(back2); err == nil {
		if err := os.Rename(back2, back3); err != nil {
			return errors.Wrap(err, "failed to rotate .back2 to .back3")
		}
	}

	if _, err := os.Stat(back1); err == nil {
		if err := os.Rename(back1, back2); err != nil {
			return errors.Wrap(err, "failed to rotate .back1 to .back2")
		}
	}

	content, err := os.ReadFile(configPath)
	if err != nil {
		return errors.Wrap(err, "failed to read config for backup")
	}

	if err := os.WriteFile(back1, content, DefaultFilePermissions); err != nil {
		return errors.Wrap(err, "failed to create .back1")
	}

	return nil
}

// Save validates cfg and writes it as TOML to configPath, backing up any
// existing file first
func Save(cfg *Config, configPath string) error {
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "refusing to save invalid config")
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}
	return writeConfig(configPath, data)
}

// Set updates a single dotted key in the TOML file at configPath, keeping
// every other entry of the file as is. The raw value is converted to the
// type of the key's default.
func Set(configPath, key, raw string) error {
	typed, err := convertValue(key, raw)
	if err != nil {
		return err
	}

	config, err := loadTOMLMap(configPath)
	if err != nil {
		return err
	}

	parts := strings.Split(key, ".")
	section := config
	for _, p := range parts[:len(parts)-1] {
		next, ok := section[p].(map[string]interface{})
		if !ok {
			next = make(map[string]interface{})
			section[p] = next
		}
		section = next
	}
	section[parts[len(parts)-1]] = typed

	// The merged result must still validate
	v := loadMapIntoViper(config)
	cfg, err := LoadWithViper(v)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrapf(err, "setting %s=%q", key, raw)
	}

	data, err := toml.Marshal(config)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}
	return writeConfig(configPath, data)
}

func convertValue(key, raw string) (interface{}, error) {
	def := defaultsViper()
	if !def.IsSet(key) {
		return nil, errors.WithHintf(errors.Newf("unknown config key %q", key),
			"known keys: %s", strings.Join(Keys(), ", "))
	}

	switch def.Get(key).(type) {
	case bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "%s expects a boolean", key)
		}
		return b, nil
	case int:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "%s expects an integer", key)
		}
		return n, nil
	default:
		return raw, nil
	}
}

// loadTOMLMap reads the file at configPath, or returns an empty map if it doesn't exist
func loadTOMLMap(configPath string) (map[string]interface{}, error) {
	config := make(map[string]interface{})
	data, err := os.ReadFile(configPath)
	if os.IsNotExist(err) {
		return config, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", configPath)
	}
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", configPath)
	}
	return config, nil
}

func writeConfig(configPath string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(configPath), DefaultDirPermissions); err != nil {
		return errors.Wrap(err, "failed to create config directory")
	}
	if err := createBackup(configPath); err != nil {
		return errors.Wrap(err, "failed to create backup")
	}
	if err := os.WriteFile(configPath, data, DefaultFilePermissions); err != nil {
		return errors.Wrapf(err, "failed to write %s", configPath)
	}
	logger.Logger.Debugw("Wrote config", "path", configPath)
	return nil
}
