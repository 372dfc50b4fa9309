package am

import (
	"github.com/teranos/tagtical/errors"
	"github.com/teranos/tagtical/logger"
)

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	// Database path is optional - empty falls back to DefaultDatabasePath

	if c.Tagging.Delimiter == "" {
		return errors.New("tagging.delimiter cannot be empty")
	}

	// Attempts: at least one create per value, otherwise nothing is ever added
	if c.Tagging.SyncMaxAttempts < 1 {
		return errors.Newf("tagging.sync_max_attempts must be >= 1, got %d", c.Tagging.SyncMaxAttempts)
	}

	// Backoff: 0 = retry immediately, negative = invalid
	if c.Tagging.SyncBackoffMS < 0 {
		return errors.Newf("tagging.sync_backoff_ms must be >= 0, got %d", c.Tagging.SyncBackoffMS)
	}

	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return errors.Wrap(err, "log.level")
	}

	return nil
}
