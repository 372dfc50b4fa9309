// Package db opens the SQLite database that backs the tag store and applies
// the embedded schema migrations.
package db

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/teranos/tagtical/errors"
)

// SQLiteBusyTimeoutMS is how long a writer waits on a locked database before
// SQLite reports SQLITE_BUSY.
const SQLiteBusyTimeoutMS = 5000

// Open opens a SQLite database at the specified path with tagging-friendly settings.
// If logger is provided, logs database operations; otherwise operates silently.
func Open(path string, logger *zap.SugaredLogger) (*sql.DB, error) {
	if logger != nil {
		logger.Debugw("Opening database", "path", path)
	}
	db, err := sql.Open("sqlite3", DSN(path))
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	// WAL lets count/filter reads run while a save cycle writes
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to enable WAL mode")
	}

	// Taggings cascade when their entity or tag is deleted
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to enable foreign keys")
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", SQLiteBusyTimeoutMS)); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to set busy timeout")
	}

	if logger != nil {
		logger.Infow("Database opened successfully",
			"path", path,
			"wal_mode", true,
			"foreign_keys", true,
		)
	}

	return db, nil
}

// DSN appends the per-connection pragmas to path so that every pooled
// connection gets foreign keys and the busy timeout, not just the first one.
// Transactions start IMMEDIATE so concurrent save cycles queue on the busy
// timeout instead of failing when a reader upgrades to a writer.
func DSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%s_foreign_keys=on&_busy_timeout=%d&_txlock=immediate", path, sep, SQLiteBusyTimeoutMS)
}

// OpenWithMigrations opens the database and brings its schema up to date.
func OpenWithMigrations(path string, logger *zap.SugaredLogger) (*sql.DB, error) {
	database, err := Open(path, logger)
	if err != nil {
		return nil, err
	}

	if err := Migrate(database, logger); err != nil {
		database.Close()
		return nil, errors.Wrapf(err, "failed to run migrations on %s", path)
	}

	return database, nil
}
