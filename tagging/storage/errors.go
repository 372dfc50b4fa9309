package storage

import (
	"database/sql"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/teranos/tagtical/db"
	"github.com/teranos/tagtical/errors"
)

// classify wraps a driver error with msg and marks the kinds callers branch
// on: unique violations become ErrConflict, missing rows ErrNotFound and a
// closed handle db.ErrDatabaseClosed. The driver error stays in the chain.
func classify(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	wrapped := errors.Wrap(err, fmt.Sprintf(format, args...))

	if isUniqueViolation(err) {
		return errors.Mark(wrapped, errors.ErrConflict)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return errors.Mark(wrapped, errors.ErrNotFound)
	}
	if db.IsDatabaseClosed(err) {
		return errors.Mark(wrapped, db.ErrDatabaseClosed)
	}
	return wrapped
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}
