package db

import (
	"strings"

	"github.com/teranos/tagtical/errors"
)

// ErrDatabaseClosed marks storage calls made after the handle was closed,
// e.g. a save still running when the CLI shuts down on interrupt.
var ErrDatabaseClosed = errors.New("database is closed")

// IsDatabaseClosed reports whether err is or wraps ErrDatabaseClosed, or is
// the driver's own closed-handle error, which database/sql returns unwrapped.
func IsDatabaseClosed(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrDatabaseClosed):
		return true
	}
	return strings.Contains(err.Error(), "database is closed")
}
