package testing

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/teranos/tagtical/db"
)

// CreateTestDB creates a migrated SQLite database in a temporary file.
// Unlike an in-memory database it can serve several connections at once,
// which concurrent save tests need.
// Automatically registers cleanup via t.Cleanup().
func CreateTestDB(t *testing.T) *sql.DB {
	t.Helper()

	testDB, err := db.OpenWithMigrations(filepath.Join(t.TempDir(), "tagtical.db"), nil)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	// Register cleanup
	t.Cleanup(func() {
		testDB.Close()
	})

	return testDB
}
