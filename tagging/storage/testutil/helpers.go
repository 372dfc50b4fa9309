package testutil

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/teranos/tagtical/db"
)

// SetupTestDB creates an in-memory SQLite database for testing.
// Uses real migrations to ensure test schema matches production schema.
// The pool is pinned to one connection: every pooled connection to
// ":memory:" would otherwise see its own empty database.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	testDB, err := sql.Open("sqlite3", db.DSN(":memory:"))
	require.NoError(t, err)
	testDB.SetMaxOpenConns(1)

	// Apply real migrations (ensures test schema = production schema)
	err = db.Migrate(testDB, nil)
	require.NoError(t, err, "Failed to run migrations")

	t.Cleanup(func() { testDB.Close() })
	return testDB
}

// SetupEmptyDB creates an in-memory SQLite database WITHOUT the tagging schema.
// Used for testing error handling when schema is missing
func SetupEmptyDB(t *testing.T) *sql.DB {
	t.Helper()
	testDB, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	testDB.SetMaxOpenConns(1)
	t.Cleanup(func() { testDB.Close() })
	return testDB
}

// InsertEntity adds an entity row and returns its id
func InsertEntity(t *testing.T, testDB *sql.DB, kind, name string) int64 {
	t.Helper()
	res, err := testDB.Exec(`INSERT INTO entities (kind, name) VALUES (?, ?)`, kind, name)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return id
}

// CountRows returns the number of rows in table
func CountRows(t *testing.T, testDB *sql.DB, table string) int {
	t.Helper()
	var n int
	require.NoError(t, testDB.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}
