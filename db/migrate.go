package db

import (
	"database/sql"
	"embed"
	"path"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/teranos/tagtical/errors"
)

//go:embed sqlite/migrations/*.sql
var migrations embed.FS

const migrationsDir = "sqlite/migrations"

// migrationFiles lists the embedded migrations in apply order.
// 000_create_schema_migrations.sql sorts first.
func migrationFiles() ([]string, error) {
	entries, err := migrations.ReadDir(migrationsDir)
	if err != nil {
		return nil, errors.Wrap(err, "read migrations")
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

func migrationVersion(filename string) string {
	return strings.SplitN(filename, "_", 2)[0]
}

// Migrate runs all pending migrations, each in its own transaction.
// If logger is provided, logs migration progress; otherwise operates silently.
func Migrate(db *sql.DB, logger *zap.SugaredLogger) error {
	files, err := migrationFiles()
	if err != nil {
		return err
	}

	applied := 0
	for _, filename := range files {
		version := migrationVersion(filename)

		var exists bool
		err := db.QueryRow("SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = ?)", version).Scan(&exists)
		if err != nil {
			// Only 000 may run before schema_migrations exists
			if version != "000" {
				return errors.Newf("schema_migrations table missing, but migration is not 000: %s", filename)
			}
		} else if exists {
			continue
		}

		if err := applyMigration(db, filename, version); err != nil {
			return err
		}
		applied++

		if logger != nil {
			logger.Infow("Applied migration", "migration", filename, "version", version)
		}
	}

	if logger != nil {
		logger.Debugw("Migrations complete",
			"total_migrations", len(files),
			"applied", applied,
		)
	}

	return nil
}

func applyMigration(db *sql.DB, filename, version string) error {
	sqlBytes, err := migrations.ReadFile(path.Join(migrationsDir, filename))
	if err != nil {
		return errors.Wrapf(err, "read %s", filename)
	}

	tx, err := db.Begin()
	if err != nil {
		return errors.Wrapf(err, "begin tx for %s", filename)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(string(sqlBytes)); err != nil {
		return errors.Wrapf(err, "execute %s", filename)
	}

	// 000 creates the table, then records itself
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
		return errors.Wrapf(err, "record %s", filename)
	}

	return errors.Wrapf(tx.Commit(), "commit %s", filename)
}

// AppliedVersions returns the recorded migration versions in order.
func AppliedVersions(db *sql.DB) ([]string, error) {
	rows, err := db.Query("SELECT version FROM schema_migrations ORDER BY version")
	if err != nil {
		return nil, errors.Wrap(err, "query schema_migrations")
	}
	defer rows.Close()

	var versions []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, errors.Wrap(err, "scan migration version")
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}
