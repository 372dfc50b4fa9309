package commands

import (
	"context"
	"database/sql"
	"strconv"

	"github.com/teranos/tagtical/db"
	"github.com/teranos/tagtical/errors"
	"github.com/teranos/tagtical/logger"
	"github.com/teranos/tagtical/taglist"
	"github.com/teranos/tagtical/tagging"
	"github.com/teranos/tagtical/tagging/storage"
	"github.com/teranos/tagtical/taxonomy"
)

// runtime is an opened database plus the tagging service over it.
type runtime struct {
	db  *sql.DB
	svc *tagging.Service
}

func (r *runtime) Close() error {
	return r.db.Close()
}

// open validates the configuration, opens and migrates the database and
// builds the tagging service from the configured taxonomy.
func (a *app) open() (*runtime, error) {
	if err := a.cfg.Validate(); err != nil {
		return nil, errors.WithHint(errors.Wrap(err, "invalid configuration"),
			"inspect it with \"tagtical am where\" and fix it with \"tagtical am set\"")
	}

	registry, err := a.taxonomy()
	if err != nil {
		return nil, err
	}

	path := a.cfg.GetDatabasePath()
	database, err := db.OpenWithMigrations(path, logger.Logger.Named("db"))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database at %s", path)
	}

	store := storage.NewSQLStore(database, logger.Logger.Named("storage"))
	svc := tagging.NewService(registry, store, tagging.Options{
		Parser: taglist.Parser{
			Delimiter:      a.cfg.Tagging.Delimiter,
			ForceLowercase: a.cfg.Tagging.ForceLowercase,
		},
		Sync: tagging.SyncOptions{
			MaxAttempts: a.cfg.Tagging.SyncMaxAttempts,
			Backoff:     a.cfg.Tagging.SyncBackoff(),
		},
		Metrics: a.tagging,
		Logger:  logger.Logger.Named("tagging"),
	})
	return &runtime{db: database, svc: svc}, nil
}

// taxonomy loads the configured taxonomy file, or the built-in default.
func (a *app) taxonomy() (*taxonomy.Registry, error) {
	if a.cfg.Taxonomy.Path == "" {
		return taxonomy.Default(), nil
	}
	registry, err := taxonomy.LoadFile(a.cfg.Taxonomy.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load taxonomy %s", a.cfg.Taxonomy.Path)
	}
	return registry, nil
}

// entity resolves an id argument to a loaded taggable.
func (r *runtime) entity(ctx context.Context, arg string) (*tagging.Taggable, error) {
	id, err := parseID(arg)
	if err != nil {
		return nil, err
	}
	return r.svc.Entity(ctx, id)
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.NewInvalidRequestError("entity id must be a positive integer, got %q", arg)
	}
	return id, nil
}
