// Package storage provides the SQLite implementation of the tagging store:
// primitive tag and tagging records, compiled entity filters and tag counts.
package storage

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/tagtical/errors"
	"github.com/teranos/tagtical/logger"
	"github.com/teranos/tagtical/tagging"
	"github.com/teranos/tagtical/tagging/types"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// session runs the primitive record operations against a querier.
type session struct {
	q      querier
	logger *zap.SugaredLogger
}

var (
	_ tagging.Store = (*SQLStore)(nil)
	_ tagging.Tx    = (*sqlTx)(nil)
)

// SQLStore implements tagging.Store with a SQLite backend
type SQLStore struct {
	*session
	db *sql.DB
}

// NewSQLStore creates a new SQL-based tag store
func NewSQLStore(db *sql.DB, log *zap.SugaredLogger) *SQLStore {
	log = logger.OrNop(log)
	return &SQLStore{
		session: &session{q: db, logger: log},
		db:      db,
	}
}

// sqlTx is a session bound to one transaction.
type sqlTx struct {
	*session
	tx *sql.Tx
}

// Begin opens a transaction. The caller must Commit or Rollback it.
func (s *SQLStore) Begin(ctx context.Context) (tagging.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, classify(err, "failed to begin transaction")
	}
	return &sqlTx{session: &session{q: tx, logger: s.logger}, tx: tx}, nil
}

// Commit commits the transaction.
func (t *sqlTx) Commit() error {
	return classify(t.tx.Commit(), "failed to commit transaction")
}

// Rollback aborts the transaction. Rolling back a finished transaction is a no-op.
func (t *sqlTx) Rollback() error {
	err := t.tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return classify(err, "failed to roll back transaction")
}

// CreateEntity inserts an entity of kind.
func (s *SQLStore) CreateEntity(ctx context.Context, kind, name string) (*types.EntityRef, error) {
	if kind == "" {
		return nil, errors.NewInvalidRequestError("entity kind cannot be empty")
	}
	res, err := s.db.ExecContext(ctx, `INSERT INTO entities (kind, name) VALUES (?, ?)`, kind, name)
	if err != nil {
		return nil, classify(err, "failed to create %s entity %q", kind, name)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, classify(err, "failed to read entity id")
	}
	return &types.EntityRef{ID: id, Kind: kind, Name: name, CreatedAt: time.Now().UTC()}, nil
}

// GetEntity loads an entity by id.
func (s *SQLStore) GetEntity(ctx context.Context, id int64) (*types.EntityRef, error) {
	var e types.EntityRef
	err := s.db.QueryRowContext(ctx,
		`SELECT id, kind, name, created_at FROM entities WHERE id = ?`, id,
	).Scan(&e.ID, &e.Kind, &e.Name, &e.CreatedAt)
	if err != nil {
		return nil, classify(err, "failed to load entity %d", id)
	}
	return &e, nil
}

// DeleteEntity removes an entity; its taggings cascade.
func (s *SQLStore) DeleteEntity(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM entities WHERE id = ?`, id)
	if err != nil {
		return classify(err, "failed to delete entity %d", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return classify(err, "failed to read affected rows")
	}
	if n == 0 {
		return errors.NewNotFoundError("entity %d", id)
	}
	return nil
}

// ListEntities returns the entities of kinds ordered by id.
func (s *SQLStore) ListEntities(ctx context.Context, kinds []string) ([]types.EntityRef, error) {
	if len(kinds) == 0 {
		return nil, nil
	}
	return s.FindEntities(ctx, types.Filter{Kinds: kinds})
}
