package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/teranos/tagtical/errors"
	"github.com/teranos/tagtical/tagging/types"
)

// Query constants
const (
	TagSelectQuery = `
		SELECT id, type, value, value_key, created_at
		FROM tags
		WHERE type = ? AND value_key = ?`

	TagInsertQuery = `
		INSERT INTO tags (type, value, value_key)
		VALUES (?, ?, ?)`

	TaggingInsertQuery = `
		INSERT INTO taggings (tag_id, entity_id, context, tagger_id)
		VALUES (?, ?, ?, ?)`

	TaggingMoveQuery = `
		UPDATE taggings SET tag_id = ?, context = ?
		WHERE id = ?`

	TaggingDeleteQuery = `
		DELETE FROM taggings WHERE id = ?`

	appliedTagColumns = `
		SELECT tg.id, tg.entity_id, tg.context, tg.tagger_id,
		       t.id, t.type, t.value, t.value_key, t.created_at
		FROM taggings tg
		JOIN tags t ON t.id = tg.tag_id`
)

// FindTag returns the tag of typ with the given value key
func (s *session) FindTag(ctx context.Context, typ, key string) (*types.Tag, error) {
	var t types.Tag
	err := s.q.QueryRowContext(ctx, TagSelectQuery, typ, key).
		Scan(&t.ID, &t.Type, &t.Value, &t.ValueKey, &t.CreatedAt)
	if err != nil {
		return nil, classify(err, "failed to find %s tag %q", typ, key)
	}
	return &t, nil
}

// CreateTag inserts a tag; a concurrent insert of the same (type, key)
// surfaces as errors.ErrConflict
func (s *session) CreateTag(ctx context.Context, typ, value, key string) (*types.Tag, error) {
	res, err := s.q.ExecContext(ctx, TagInsertQuery, typ, value, key)
	if err != nil {
		return nil, classify(err, "failed to create %s tag %q", typ, value)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, classify(err, "failed to read tag id")
	}
	return &types.Tag{ID: id, Type: typ, Value: value, ValueKey: key, CreatedAt: time.Now().UTC()}, nil
}

// CreateTagging inserts a tagging; an identical existing row surfaces as
// errors.ErrConflict
func (s *session) CreateTagging(ctx context.Context, t types.Tagging) (*types.Tagging, error) {
	res, err := s.q.ExecContext(ctx, TaggingInsertQuery, t.TagID, t.EntityID, t.Context, t.TaggerID)
	if err != nil {
		return nil, classify(err, "failed to tag entity %d with tag %d on %q", t.EntityID, t.TagID, t.Context)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, classify(err, "failed to read tagging id")
	}
	t.ID = id
	t.CreatedAt = time.Now().UTC()
	return &t, nil
}

// MoveTagging re-points a tagging at another tag and context
func (s *session) MoveTagging(ctx context.Context, taggingID, tagID int64, context string) error {
	res, err := s.q.ExecContext(ctx, TaggingMoveQuery, tagID, context, taggingID)
	if err != nil {
		return classify(err, "failed to move tagging %d to tag %d on %q", taggingID, tagID, context)
	}
	return expectOneRow(res, "tagging %d", taggingID)
}

// DeleteTagging removes one tagging
func (s *session) DeleteTagging(ctx context.Context, taggingID int64) error {
	res, err := s.q.ExecContext(ctx, TaggingDeleteQuery, taggingID)
	if err != nil {
		return classify(err, "failed to delete tagging %d", taggingID)
	}
	return expectOneRow(res, "tagging %d", taggingID)
}

// EntityTags lists the taggings of one entity in contexts
func (s *session) EntityTags(ctx context.Context, entityID int64, contexts []string, taggerID int64) ([]types.AppliedTag, error) {
	if len(contexts) == 0 {
		return nil, nil
	}
	qb := &queryBuilder{}
	qb.addClause("tg.entity_id = ?", entityID)
	qb.addIn("tg.context", contexts)
	if taggerID != types.AnyTagger {
		qb.addClause("tg.tagger_id = ?", taggerID)
	}
	return s.queryApplied(ctx, qb)
}

// TaggerTags lists the taggings a tagger applied in contexts across all entities
func (s *session) TaggerTags(ctx context.Context, taggerID int64, contexts []string) ([]types.AppliedTag, error) {
	if len(contexts) == 0 {
		return nil, nil
	}
	qb := &queryBuilder{}
	qb.addClause("tg.tagger_id = ?", taggerID)
	qb.addIn("tg.context", contexts)
	return s.queryApplied(ctx, qb)
}

func (s *session) queryApplied(ctx context.Context, qb *queryBuilder) ([]types.AppliedTag, error) {
	query := appliedTagColumns + qb.where() + " ORDER BY tg.id"

	rows, err := s.q.QueryContext(ctx, query, qb.args...)
	if err != nil {
		return nil, classify(err, "failed to query taggings")
	}
	defer rows.Close()

	var out []types.AppliedTag
	for rows.Next() {
		var a types.AppliedTag
		if err := rows.Scan(&a.TaggingID, &a.EntityID, &a.Context, &a.TaggerID,
			&a.Tag.ID, &a.Tag.Type, &a.Tag.Value, &a.Tag.ValueKey, &a.Tag.CreatedAt); err != nil {
			return nil, classify(err, "failed to scan tagging")
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err, "failed to iterate taggings")
	}
	return out, nil
}

func expectOneRow(res sql.Result, format string, args ...interface{}) error {
	n, err := res.RowsAffected()
	if err != nil {
		return classify(err, "failed to read affected rows")
	}
	if n == 0 {
		return errors.NewNotFoundError(format, args...)
	}
	return nil
}
