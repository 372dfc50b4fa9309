package storage

import (
	"context"

	"github.com/teranos/tagtical/tagging/types"
)

// PruneUnusedTags deletes tags that no tagging references. Tags are shared and
// never deleted implicitly, so this only runs on request.
func (s *SQLStore) PruneUnusedTags(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM tags
		WHERE NOT EXISTS (SELECT 1 FROM taggings WHERE taggings.tag_id = tags.id)`)
	if err != nil {
		return 0, classify(err, "failed to prune unused tags")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, classify(err, "failed to read affected rows")
	}
	if n > 0 {
		s.logger.Infow("Pruned unused tags", "count", n)
	}
	return n, nil
}

// Stats returns row counts for the CLI
func (s *SQLStore) Stats(ctx context.Context) (*types.Stats, error) {
	stats := &types.Stats{TagsByType: make(map[string]int64)}

	counts := []struct {
		query string
		dest  *int64
	}{
		{`SELECT COUNT(*) FROM entities`, &stats.Entities},
		{`SELECT COUNT(*) FROM tags`, &stats.Tags},
		{`SELECT COUNT(*) FROM taggings`, &stats.Taggings},
		{`SELECT COUNT(*) FROM tags WHERE NOT EXISTS (SELECT 1 FROM taggings WHERE taggings.tag_id = tags.id)`, &stats.UnusedTags},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return nil, classify(err, "failed to compute stats")
		}
	}

	rows, err := s.db.QueryContext(ctx, `SELECT type, COUNT(*) FROM tags GROUP BY type ORDER BY type`)
	if err != nil {
		return nil, classify(err, "failed to count tags by type")
	}
	defer rows.Close()
	for rows.Next() {
		var typ string
		var n int64
		if err := rows.Scan(&typ, &n); err != nil {
			return nil, classify(err, "failed to scan tag type count")
		}
		stats.TagsByType[typ] = n
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err, "failed to iterate tag type counts")
	}
	return stats, nil
}
