package storage

import (
	"context"
	"strings"

	"github.com/teranos/tagtical/tagging/types"
)

const entityColumns = `SELECT e.id, e.kind, e.name, e.created_at FROM entities e`

// FindEntities returns the entities that satisfy every condition of f
func (s *SQLStore) FindEntities(ctx context.Context, f types.Filter) ([]types.EntityRef, error) {
	if f.Empty || len(f.Kinds) == 0 {
		return nil, nil
	}

	qb := &queryBuilder{}
	qb.buildFilter(f)

	query := entityColumns + qb.where() + entityOrder(f.Order)

	s.logger.Debugw("Finding entities", "kinds", f.Kinds, "conditions", len(f.Conditions))

	rows, err := s.db.QueryContext(ctx, query, qb.args...)
	if err != nil {
		return nil, classify(err, "failed to query entities")
	}
	defer rows.Close()

	var out []types.EntityRef
	for rows.Next() {
		var e types.EntityRef
		if err := rows.Scan(&e.ID, &e.Kind, &e.Name, &e.CreatedAt); err != nil {
			return nil, classify(err, "failed to scan entity")
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err, "failed to iterate entities")
	}
	return out, nil
}

func entityOrder(o types.EntityOrder) string {
	if o == types.OrderByName {
		return " ORDER BY e.name COLLATE NOCASE, e.id"
	}
	return " ORDER BY e.id"
}

// CountTags counts, per concrete tag, the distinct candidate entities holding it
func (s *SQLStore) CountTags(ctx context.Context, q types.CountQuery) ([]types.TagCount, error) {
	if q.Filter.Empty || len(q.Filter.Kinds) == 0 {
		return nil, nil
	}
	if q.Types != nil && len(q.Types) == 0 {
		return nil, nil
	}
	if q.TagIDs != nil && len(q.TagIDs) == 0 {
		return nil, nil
	}

	qb := &queryBuilder{}
	qb.buildFilter(q.Filter)
	if len(q.Types) > 0 {
		qb.addIn("t.type", q.Types)
	}
	if len(q.TagIDs) > 0 {
		qb.addInt64In("t.id", q.TagIDs)
	}

	var sb strings.Builder
	sb.WriteString(`SELECT t.id, t.type, t.value, COUNT(DISTINCT tg.entity_id) AS cnt
		FROM tags t
		JOIN taggings tg ON tg.tag_id = t.id
		JOIN entities e ON e.id = tg.entity_id`)
	sb.WriteString(qb.where())
	sb.WriteString(" GROUP BY t.id, t.type, t.value")

	args := qb.args
	var having []string
	if q.AtLeast > 0 {
		having = append(having, "cnt >= ?")
		args = append(args, q.AtLeast)
	}
	if q.AtMost > 0 {
		having = append(having, "cnt <= ?")
		args = append(args, q.AtMost)
	}
	if len(having) > 0 {
		sb.WriteString(" HAVING " + strings.Join(having, " AND "))
	}

	sb.WriteString(countOrder(q.Order))
	if q.Limit > 0 {
		sb.WriteString(" LIMIT ?")
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, classify(err, "failed to count tags")
	}
	defer rows.Close()

	var out []types.TagCount
	for rows.Next() {
		var c types.TagCount
		if err := rows.Scan(&c.TagID, &c.Type, &c.Value, &c.Count); err != nil {
			return nil, classify(err, "failed to scan tag count")
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err, "failed to iterate tag counts")
	}
	return out, nil
}

func countOrder(o types.CountOrder) string {
	switch o {
	case types.CountByCount:
		return " ORDER BY cnt DESC, t.id"
	case types.CountByValue:
		return " ORDER BY t.value_key, t.id"
	default:
		return " ORDER BY t.id"
	}
}
