package storage

import (
	"strings"

	"github.com/teranos/tagtical/tagging/types"
)

// queryBuilder accumulates SQL WHERE clauses and parameters for tag queries
type queryBuilder struct {
	whereClauses []string
	args         []interface{}
}

// addClause appends a WHERE clause with its arguments
func (qb *queryBuilder) addClause(clause string, args ...interface{}) {
	qb.whereClauses = append(qb.whereClauses, clause)
	qb.args = append(qb.args, args...)
}

// addIn appends "column IN (?, ...)". Callers check for empty values first.
func (qb *queryBuilder) addIn(column string, values []string) {
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	qb.addClause(column+" IN ("+placeholders(len(values))+")", args...)
}

// addInt64In is addIn for integer columns.
func (qb *queryBuilder) addInt64In(column string, values []int64) {
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	qb.addClause(column+" IN ("+placeholders(len(values))+")", args...)
}

// build returns the WHERE clauses joined with AND
func (qb *queryBuilder) build() string {
	return strings.Join(qb.whereClauses, " AND ")
}

// where returns " WHERE ..." or "" when no clause was added.
func (qb *queryBuilder) where() string {
	if len(qb.whereClauses) == 0 {
		return ""
	}
	return " WHERE " + qb.build()
}

// buildKindFilter restricts the outer entity alias e to kinds.
func (qb *queryBuilder) buildKindFilter(kinds []string) {
	qb.addIn("e.kind", kinds)
}

// buildCondition appends one [NOT] EXISTS subquery correlated on e.id.
// A positive condition with no alternatives can never hold.
func (qb *queryBuilder) buildCondition(c types.Condition) {
	if len(c.Alternatives) == 0 {
		if !c.Negate {
			qb.addClause("0")
		}
		return
	}

	var sb strings.Builder
	var args []interface{}

	if c.Negate {
		sb.WriteString("NOT ")
	}
	sb.WriteString("EXISTS (SELECT 1 FROM taggings ctg JOIN tags ct ON ct.id = ctg.tag_id WHERE ctg.entity_id = e.id")
	if c.TaggerID != types.AnyTagger {
		sb.WriteString(" AND ctg.tagger_id = ?")
		args = append(args, c.TaggerID)
	}

	if c.Complement {
		var all []string
		seen := make(map[string]bool)
		for _, alt := range c.Alternatives {
			for _, typ := range alt.Types {
				if !seen[typ] {
					seen[typ] = true
					all = append(all, typ)
				}
			}
		}
		sb.WriteString(" AND ct.type IN (" + placeholders(len(all)) + ")")
		for _, typ := range all {
			args = append(args, typ)
		}
	}

	alternatives := make([]string, len(c.Alternatives))
	for i, alt := range c.Alternatives {
		alternatives[i] = "(ct.type IN (" + placeholders(len(alt.Types)) + ") AND ct.value_key = ?)"
		for _, typ := range alt.Types {
			args = append(args, typ)
		}
		args = append(args, alt.Key)
	}
	match := " AND ("
	if c.Complement {
		match = " AND NOT ("
	}
	sb.WriteString(match + strings.Join(alternatives, " OR ") + "))")

	qb.addClause(sb.String(), args...)
}

// buildFilter applies a compiled scope to the entity alias e.
func (qb *queryBuilder) buildFilter(f types.Filter) {
	qb.buildKindFilter(f.Kinds)
	for _, c := range f.Conditions {
		qb.buildCondition(c)
	}
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
