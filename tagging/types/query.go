package types

// Alternative matches a tagging whose tag has one of Types and the given
// value key.
type Alternative struct {
	Types []string
	Key   string
}

// Condition is one compiled EXISTS (or NOT EXISTS when Negate) test against an
// entity's taggings. An entity satisfies a positive condition when at least
// one of its taggings matches any alternative.
//
// With Complement set the test is inverted per tagging: it looks for a
// tagging of one of the alternatives' types that matches none of them.
// Negated, that means "holds no other tag of these types".
type Condition struct {
	Alternatives []Alternative
	Negate       bool
	Complement   bool
	TaggerID     int64 // AnyTagger for no restriction
}

// EntityOrder selects the ordering of filter results.
type EntityOrder string

const (
	OrderByID   EntityOrder = "id"
	OrderByName EntityOrder = "name"
)

// Filter is a compiled scope: the candidate kinds and the conjunction of
// conditions every returned entity satisfies.
type Filter struct {
	Kinds      []string
	Conditions []Condition
	Order      EntityOrder
	// Empty short-circuits to no result, for scopes that can never match.
	Empty bool
}

// CountOrder selects the ordering of count rows.
type CountOrder string

const (
	CountByTagID CountOrder = "id"
	CountByCount CountOrder = "count"
	CountByValue CountOrder = "value"
)

// CountQuery counts distinct entities per concrete tag over the candidates of
// Filter.
type CountQuery struct {
	Filter Filter
	// Types restricts the counted tags. Nil counts every type.
	Types []string
	// TagIDs, when set, restricts the counted tags to these ids.
	TagIDs  []int64
	Order   CountOrder
	Limit   int
	AtLeast int64
	AtMost  int64
}

// Stats summarises the store.
type Stats struct {
	Entities   int64            `json:"entities"`
	Tags       int64            `json:"tags"`
	Taggings   int64            `json:"taggings"`
	UnusedTags int64            `json:"unused_tags"`
	TagsByType map[string]int64 `json:"tags_by_type"`
}
