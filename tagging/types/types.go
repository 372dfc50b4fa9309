// Package types holds the records exchanged between the tagging core and its
// storage: entities, tags, taggings and the compiled filter and count queries.
package types

import (
	"time"
)

// NoTagger is the tagger id of taggings not attributed to anyone.
const NoTagger int64 = 0

// AnyTagger selects taggings regardless of who applied them. It is only
// meaningful in read queries and is never stored.
const AnyTagger int64 = -1

// EntityRef identifies a taggable entity.
type EntityRef struct {
	ID        int64     `db:"id" json:"id"`
	Kind      string    `db:"kind" json:"kind"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Tag is a shared (type, value) record. ValueKey is the lower-cased storage
// form of Value and is unique per type.
type Tag struct {
	ID        int64     `db:"id" json:"id"`
	Type      string    `db:"type" json:"type"`
	Value     string    `db:"value" json:"value"`
	ValueKey  string    `db:"value_key" json:"-"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Tagging links a tag to an entity within a context, optionally attributed to
// a tagger.
type Tagging struct {
	ID        int64     `db:"id" json:"id"`
	TagID     int64     `db:"tag_id" json:"tag_id"`
	EntityID  int64     `db:"entity_id" json:"entity_id"`
	Context   string    `db:"context" json:"context"`
	TaggerID  int64     `db:"tagger_id" json:"tagger_id,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// AppliedTag is a tagging joined with its tag, as read back for an entity or
// a tagger.
type AppliedTag struct {
	TaggingID int64  `json:"tagging_id"`
	EntityID  int64  `json:"entity_id"`
	Context   string `json:"context"`
	TaggerID  int64  `json:"tagger_id,omitempty"`
	Tag       Tag    `json:"tag"`
}

// TagCount is one row of a count query: the number of distinct entities of the
// candidate set holding the concrete tag.
type TagCount struct {
	TagID int64  `json:"tag_id"`
	Type  string `json:"type"`
	Value string `json:"value"`
	Count int64  `json:"count"`
}
