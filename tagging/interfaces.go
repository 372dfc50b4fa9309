// Package tagging reconciles in-memory tag lists with stored taggings and
// answers filter and count queries over tagged entities, resolving contexts
// and types through a taxonomy.Registry.
package tagging

import (
	"context"

	"github.com/teranos/tagtical/tagging/types"
)

// Session is the primitive record access the synchronizer needs. It is
// implemented both directly on the store and inside a transaction, so every
// read of a save cycle sees the cycle's own uncommitted writes.
//
// Create operations report a uniqueness violation as errors.ErrConflict and a
// missing record as errors.ErrNotFound. Every other storage fault is returned
// wrapped but otherwise unchanged.
type Session interface {
	// FindTag returns the tag of typ whose value key is key.
	FindTag(ctx context.Context, typ, key string) (*types.Tag, error)
	// CreateTag inserts a tag.
	CreateTag(ctx context.Context, typ, value, key string) (*types.Tag, error)

	// CreateTagging inserts a tagging.
	CreateTagging(ctx context.Context, t types.Tagging) (*types.Tagging, error)
	// MoveTagging points an existing tagging at another tag and context.
	MoveTagging(ctx context.Context, taggingID, tagID int64, context string) error
	// DeleteTagging removes one tagging by id.
	DeleteTagging(ctx context.Context, taggingID int64) error

	// EntityTags lists the taggings of entityID in contexts applied by
	// taggerID (types.AnyTagger for all), ordered by tagging id.
	EntityTags(ctx context.Context, entityID int64, contexts []string, taggerID int64) ([]types.AppliedTag, error)
}

// Tx is a Session bound to a storage transaction.
type Tx interface {
	Session
	Commit() error
	Rollback() error
}

// Store is the storage collaborator of the tagging core.
type Store interface {
	Session

	// Begin opens a transaction for one save cycle.
	Begin(ctx context.Context) (Tx, error)

	CreateEntity(ctx context.Context, kind, name string) (*types.EntityRef, error)
	GetEntity(ctx context.Context, id int64) (*types.EntityRef, error)
	DeleteEntity(ctx context.Context, id int64) error

	// TaggerTags lists, across all entities, the taggings applied by taggerID
	// in contexts, ordered by tagging id.
	TaggerTags(ctx context.Context, taggerID int64, contexts []string) ([]types.AppliedTag, error)

	// FindEntities returns the entities that satisfy a compiled filter.
	FindEntities(ctx context.Context, f types.Filter) ([]types.EntityRef, error)
	// CountTags aggregates distinct entities per concrete tag.
	CountTags(ctx context.Context, q types.CountQuery) ([]types.TagCount, error)

	// PruneUnusedTags deletes tags without taggings and returns how many went.
	PruneUnusedTags(ctx context.Context) (int64, error)
	Stats(ctx context.Context) (*types.Stats, error)
}
