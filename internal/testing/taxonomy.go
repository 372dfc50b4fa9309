// Package testing provides shared fixtures for tagtical tests.
package testing

import (
	"strings"
	"testing"

	"github.com/teranos/tagtical/taxonomy"
)

// Kind names of the fixture taxonomy.
const (
	TaggableModel                  = "taggable_model"
	InheritingTaggableModel        = "inheriting_taggable_model"
	AlteredInheritingTaggableModel = "altered_inheriting_taggable_model"
	OtherTaggableModel             = "other_taggable_model"
	TaggableUser                   = "taggable_user"
)

// Taxonomy builds the fixture registry:
//
//	tag
//	├── language
//	├── skill (read: "ball" -> "baller")
//	│   └── craft
//	├── bar_craft
//	├── part (storage: lower-case)
//	├── need
//	└── offering
//
// taggable_model carries tags, languages, skills, crafts, needs, offerings and
// styles (bar_craft); altered_inheriting_taggable_model adds parts.
func Taxonomy(t *testing.T) *taxonomy.Registry {
	t.Helper()

	r, err := taxonomy.NewBuilder(taxonomy.DefaultRootType).
		Type("language", "").
		Type("skill", "", taxonomy.WithReadTransform(func(v string) string {
			return strings.ReplaceAll(v, "ball", "baller")
		})).
		Type("craft", "skill").
		Type("bar_craft", "").
		Type("part", "", taxonomy.WithStorageTransform(strings.ToLower)).
		Kind(TaggableModel, "").
		Kind(InheritingTaggableModel, TaggableModel).
		Kind(AlteredInheritingTaggableModel, TaggableModel).
		Kind(OtherTaggableModel, "").
		Kind(TaggableUser, "").
		Contexts(TaggableModel, "tags", "languages", "skills").
		Context(TaggableModel, "crafts", "craft").
		Contexts(TaggableModel, "needs", "offerings").
		Context(TaggableModel, "styles", "bar_craft").
		Contexts(AlteredInheritingTaggableModel, "parts").
		Contexts(OtherTaggableModel, "tags", "languages", "needs", "offerings").
		Build()
	if err != nil {
		t.Fatalf("Failed to build fixture taxonomy: %v", err)
	}
	return r
}
