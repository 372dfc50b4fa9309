package tagging_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/teranos/tagtical/errors"
	qtest "github.com/teranos/tagtical/internal/testing"
	"github.com/teranos/tagtical/taglist"
	"github.com/teranos/tagtical/tagging"
	"github.com/teranos/tagtical/tagging/storage/testutil"
	"github.com/teranos/tagtical/taxonomy"
)

func TestCreateTags(t *testing.T) {
	e := newEnv(t)
	bob, err := e.svc.CreateEntity(e.ctx, qtest.TaggableModel, "Bob Jones")
	require.NoError(t, err)

	require.NoError(t, bob.SetTagList("skills", taglist.FromString("ruby, rails, css")))
	require.NoError(t, bob.SaveTags(e.ctx))
	assert.Equal(t, 3, e.rows(t, "tags"))

	bob.Reload()
	skills, err := bob.TagList(e.ctx, "skills")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"ruby", "rails", "css"}, skills)

	// Root list sees the skills context below it
	all, err := bob.TagList(e.ctx, "tags")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"ruby", "rails", "css"}, all)
}

func TestDifferentiateContexts(t *testing.T) {
	e := newEnv(t)
	bob := e.model(t, "Bob", "skills", "ruby, rails, css", "tags", "ruby, bob, charlie")

	skills, err := bob.TagList(e.ctx, "skills")
	require.NoError(t, err)
	assert.Contains(t, skills, "ruby")
	assert.NotContains(t, skills, "bob")

	tags, err := bob.TagList(e.ctx, "tags")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"ruby", "bob", "charlie", "rails", "css"}, tags)
}

func TestRemoveThroughListAlone(t *testing.T) {
	e := newEnv(t)
	bob := e.model(t, "Bob", "skills", "ruby, rails, css")

	skills, err := bob.TagsOn(e.ctx, "skills")
	require.NoError(t, err)
	assert.Len(t, skills, 3)

	require.NoError(t, bob.SetTagList("skills", taglist.FromString("ruby, rails")))
	require.NoError(t, bob.SaveTags(e.ctx))

	skills, err = bob.TagsOn(e.ctx, "skills")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"ruby", "rails"}, tagValues(skills))
	assert.Equal(t, 2, e.rows(t, "taggings"))
	assert.Equal(t, 3, e.rows(t, "tags"), "unused tags are not deleted eagerly")
}

func TestTagListDirectEdit(t *testing.T) {
	e := newEnv(t)
	bob, err := e.svc.CreateEntity(e.ctx, qtest.TaggableModel, "Bob")
	require.NoError(t, err)

	list, err := bob.TagListOn(e.ctx, "needs")
	require.NoError(t, err)
	list.Add("hello")

	pending, err := bob.TagList(e.ctx, "needs")
	require.NoError(t, err)
	assert.Equal(t, []string{"hello"}, pending)
	assert.Equal(t, []string{"needs"}, bob.Dirty())

	require.NoError(t, bob.SaveTags(e.ctx))
	require.NoError(t, bob.SaveTags(e.ctx))
	assert.Empty(t, bob.Dirty())

	bob.Reload()
	saved, err := bob.TagList(e.ctx, "needs")
	require.NoError(t, err)
	assert.Equal(t, []string{"hello"}, saved)
	assert.Equal(t, 1, e.rows(t, "taggings"))
}

func TestAddTags(t *testing.T) {
	e := newEnv(t)
	bob := e.model(t, "Bob", "tags", "ruby")

	require.NoError(t, bob.AddTags(e.ctx, "tags", taglist.FromString("rails, Ruby")))
	require.NoError(t, bob.SaveTags(e.ctx))

	tags, err := bob.TagList(e.ctx, "tags")
	require.NoError(t, err)
	assert.Equal(t, []string{"ruby", "rails"}, tags)
}

func TestUnknownContext(t *testing.T) {
	e := newEnv(t)
	bob := e.model(t, "Bob")

	err := bob.SetTagList("rotors", taglist.FromString("spinning, jumping"))
	assert.True(t, errors.Is(err, errors.ErrUnknownContext))

	_, err = bob.TagListOn(e.ctx, "rotors")
	assert.True(t, errors.Is(err, errors.ErrUnknownContext))

	// Reads never fail
	values, err := bob.TagList(e.ctx, "rotors")
	require.NoError(t, err)
	assert.Empty(t, values)

	tags, err := bob.TagsOn(e.ctx, "rotors")
	require.NoError(t, err)
	assert.Empty(t, tags)

	// Sub-kind contexts are not visible on the parent kind
	err = bob.SetTagList("parts", taglist.FromString("fork"))
	assert.True(t, errors.Is(err, errors.ErrUnknownContext))
}

func TestCaseInsensitiveTags(t *testing.T) {
	e := newEnv(t)
	e.model(t, "Bob", "tags", "ruby")
	e.model(t, "Frank", "tags", "Ruby")

	assert.Equal(t, 1, e.rows(t, "tags"))

	lower, err := e.svc.Scope(qtest.TaggableModel).TaggedWith(taglist.FromString("ruby")).Entities(e.ctx)
	require.NoError(t, err)
	upper, err := e.svc.Scope(qtest.TaggableModel).TaggedWith(taglist.FromString("Ruby")).Entities(e.ctx)
	require.NoError(t, err)
	assert.Equal(t, lower, upper)
	assert.Equal(t, []string{"Bob", "Frank"}, names(lower))
}

func TestNoDuplicateTaggings(t *testing.T) {
	e := newEnv(t)
	bob := e.model(t, "Bob")

	list, err := bob.TagListOn(e.ctx, "tags")
	require.NoError(t, err)
	list.Add("happier")
	list.Add("happier")
	list.Add("Happier")
	require.NoError(t, bob.SaveTags(e.ctx))

	assert.Equal(t, 1, e.rows(t, "taggings"))
}

func TestIdempotentSave(t *testing.T) {
	e := newEnv(t)
	bob := e.model(t, "Bob", "tags", "ruby, rails", "skills", "go")

	before := []int{e.rows(t, "tags"), e.rows(t, "taggings")}
	for i := 0; i < 3; i++ {
		require.NoError(t, bob.SetTagList("tags", taglist.FromString("ruby, rails")))
		require.NoError(t, bob.SetTagList("skills", taglist.FromString("go")))
		require.NoError(t, bob.SaveTags(e.ctx))
	}
	assert.Equal(t, before, []int{e.rows(t, "tags"), e.rows(t, "taggings")})
}

// Saving a list only removes taggings made in that context. Values held in a
// context of a more specific type stay visible on the general one.
func TestSetListLeavesSubtypeContexts(t *testing.T) {
	e := newEnv(t)
	bob := e.model(t, "Bob", "skills", "ruby")

	require.NoError(t, bob.SetTagList("tags", taglist.FromString("rails")))
	require.NoError(t, bob.SaveTags(e.ctx))

	tags, err := bob.TagList(e.ctx, "tags")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"ruby", "rails"}, tags, "ruby is held in skills")

	skills, err := bob.TagList(e.ctx, "skills")
	require.NoError(t, err)
	assert.Equal(t, []string{"ruby"}, skills)
	assert.Equal(t, 2, e.rows(t, "taggings"))

	// Dropping it from the specific context clears it everywhere
	require.NoError(t, bob.SetTagList("skills", taglist.FromValues()))
	require.NoError(t, bob.SaveTags(e.ctx))

	tags, err = bob.TagList(e.ctx, "tags")
	require.NoError(t, err)
	assert.Equal(t, []string{"rails"}, tags)
}

func TestSpecialisation(t *testing.T) {
	tests := []struct {
		name  string
		first string
		then  string
	}{
		{"skill then craft", "skills", "crafts"},
		{"craft then skill", "crafts", "skills"},
		{"craft then root", "crafts", "tags"},
		{"root then craft", "tags", "crafts"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			bob := e.model(t, "Bob", tt.first, "pottery")
			before := e.rows(t, "taggings")

			require.NoError(t, bob.SetTagList(tt.then, taglist.FromString("pottery")))
			require.NoError(t, bob.SaveTags(e.ctx))
			assert.Equal(t, before, e.rows(t, "taggings"), "no second tagging")

			skills, err := bob.TagsOn(e.ctx, "skills")
			require.NoError(t, err)
			require.Len(t, skills, 1)
			assert.Equal(t, "craft", skills[0].Type)
			assert.Equal(t, "pottery", skills[0].Value)

			tags, err := bob.TagList(e.ctx, "tags")
			require.NoError(t, err)
			assert.Equal(t, []string{"pottery"}, tags)
		})
	}
}

func TestSpecialisationMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := tagging.NewMetrics(reg)
	e := newEnvWith(t, testutil.SetupTestDB(t), tagging.Options{Metrics: metrics})

	bob := e.model(t, "Bob", "tags", "ruby, pottery")
	assert.Equal(t, 2.0, promtest.ToFloat64(metrics.TagsCreated))
	assert.Equal(t, 2.0, promtest.ToFloat64(metrics.TaggingsCreated))

	require.NoError(t, bob.SetTagList("crafts", taglist.FromString("pottery")))
	require.NoError(t, bob.SaveTags(e.ctx))
	assert.Equal(t, 3.0, promtest.ToFloat64(metrics.TagsCreated))
	assert.Equal(t, 2.0, promtest.ToFloat64(metrics.TaggingsCreated))
	assert.Equal(t, 1.0, promtest.ToFloat64(metrics.TaggingsSpecialised))

	e.model(t, "Frank", "tags", "ruby")
	assert.Equal(t, 3.0, promtest.ToFloat64(metrics.TagsCreated), "existing tag is reused")
	assert.Equal(t, 3.0, promtest.ToFloat64(metrics.TaggingsCreated))

	count, err := promtest.GatherAndCount(reg, "tagtical_tagging_tags_created_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestTransforms(t *testing.T) {
	e := newEnv(t)

	t.Run("read transform", func(t *testing.T) {
		bob := e.model(t, "Bob", "skills", "football")
		skills, err := bob.TagList(e.ctx, "skills")
		require.NoError(t, err)
		assert.Equal(t, []string{"footballer"}, skills)

		// Saving the read form back changes nothing
		before := e.rows(t, "taggings")
		require.NoError(t, bob.SetTagList("skills", taglist.FromValues(skills...)))
		require.NoError(t, bob.SaveTags(e.ctx))
		assert.Equal(t, before, e.rows(t, "taggings"))

		after, err := bob.TagList(e.ctx, "skills")
		require.NoError(t, err)
		assert.Equal(t, []string{"footballer"}, after)
	})

	t.Run("storage transform", func(t *testing.T) {
		fork := e.create(t, qtest.AlteredInheritingTaggableModel, "Cutlery", "parts", "Fork, Spoon")
		parts, err := fork.TagsOn(e.ctx, "parts")
		require.NoError(t, err)
		assert.Equal(t, []string{"fork", "spoon"}, tagValues(parts))
	})
}

func TestInheritedKinds(t *testing.T) {
	e := newEnv(t)
	same := e.create(t, qtest.InheritingTaggableModel, "inherited same", "tags", "bob, kelso")
	different := e.create(t, qtest.AlteredInheritingTaggableModel, "inherited different", "tags", "fork, spoon", "parts", "fork, spoon")

	t.Run("tagged with on sub-kind and base", func(t *testing.T) {
		for _, kind := range []string{qtest.InheritingTaggableModel, qtest.TaggableModel} {
			found, err := e.svc.Scope(kind).TaggedWith(taglist.FromString("bob")).Entities(e.ctx)
			require.NoError(t, err)
			require.NotEmpty(t, found, kind)
			assert.Equal(t, same.ID(), found[0].ID, kind)
		}
	})

	t.Run("contexts of one sub-kind", func(t *testing.T) {
		found, err := e.svc.Scope(qtest.InheritingTaggableModel).
			TaggedWith(taglist.FromString("fork"), tagging.On("parts")).Entities(e.ctx)
		require.NoError(t, err)
		assert.Empty(t, found)

		found, err = e.svc.Scope(qtest.AlteredInheritingTaggableModel).
			TaggedWith(taglist.FromString("fork"), tagging.On("parts")).Entities(e.ctx)
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, different.ID(), found[0].ID)
	})

	t.Run("counts per kind", func(t *testing.T) {
		tests := []struct {
			kind     string
			expected []string
		}{
			{qtest.InheritingTaggableModel, []string{"bob", "kelso"}},
			{qtest.AlteredInheritingTaggableModel, []string{"fork", "spoon"}},
			{qtest.TaggableModel, []string{"bob", "kelso", "fork", "spoon"}},
		}
		for _, tt := range tests {
			counts, err := e.svc.Scope(tt.kind).TagCountsOn(e.ctx, "tags", tagging.CountOptions{Only: taxonomy.CurrentOnly})
			require.NoError(t, err)
			var values []string
			for _, c := range counts {
				values = append(values, c.Value)
			}
			assert.Equal(t, tt.expected, values, tt.kind)
		}
	})

	t.Run("same tag across kinds", func(t *testing.T) {
		before := e.rows(t, "tags")
		e.model(t, "taggable", "tags", "one")
		e.create(t, qtest.InheritingTaggableModel, "other", "tags", "one")
		assert.Equal(t, before+1, e.rows(t, "tags"))
	})
}

func TestOwnerTags(t *testing.T) {
	e := newEnv(t)
	user, err := e.svc.CreateEntity(e.ctx, qtest.TaggableUser, "user")
	require.NoError(t, err)
	user1, err := e.svc.CreateEntity(e.ctx, qtest.TaggableUser, "user1")
	require.NoError(t, err)
	model := e.model(t, "Bob", "tags", "fitter, happier, more productive")

	u := e.svc.Tagger(user.Ref())
	u1 := e.svc.Tagger(user1.Ref())
	require.NoError(t, u.Tag(e.ctx, model.Ref(), taglist.FromString("martial arts"), "skills"))
	require.NoError(t, u1.Tag(e.ctx, model.Ref(), taglist.FromString("pottery"), "crafts"))
	require.NoError(t, u1.Tag(e.ctx, model.Ref(), taglist.FromValues("spoon", "pottery"), "tags"))

	t.Run("ignores other contexts", func(t *testing.T) {
		tags, err := model.OwnerTagsOn(e.ctx, user.ID(), "languages")
		require.NoError(t, err)
		assert.Empty(t, tags)
	})

	t.Run("only the given context and tagger", func(t *testing.T) {
		tests := []struct {
			tagger  int64
			context string
			want    int
		}{
			{user.ID(), "skills", 1},
			{user.ID(), "tags", 1},
			{user1.ID(), "tags", 2},
		}
		for _, tt := range tests {
			tags, err := model.OwnerTagsOn(e.ctx, tt.tagger, tt.context)
			require.NoError(t, err)
			assert.Len(t, tags, tt.want, "%d on %s", tt.tagger, tt.context)
		}
	})

	t.Run("keeps the concrete type", func(t *testing.T) {
		crafts, err := model.OwnerTagsOn(e.ctx, user1.ID(), "crafts")
		require.NoError(t, err)
		require.Len(t, crafts, 1)
		pottery := crafts[0]
		assert.Equal(t, "craft", pottery.Type)

		skills, err := model.OwnerTagsOn(e.ctx, user1.ID(), "skills")
		require.NoError(t, err)
		require.Len(t, skills, 1)
		assert.Equal(t, pottery.ID, skills[0].ID)

		tags, err := model.OwnerTagsOn(e.ctx, user1.ID(), "tags")
		require.NoError(t, err)
		assert.Contains(t, tagValues(tags), "pottery")
		for _, tag := range tags {
			if tag.Value == "pottery" {
				assert.Equal(t, "craft", tag.Type)
			}
		}
	})

	t.Run("tagger lists stay apart", func(t *testing.T) {
		own, err := model.TagList(e.ctx, "tags")
		require.NoError(t, err)
		assert.Equal(t, []string{"fitter", "happier", "more productive"}, own)

		all, err := model.AllTagsListOn(e.ctx, "tags")
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"fitter", "happier", "more productive", "martial arts", "pottery", "spoon"}, all)
	})

	t.Run("tags applied by", func(t *testing.T) {
		applied, err := u1.TagsAppliedBy(e.ctx, "tags")
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"pottery", "spoon"}, tagValues(applied))

		applied, err = u.TagsAppliedBy(e.ctx, "crafts")
		require.NoError(t, err)
		assert.Empty(t, applied)

		applied, err = u.TagsAppliedBy(e.ctx, "rotors")
		require.NoError(t, err)
		assert.Empty(t, applied)
	})

	t.Run("filter by tagger", func(t *testing.T) {
		scope := e.svc.Scope(qtest.TaggableModel)
		found, err := scope.TaggedWith(taglist.FromString("pottery"), tagging.By(user1.ID())).Entities(e.ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"Bob"}, names(found))

		found, err = scope.TaggedWith(taglist.FromString("pottery"), tagging.By(user.ID())).Entities(e.ctx)
		require.NoError(t, err)
		assert.Empty(t, found)
	})

	t.Run("filter by untagged taggings", func(t *testing.T) {
		scope := e.svc.Scope(qtest.TaggableModel)
		tests := []struct {
			name   string
			value  string
			opts   []tagging.ClauseOption
			expect []string
		}{
			{"any tagger sees a tagger's value", "pottery", nil, []string{"Bob"}},
			{"untagged skips a tagger's value", "pottery", []tagging.ClauseOption{tagging.Untagged()}, []string{}},
			{"untagged sees an own value", "fitter", []tagging.ClauseOption{tagging.Untagged()}, []string{"Bob"}},
			{"a tagger does not see an own value", "fitter", []tagging.ClauseOption{tagging.By(user1.ID())}, []string{}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				found, err := scope.TaggedWith(taglist.FromString(tt.value), tt.opts...).Entities(e.ctx)
				require.NoError(t, err)
				assert.Equal(t, tt.expect, names(found))
			})
		}
	})

	t.Run("untag", func(t *testing.T) {
		n, err := u1.Untag(e.ctx, model.Ref(), "crafts", "pottery")
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		tags, err := model.OwnerTagsOn(e.ctx, user1.ID(), "tags")
		require.NoError(t, err)
		assert.Equal(t, []string{"spoon"}, tagValues(tags))

		_, err = u1.Untag(e.ctx, model.Ref(), "rotors", "x")
		assert.True(t, errors.Is(err, errors.ErrUnknownContext))
	})

	t.Run("tag on unknown context", func(t *testing.T) {
		err := u.Tag(e.ctx, model.Ref(), taglist.FromString("x"), "rotors")
		assert.True(t, errors.Is(err, errors.ErrUnknownContext))
	})
}

func TestRemoveTags(t *testing.T) {
	e := newEnv(t)
	bob := e.model(t, "Bob", "tags", "a, b", "skills", "c")

	n, err := bob.RemoveTags(e.ctx, "tags", "a", "c")
	require.NoError(t, err)
	assert.Equal(t, 1, n, "only taggings made in the context are removed")

	tags, err := bob.TagList(e.ctx, "tags")
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, tags)
}

func TestEntityLifecycle(t *testing.T) {
	e := newEnv(t)

	_, err := e.svc.CreateEntity(e.ctx, "spaceship", "Enterprise")
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))

	bob := e.model(t, "Bob", "tags", "ruby, rails", "skills", "go")
	loaded, err := e.svc.Entity(e.ctx, bob.ID())
	require.NoError(t, err)
	assert.Equal(t, bob.Ref().Name, loaded.Ref().Name)

	require.NoError(t, e.svc.DeleteEntity(e.ctx, bob.ID()))
	assert.Equal(t, 0, e.rows(t, "taggings"))

	stats, err := e.svc.Stats(e.ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.UnusedTags)

	pruned, err := e.svc.PruneUnusedTags(e.ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), pruned)
	assert.Equal(t, 0, e.rows(t, "tags"))
}

func TestDegradedParseIsLogged(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	e := newEnvWith(t, testutil.SetupTestDB(t), tagging.Options{Logger: zap.New(core).Sugar()})
	bob := e.model(t, "Bob")

	require.NoError(t, bob.SetTagList("tags", taglist.FromString("ruby, 'unclosed")))
	require.NoError(t, bob.SaveTags(e.ctx))

	assert.Equal(t, 1, logs.FilterMessageSnippet("unbalanced quotes").Len())
	tags, err := bob.TagList(e.ctx, "tags")
	require.NoError(t, err)
	assert.Equal(t, []string{"ruby", "'unclosed"}, tags)
}
