package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/tagtical/am"
	"github.com/teranos/tagtical/display"
	"github.com/teranos/tagtical/errors"
	"github.com/teranos/tagtical/tagging/types"
	"github.com/teranos/tagtical/version"
)

const testTaxonomy = `root: tag
types:
  - name: skill
    read:
      - op: replace
        from: ball
        to: baller
  - name: craft
    parent: skill
  - name: part
    storage:
      - op: trim
      - op: lowercase
kinds:
  - name: taggable_model
    contexts:
      - name: tags
      - name: skills
      - name: crafts
        type: craft
  - name: altered_inheriting_taggable_model
    parent: taggable_model
    contexts:
      - name: parts
  - name: taggable_user
`

func TestMain(m *testing.M) {
	pterm.DisableStyling()
	os.Exit(m.Run())
}

// setupCLI isolates configuration and points the CLI at a fresh database and
// the test taxonomy. It returns the working directory.
func setupCLI(t *testing.T) string {
	t.Helper()
	am.Reset()
	t.Cleanup(am.Reset)

	dir := t.TempDir()
	t.Setenv("HOME", t.TempDir())
	t.Chdir(dir)
	t.Setenv(display.OutputEnv, "")

	taxonomyPath := filepath.Join(dir, "taxonomy.yaml")
	require.NoError(t, os.WriteFile(taxonomyPath, []byte(testTaxonomy), 0644))
	t.Setenv("TAGTICAL_TAXONOMY_PATH", taxonomyPath)
	t.Setenv("TAGTICAL_DATABASE_PATH", filepath.Join(dir, "tagtical.db"))
	t.Setenv("TAGTICAL_TAGGING_SYNC_BACKOFF_MS", "0")
	return dir
}

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, stderr, err := runCLI(t, args...)
	require.NoError(t, err, "tagtical %v\nstderr: %s", args, stderr)
	return out
}

func runJSON(t *testing.T, v interface{}, args ...string) {
	t.Helper()
	out := mustRun(t, append(args, "--json")...)
	require.NoError(t, json.Unmarshal([]byte(out), v), out)
}

func addEntity(t *testing.T, kind, name, tags string) types.EntityRef {
	t.Helper()
	var ref types.EntityRef
	args := []string{"entity", "add", kind, name}
	if tags != "" {
		args = append(args, "--tags", tags)
	}
	runJSON(t, &ref, args...)
	return ref
}

func entityNames(refs []types.EntityRef) []string {
	names := []string{}
	for _, r := range refs {
		names = append(names, r.Name)
	}
	return names
}

type showResult struct {
	Entity types.EntityRef     `json:"entity"`
	Tags   map[string][]string `json:"tags"`
}

func TestTagLifecycle(t *testing.T) {
	setupCLI(t)

	bob := addEntity(t, "taggable_model", "Bob", "ruby, rails")
	assert.Equal(t, "Bob", bob.Name)
	assert.Positive(t, bob.ID)
	id := jsonID(bob)

	mustRun(t, "tag", "set", id, "skills", "pottery, football")

	var shown showResult
	runJSON(t, &shown, "tag", "show", id)
	assert.ElementsMatch(t, []string{"pottery", "footballer"}, shown.Tags["skills"])
	assert.ElementsMatch(t, []string{"ruby", "rails", "pottery", "footballer"}, shown.Tags["tags"], "the root context sees every type")
	assert.Empty(t, shown.Tags["crafts"])

	t.Run("adding a craft specialises the skill", func(t *testing.T) {
		mustRun(t, "tag", "add", id, "crafts", "pottery")

		var after showResult
		runJSON(t, &after, "tag", "show", id)
		assert.Equal(t, []string{"pottery"}, after.Tags["crafts"])
		assert.ElementsMatch(t, []string{"pottery", "footballer"}, after.Tags["skills"], "skills still sees its crafts")

		var stats types.Stats
		runJSON(t, &stats, "db", "stats")
		assert.Equal(t, int64(4), stats.Taggings, "the skill tagging moved instead of doubling")
	})

	t.Run("remove", func(t *testing.T) {
		out := mustRun(t, "tag", "rm", id, "tags", "rails")
		assert.Contains(t, out, "Removed 1 tagging(s)")

		var after showResult
		runJSON(t, &after, "tag", "show", id, "tags")
		require.Len(t, after.Tags, 1)
		assert.Contains(t, after.Tags["tags"], "ruby")
		assert.NotContains(t, after.Tags["tags"], "rails")
	})

	t.Run("human output", func(t *testing.T) {
		out := mustRun(t, "tag", "show", id)
		assert.Contains(t, out, `taggable_model "Bob"`)
		assert.Contains(t, out, "CONTEXT")
		assert.Contains(t, out, "footballer")
	})
}

func TestTaggerOwnership(t *testing.T) {
	setupCLI(t)

	bob := addEntity(t, "taggable_model", "Bob", "ruby")
	user := addEntity(t, "taggable_user", "user", "")

	mustRun(t, "tag", "set", jsonID(bob), "tags", "go", "--by", jsonID(user))
	mustRun(t, "tag", "add", jsonID(bob), "tags", "rust", "--by", jsonID(user))

	var owned, all, plain showResult
	runJSON(t, &owned, "tag", "show", jsonID(bob), "tags", "--by", jsonID(user))
	runJSON(t, &all, "tag", "show", jsonID(bob), "tags", "--all")
	runJSON(t, &plain, "tag", "show", jsonID(bob), "tags")

	assert.ElementsMatch(t, []string{"go", "rust"}, owned.Tags["tags"])
	assert.ElementsMatch(t, []string{"ruby", "go", "rust"}, all.Tags["tags"])
	assert.Equal(t, []string{"ruby"}, plain.Tags["tags"])

	var applied []types.Tag
	runJSON(t, &applied, "tag", "applied", jsonID(user), "tags")
	assert.Len(t, applied, 2)

	mustRun(t, "tag", "rm", jsonID(bob), "tags", "go", "--by", jsonID(user))
	runJSON(t, &owned, "tag", "show", jsonID(bob), "tags", "--by", jsonID(user))
	assert.Equal(t, []string{"rust"}, owned.Tags["tags"])

	var refs []types.EntityRef
	runJSON(t, &refs, "find", "taggable_model", "--tags", "rust", "--untagged")
	assert.Empty(t, refs)
	runJSON(t, &refs, "find", "taggable_model", "--tags", "ruby", "--untagged")
	assert.Equal(t, []string{"Bob"}, entityNames(refs))
	runJSON(t, &refs, "find", "taggable_model", "--tags", "rust", "--by", jsonID(user))
	assert.Equal(t, []string{"Bob"}, entityNames(refs))

	_, _, err := runCLI(t, "find", "taggable_model", "--tags", "rust", "--by", jsonID(user), "--untagged")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestFind(t *testing.T) {
	setupCLI(t)
	addEntity(t, "taggable_model", "Bob", "ruby, rails")
	addEntity(t, "taggable_model", "Frank", "ruby, java")
	addEntity(t, "altered_inheriting_taggable_model", "Steve", "go")

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{"all of", []string{"--tags", "ruby, rails"}, []string{"Bob"}},
		{"any of", []string{"--tags", "java, go", "--match", "any"}, []string{"Frank", "Steve"}},
		{"exact", []string{"--tags", "ruby, rails", "--match", "exact"}, []string{"Bob"}},
		{"exclude", []string{"--tags", "ruby", "--exclude"}, []string{"Steve"}},
		{"without", []string{"--on", "tags", "--tags", "ruby", "--without", "java"}, []string{"Bob"}},
		{"case-insensitive", []string{"--tags", "RUBY", "--order", "name"}, []string{"Bob", "Frank"}},
		{"no clause lists the kind", nil, []string{"Bob", "Frank", "Steve"}},
		{"no match", []string{"--tags", "cobol"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var refs []types.EntityRef
			runJSON(t, &refs, append([]string{"find", "taggable_model"}, tt.args...)...)
			assert.Equal(t, tt.want, entityNames(refs))
		})
	}

	t.Run("sub-kind scope", func(t *testing.T) {
		var refs []types.EntityRef
		runJSON(t, &refs, "entity", "ls", "altered_inheriting_taggable_model")
		assert.Equal(t, []string{"Steve"}, entityNames(refs))
	})

	t.Run("unknown context is reported", func(t *testing.T) {
		_, _, err := runCLI(t, "find", "taggable_model", "--on", "hobbies", "--tags", "x")
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrUnknownContext))
	})

	t.Run("bad match mode", func(t *testing.T) {
		_, _, err := runCLI(t, "find", "taggable_model", "--tags", "x", "--match", "some")
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
	})
}

func TestCounts(t *testing.T) {
	setupCLI(t)
	bob := addEntity(t, "taggable_model", "Bob", "ruby, rails")
	frank := addEntity(t, "taggable_model", "Frank", "ruby, java")
	mustRun(t, "tag", "set", jsonID(bob), "skills", "pottery")

	countOf := func(rows []types.TagCount) map[string]int64 {
		m := map[string]int64{}
		for _, r := range rows {
			m[r.Type+"/"+r.Value] = r.Count
		}
		return m
	}

	var rows []types.TagCount
	runJSON(t, &rows, "counts", "taggable_model", "--order", "count")
	require.NotEmpty(t, rows)
	assert.Equal(t, "ruby", rows[0].Value)
	assert.Equal(t, map[string]int64{"tag/ruby": 2, "tag/rails": 1, "tag/java": 1, "skill/pottery": 1}, countOf(rows))

	runJSON(t, &rows, "counts", "taggable_model", "--on", "tags", "--only", "current", "--at-least", "2")
	assert.Equal(t, map[string]int64{"tag/ruby": 2}, countOf(rows))

	runJSON(t, &rows, "counts", "taggable_model", "--on", "skills")
	assert.Equal(t, map[string]int64{"skill/pottery": 1}, countOf(rows))

	runJSON(t, &rows, "counts", "taggable_model", "--on", "tags", "--only", "current", "--tags", "java")
	assert.Equal(t, map[string]int64{"tag/ruby": 1, "tag/java": 1}, countOf(rows))

	runJSON(t, &rows, "counts", "taggable_model", "--entity", jsonID(frank))
	assert.Equal(t, map[string]int64{"tag/ruby": 2, "tag/java": 1}, countOf(rows))

	_, _, err := runCLI(t, "counts", "taggable_model", "--order", "size")
	assert.Error(t, err)
}

func TestWriteErrors(t *testing.T) {
	setupCLI(t)
	bob := addEntity(t, "taggable_model", "Bob", "")

	_, _, err := runCLI(t, "tag", "set", jsonID(bob), "hobbies", "chess")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrUnknownContext))

	_, _, err = runCLI(t, "entity", "add", "spaceship", "Enterprise")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))

	_, _, err = runCLI(t, "tag", "show", "999")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	_, _, err = runCLI(t, "tag", "show", "abc")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))

	// Reads of an unknown context are empty, not errors
	var shown showResult
	runJSON(t, &shown, "tag", "show", jsonID(bob), "hobbies")
	assert.Equal(t, []string{}, shown.Tags["hobbies"])
}

func TestEntityRemoveAndPrune(t *testing.T) {
	setupCLI(t)
	bob := addEntity(t, "taggable_model", "Bob", "ruby, rails")
	addEntity(t, "taggable_model", "Frank", "ruby")

	mustRun(t, "entity", "rm", jsonID(bob))

	var stats types.Stats
	runJSON(t, &stats, "db", "stats")
	assert.Equal(t, int64(1), stats.Entities)
	assert.Equal(t, int64(1), stats.Taggings)
	assert.Equal(t, int64(1), stats.UnusedTags)

	var pruned map[string]int64
	runJSON(t, &pruned, "db", "prune")
	assert.Equal(t, int64(1), pruned["pruned"])

	runJSON(t, &stats, "db", "stats")
	assert.Equal(t, int64(1), stats.Tags)

	var versions []string
	runJSON(t, &versions, "db", "migrate")
	assert.NotEmpty(t, versions)
}

func TestTypes(t *testing.T) {
	setupCLI(t)

	out := mustRun(t, "types")
	for _, want := range []string{"Tag types:", "skill", "craft", "Kinds:", "crafts → craft", "parts → part"} {
		assert.Contains(t, out, want)
	}

	var tree struct {
		Types typeNode   `json:"types"`
		Kinds []kindNode `json:"kinds"`
	}
	runJSON(t, &tree, "types")
	assert.Equal(t, "tag", tree.Types.Name)
	require.Len(t, tree.Kinds, 2)
	assert.Equal(t, "taggable_model", tree.Kinds[0].Name)
	assert.Equal(t, "craft", tree.Kinds[0].Contexts["crafts"])
	require.Len(t, tree.Kinds[0].Children, 1)
	assert.Equal(t, "part", tree.Kinds[0].Children[0].Contexts["parts"])
}

func TestAmCommands(t *testing.T) {
	dir := setupCLI(t)

	mustRun(t, "am", "set", "tagging.delimiter", ";")
	assert.FileExists(t, filepath.Join(dir, am.ConfigFileName))

	var cfg am.Config
	runJSON(t, &cfg, "am", "show")
	assert.Equal(t, ";", cfg.Tagging.Delimiter)

	// The new delimiter is used for parsing
	bob := addEntity(t, "taggable_model", "Bob", "ruby; rails")
	var shown showResult
	runJSON(t, &shown, "tag", "show", jsonID(bob), "tags")
	assert.Equal(t, []string{"ruby", "rails"}, shown.Tags["tags"])

	out := mustRun(t, "am", "where")
	assert.Contains(t, out, "tagging.delimiter")
	assert.Contains(t, out, "project")
	assert.Contains(t, out, "TAGTICAL_DATABASE_PATH")

	_, _, err := runCLI(t, "am", "set", "tagging.sync_max_attempts", "0")
	assert.Error(t, err)

	t.Run("invalid configuration blocks the database", func(t *testing.T) {
		t.Setenv("TAGTICAL_TAGGING_SYNC_MAX_ATTEMPTS", "0")
		am.Reset()
		_, _, err := runCLI(t, "db", "stats")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid configuration")

		// but configuration commands still work
		_, stderr, err := runCLI(t, "am", "show")
		require.NoError(t, err)
		assert.Contains(t, stderr, "sync_max_attempts")
	})
}

func TestMetricsFlag(t *testing.T) {
	setupCLI(t)

	_, stderr, err := runCLI(t, "entity", "add", "taggable_model", "Bob", "--tags", "ruby, rails", "--metrics")
	require.NoError(t, err)
	assert.Contains(t, stderr, "tagtical_tagging_taggings_created_total")
	assert.Contains(t, stderr, "tagtical_tagging_tags_created_total")
}

func TestVersion(t *testing.T) {
	var info version.Info
	runJSON(t, &info, "version")
	assert.Equal(t, version.Get(), info)
}

func jsonID(ref types.EntityRef) string {
	b, _ := json.Marshal(ref.ID)
	return string(b)
}
