package tagging_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	qtest "github.com/teranos/tagtical/internal/testing"
	"github.com/teranos/tagtical/taglist"
	"github.com/teranos/tagtical/tagging"
	"github.com/teranos/tagtical/tagging/storage"
	"github.com/teranos/tagtical/tagging/storage/testutil"
	"github.com/teranos/tagtical/tagging/types"
)

// env is a service over a fresh in-memory database and the fixture taxonomy.
type env struct {
	ctx context.Context
	db  *sql.DB
	svc *tagging.Service
}

func newEnv(t *testing.T) *env {
	t.Helper()
	return newEnvWith(t, testutil.SetupTestDB(t), tagging.Options{})
}

func newEnvWith(t *testing.T, testDB *sql.DB, opts tagging.Options) *env {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = zaptest.NewLogger(t, zaptest.Level(zap.InfoLevel)).Sugar()
	}
	store := storage.NewSQLStore(testDB, opts.Logger)
	return &env{
		ctx: context.Background(),
		db:  testDB,
		svc: tagging.NewService(qtest.Taxonomy(t), store, opts),
	}
}

// create stores an entity of kind and saves the given context lists.
// lists alternates context names and raw tag strings.
func (e *env) create(t *testing.T, kind, name string, lists ...string) *tagging.Taggable {
	t.Helper()
	require.Zero(t, len(lists)%2, "lists must pair contexts with values")

	tg, err := e.svc.CreateEntity(e.ctx, kind, name)
	require.NoError(t, err)
	for i := 0; i < len(lists); i += 2 {
		require.NoError(t, tg.SetTagList(lists[i], taglist.FromString(lists[i+1])))
	}
	require.NoError(t, tg.SaveTags(e.ctx))
	return tg
}

func (e *env) model(t *testing.T, name string, lists ...string) *tagging.Taggable {
	t.Helper()
	return e.create(t, qtest.TaggableModel, name, lists...)
}

func (e *env) rows(t *testing.T, table string) int {
	t.Helper()
	return testutil.CountRows(t, e.db, table)
}

func names(refs []types.EntityRef) []string {
	out := []string{}
	for _, r := range refs {
		out = append(out, r.Name)
	}
	return out
}

// breakdown flattens counts to (type, value, count) triples.
type row struct {
	Type  string
	Value string
	Count int64
}

func breakdown(counts []types.TagCount) []row {
	out := []row{}
	for _, c := range counts {
		out = append(out, row{c.Type, c.Value, c.Count})
	}
	return out
}

func tagValues(tags []types.Tag) []string {
	out := []string{}
	for _, t := range tags {
		out = append(out, t.Value)
	}
	return out
}
