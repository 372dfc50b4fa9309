package commands

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/teranos/tagtical/errors"
	"github.com/teranos/tagtical/sym"
	"github.com/teranos/tagtical/taglist"
	"github.com/teranos/tagtical/tagging"
	"github.com/teranos/tagtical/tagging/types"
	"github.com/teranos/tagtical/taxonomy"
)

// clauseFlags are the flags describing one filter clause.
type clauseFlags struct {
	on       string
	typ      string
	tags     string
	match    string
	exclude  bool
	only     string
	by       int64
	untagged bool
}

func (f *clauseFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.on, "on", "", "Context or tag type to match on (default: every tag)")
	cmd.Flags().StringVar(&f.typ, "type", "", "Restrict to an explicit tag type on the same branch as --on")
	cmd.Flags().StringVar(&f.tags, "tags", "", "Tag string to match")
	cmd.Flags().StringVar(&f.match, "match", "all", "How values combine: all, any or exact")
	cmd.Flags().BoolVar(&f.exclude, "exclude", false, "Keep entities holding none of the values")
	cmd.Flags().StringVar(&f.only, "only", "descendants", "Hierarchy around the type: descendants, current or ancestors")
	cmd.Flags().Int64Var(&f.by, "by", 0, "Only match taggings applied by this tagger")
	cmd.Flags().BoolVar(&f.untagged, "untagged", false, "Only match taggings no tagger applied")
}

func (f *clauseFlags) clause() (tagging.Clause, error) {
	c := tagging.Clause{
		On:      f.on,
		Type:    f.typ,
		Values:  taglist.FromString(f.tags),
		Exclude: f.exclude,
	}
	switch {
	case f.by != 0 && f.untagged:
		return c, errors.NewInvalidRequestError("--by and --untagged cannot be combined")
	case f.by != 0:
		by := f.by
		c.Tagger = &by
	case f.untagged:
		none := types.NoTagger
		c.Tagger = &none
	}

	m, err := parseMatch(f.match)
	if err != nil {
		return c, err
	}
	c.Match = m

	if c.Only, err = taxonomy.ParseExpansion(f.only); err != nil {
		return c, err
	}
	return c, nil
}

func parseMatch(s string) (tagging.Match, error) {
	switch strings.ToLower(s) {
	case "", "all":
		return tagging.MatchAll, nil
	case "any":
		return tagging.MatchAny, nil
	case "exact":
		return tagging.MatchExact, nil
	}
	return tagging.MatchAll, errors.NewInvalidRequestError("unknown match mode %q (all, any, exact)", s)
}

func (a *app) findCmd() *cobra.Command {
	var (
		flags   clauseFlags
		without string
		orderBy string
	)

	cmd := &cobra.Command{
		Use:   "find <kind>",
		Short: sym.Short("find"),
		Long: sym.Find + ` find - Filter entities by their tags

The flags describe one clause. --without adds a second clause on the same
target that excludes its values. Without --tags every entity of the kind is a
candidate. Matching is case-insensitive; a clause on a type also matches its
sub-types unless --only says otherwise.

Examples:
  tagtical find item --tags "ruby, rails"
  tagtical find item --on skills --tags "pottery, juggling" --match any
  tagtical find item --on skills --tags pottery --only current
  tagtical find item --on tags --tags ruby --without java
  tagtical find item --on tags --tags "ruby, rails" --match exact
  tagtical find item --tags ruby --untagged`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			clause, err := flags.clause()
			if err != nil {
				return err
			}
			order, err := parseEntityOrder(orderBy)
			if err != nil {
				return err
			}

			rt, err := a.open()
			if err != nil {
				return err
			}
			defer rt.Close()

			scope := rt.svc.Scope(args[0]).OrderBy(order)
			if flags.tags != "" {
				scope = scope.FilteredBy(clause)
			}
			if without != "" {
				scope = scope.FilteredBy(tagging.Clause{
					On:      clause.On,
					Type:    clause.Type,
					Values:  taglist.FromString(without),
					Exclude: true,
					Only:    clause.Only,
					Tagger:  clause.Tagger,
				})
			}

			// Surface resolution errors here; the query itself would just return nothing
			if err := scope.Validate(); err != nil {
				return err
			}

			refs, err := scope.Entities(cmd.Context())
			if err != nil {
				return err
			}
			return a.printEntities(cmd, refs)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&without, "without", "", "Tag string to exclude on the same target")
	cmd.Flags().StringVar(&orderBy, "order", "id", "Result order: id or name")
	return cmd
}

func parseEntityOrder(s string) (types.EntityOrder, error) {
	switch types.EntityOrder(strings.ToLower(s)) {
	case "", types.OrderByID:
		return types.OrderByID, nil
	case types.OrderByName:
		return types.OrderByName, nil
	}
	return types.OrderByID, errors.NewInvalidRequestError("unknown order %q (id, name)", s)
}
