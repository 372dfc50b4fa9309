package commands

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/teranos/tagtical/display"
	"github.com/teranos/tagtical/errors"
	"github.com/teranos/tagtical/sym"
	"github.com/teranos/tagtical/tagging"
	"github.com/teranos/tagtical/tagging/types"
	"github.com/teranos/tagtical/taxonomy"
)

func (a *app) countsCmd() *cobra.Command {
	var (
		on      string
		only    string
		order   string
		limit   int
		atLeast int64
		atMost  int64
		all     bool
		entity  string
		filter  clauseFlags
	)

	cmd := &cobra.Command{
		Use:   "counts <kind>",
		Short: sym.Short("counts"),
		Long: sym.Count + ` counts - Count tags across the entities of a kind

Each row is a concrete tag and the number of distinct entities holding it.
--tags and the other filter flags narrow the counted entities first.
--entity counts, across the kind, only the tags that entity holds on --on.

Examples:
  tagtical counts item
  tagtical counts item --on skills --order count --limit 5
  tagtical counts item --on crafts --only ancestors --order value
  tagtical counts item --all --at-least 2
  tagtical counts item --on tags --entity 3
  tagtical counts item --on skills --filter-on tags --tags rails`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := tagging.CountOptions{On: on, Limit: limit, AtLeast: atLeast, AtMost: atMost}
			var err error
			if opts.Only, err = taxonomy.ParseExpansion(only); err != nil {
				return err
			}
			if opts.Order, err = parseCountOrder(order); err != nil {
				return err
			}
			if all && entity != "" {
				return errors.NewInvalidRequestError("--all and --entity cannot be combined")
			}

			rt, err := a.open()
			if err != nil {
				return err
			}
			defer rt.Close()
			ctx := cmd.Context()

			var counts []types.TagCount
			scope := rt.svc.Scope(args[0])
			if filter.tags != "" {
				clause, err := filter.clause()
				if err != nil {
					return err
				}
				scope = scope.FilteredBy(clause)
				if err := scope.Validate(); err != nil {
					return err
				}
			}

			switch {
			case entity != "":
				tg, err := rt.entity(ctx, entity)
				if err != nil {
					return err
				}
				if on == "" {
					on = tagging.DefaultContext
				}
				counts, err = tg.TagCountsOn(ctx, on, opts)
				if err != nil {
					return err
				}
			case all:
				counts, err = scope.AllTagCounts(ctx, opts)
			default:
				counts, err = scope.TagCounts(ctx, opts)
			}
			if err != nil {
				return err
			}
			return a.printCounts(cmd, counts)
		},
	}

	cmd.Flags().StringVar(&on, "on", "", "Context or tag type whose tags are counted (default: root type)")
	cmd.Flags().StringVar(&only, "only", "descendants", "Hierarchy around the type: descendants, current or ancestors")
	cmd.Flags().StringVar(&order, "order", "id", "Row order: id, count or value")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of rows (0 = no limit)")
	cmd.Flags().Int64Var(&atLeast, "at-least", 0, "Only tags held by at least this many entities")
	cmd.Flags().Int64Var(&atMost, "at-most", 0, "Only tags held by at most this many entities")
	cmd.Flags().BoolVar(&all, "all", false, "Count every tag of every type")
	cmd.Flags().StringVar(&entity, "entity", "", "Count only the tags this entity holds on --on")

	// Candidate filter, prefixed to keep it apart from the count target
	cmd.Flags().StringVar(&filter.on, "filter-on", "", "Context or tag type the candidate filter matches on")
	cmd.Flags().StringVar(&filter.tags, "tags", "", "Only count over entities matching this tag string")
	cmd.Flags().StringVar(&filter.match, "match", "all", "How --tags values combine: all, any or exact")
	cmd.Flags().BoolVar(&filter.exclude, "exclude", false, "Count over entities holding none of --tags")
	return cmd
}

func parseCountOrder(s string) (types.CountOrder, error) {
	switch types.CountOrder(strings.ToLower(s)) {
	case "", types.CountByTagID:
		return types.CountByTagID, nil
	case types.CountByCount:
		return types.CountByCount, nil
	case types.CountByValue:
		return types.CountByValue, nil
	}
	return types.CountByTagID, errors.NewInvalidRequestError("unknown count order %q (id, count, value)", s)
}

func (a *app) printCounts(cmd *cobra.Command, counts []types.TagCount) error {
	if a.wantJSON(cmd) {
		if counts == nil {
			counts = []types.TagCount{}
		}
		return display.OutputJSON(cmd.OutOrStdout(), counts)
	}
	rows := make([][]string, 0, len(counts))
	for _, c := range counts {
		rows = append(rows, []string{c.Type, c.Value, strconv.FormatInt(c.Count, 10)})
	}
	return display.Table(cmd.OutOrStdout(), []string{"TYPE", "VALUE", "COUNT"}, rows)
}
