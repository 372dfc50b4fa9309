package commands

import (
	"context"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/teranos/tagtical/display"
	"github.com/teranos/tagtical/errors"
	"github.com/teranos/tagtical/sym"
	"github.com/teranos/tagtical/taglist"
	"github.com/teranos/tagtical/tagging"
	"github.com/teranos/tagtical/tagging/types"
)

func (a *app) tagCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tag",
		Short: sym.Short("tag"),
		Long: sym.Tag + ` tag - Read and write the tag lists of one entity

"set" replaces a context's list, "add" extends it and "rm" removes values.
With --by the write is attributed to a tagger entity and only touches the
taggings that tagger applied.

Examples:
  tagtical tag set 1 skills "pottery, juggling"
  tagtical tag add 1 tags "go" --by 7
  tagtical tag show 1
  tagtical tag show 1 skills --by 7
  tagtical tag rm 1 tags ruby
  tagtical tag applied 7 tags`,
	}

	var setBy int64
	set := &cobra.Command{
		Use:   "set <id> <context> <tags>",
		Short: "Replace the tag list of a context",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.writeTags(cmd, args, setBy, true)
		},
	}
	set.Flags().Int64Var(&setBy, "by", 0, "Tagger entity id the tags are applied by")

	var addBy int64
	add := &cobra.Command{
		Use:   "add <id> <context> <tags>",
		Short: "Add tags to a context, keeping the existing ones",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.writeTags(cmd, args, addBy, false)
		},
	}
	add.Flags().Int64Var(&addBy, "by", 0, "Tagger entity id the tags are applied by")

	var rmBy int64
	rm := &cobra.Command{
		Use:   "rm <id> <context> <value>...",
		Short: "Remove values from a context",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.open()
			if err != nil {
				return err
			}
			defer rt.Close()

			ctx := cmd.Context()
			tg, err := rt.entity(ctx, args[0])
			if err != nil {
				return err
			}

			var removed int
			if rmBy != 0 {
				tagger, err := rt.svc.Entity(ctx, rmBy)
				if err != nil {
					return errors.Wrap(err, "tagger")
				}
				removed, err = rt.svc.Tagger(tagger.Ref()).Untag(ctx, tg.Ref(), args[1], args[2:]...)
				if err != nil {
					return err
				}
			} else if removed, err = tg.RemoveTags(ctx, args[1], args[2:]...); err != nil {
				return err
			}
			display.Success(cmd.OutOrStdout(), "Removed %d tagging(s) from %s", removed, args[1])
			return nil
		},
	}
	rm.Flags().Int64Var(&rmBy, "by", 0, "Only remove taggings applied by this tagger")

	var showBy int64
	var showAll bool
	show := &cobra.Command{
		Use:   "show <id> [context]",
		Short: "Show tag lists; all contexts of the entity when none is given",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.open()
			if err != nil {
				return err
			}
			defer rt.Close()

			ctx := cmd.Context()
			tg, err := rt.entity(ctx, args[0])
			if err != nil {
				return err
			}

			contexts := args[1:]
			if len(contexts) == 0 {
				for _, c := range rt.svc.Registry().Contexts(tg.Ref().Kind) {
					contexts = append(contexts, c.Name)
				}
			}

			lists := make(map[string][]string, len(contexts))
			rows := make([][]string, 0, len(contexts))
			for _, c := range contexts {
				values, err := readList(ctx, tg, c, showBy, showAll)
				if err != nil {
					return err
				}
				if values == nil {
					values = []string{}
				}
				lists[c] = values
				rows = append(rows, []string{c, strings.Join(values, ", ")})
			}

			if a.wantJSON(cmd) {
				return display.OutputJSON(cmd.OutOrStdout(), struct {
					Entity types.EntityRef      `json:"entity"`
					Tags   map[string][]string `json:"tags"`
				}{tg.Ref(), lists})
			}
			ref := tg.Ref()
			display.Success(cmd.OutOrStdout(), "%s %q (id %d)", ref.Kind, ref.Name, ref.ID)
			return display.Table(cmd.OutOrStdout(), []string{"CONTEXT", "TAGS"}, rows)
		},
	}
	show.Flags().Int64Var(&showBy, "by", 0, "Only show tags applied by this tagger")
	show.Flags().BoolVar(&showAll, "all", false, "Include tags applied by every tagger")

	applied := &cobra.Command{
		Use:   "applied <tagger-id> <context>",
		Short: "Show the distinct tags a tagger applied in a context",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.open()
			if err != nil {
				return err
			}
			defer rt.Close()

			ctx := cmd.Context()
			tagger, err := rt.entity(ctx, args[0])
			if err != nil {
				return err
			}
			tags, err := rt.svc.Tagger(tagger.Ref()).TagsAppliedBy(ctx, args[1])
			if err != nil {
				return err
			}
			return a.printTags(cmd, tags)
		},
	}

	cmd.AddCommand(set, add, rm, show, applied)
	return cmd
}

// writeTags replaces (or extends) the list of context args[1] on entity
// args[0]. With by set the list is the one that tagger owns.
func (a *app) writeTags(cmd *cobra.Command, args []string, by int64, replace bool) error {
	rt, err := a.open()
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx := cmd.Context()
	tg, err := rt.entity(ctx, args[0])
	if err != nil {
		return err
	}
	tagContext, input := args[1], taglist.FromString(args[2])

	if by != 0 {
		tagger, err := rt.svc.Entity(ctx, by)
		if err != nil {
			return errors.Wrap(err, "tagger")
		}
		if !replace {
			owned, err := tg.OwnerTagsOn(ctx, by, tagContext)
			if err != nil {
				return err
			}
			values := make([]string, 0, len(owned))
			for _, t := range owned {
				values = append(values, t.Value)
			}
			input = taglist.FromValues(append(values, rt.svc.Parser().Parse(args[2])...)...)
		}
		if err := rt.svc.Tagger(tagger.Ref()).Tag(ctx, tg.Ref(), input, tagContext); err != nil {
			return reportSyncError(cmd, err)
		}
	} else {
		if replace {
			err = tg.SetTagList(tagContext, input)
		} else {
			err = tg.AddTags(ctx, tagContext, input)
		}
		if err != nil {
			return err
		}
		if err := tg.SaveTags(ctx); err != nil {
			return reportSyncError(cmd, err)
		}
	}

	display.Success(cmd.OutOrStdout(), "Saved %s on entity %d", tagContext, tg.ID())
	return nil
}

func readList(ctx context.Context, tg *tagging.Taggable, c string, by int64, all bool) ([]string, error) {
	switch {
	case by != 0:
		tags, err := tg.OwnerTagsOn(ctx, by, c)
		if err != nil {
			return nil, err
		}
		values := make([]string, len(tags))
		for i, t := range tags {
			values[i] = t.Value
		}
		return values, nil
	case all:
		return tg.AllTagsListOn(ctx, c)
	default:
		return tg.TagList(ctx, c)
	}
}

func (a *app) printTags(cmd *cobra.Command, tags []types.Tag) error {
	if a.wantJSON(cmd) {
		if tags == nil {
			tags = []types.Tag{}
		}
		return display.OutputJSON(cmd.OutOrStdout(), tags)
	}
	rows := make([][]string, 0, len(tags))
	for _, t := range tags {
		rows = append(rows, []string{strconv.FormatInt(t.ID, 10), t.Type, t.Value})
	}
	return display.Table(cmd.OutOrStdout(), []string{"ID", "TYPE", "VALUE"}, rows)
}

// reportSyncError explains a partial synchronization before returning it.
func reportSyncError(cmd *cobra.Command, err error) error {
	var partial *errors.PartialSyncError
	if errors.As(err, &partial) {
		display.Warn(cmd.ErrOrStderr(), "%s %s: not applied: %s", sym.Partial, partial.Context, strings.Join(partial.Unapplied, ", "))
		if errors.IsRetryable(err) {
			return errors.WithHint(err, "the applied values were saved; run the command again to apply the rest")
		}
	}
	return err
}
