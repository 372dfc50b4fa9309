package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/teranos/tagtical/display"
	"github.com/teranos/tagtical/sym"
	"github.com/teranos/tagtical/taglist"
	"github.com/teranos/tagtical/tagging/types"
)

func (a *app) entityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "entity",
		Short: sym.Short("entity"),
		Long: sym.Entity + ` entity - Create and delete taggable entities

An entity has a kind declared in the taxonomy; its kind decides which
contexts it can carry tags in.

Examples:
  tagtical entity add item "Bob"
  tagtical entity add item "Bob" --tags "ruby, rails" --context tags
  tagtical entity ls item
  tagtical entity rm 3`,
	}

	var tags, tagContext string
	add := &cobra.Command{
		Use:   "add <kind> <name>",
		Short: "Create an entity, optionally with an initial tag list",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.open()
			if err != nil {
				return err
			}
			defer rt.Close()

			ctx := cmd.Context()
			tg, err := rt.svc.CreateEntity(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			if tags != "" {
				if err := tg.SetTagList(tagContext, taglist.FromString(tags)); err != nil {
					return err
				}
				if err := tg.SaveTags(ctx); err != nil {
					return reportSyncError(cmd, err)
				}
			}

			ref := tg.Ref()
			if a.wantJSON(cmd) {
				return display.OutputJSON(cmd.OutOrStdout(), ref)
			}
			display.Success(cmd.OutOrStdout(), "Created %s %q with id %d", ref.Kind, ref.Name, ref.ID)
			return nil
		},
	}
	add.Flags().StringVar(&tags, "tags", "", "Initial tag string")
	add.Flags().StringVar(&tagContext, "context", "tags", "Context the initial tags go to")

	rm := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete an entity and its taggings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			rt, err := a.open()
			if err != nil {
				return err
			}
			defer rt.Close()

			if err := rt.svc.DeleteEntity(cmd.Context(), id); err != nil {
				return err
			}
			display.Success(cmd.OutOrStdout(), "Deleted entity %d", id)
			return nil
		},
	}

	ls := &cobra.Command{
		Use:   "ls <kind>",
		Short: "List the entities of a kind and its sub-kinds",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.open()
			if err != nil {
				return err
			}
			defer rt.Close()

			refs, err := rt.svc.Scope(args[0]).Entities(cmd.Context())
			if err != nil {
				return err
			}
			return a.printEntities(cmd, refs)
		},
	}

	cmd.AddCommand(add, rm, ls)
	return cmd
}

func (a *app) printEntities(cmd *cobra.Command, refs []types.EntityRef) error {
	if a.wantJSON(cmd) {
		if refs == nil {
			refs = []types.EntityRef{}
		}
		return display.OutputJSON(cmd.OutOrStdout(), refs)
	}
	rows := make([][]string, 0, len(refs))
	for _, r := range refs {
		rows = append(rows, []string{strconv.FormatInt(r.ID, 10), r.Kind, r.Name})
	}
	if err := display.Table(cmd.OutOrStdout(), []string{"ID", "KIND", "NAME"}, rows); err != nil {
		return err
	}
	if len(refs) > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "%d entities\n", len(refs))
	}
	return nil
}
