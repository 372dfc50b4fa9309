package commands

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/teranos/tagtical/db"
	"github.com/teranos/tagtical/display"
	"github.com/teranos/tagtical/sym"
)

func (a *app) dbCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: sym.Short("db"),
		Long: sym.DB + ` db - Database migrations and maintenance

Every command migrates the database on open; "migrate" does only that and
lists the applied versions. "prune" deletes tags that no tagging references,
which never happens implicitly.

Examples:
  tagtical db migrate
  tagtical db stats
  tagtical db prune`,
	}

	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending migrations and list applied versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.open()
			if err != nil {
				return err
			}
			defer rt.Close()

			versions, err := db.AppliedVersions(rt.db)
			if err != nil {
				return err
			}
			if a.wantJSON(cmd) {
				return display.OutputJSON(cmd.OutOrStdout(), versions)
			}
			display.Success(cmd.OutOrStdout(), "%s is at schema version %s (%d migrations)",
				a.cfg.GetDatabasePath(), versions[len(versions)-1], len(versions))
			return nil
		},
	}

	prune := &cobra.Command{
		Use:   "prune",
		Short: "Delete tags no tagging references",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.open()
			if err != nil {
				return err
			}
			defer rt.Close()

			n, err := rt.svc.PruneUnusedTags(cmd.Context())
			if err != nil {
				return err
			}
			if a.wantJSON(cmd) {
				return display.OutputJSON(cmd.OutOrStdout(), map[string]int64{"pruned": n})
			}
			display.Success(cmd.OutOrStdout(), "Pruned %d unused tag(s)", n)
			return nil
		},
	}

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Show row counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.open()
			if err != nil {
				return err
			}
			defer rt.Close()

			s, err := rt.svc.Stats(cmd.Context())
			if err != nil {
				return err
			}
			if a.wantJSON(cmd) {
				return display.OutputJSON(cmd.OutOrStdout(), s)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s Database Statistics (%s)\n", sym.DB, a.cfg.GetDatabasePath())
			if err := display.Table(w, []string{"TABLE", "ROWS"}, [][]string{
				{"entities", strconv.FormatInt(s.Entities, 10)},
				{"tags", strconv.FormatInt(s.Tags, 10)},
				{"taggings", strconv.FormatInt(s.Taggings, 10)},
				{"unused tags", strconv.FormatInt(s.UnusedTags, 10)},
			}); err != nil {
				return err
			}

			byType := make([]string, 0, len(s.TagsByType))
			for t := range s.TagsByType {
				byType = append(byType, t)
			}
			sort.Strings(byType)
			rows := make([][]string, 0, len(byType))
			for _, t := range byType {
				rows = append(rows, []string{t, strconv.FormatInt(s.TagsByType[t], 10)})
			}
			fmt.Fprintln(w, "Tags by type:")
			return display.Table(w, []string{"TYPE", "TAGS"}, rows)
		},
	}

	cmd.AddCommand(migrate, prune, stats)
	return cmd
}
