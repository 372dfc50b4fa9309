// Package commands implements the tagtical command line.
package commands

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/teranos/tagtical/am"
	"github.com/teranos/tagtical/display"
	"github.com/teranos/tagtical/errors"
	"github.com/teranos/tagtical/logger"
	"github.com/teranos/tagtical/sym"
	"github.com/teranos/tagtical/tagging"
)

// app carries what the flags and the configuration resolve to for one run.
type app struct {
	configPath string
	verbosity  int
	metrics    bool

	cfg      *am.Config
	registry *prometheus.Registry
	tagging  *tagging.Metrics
}

// NewRootCmd builds the tagtical command tree. Every call returns fresh
// commands and flags.
func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "tagtical",
		Short: "Tag entities in typed contexts and query them",
		Long: `tagtical - hierarchical tagging over SQLite.

Entities carry tag lists in named contexts; each context is bound to a tag
type in a hierarchy, so a "skills" list sees the "crafts" below it and a
filter on a type can include its sub-types.

Commands:
` + commandIndex() + `
Examples:
  tagtical entity add item "Bob" --tags "ruby, rails"
  tagtical tag show 1
  tagtical find item --on tags --tags "ruby, go" --match any
  tagtical counts item --order count --limit 10
  tagtical am set tagging.delimiter ";"`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.metrics && a.registry != nil {
				return a.printMetrics(cmd.ErrOrStderr())
			}
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "Read configuration from this file only (default: layered tagtical.toml lookup)")
	flags.CountVarP(&a.verbosity, "verbose", "v", "Increase output verbosity (-v, -vv)")
	flags.Bool("json", false, "Output JSON instead of tables (or set "+display.OutputEnv+"=json)")
	flags.BoolVar(&a.metrics, "metrics", false, "Print tagging counters to stderr after the command")

	root.AddCommand(
		a.entityCmd(),
		a.tagCmd(),
		a.findCmd(),
		a.countsCmd(),
		a.typesCmd(),
		a.dbCmd(),
		a.amCmd(),
		versionCmd(),
	)
	return root
}

func commandIndex() string {
	var b strings.Builder
	for _, c := range sym.Commands() {
		fmt.Fprintf(&b, "  %s %-7s - %s\n", sym.CommandToSymbol[c], c, sym.CommandDescriptions[c])
	}
	return b.String()
}

// setup loads configuration and initializes the global logger before any command runs
func (a *app) setup(cmd *cobra.Command, args []string) error {
	var err error
	if a.configPath != "" {
		a.cfg, err = am.LoadFromFile(a.configPath)
	} else {
		a.cfg, err = am.Load()
	}
	if err != nil {
		return errors.Wrap(err, "failed to load configuration")
	}

	level := logger.LevelForVerbosity(a.cfg.Log.Level, a.verbosity)
	if err := logger.Initialize(a.cfg.Log.JSON, level); err != nil {
		// An invalid level must not lock the user out of "am set log.level"
		if err := logger.Initialize(a.cfg.Log.JSON, am.DefaultLogLevel); err != nil {
			return errors.Wrap(err, "failed to initialize logger")
		}
		logger.Logger.Warnw("Invalid log level in configuration, using default", "level", a.cfg.Log.Level)
	}

	a.registry = prometheus.NewRegistry()
	a.tagging = tagging.NewMetrics(a.registry)
	return nil
}

// wantJSON reports whether cmd should print JSON.
func (a *app) wantJSON(cmd *cobra.Command) bool {
	return display.ShouldOutputJSON(cmd)
}

// printMetrics writes the non-zero tagging counters.
func (a *app) printMetrics(w io.Writer) error {
	families, err := a.registry.Gather()
	if err != nil {
		return errors.Wrap(err, "failed to gather metrics")
	}

	var rows [][]string
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			v := m.GetCounter().GetValue()
			if v == 0 {
				continue
			}
			name := mf.GetName()
			for _, lp := range m.GetLabel() {
				name += fmt.Sprintf("{%s=%q}", lp.GetName(), lp.GetValue())
			}
			rows = append(rows, []string{name, fmt.Sprintf("%g", v)})
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i][0] < rows[j][0] })
	return display.Table(w, []string{"COUNTER", "VALUE"}, rows)
}
