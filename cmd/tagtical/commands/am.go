package commands

import (
	"encoding/json"
	"fmt"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/teranos/tagtical/am"
	"github.com/teranos/tagtical/display"
	"github.com/teranos/tagtical/errors"
	"github.com/teranos/tagtical/sym"
)

func (a *app) amCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "am",
		Short: sym.Short("am"),
		Long: sym.AM + ` am - Show and edit configuration ("I am")

Configuration sources (later overrides earlier):
1. Default values
2. System config (` + am.SystemConfig + `)
3. User config (~/` + am.UserConfigDir + `/` + am.ConfigFileName + `)
4. Project config (` + am.ConfigFileName + `, searched upward from the working directory)
5. Environment variables (` + am.EnvPrefix + `_* prefix, e.g. ` + am.EnvName("tagging.delimiter") + `)

Examples:
  tagtical am show                     # Show effective configuration
  tagtical am show --format json       # ... as JSON
  tagtical am where                    # Show which source set each key
  tagtical am set tagging.delimiter ";"
  tagtical am set log.level debug --user`,
	}

	var format string
	show := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.wantJSON(cmd) {
				format = "json"
			}
			w := cmd.OutOrStdout()
			switch format {
			case "json":
				data, err := json.MarshalIndent(a.cfg, "", "  ")
				if err != nil {
					return errors.Wrap(err, "failed to marshal config to JSON")
				}
				fmt.Fprintln(w, string(data))
			case "yaml":
				data, err := yaml.Marshal(a.cfg)
				if err != nil {
					return errors.Wrap(err, "failed to marshal config to YAML")
				}
				fmt.Fprintf(w, "# tagtical configuration\n%s", data)
			case "toml":
				data, err := toml.Marshal(a.cfg)
				if err != nil {
					return errors.Wrap(err, "failed to marshal config to TOML")
				}
				fmt.Fprintf(w, "# tagtical configuration\n%s", data)
			default:
				return errors.Newf("unsupported format: %s (supported: toml, json, yaml)", format)
			}

			if err := a.cfg.Validate(); err != nil {
				display.Warn(cmd.ErrOrStderr(), "configuration is invalid: %v", err)
			}
			return nil
		},
	}
	show.Flags().StringVar(&format, "format", "toml", "Output format: toml, json, yaml")

	var file string
	var user bool
	set := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set one key in a config file",
		Long: `Set one key in a config file, keeping the rest of the file.

The file is --file, or ~/` + am.UserConfigDir + `/` + am.ConfigFileName + ` with --user, or else the
nearest project ` + am.ConfigFileName + ` (created in the working directory when
there is none). The previous version is kept as .back1 (up to .back3).`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := file
			switch {
			case target != "":
			case user:
				if target = am.UserConfigPath(); target == "" {
					return errors.New("could not determine home directory")
				}
			default:
				if target = am.FindProjectConfig(); target == "" {
					target = am.ConfigFileName
				}
			}

			if err := am.Set(target, args[0], args[1]); err != nil {
				return err
			}
			am.Reset()
			display.Success(cmd.OutOrStdout(), "%s = %s in %s", args[0], args[1], target)
			return nil
		},
	}
	set.Flags().StringVar(&file, "file", "", "Config file to edit")
	set.Flags().BoolVar(&user, "user", false, "Edit the user config file")

	where := &cobra.Command{
		Use:   "where",
		Short: "Show which source set each configuration key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			intro, err := am.GetConfigIntrospection()
			if err != nil {
				return errors.Wrap(err, "failed to get config introspection")
			}
			if a.wantJSON(cmd) {
				return display.OutputJSON(cmd.OutOrStdout(), intro)
			}

			rows := make([][]string, 0, len(intro.Settings))
			for _, s := range intro.Settings {
				value := fmt.Sprintf("%v", s.Value)
				if len(value) > 50 {
					value = value[:47] + "..."
				}
				rows = append(rows, []string{s.Key, value, string(s.Source), s.SourcePath})
			}
			return display.Table(cmd.OutOrStdout(), []string{"KEY", "VALUE", "SOURCE", "FROM"}, rows)
		},
	}

	cmd.AddCommand(show, set, where)
	return cmd
}
