// Package display renders command results either as pterm tables and trees
// for people or as JSON for scripts.
package display

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// OutputEnv forces JSON output when set to "json", for scripts that cannot pass flags.
const OutputEnv = "TAGTICAL_OUTPUT"

// ShouldOutputJSON determines if a command should output JSON based on flags and environment
func ShouldOutputJSON(cmd *cobra.Command) bool {
	if cmd == nil {
		return envWantsJSON()
	}

	// An explicit --json / --json=false wins over the environment
	if f := cmd.Flags().Lookup("json"); f != nil && f.Changed {
		on, _ := cmd.Flags().GetBool("json")
		return on
	}

	return envWantsJSON()
}

func envWantsJSON() bool {
	return strings.EqualFold(os.Getenv(OutputEnv), "json")
}
