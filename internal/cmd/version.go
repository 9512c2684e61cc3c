package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		// Runs without configuration.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			deps := crucible.GetVersion()
			if asJSON {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]string{
					"version":    versionInfo.Version,
					"commit":     versionInfo.Commit,
					"build_date": versionInfo.BuildDate,
					"gofulmen":   deps.Gofulmen,
					"crucible":   deps.Crucible,
				})
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "blobtree %s (commit %s, built %s)\n",
				versionInfo.Version, versionInfo.Commit, versionInfo.BuildDate)
			return err
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}
