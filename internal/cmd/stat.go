package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/3leaps/blobtree/internal/source"
	"github.com/3leaps/blobtree/pkg/blob"
	"github.com/3leaps/blobtree/pkg/output"
)

func newStatCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "stat <uri>",
		Short: "Show one file with its metadata",
		Example: `  blobtree stat s3://bucket/reports/q1.csv
  blobtree stat file:///etc/hosts --output yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := output.ParseFormat(format)
			if err != nil {
				return exitError(ExitInvalidArgument, "Invalid output format", err)
			}
			u, err := source.ParseURI(args[0])
			if err != nil {
				return exitError(ExitInvalidArgument, "Invalid URI", err)
			}
			if u.IsPattern() {
				return exitError(ExitInvalidArgument, "stat takes a single path", fmt.Errorf("got pattern %q; use ls", u.Pattern))
			}

			ctx, cancel := a.withTimeout(cmd.Context(), 0)
			defer cancel()

			target, err := a.open(ctx, u)
			if err != nil {
				return failed("Failed to open storage", err)
			}
			entry, err := target.Browser.Stat(ctx, u.Path())
			if err != nil {
				return failed("Stat failed", err)
			}

			entries := []*blob.Blob{entry}
			switch f {
			case output.FormatTable:
				return output.WriteTable(cmd.OutOrStdout(), entries)
			case output.FormatYAML:
				return output.WriteYAML(cmd.OutOrStdout(), entries)
			}
			w := output.NewJSONLWriter(cmd.OutOrStdout(), "", string(target.Provider))
			defer func() { _ = w.Close() }()
			return output.WriteBlobs(ctx, w, entries)
		},
	}
	cmd.Flags().StringVarP(&format, "output", "o", "jsonl", "Output format (jsonl|table|yaml)")
	return cmd
}
