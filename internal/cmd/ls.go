package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/blobtree/internal/observability"
	"github.com/3leaps/blobtree/internal/source"
	"github.com/3leaps/blobtree/pkg/match"
	"github.com/3leaps/blobtree/pkg/output"
)

type lsOptions struct {
	recurse       bool
	prefix        string
	maxResults    int
	attributes    bool
	parallel      int
	includes      []string
	excludes      []string
	includeHidden bool
	minSize       string
	maxSize       string
	after         string
	before        string
	nameRegex     string
	output        string
	timeout       time.Duration
}

func newLsCmd(a *app) *cobra.Command {
	o := &lsOptions{}
	cmd := &cobra.Command{
		Use:   "ls <uri>",
		Short: "List a folder or a subtree",
		Long: `List the entries under a folder.

Without --recurse only the direct children are listed. A glob in the URI
selects files by pattern and lists as deep as the pattern reaches.

Examples:
  blobtree ls s3://bucket/data/
  blobtree ls s3://bucket/data/ --recurse --max-results 1000
  blobtree ls minio://bucket/logs/**/*.gz --min-size 1MiB --output table
  blobtree ls file:///var/log --prefix sys --attributes --output yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runLs(cmd, args[0], o)
		},
	}

	f := cmd.Flags()
	f.BoolVarP(&o.recurse, "recurse", "R", false, "List the whole subtree")
	f.StringVar(&o.prefix, "prefix", "", "Only files whose name starts with this")
	f.IntVarP(&o.maxResults, "max-results", "n", 0, "Stop after N entries (0=config default)")
	f.BoolVar(&o.attributes, "attributes", false, "Fetch per-file metadata (one extra call per file)")
	f.IntVar(&o.parallel, "parallel", 0, "Max concurrent backend calls (0=config default)")
	f.StringArrayVar(&o.includes, "include", nil, "Include glob pattern (repeatable)")
	f.StringArrayVar(&o.excludes, "exclude", nil, "Exclude glob pattern (repeatable)")
	f.BoolVar(&o.includeHidden, "include-hidden", false, "Keep entries with a dot-prefixed segment")
	f.StringVar(&o.minSize, "min-size", "", "Minimum file size (e.g. 1KB, 10MiB)")
	f.StringVar(&o.maxSize, "max-size", "", "Maximum file size")
	f.StringVar(&o.after, "after", "", "Modified on or after (2024-01-15 or RFC 3339)")
	f.StringVar(&o.before, "before", "", "Modified before")
	f.StringVar(&o.nameRegex, "name-regex", "", "Regular expression over the full path")
	f.StringVarP(&o.output, "output", "o", "jsonl", "Output format (jsonl|table|yaml)")
	f.DurationVar(&o.timeout, "timeout", 0, "Listing timeout (0=config default)")
	return cmd
}

// request builds the listing request, falling back to the config for unset
// values.
func (o *lsOptions) request(a *app) source.ListRequest {
	req := source.ListRequest{
		Recurse:     o.recurse,
		FilePrefix:  o.prefix,
		MaxResults:  o.maxResults,
		Attributes:  o.attributes,
		Parallelism: o.parallel,
		Selection: source.Selection{
			Includes:      o.includes,
			Excludes:      o.excludes,
			IncludeHidden: o.includeHidden,
		},
	}
	if req.MaxResults == 0 {
		req.MaxResults = a.cfg.Browse.MaxResults
	}
	if req.Parallelism == 0 {
		req.Parallelism = a.cfg.Browse.Parallelism
	}
	if o.minSize != "" || o.maxSize != "" {
		req.Selection.Filter.Size = &match.SizeFilterConfig{Min: o.minSize, Max: o.maxSize}
	}
	if o.after != "" || o.before != "" {
		req.Selection.Filter.Modified = &match.DateFilterConfig{After: o.after, Before: o.before}
	}
	req.Selection.Filter.PathRegex = o.nameRegex
	req.Selection = req.Selection.Merge(a.cfg.Filter)
	return req
}

func (a *app) runLs(cmd *cobra.Command, rawURI string, o *lsOptions) error {
	format, err := output.ParseFormat(o.output)
	if err != nil {
		return exitError(ExitInvalidArgument, "Invalid output format", err)
	}
	u, err := source.ParseURI(rawURI)
	if err != nil {
		return exitError(ExitInvalidArgument, "Invalid URI", err)
	}
	opts, err := o.request(a).Options(u)
	if err != nil {
		return exitError(ExitInvalidArgument, "Invalid selection", err)
	}

	ctx, cancel := a.withTimeout(cmd.Context(), o.timeout)
	defer cancel()

	logger := observability.CLILogger.With(zap.String("uri", u.String()))

	target, err := a.open(ctx, u)
	if err != nil {
		return failed("Failed to open storage", err)
	}

	start := time.Now()
	entries, err := target.Browser.List(ctx, opts)
	if err != nil {
		logger.Error("Listing failed", zap.Error(err))
		if format == output.FormatJSONL {
			w := output.NewJSONLWriter(cmd.OutOrStdout(), "", string(target.Provider))
			_ = w.WriteError(context.WithoutCancel(ctx), errorRecord(opts.Folder(), err))
			_ = w.Close()
		}
		return failed("Listing failed", err)
	}
	summary := output.Summarize(opts.Folder(), entries, opts.MaxResults, time.Since(start))

	logger.Debug("Listing finished",
		zap.Int64("files", summary.Files),
		zap.Int64("folders", summary.Folders),
		zap.Bool("truncated", summary.Truncated),
		zap.Duration("duration", summary.Duration))

	switch format {
	case output.FormatTable:
		err = output.WriteTable(cmd.OutOrStdout(), entries)
	case output.FormatYAML:
		err = output.WriteYAML(cmd.OutOrStdout(), entries)
	default:
		w := output.NewJSONLWriter(cmd.OutOrStdout(), "", string(target.Provider))
		if err = output.WriteBlobs(ctx, w, entries); err == nil {
			err = w.WriteSummary(ctx, summary)
		}
		_ = w.Close()
	}
	if err != nil {
		return exitError(ExitWriteFailed, "Writing output failed", err)
	}
	return nil
}

func (a *app) withTimeout(ctx context.Context, override time.Duration) (context.Context, context.CancelFunc) {
	timeout := a.cfg.Browse.Timeout
	if override > 0 {
		timeout = override
	}
	if timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return context.WithCancel(ctx)
}
